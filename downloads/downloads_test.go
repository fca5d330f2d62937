package downloads

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDownloader() *Downloader {
	d := NewDownloader()
	d.RetryDelay = time.Millisecond
	return d
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestFetchResumesPartialFile(t *testing.T) {
	const body = "0123456789"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "model.onnx", time.Time{}, strings.NewReader(body))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "model.onnx")
	require.NoError(t, os.WriteFile(dest, []byte("0123"), 0644))

	var last int64
	d := testDownloader()
	d.Progress = func(downloaded, total int64) {
		last = downloaded
		assert.Equal(t, int64(len(body)), total)
	}
	require.NoError(t, d.Fetch(context.Background(), dest, srv.URL+"/model.onnx"))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
	assert.Equal(t, int64(len(body)), last)
}

func TestFetchWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "f")
	require.NoError(t, testDownloader().FetchWithRetry(context.Background(), dest, srv.URL))
	assert.Equal(t, int32(3), calls.Load())

	d := testDownloader()
	d.Attempts = 2
	calls.Store(-10)
	err := d.FetchWithRetry(context.Background(), filepath.Join(t.TempDir(), "g"), srv.URL)
	assert.ErrorContains(t, err, "after 2 attempts")
}

func TestEnsureModelFromZip(t *testing.T) {
	bundle := zipBytes(t, map[string]string{
		"README.txt":             "midas",
		"weights/midas_v21.onnx": "onnx-bytes",
	})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write(bundle)
	}))
	defer srv.Close()

	dir := t.TempDir()
	spec := ModelSpec{URL: srv.URL + "/midas.zip", Dir: dir, FileName: "midas_v21.onnx"}
	p, err := testDownloader().EnsureModel(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "weights", "midas_v21.onnx"), p)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "onnx-bytes", string(data))
	_, err = os.Stat(filepath.Join(dir, "midas.zip"))
	assert.True(t, os.IsNotExist(err))

	// A model already in place is not downloaded again.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "midas_v21.onnx"), []byte("x"), 0644))
	p, err = testDownloader().EnsureModel(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "midas_v21.onnx"), p)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEnsureModelDirectFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("onnx"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	p, err := testDownloader().EnsureModel(context.Background(),
		ModelSpec{URL: srv.URL + "/models/depth.onnx", Dir: dir, FileName: "midas.onnx"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "midas.onnx"), p)
}

func TestEnsureModelErrors(t *testing.T) {
	_, err := testDownloader().EnsureModel(context.Background(), ModelSpec{Dir: t.TempDir(), FileName: "m.onnx"})
	assert.ErrorIs(t, err, ErrNoModel)

	_, err = testDownloader().EnsureModel(context.Background(), ModelSpec{})
	assert.Error(t, err)
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	require.NoError(t, os.WriteFile(archive, zipBytes(t, map[string]string{"../escape.onnx": "x"}), 0644))

	_, err := Extract(archive, filepath.Join(dir, "out"))
	assert.Error(t, err)

	_, err = Extract(filepath.Join(dir, "bundle.rar"), dir)
	assert.Error(t, err)
}

func TestPickModel(t *testing.T) {
	p, err := pickModel([]string{"a/readme.md", "a/b.ONNX", "a/c.onnx"}, "")
	require.NoError(t, err)
	assert.Equal(t, "a/b.ONNX", p)

	_, err = pickModel([]string{"a/readme.md"}, "")
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 KB", FormatBytes(1536))
	assert.Equal(t, "2.0 MB", FormatBytes(2*1024*1024))
}

func TestEnsureModelReusesDownload(t *testing.T) {
	bundle := zipBytes(t, map[string]string{"weights/midas.onnx": "onnx-bytes"})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if strings.HasSuffix(r.URL.Path, ".zip") {
			w.Write(bundle)
			return
		}
		w.Write([]byte("onnx"))
	}))
	defer srv.Close()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"direct", "/midas.onnx", "midas.onnx"},
		{"bundle", "/midas.zip", filepath.Join("weights", "midas.onnx")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls.Store(0)
			dir := t.TempDir()
			spec := ModelSpec{URL: srv.URL + tt.url, Dir: dir}
			for i := 0; i < 3; i++ {
				p, err := testDownloader().EnsureModel(context.Background(), spec)
				require.NoError(t, err)
				assert.Equal(t, filepath.Join(dir, tt.want), p)
			}
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}
