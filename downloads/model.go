package downloads

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNoModel is returned when a bundle holds no model file.
var ErrNoModel = errors.New("no .onnx model found")

// ModelSpec locates a model on disk and where to fetch it from.
type ModelSpec struct {
	// URL of the model file or of a .zip/.7z bundle containing it.
	URL string
	// Dir receives the download and extracted files.
	Dir string
	// FileName of the model inside Dir. Defaults to the URL's base name for
	// direct downloads.
	FileName string
}

// EnsureModel returns the path to the model described by spec, downloading
// and extracting it first when it is not already present.
func (d *Downloader) EnsureModel(ctx context.Context, spec ModelSpec) (string, error) {
	if spec.Dir == "" {
		return "", errors.New("model directory cannot be empty")
	}
	if spec.URL == "" {
		if spec.FileName != "" {
			if p := filepath.Join(spec.Dir, spec.FileName); exists(p) {
				return p, nil
			}
		}
		return "", fmt.Errorf("%w in %s and no download url configured", ErrNoModel, spec.Dir)
	}
	u, err := url.Parse(spec.URL)
	if err != nil {
		return "", fmt.Errorf("invalid model url: %w", err)
	}
	base := path.Base(u.Path)
	if base == "" || base == "/" || base == "." {
		return "", fmt.Errorf("cannot derive a file name from %s", spec.URL)
	}
	if p, ok := existingModel(spec, base); ok {
		return p, nil
	}
	if err := os.MkdirAll(spec.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	partial := filepath.Join(spec.Dir, base+".part")
	if err := d.FetchWithRetry(ctx, partial, spec.URL); err != nil {
		return "", err
	}
	downloaded := filepath.Join(spec.Dir, base)
	if err := os.Rename(partial, downloaded); err != nil {
		return "", err
	}

	if isArchive(base) {
		files, err := Extract(downloaded, spec.Dir)
		if err != nil {
			return "", err
		}
		os.Remove(downloaded)
		return pickModel(files, spec.FileName)
	}
	if spec.FileName != "" && spec.FileName != base {
		target := filepath.Join(spec.Dir, spec.FileName)
		if err := os.Rename(downloaded, target); err != nil {
			return "", err
		}
		return target, nil
	}
	return downloaded, nil
}

// existingModel finds a model left by an earlier EnsureModel. Bundles are
// matched against the files already extracted under Dir.
func existingModel(spec ModelSpec, base string) (string, bool) {
	if spec.FileName != "" {
		if p := filepath.Join(spec.Dir, spec.FileName); exists(p) {
			return p, true
		}
	}
	if !isArchive(base) {
		if spec.FileName != "" {
			return "", false
		}
		p := filepath.Join(spec.Dir, base)
		return p, exists(p)
	}
	var files []string
	filepath.WalkDir(spec.Dir, func(p string, e fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !e.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	p, err := pickModel(files, spec.FileName)
	return p, err == nil
}

func isArchive(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".zip", ".7z":
		return true
	}
	return false
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// pickModel prefers an entry named want, then the first .onnx file.
func pickModel(files []string, want string) (string, error) {
	var first string
	for _, f := range files {
		if want != "" && filepath.Base(f) == want {
			return f, nil
		}
		if first == "" && strings.EqualFold(filepath.Ext(f), ".onnx") {
			first = f
		}
	}
	if first == "" {
		return "", ErrNoModel
	}
	return first, nil
}
