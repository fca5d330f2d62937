//go:build linux

package platform

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXDGDirs(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("XDG_CACHE_HOME", "/cache")

	assert.Equal(t, filepath.Join("/data", AppName), GetDataDir())
	assert.Equal(t, filepath.Join("/cache", AppName), GetCacheDir())
	assert.Equal(t, filepath.Join("/cache", AppName, "models"), ModelDir())
	assert.Equal(t, "libonnxruntime.so", ORTLibraryName())
}

func TestHomeFallback(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, filepath.Join("/home/tester", ".local", "share", AppName), GetDataDir())
}
