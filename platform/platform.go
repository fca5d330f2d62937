// Package platform resolves per-OS directories for the service's data and
// downloaded models.
package platform

import (
	"path/filepath"
)

// AppName is the application name used for directory naming
const AppName = "recon3d"

// AppDisplayName is the directory name used on Windows and macOS
const AppDisplayName = "Recon3D"

// GetDataDir returns the application data directory.
// Windows: %APPDATA%\Recon3D
// Linux: ~/.local/share/recon3d
func GetDataDir() string {
	return getDataDir()
}

// GetCacheDir returns the cache directory for downloaded models.
// Windows: %APPDATA%\Recon3D
// Linux: ~/.cache/recon3d
func GetCacheDir() string {
	return getCacheDir()
}

// ModelDir is where depth models are downloaded to.
func ModelDir() string {
	return filepath.Join(GetCacheDir(), "models")
}

// ORTLibraryName is the conventional onnxruntime shared library file name.
func ORTLibraryName() string {
	switch ext := sharedLibExtension(); ext {
	case ".so", ".dylib":
		return "libonnxruntime" + ext
	default:
		return "onnxruntime" + ext
	}
}
