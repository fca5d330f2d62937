package downloads

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
)

// Extract unpacks a .zip or .7z archive into destDir and returns the paths
// of the extracted files.
func Extract(archivePath, destDir string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(archivePath)) {
	case ".zip":
		return ExtractZip(archivePath, destDir)
	case ".7z":
		return Extract7z(archivePath, destDir)
	default:
		return nil, fmt.Errorf("unsupported archive type: %s", filepath.Base(archivePath))
	}
}

// ExtractZip extracts a ZIP archive to the destination directory.
func ExtractZip(archivePath, destDir string) ([]string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip archive: %w", err)
	}
	defer reader.Close()

	var extracted []string
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		destPath, err := safeJoin(destDir, file.Name)
		if err != nil {
			return extracted, err
		}
		rc, err := file.Open()
		if err != nil {
			return extracted, fmt.Errorf("failed to open %s in archive: %w", file.Name, err)
		}
		err = writeFile(destPath, rc)
		rc.Close()
		if err != nil {
			return extracted, err
		}
		extracted = append(extracted, destPath)
	}
	return extracted, nil
}

// Extract7z extracts a 7z archive to the destination directory.
func Extract7z(archivePath, destDir string) ([]string, error) {
	reader, err := sevenzip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open 7z archive: %w", err)
	}
	defer reader.Close()

	var extracted []string
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		destPath, err := safeJoin(destDir, file.Name)
		if err != nil {
			return extracted, err
		}
		rc, err := file.Open()
		if err != nil {
			return extracted, fmt.Errorf("failed to open %s in archive: %w", file.Name, err)
		}
		err = writeFile(destPath, rc)
		rc.Close()
		if err != nil {
			return extracted, err
		}
		extracted = append(extracted, destPath)
	}
	return extracted, nil
}

// safeJoin rejects archive entries that would land outside destDir.
func safeJoin(destDir, name string) (string, error) {
	destPath := filepath.Join(destDir, name)
	rel, err := filepath.Rel(destDir, destPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry escapes destination: %s", name)
	}
	return destPath, nil
}

func writeFile(destPath string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("failed to extract %s: %w", destPath, err)
	}
	return nil
}
