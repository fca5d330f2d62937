// Package downloads fetches and unpacks model bundles.
package downloads

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	// DefaultRetryAttempts is the number of times to retry a failed download.
	DefaultRetryAttempts = 3
	// DefaultRetryDelay is the delay between retry attempts.
	DefaultRetryDelay = 5 * time.Second
	// DefaultBufferSize is the buffer size for file downloads.
	DefaultBufferSize = 32 * 1024 // 32KB
)

// Downloader fetches URLs to disk, resuming partial files.
type Downloader struct {
	Client     *http.Client
	Attempts   int
	RetryDelay time.Duration
	Progress   ByteProgressCallback
}

// NewDownloader returns a downloader with the default retry policy.
func NewDownloader() *Downloader {
	return &Downloader{
		// No timeout for large downloads; callers bound it with ctx.
		Client:     &http.Client{},
		Attempts:   DefaultRetryAttempts,
		RetryDelay: DefaultRetryDelay,
	}
}

// Fetch downloads url to destPath. If destPath already holds a partial file
// the download resumes with an HTTP Range request.
func (d *Downloader) Fetch(ctx context.Context, destPath, url string) error {
	var existingSize int64
	if stat, err := os.Stat(destPath); err == nil {
		existingSize = stat.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if existingSize > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", existingSize))
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	var out *os.File
	switch resp.StatusCode {
	case http.StatusOK:
		existingSize = 0
		out, err = os.Create(destPath)
	case http.StatusPartialContent:
		out, err = os.OpenFile(destPath, os.O_APPEND|os.O_WRONLY, 0644)
	default:
		return fmt.Errorf("bad status: %s", resp.Status)
	}
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer out.Close()

	totalSize := resp.ContentLength
	if totalSize > 0 {
		totalSize += existingSize
	}

	downloaded := existingSize
	buffer := make([]byte, DefaultBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := resp.Body.Read(buffer)
		if n > 0 {
			if _, writeErr := out.Write(buffer[:n]); writeErr != nil {
				return fmt.Errorf("failed to write to file: %w", writeErr)
			}
			downloaded += int64(n)
			if d.Progress != nil {
				d.Progress(downloaded, totalSize)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
	}
	return nil
}

// FetchWithRetry retries Fetch until it succeeds, ctx ends, or attempts run out.
func (d *Downloader) FetchWithRetry(ctx context.Context, destPath, url string) error {
	attempts := d.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := d.Fetch(ctx, destPath, url)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return err
		}
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.RetryDelay):
			}
		}
	}
	return fmt.Errorf("download failed after %d attempts: %w", attempts, lastErr)
}
