package downloads

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ByteProgressCallback is called to report raw byte progress during download.
type ByteProgressCallback func(downloaded, total int64)

// LogProgress returns a callback that logs at most once per interval.
func LogProgress(logger *zap.Logger, name string, interval time.Duration) ByteProgressCallback {
	var last time.Time
	return func(downloaded, total int64) {
		if time.Since(last) < interval && downloaded != total {
			return
		}
		last = time.Now()
		fields := []zap.Field{zap.String("file", name), zap.String("downloaded", FormatBytes(downloaded))}
		if total > 0 {
			fields = append(fields, zap.String("percent", fmt.Sprintf("%.1f", 100*float64(downloaded)/float64(total))))
		}
		logger.Info("Downloading", fields...)
	}
}

// FormatBytes formats bytes as human-readable size.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
