package preflight

import (
	"context"
	"fmt"
	"syscall"
)

// MinDiskSpaceBytes is the free space needed for the local index (100MB).
const MinDiskSpaceBytes = 100 * 1024 * 1024

// DiskSpaceCheck checks free space at path. Low space only warns: the
// server can run without writing the local index.
func DiskSpaceCheck(path string) Check {
	return Check{
		Name: "disk_space",
		Run: func(context.Context) (CheckStatus, string) {
			var stat syscall.Statfs_t
			if err := syscall.Statfs(path, &stat); err != nil {
				return StatusWarn, fmt.Sprintf("failed to check disk space: %v", err)
			}

			available := stat.Bavail * uint64(stat.Bsize)
			msg := fmt.Sprintf("%s free (minimum: 100 MB)", formatBytes(available))
			if available < MinDiskSpaceBytes {
				return StatusWarn, msg
			}
			return StatusPass, msg
		},
	}
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
