package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level"`
	// Format is "json" (default) or "text".
	Format string `yaml:"format"`
	// FilePath enables file logging when non-empty.
	FilePath string `yaml:"file"`
	// MaxSizeMB is the size that triggers rotation.
	MaxSizeMB int `yaml:"max_size_mb"`
	// MaxFiles is the number of rotated files kept.
	MaxFiles int `yaml:"max_files"`
	// WriteToStderr also writes to stderr when a file is set.
	WriteToStderr bool `yaml:"stderr"`
}

// DefaultConfig logs JSON at info level to stderr.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		Format:        "json",
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// DefaultLogDir returns ~/.frivillig/logs, or a temp directory when the home
// directory is unknown.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".frivillig", "logs")
	}
	return filepath.Join(home, ".frivillig", "logs")
}

// Setup builds a logger from cfg. The returned cleanup closes the log file
// and is safe to call when no file is configured.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	var (
		out     io.Writer = os.Stderr
		cleanup           = func() {}
	)

	if cfg.FilePath != "" {
		writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		out = writer
		if cfg.WriteToStderr {
			out = io.MultiWriter(writer, os.Stderr)
		}
		cleanup = func() {
			_ = writer.Sync()
			_ = writer.Close()
		}
	}

	return slog.New(newHandler(out, cfg)), cleanup, nil
}

// SetupMCPMode logs to a file only. Anything written to stdout or stderr
// before the client disconnects corrupts the protocol stream.
func SetupMCPMode(cfg Config) (func(), error) {
	if cfg.FilePath == "" {
		cfg.FilePath = filepath.Join(DefaultLogDir(), "mcp.log")
	}
	cfg.WriteToStderr = false
	cfg.Format = "json"

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	slog.Info("mcp logging initialized", slog.String("log_file", cfg.FilePath))
	return cleanup, nil
}

func newHandler(out io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(out, opts)
	}
	return slog.NewJSONHandler(out, opts)
}

// ParseLevel converts a level name to slog.Level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
