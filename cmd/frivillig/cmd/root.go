// Package cmd provides the CLI commands for frivillig.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lukketsvane/frivillig-db/internal/config"
	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
	"github.com/lukketsvane/frivillig-db/internal/logging"
	"github.com/lukketsvane/frivillig-db/internal/profiling"
	"github.com/lukketsvane/frivillig-db/internal/ui"
	"github.com/lukketsvane/frivillig-db/pkg/version"
)

// Persistent flags.
var (
	configPath   string
	debugMode    bool
	noColor      bool
	profileCPU   string
	profileMem   string
	profileTrace string
)

var (
	profiles       *profiling.Session
	loggingCleanup func()
)

// NewRootCmd creates the root command for the frivillig CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frivillig",
		Short: "Search the Norwegian register of voluntary organizations",
		Long: `frivillig finds organizations in Frivilligregisteret.

Searches walk a chain of backends: semantic vector search first, then
the relational database, then a keyword scan of the flat-file corpus.
Results are ordered by proximity to the caller when a location is known.

The same engine is served over HTTP ('frivillig serve') and over the
Model Context Protocol ('frivillig mcp').`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("frivillig version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./frivillig.yaml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.frivillig/logs/")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newKommunerCmd())
	cmd.AddCommand(newCorpusCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging starts profiling and debug logging if flags are set.
func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if debugMode {
		logCfg := debugLogConfig()
		logger, cleanup, err := logging.Setup(logCfg)
		if err != nil {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		loggingCleanup = cleanup
		slog.SetDefault(logger)
		slog.Info("Debug logging enabled",
			slog.String("log_file", logCfg.FilePath),
			slog.String("version", version.Short()))
	}

	opts := profiling.Options{CPU: profileCPU, Mem: profileMem, Trace: profileTrace}
	if opts.Enabled() {
		s, err := profiling.Start(opts)
		if err != nil {
			return err
		}
		profiles = s
	}
	return nil
}

// stopProfilingAndLogging flushes profiles and closes the debug log.
func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	err := profiles.Stop()
	profiles = nil

	if loggingCleanup != nil {
		slog.Info("Debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return err
}

func debugLogConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = "debug"
	cfg.FilePath = filepath.Join(logging.DefaultLogDir(), "frivillig.log")
	cfg.WriteToStderr = false
	return cfg
}

// loadConfig reads the effective configuration for the working directory.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(".", configPath)
	if err != nil {
		if _, ok := ferrors.As(err); ok {
			return nil, err
		}
		return nil, ferrors.ConfigError(err.Error(), err)
	}
	if debugMode {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// commandLogger returns the logger for one-shot commands. Output on stdout
// stays clean: logs go to a file unless --debug already installed one.
func commandLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	if debugMode {
		return slog.Default(), func() {}, nil
	}
	logCfg := cfg.Logging
	if logCfg.FilePath == "" {
		logCfg.FilePath = filepath.Join(logging.DefaultLogDir(), "cli.log")
	}
	logCfg.WriteToStderr = false
	return logging.Setup(logCfg)
}

// newPrinter creates a CLI printer honoring --no-color.
func newPrinter(out io.Writer, opts ...ui.ConfigOption) *ui.Printer {
	if noColor {
		opts = append(opts, ui.WithNoColor(true))
	}
	return ui.NewPrinter(ui.NewConfig(out, opts...))
}

// Execute runs the root command and prints a formatted error on failure.
func Execute() error {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ferrors.FormatForCLI(err))
	}
	return err
}
