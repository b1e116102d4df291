package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lukketsvane/frivillig-db/configs"
	"github.com/lukketsvane/frivillig-db/internal/config"
	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
)

// projectConfigFile is the file written by config init.
const projectConfigFile = "frivillig.yaml"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
		Long: `Inspect the effective configuration.

Configuration precedence (lowest to highest):
  1. Built-in defaults
  2. User config (~/.config/frivillig/config.yaml)
  3. Project config (./frivillig.yaml) or --config
  4. Environment variables (FRIVILLIG_*, DATABASE_URL, QDRANT_*, ...)`,
		Example: `  # Create ./frivillig.yaml from the template
  frivillig config init

  # Show effective configuration with secrets masked
  frivillig config show

  # Print user config file path
  frivillig config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create ./frivillig.yaml from the template",
		Long: `Create ./frivillig.yaml with every setting and its default value.
An existing file is kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrinter(cmd.OutOrStdout())
			if fileExists(projectConfigFile) && !force {
				return ferrors.ValidationError(projectConfigFile+" already exists", nil).
					WithSuggestion("Use --force to overwrite it")
			}
			if err := os.WriteFile(projectConfigFile, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
				return ferrors.ConfigError("failed to write "+projectConfigFile, err)
			}
			p.Success("Created %s", projectConfigFile)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  `Show the merged configuration. API keys, database and Redis URLs are masked.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return cfg.Redacted().WriteYAML(cmd.OutOrStdout())
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}
