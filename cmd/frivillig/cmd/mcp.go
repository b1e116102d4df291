package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lukketsvane/frivillig-db/internal/logging"
	"github.com/lukketsvane/frivillig-db/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var siteURL string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server over stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout.

Tools: search_organizations, get_organization and list_kommuner.
stdout carries only protocol messages; logs go to ~/.frivillig/logs/mcp.log.`,
		Example: `  # Claude Desktop / any MCP client
  {"command": "frivillig", "args": ["mcp"]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCP(cmd.Context(), siteURL)
		},
	}

	cmd.Flags().StringVar(&siteURL, "site-url", mcp.DefaultSiteURL, "Base URL for organization links")

	return cmd
}

func runMCP(ctx context.Context, siteURL string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cleanup, err := logging.SetupMCPMode(cfg.Logging)
	if err != nil {
		return err
	}
	defer cleanup()
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, appOptions{mode: modeHybrid})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var kommuner mcp.KommuneLister
	if a.store != nil {
		kommuner = a.store
	}

	srv, err := mcp.NewServer(a.engine, a.lookup, kommuner,
		mcp.WithSiteURL(siteURL),
		mcp.WithLogger(logger),
		mcp.WithCorpus(a.corpus))
	if err != nil {
		return err
	}
	return srv.Serve(ctx, "stdio")
}
