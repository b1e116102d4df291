package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/spf13/cobra"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
	"github.com/lukketsvane/frivillig-db/internal/organization"
	"github.com/lukketsvane/frivillig-db/internal/store"
)

func newGetCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "get <id|organisasjonsnummer>",
		Short: "Show one organization",
		Long: `Show one organization by UUID or 9-digit organisasjonsnummer.

Organisasjonsnummer are looked up in the flat-file corpus first and
then in the database.`,
		Example: `  frivillig get 971234567
  frivillig get 8f14e45f-ceea-467f-a8f5-7d2b3c4e5f60 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.Context(), cmd.OutOrStdout(), args[0], jsonOut)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")

	return cmd
}

func runGet(ctx context.Context, out io.Writer, ref string, jsonOut bool) error {
	if _, err := organization.ParseRef(ref); err != nil {
		return ferrors.New(ferrors.ErrCodeInvalidRef, "reference must be a UUID or a 9-digit organisasjonsnummer", err).
			WithDetail("ref", ref)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, cleanup, err := commandLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := newApp(ctx, cfg, logger, appOptions{mode: modeRelational})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	org, err := a.lookup.Get(ctx, ref)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ferrors.NotFoundError("organization not found").WithDetail("ref", ref)
	case err != nil:
		return ferrors.StorageError("lookup failed", err)
	}

	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(org)
	}
	newPrinter(out).Organization(org)
	return nil
}
