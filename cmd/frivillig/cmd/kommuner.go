package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
)

func newKommunerCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "kommuner",
		Short: "List kommuner with registered organizations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runKommuner(cmd.Context(), cmd.OutOrStdout(), jsonOut)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")

	return cmd
}

func runKommuner(ctx context.Context, out io.Writer, jsonOut bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, cleanup, err := commandLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	kommuner, err := st.UniqueKommuner(ctx)
	if err != nil {
		return ferrors.StorageError("failed to list kommuner", err)
	}
	if kommuner == nil {
		kommuner = []string{}
	}

	if jsonOut {
		return json.NewEncoder(out).Encode(kommuner)
	}
	for _, k := range kommuner {
		fmt.Fprintln(out, k)
	}
	return nil
}
