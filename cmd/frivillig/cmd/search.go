package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
	"github.com/lukketsvane/frivillig-db/internal/organization"
	"github.com/lukketsvane/frivillig-db/internal/search"
	"github.com/lukketsvane/frivillig-db/internal/ui"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	mode       string
	location   string
	postnummer string
	kommune    string
	fylke      string
	interests  []string
	ageGroup   string
	limit      int
	jsonOut    bool
	plain      bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Find organizations",
		Long: `Find organizations through the recommendation chain.

Modes:
  hybrid      vector search, then the database, then the corpus (default)
  vector      vector search only
  relational  database only
  lexical     keyword scan of the flat-file corpus only

--postnummer, --kommune and --fylke describe where you are; closer
organizations are listed first. --location filters by place name.`,
		Example: `  frivillig search "kor i bergen"
  frivillig search sjakk --kommune BERGEN --fylke VESTLAND
  frivillig search --interest fotball --interest friluftsliv --age-group ungdom
  frivillig search speidar --mode lexical --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd.OutOrStdout(), strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", modeHybrid, "Search mode: hybrid, vector, relational, lexical")
	cmd.Flags().StringVarP(&opts.location, "location", "l", "", "Only places matching this poststed, kommune or fylke")
	cmd.Flags().StringVar(&opts.postnummer, "postnummer", "", "Your postnummer")
	cmd.Flags().StringVar(&opts.kommune, "kommune", "", "Your kommune")
	cmd.Flags().StringVar(&opts.fylke, "fylke", "", "Your fylke")
	cmd.Flags().StringSliceVarP(&opts.interests, "interest", "i", nil, "Interest (repeatable)")
	cmd.Flags().StringVar(&opts.ageGroup, "age-group", "", "Age group, e.g. barn, ungdom, vaksen")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default search.default_limit)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Output JSON")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Plain output without colors or borders")

	return cmd
}

func runSearch(ctx context.Context, out io.Writer, query string, opts searchOptions) error {
	switch opts.mode {
	case modeHybrid, modeVector, modeRelational, modeLexical:
	default:
		return modeError(opts.mode)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.limit < 0 || opts.limit > cfg.Server.MaxLimit {
		return ferrors.New(ferrors.ErrCodeInvalidLimit,
			fmt.Sprintf("limit must be between 1 and %d", cfg.Server.MaxLimit), nil).
			WithDetail("limit", strconv.Itoa(opts.limit))
	}
	logger, cleanup, err := commandLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := newApp(ctx, cfg, logger, appOptions{mode: opts.mode})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	if opts.mode == modeRelational {
		if _, err := a.requireStoreFor("relational search"); err != nil {
			return err
		}
	}

	limit := opts.limit
	if limit == 0 {
		limit = cfg.Search.DefaultLimit
	}

	req := search.Request{
		Query:     query,
		Interests: opts.interests,
		AgeGroup:  opts.ageGroup,
		Location:  opts.location,
		User: organization.Location{
			Postnummer: opts.postnummer,
			Kommune:    opts.kommune,
			Fylke:      opts.fylke,
		},
		Limit: limit,
	}
	result := a.engine.Search(ctx, req)

	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	p := newPrinter(out, ui.WithForcePlain(opts.plain))
	p.Organizations(result.Organizations)
	if result.Backend == "" {
		p.Warning("no search backend answered")
		return nil
	}
	fmt.Fprintln(out)
	p.KeyValue("Backend", result.Backend)
	if len(result.Fallbacks) > 0 {
		p.KeyValue("Fallbacks", strings.Join(result.Fallbacks, ", "))
	}
	return nil
}
