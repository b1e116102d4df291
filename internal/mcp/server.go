package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lukketsvane/frivillig-db/internal/corpus"
	"github.com/lukketsvane/frivillig-db/internal/organization"
	"github.com/lukketsvane/frivillig-db/internal/search"
	"github.com/lukketsvane/frivillig-db/pkg/version"
)

// ServerName is reported to clients during initialization.
const ServerName = "frivillig-db"

// Search limit bounds.
const (
	DefaultSearchLimit = search.DefaultLimit
	MaxSearchLimit     = 50
)

// Recommender runs the fallback chain. *search.Engine implements it.
type Recommender interface {
	Search(ctx context.Context, req search.Request) search.Result
}

// Resolver resolves an id or organisasjonsnummer. *search.Lookup
// implements it.
type Resolver interface {
	Get(ctx context.Context, ref string) (*organization.Organization, error)
}

// KommuneLister lists distinct municipalities. *store.Store implements it.
type KommuneLister interface {
	UniqueKommuner(ctx context.Context) ([]string, error)
}

// CorpusStats reports the flat-file cache state. *corpus.Cache implements it.
type CorpusStats interface {
	Stats() corpus.Stats
}

// Server is the MCP server. It bridges AI clients with the search engine
// and the organization lookup.
type Server struct {
	mcp      *mcp.Server
	engine   Recommender
	lookup   Resolver
	kommuner KommuneLister
	corpus   CorpusStats
	siteURL  string
	logger   *slog.Logger

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithSiteURL sets the base URL used for organization links.
func WithSiteURL(u string) ServerOption {
	return func(s *Server) {
		if u != "" {
			s.siteURL = u
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCorpus exposes corpus statistics as a resource.
func WithCorpus(c CorpusStats) ServerOption {
	return func(s *Server) { s.corpus = c }
}

var tools = []ToolInfo{
	{
		Name: "search_organizations",
		Description: "Find Norwegian volunteer organizations (frivillige organisasjonar) matching what the user wants to do. " +
			"Pass the user's postnummer, kommune or fylke when known so nearby organizations rank first.",
	},
	{
		Name:        "get_organization",
		Description: "Fetch one organization with contact details by UUID or 9-digit organisasjonsnummer.",
	},
	{
		Name:        "list_kommuner",
		Description: "List every municipality that has at least one registered organization.",
	},
}

// NewServer creates a new MCP server. kommuner may be nil, in which case
// list_kommuner reports the store as unavailable.
func NewServer(engine Recommender, lookup Resolver, kommuner KommuneLister, opts ...ServerOption) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if lookup == nil {
		return nil, errors.New("organization lookup is required")
	}

	s := &Server{
		engine:   engine,
		lookup:   lookup,
		kommuner: kommuner,
		siteURL:  DefaultSiteURL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "mcp"))

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	if s.corpus != nil {
		s.registerCorpusResource()
	}

	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

// CallTool invokes a tool by name with JSON-decoded arguments.
// search_organizations answers with markdown; the others with their
// structured output.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch name {
	case "search_organizations":
		in := SearchInput{
			Query:          stringArg(args, "query"),
			UserPostnummer: stringArg(args, "user_postnummer"),
			UserKommune:    stringArg(args, "user_kommune"),
			UserFylke:      stringArg(args, "user_fylke"),
			Limit:          intArg(args, "limit"),
		}
		res, err := s.searchOrganizations(ctx, in)
		if err != nil {
			return nil, err
		}
		return FormatSearchResults(s.siteURL, in.Query, res.Organizations), nil
	case "get_organization":
		return s.getOrganization(ctx, GetOrganizationInput{Ref: stringArg(args, "ref")})
	case "list_kommuner":
		return s.listKommuner(ctx)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func (s *Server) searchOrganizations(ctx context.Context, in SearchInput) (search.Result, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return search.Result{}, NewInvalidParamsError("query cannot be empty or whitespace only")
	}

	start := time.Now()
	requestID := generateRequestID()
	limit := clampLimit(in.Limit, DefaultSearchLimit, 1, MaxSearchLimit)

	s.logger.Info("search started",
		slog.String("request_id", requestID),
		slog.String("query", query),
		slog.Int("limit", limit))

	res := s.engine.Search(ctx, search.Request{
		Query: query,
		User:  in.location(),
		Limit: limit,
	})
	if err := ctx.Err(); err != nil {
		return search.Result{}, MapError(err)
	}

	s.logger.Info("search completed",
		slog.String("request_id", requestID),
		slog.String("backend", res.Backend),
		slog.Duration("duration", time.Since(start)),
		slog.Int("result_count", len(res.Organizations)))

	return res, nil
}

func (s *Server) getOrganization(ctx context.Context, in GetOrganizationInput) (*GetOrganizationOutput, error) {
	if strings.TrimSpace(in.Ref) == "" {
		return nil, NewInvalidParamsError("ref parameter is required")
	}
	org, err := s.lookup.Get(ctx, in.Ref)
	if err != nil {
		return nil, MapError(err)
	}
	return &GetOrganizationOutput{Organization: ToOrganizationOutput(s.siteURL, org, 0)}, nil
}

func (s *Server) listKommuner(ctx context.Context) (*ListKommunerOutput, error) {
	if s.kommuner == nil {
		return nil, &MCPError{Code: ErrCodeUnavailable, Message: "Municipality list is unavailable."}
	}
	names, err := s.kommuner.UniqueKommuner(ctx)
	if err != nil {
		s.logger.Error("list kommuner failed", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	if names == nil {
		names = []string{}
	}
	return &ListKommunerOutput{Kommuner: names}, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpGetOrganizationHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpListKommunerHandler)

	s.logger.Debug("MCP tools registered", slog.Int("count", len(tools)))
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	res, err := s.searchOrganizations(ctx, input)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Organizations: make([]OrganizationOutput, 0, len(res.Organizations)),
		Backend:       res.Backend,
	}
	for i := range res.Organizations {
		output.Organizations = append(output.Organizations,
			ToOrganizationOutput(s.siteURL, &res.Organizations[i], MaxDescriptionRunes))
	}
	return nil, output, nil
}

func (s *Server) mcpGetOrganizationHandler(ctx context.Context, _ *mcp.CallToolRequest, input GetOrganizationInput) (
	*mcp.CallToolResult,
	*GetOrganizationOutput,
	error,
) {
	out, err := s.getOrganization(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

func (s *Server) mcpListKommunerHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ListKommunerInput) (
	*mcp.CallToolResult,
	*ListKommunerOutput,
	error,
) {
	out, err := s.listKommuner(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// Serve runs the server on the given transport until ctx is canceled.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
