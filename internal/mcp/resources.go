package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CorpusStatsURI is the resource holding the flat-file cache state.
const CorpusStatsURI = "frivillig://corpus/stats"

func (s *Server) registerCorpusResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "corpus_stats",
			URI:         CorpusStatsURI,
			Description: "Organization corpus load state: record count, shards loaded and failed, load time",
			MIMEType:    "application/json",
		},
		s.handleCorpusStats,
	)
}

func (s *Server) handleCorpusStats(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	text, err := s.corpusStatsJSON()
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      CorpusStatsURI,
				MIMEType: "application/json",
				Text:     text,
			},
		},
	}, nil
}

func (s *Server) corpusStatsJSON() (string, error) {
	if s.corpus == nil {
		return "", NewInvalidParamsError("corpus statistics are not available")
	}
	data, err := json.MarshalIndent(s.corpus.Stats(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
