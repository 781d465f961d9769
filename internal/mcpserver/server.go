// Package mcpserver exposes recall's index/search/suggest_queries/
// prune_expired surface (spec.md §6's "Programmatic API") as MCP
// tools. Grounded on standardbeagle-lci/internal/mcp/server.go's
// mcp.NewServer + AddTool registration and
// handlers.go/response.go's createJSONResponse/createErrorResponse
// helpers, trimmed from the teacher's ~25-tool surface down to the
// four operations SPEC_FULL.md's programmatic API names.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/recallhq/recall/internal/indexer"
	"github.com/recallhq/recall/internal/memory"
	"github.com/recallhq/recall/internal/search"
)

// Deps wires the already-constructed pipeline components a running
// server needs; cmd/recall owns building these.
type Deps struct {
	Indexer     *indexer.Indexer
	Engine      *search.Engine
	Pruner      *memory.Pruner
	ProjectRoot string
	ProjectName string
}

// Server is a thin MCP front end over Deps.
type Server struct {
	deps   Deps
	server *mcp.Server
}

// New builds a Server and registers its tools. Call Run to serve.
func New(deps Deps) *Server {
	s := &Server{
		deps: deps,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "recall-mcp-server",
			Version: "0.1.0",
		}, nil),
	}
	s.registerTools()
	return s
}

// Run serves the MCP protocol over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "index",
		Description: "Index (or re-index incrementally) a project directory: parses changed files, updates the keyword and vector indexes, and returns run counters.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"directory": {Type: "string", Description: "Project root to index; defaults to the server's configured project root"},
			},
		},
	}, s.handleIndex)

	s.server.AddTool(&mcp.Tool{
		Name:        "search",
		Description: "Hybrid keyword + semantic code search over the indexed project. Supports the filter DSL (lang:/language:, file:/path:, project:, created:/modified: date clauses, -file: exclusions, quoted values).",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query":   {Type: "string", Description: "Search query, optionally containing filter terms"},
				"top_k":   {Type: "integer", Description: "Maximum results to return (default 10)"},
				"mode":    {Type: "string", Description: "One of semantic, keyword, hybrid (default hybrid)"},
				"project": {Type: "string", Description: "Active project name, for project-weighted ranking"},
			},
			Required: []string{"query"},
		},
	}, s.handleSearch)

	s.server.AddTool(&mcp.Tool{
		Name:        "suggest_queries",
		Description: "Suggest search queries from the currently-indexed unit corpus, optionally narrowed by an intent substring.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"intent":  {Type: "string", Description: "Substring to match against indexed unit names"},
				"project": {Type: "string", Description: "Project name to report in indexed_stats"},
				"max":     {Type: "integer", Description: "Maximum suggestions to return (default 10)"},
			},
		},
	}, s.handleSuggestQueries)

	s.server.AddTool(&mcp.Tool{
		Name:        "prune_expired",
		Description: "Run the memory lifecycle pruner: deletes SESSION_STATE memories past their TTL and stale use_count==0 memories, subject to the 24h safety gate.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"dry_run":   {Type: "boolean", Description: "When true, returns the candidate list without deleting anything"},
				"ttl_hours": {Type: "integer", Description: "Override the configured SESSION_STATE TTL, in hours"},
			},
		},
	}, s.handlePruneExpired)
}

type indexParams struct {
	Directory string `json:"directory"`
}

func (s *Server) handleIndex(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params indexParams
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return errorResponse("index", fmt.Errorf("invalid parameters: %w", err))
		}
	}
	dir := params.Directory
	if dir == "" {
		dir = s.deps.ProjectRoot
	}
	if s.deps.Indexer == nil {
		return errorResponse("index", fmt.Errorf("indexer not configured"))
	}

	stats, err := s.deps.Indexer.Run(ctx, dir)
	if err != nil {
		return errorResponse("index", err)
	}
	return jsonResponse(map[string]interface{}{
		"files_indexed": stats.FilesIndexed,
		"files_deleted": stats.FilesDeleted,
		"units_indexed": stats.UnitsAdded + stats.UnitsUpdated,
		"cache_hits":    stats.CacheHits,
		"cache_misses":  stats.CacheMisses,
		"duration_s":    stats.Duration.Seconds(),
	})
}

type searchParams struct {
	Query   string `json:"query"`
	TopK    int    `json:"top_k"`
	Mode    string `json:"mode"`
	Project string `json:"project"`
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params searchParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResponse("search", fmt.Errorf("invalid parameters: %w", err))
	}
	if s.deps.Engine == nil {
		return errorResponse("search", fmt.Errorf("search engine not configured"))
	}

	resp, err := s.deps.Engine.Search(ctx, search.Request{
		QueryString:      params.Query,
		TopK:             params.TopK,
		Mode:             search.Mode(params.Mode),
		Project:          params.Project,
		ProjectWeighting: params.Project != "",
	})
	if err != nil {
		return errorResponse("search", err)
	}
	return jsonResponse(resp)
}

type suggestQueriesParams struct {
	Intent  string `json:"intent"`
	Project string `json:"project"`
	Max     int    `json:"max"`
}

func (s *Server) handleSuggestQueries(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params suggestQueriesParams
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return errorResponse("suggest_queries", fmt.Errorf("invalid parameters: %w", err))
		}
	}
	max := params.Max
	if max <= 0 {
		max = 10
	}
	if s.deps.Indexer == nil {
		return errorResponse("suggest_queries", fmt.Errorf("indexer not configured"))
	}

	units := s.deps.Indexer.AllUnits()
	seen := make(map[string]bool)
	var suggestions []string
	for _, u := range units {
		if len(suggestions) >= max {
			break
		}
		if params.Intent != "" && !strings.Contains(strings.ToLower(u.Name), strings.ToLower(params.Intent)) {
			continue
		}
		if seen[u.Name] {
			continue
		}
		seen[u.Name] = true
		suggestions = append(suggestions, u.Name)
	}

	project := params.Project
	if project == "" {
		project = s.deps.ProjectName
	}
	return jsonResponse(map[string]interface{}{
		"suggestions": suggestions,
		"indexed_stats": map[string]interface{}{
			"project":      project,
			"total_units":  len(units),
			"matched_hint": params.Intent,
		},
	})
}

type pruneExpiredParams struct {
	DryRun   bool `json:"dry_run"`
	TTLHours int  `json:"ttl_hours"`
}

func (s *Server) handlePruneExpired(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params pruneExpiredParams
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return errorResponse("prune_expired", fmt.Errorf("invalid parameters: %w", err))
		}
	}
	if s.deps.Pruner == nil {
		return errorResponse("prune_expired", fmt.Errorf("pruner not configured"))
	}

	result, err := s.deps.Pruner.PruneExpired(ctx, memory.Options{DryRun: params.DryRun, TTLHours: params.TTLHours})
	if err != nil {
		return errorResponse("prune_expired", err)
	}
	return jsonResponse(map[string]interface{}{
		"candidates": result.Candidates,
		"deleted":    result.Deleted,
	})
}
