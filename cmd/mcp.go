package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"coderag/internal/pipeline"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing repository indexing and search tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	reg := &pipelineRegistry{pipelines: map[string]*pipeline.Pipeline{}}

	s := mcpserver.NewMCPServer("coderag", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(indexRepositoryTool(), reg.handleIndexRepository)
	s.AddTool(searchCodeTool(), reg.handleSearchCode)
	s.AddTool(repositorySummaryTool(), reg.handleRepositorySummary)

	return mcpserver.ServeStdio(s)
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// pipelineRegistry lazily creates one pipeline per repository path for the
// lifetime of the MCP session.
type pipelineRegistry struct {
	mu        sync.Mutex
	pipelines map[string]*pipeline.Pipeline
}

func (r *pipelineRegistry) get(path string) (*pipeline.Pipeline, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pipelines[abs]; ok {
		return p, nil
	}
	p, err := pipeline.New(abs, cfg, newEmbedder(), log)
	if err != nil {
		return nil, err
	}
	r.pipelines[abs] = p
	return p, nil
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func indexRepositoryTool() mcp.Tool {
	return mcp.NewTool("index_repository",
		mcp.WithDescription("Build or load the semantic index for a local repository. Returns a build report with chunk and failure counts."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Local repository root to index"),
		),
		mcp.WithBoolean("force",
			mcp.Description("Rebuild even when a cache entry exists (default false)"),
		),
	)
}

func searchCodeTool() mcp.Tool {
	return mcp.NewTool("search_code",
		mcp.WithDescription("Semantically search an indexed repository. Returns relevant code chunks with file paths, line numbers and similarity scores."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Local repository root (must be indexed first, or will be indexed on demand)"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language or keyword query"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of chunks to return (default 5)"),
		),
	)
}

func repositorySummaryTool() mcp.Tool {
	return mcp.NewTool("repository_summary",
		mcp.WithDescription("Get chunk, file, language and chunk-type counts for an indexed repository."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Local repository root"),
		),
	)
}

// --- Handlers ---

func (r *pipelineRegistry) handleIndexRepository(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	force := req.GetBool("force", false)

	p, err := r.get(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("open repository: %v", err)), nil
	}
	report, err := p.BuildOrLoad(ctx, force)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("build failed: %v", err)), nil
	}

	text := fmt.Sprintf(
		"Indexed %s\n- From cache: %v\n- Files scanned: %d\n- Chunks created: %d\n- Chunks embedded: %d\n- Chunks failed: %d\n- Cache saved: %v\n- Duration: %s\n",
		path, report.FromCache, report.FilesScanned, report.ChunksCreated,
		report.ChunksEmbedded, report.ChunksFailed, report.CacheSaved, report.Duration)
	return mcp.NewToolResultText(text), nil
}

func (r *pipelineRegistry) handleSearchCode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	query := req.GetString("query", "")
	if path == "" || query == "" {
		return mcp.NewToolResultError("path and query are required"), nil
	}
	k := req.GetInt("k", 5)
	if k <= 0 {
		k = 5
	}

	p, err := r.get(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("open repository: %v", err)), nil
	}
	if _, err := p.BuildOrLoad(ctx, false); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("build failed: %v", err)), nil
	}

	results, err := p.Query(ctx, query, k)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return mcp.NewToolResultText(pipeline.FormatResults(query, results)), nil
}

func (r *pipelineRegistry) handleRepositorySummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}

	p, err := r.get(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("open repository: %v", err)), nil
	}
	if _, err := p.BuildOrLoad(ctx, false); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("build failed: %v", err)), nil
	}

	return mcp.NewToolResultText(pipeline.FormatSummary(p.Summarize())), nil
}
