package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bio-mcp/bio-mcp-amber/internal/amber"
	"github.com/bio-mcp/bio-mcp-amber/internal/mcp/tools/types"
)

const maxListedRuns = 200

type RunLister interface {
	RecentRuns(ctx context.Context, limit int) ([]amber.RunRecord, error)
}

type ListRunsHandler struct {
	Service RunLister
}

func (h *ListRunsHandler) ToolAdapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit, err := intArgument(req.GetArguments(), "limit", 20)
	if err != nil {
		return invalidArgument(err), nil
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > maxListedRuns {
		limit = maxListedRuns
	}
	runs, err := h.Service.RecentRuns(ctx, limit)
	if err != nil {
		return errorResult(err), nil
	}
	if runs == nil {
		runs = []amber.RunRecord{}
	}
	return mcp.NewToolResultText(string(mustMarshal(types.RunList{Runs: runs, Total: len(runs)}))), nil
}
