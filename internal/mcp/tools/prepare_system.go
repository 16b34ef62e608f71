package tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bio-mcp/bio-mcp-amber/internal/amber"
)

type PrepareService interface {
	Prepare(ctx context.Context, req amber.PrepareRequest) (amber.PrepareResult, error)
}

type PrepareSystemHandler struct {
	Service PrepareService
}

func (h *PrepareSystemHandler) ToolAdapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	input, err := stringArgument(args, "input_file", "")
	if err != nil {
		return invalidArgument(err), nil
	}
	if input == "" {
		return invalidArgument(errors.New("input_file parameter is required")), nil
	}
	params := amber.NewPrepareRequest(input)
	if params.ForceField, err = stringArgument(args, "force_field", params.ForceField); err != nil {
		return invalidArgument(err), nil
	}
	if params.WaterModel, err = stringArgument(args, "water_model", params.WaterModel); err != nil {
		return invalidArgument(err), nil
	}
	if params.OutputDir, err = stringArgument(args, "output_dir", ""); err != nil {
		return invalidArgument(err), nil
	}

	result, err := h.Service.Prepare(ctx, params)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(string(mustMarshal(result))), nil
}
