package tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bio-mcp/bio-mcp-amber/internal/amber"
)

type RelaxService interface {
	Relax(ctx context.Context, req amber.RelaxRequest) (amber.RelaxResult, error)
}

type RelaxPDBHandler struct {
	Service RelaxService
}

func (h *RelaxPDBHandler) ToolAdapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := parseRelaxArguments(req.GetArguments())
	if err != nil {
		return invalidArgument(err), nil
	}
	result, err := h.Service.Relax(ctx, params)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(string(mustMarshal(result))), nil
}

func parseRelaxArguments(args map[string]any) (amber.RelaxRequest, error) {
	input, err := stringArgument(args, "input_file", "")
	if err != nil {
		return amber.RelaxRequest{}, err
	}
	if input == "" {
		return amber.RelaxRequest{}, errors.New("input_file parameter is required")
	}
	params := amber.NewRelaxRequest(input)
	if params.ForceField, err = stringArgument(args, "force_field", params.ForceField); err != nil {
		return amber.RelaxRequest{}, err
	}
	if params.WaterModel, err = stringArgument(args, "water_model", params.WaterModel); err != nil {
		return amber.RelaxRequest{}, err
	}
	if params.Steps, err = intArgument(args, "steps", params.Steps); err != nil {
		return amber.RelaxRequest{}, err
	}
	if params.Restraints, err = boolArgument(args, "restraints", false); err != nil {
		return amber.RelaxRequest{}, err
	}
	if params.RestraintMask, err = stringArgument(args, "restraint_mask", params.RestraintMask); err != nil {
		return amber.RelaxRequest{}, err
	}
	if params.RestraintWeight, err = floatArgument(args, "restraint_weight", params.RestraintWeight); err != nil {
		return amber.RelaxRequest{}, err
	}
	if params.OutputDir, err = stringArgument(args, "output_dir", ""); err != nil {
		return amber.RelaxRequest{}, err
	}
	return params, nil
}
