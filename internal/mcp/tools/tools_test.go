package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"

	"github.com/bio-mcp/bio-mcp-amber/internal/amber"
)

type fakeService struct {
	relaxReq   amber.RelaxRequest
	prepareReq amber.PrepareRequest
	limit      int
	err        error
	runs       []amber.RunRecord
}

func (f *fakeService) Relax(_ context.Context, req amber.RelaxRequest) (amber.RelaxResult, error) {
	f.relaxReq = req
	if f.err != nil {
		return amber.RelaxResult{}, f.err
	}
	energy := -42.5
	return amber.RelaxResult{
		RunID:               "run-1",
		Status:              amber.StateSucceeded,
		OutputStructurePath: "/tmp/amber-x/minimized.pdb",
		EnergyLogPath:       "/tmp/amber-x/minimization.log",
		ForceField:          req.ForceField,
		Steps:               req.Steps,
		FinalEnergy:         &energy,
	}, nil
}

func (f *fakeService) Prepare(_ context.Context, req amber.PrepareRequest) (amber.PrepareResult, error) {
	f.prepareReq = req
	if f.err != nil {
		return amber.PrepareResult{}, f.err
	}
	return amber.PrepareResult{RunID: "run-2", Status: amber.StateSucceeded, TopologyPath: "/tmp/amber-y/system.prmtop"}, nil
}

func (f *fakeService) RecentRuns(_ context.Context, limit int) ([]amber.RunRecord, error) {
	f.limit = limit
	return f.runs, f.err
}

func call(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("empty result")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	default:
		t.Fatalf("unexpected content %T", res.Content[0])
		return ""
	}
}

func TestRelaxHandlerDefaults(t *testing.T) {
	svc := &fakeService{}
	h := &RelaxPDBHandler{Service: svc}
	res, err := h.ToolAdapter(context.Background(), call(map[string]any{"input_file": "/data/protein.pdb"}))
	if err != nil {
		t.Fatalf("ToolAdapter: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	if svc.relaxReq.ForceField != "ff19SB" || svc.relaxReq.Steps != 10000 || svc.relaxReq.Restraints {
		t.Fatalf("defaults not applied: %+v", svc.relaxReq)
	}
	body := resultText(t, res)
	if got := gjson.Get(body, "output_structure_path").String(); got != "/tmp/amber-x/minimized.pdb" {
		t.Fatalf("output_structure_path = %q", got)
	}
	if got := gjson.Get(body, "final_energy").Float(); got != -42.5 {
		t.Fatalf("final_energy = %v", got)
	}
	if gjson.Get(body, "exit_code").Int() != 0 || gjson.Get(body, "status").String() != "succeeded" {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestRelaxHandlerParsesArguments(t *testing.T) {
	svc := &fakeService{}
	h := &RelaxPDBHandler{Service: svc}
	_, err := h.ToolAdapter(context.Background(), call(map[string]any{
		"input_file":       "/data/protein.pdb",
		"force_field":      "ff14SB",
		"water_model":      "opc",
		"steps":            float64(500),
		"restraints":       true,
		"restraint_mask":   "@CA",
		"restraint_weight": float64(2.5),
		"output_dir":       "/data/out",
	}))
	if err != nil {
		t.Fatal(err)
	}
	got := svc.relaxReq
	if got.ForceField != "ff14SB" || got.WaterModel != "opc" || got.Steps != 500 || !got.Restraints ||
		got.RestraintMask != "@CA" || got.RestraintWeight != 2.5 || got.OutputDir != "/data/out" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestRelaxHandlerRejectsBadArguments(t *testing.T) {
	cases := map[string]map[string]any{
		"missing input":   {},
		"input type":      {"input_file": 12.0},
		"fractional step": {"input_file": "/a.pdb", "steps": 10.5},
		"steps type":      {"input_file": "/a.pdb", "steps": []any{1}},
		"restraints type": {"input_file": "/a.pdb", "restraints": "maybe"},
	}
	for name, args := range cases {
		svc := &fakeService{}
		res, err := (&RelaxPDBHandler{Service: svc}).ToolAdapter(context.Background(), call(args))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !res.IsError {
			t.Fatalf("%s: expected error result", name)
		}
		if kind := gjson.Get(resultText(t, res), "kind").String(); kind != "InvalidParameterError" {
			t.Fatalf("%s: kind = %s", name, kind)
		}
		if svc.relaxReq.InputFile != "" {
			t.Fatalf("%s: service should not be called", name)
		}
	}
}

func TestRelaxHandlerMapsAdapterErrors(t *testing.T) {
	svc := &fakeService{err: &amber.Error{
		Kind:     amber.KindExternalTool,
		Message:  "pmemd exited with status 1",
		RunID:    "run-9",
		Tool:     "pmemd",
		ExitCode: 1,
		Stderr:   "vlimit exceeded",
		Err:      errors.New("internal detail"),
	}}
	res, err := (&RelaxPDBHandler{Service: svc}).ToolAdapter(context.Background(), call(map[string]any{"input_file": "/a.pdb"}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatalf("expected error result")
	}
	body := resultText(t, res)
	if gjson.Get(body, "kind").String() != "ExternalToolError" ||
		gjson.Get(body, "stderr").String() != "vlimit exceeded" ||
		gjson.Get(body, "exit_code").Int() != 1 ||
		gjson.Get(body, "run_id").String() != "run-9" {
		t.Fatalf("unexpected body %s", body)
	}
	if gjson.Get(body, "message").String() != "pmemd exited with status 1" {
		t.Fatalf("wrapped cause should not leak: %s", body)
	}
}

func TestPrepareHandler(t *testing.T) {
	svc := &fakeService{}
	res, err := (&PrepareSystemHandler{Service: svc}).ToolAdapter(context.Background(), call(map[string]any{
		"input_file":  "/data/protein.pdb",
		"water_model": "tip4pew",
	}))
	if err != nil || res.IsError {
		t.Fatalf("unexpected failure %v", err)
	}
	if svc.prepareReq.WaterModel != "tip4pew" || svc.prepareReq.ForceField != "ff19SB" {
		t.Fatalf("unexpected request %+v", svc.prepareReq)
	}
	if got := gjson.Get(resultText(t, res), "topology_path").String(); got != "/tmp/amber-y/system.prmtop" {
		t.Fatalf("topology_path = %q", got)
	}

	res, _ = (&PrepareSystemHandler{Service: svc}).ToolAdapter(context.Background(), call(nil))
	if !res.IsError {
		t.Fatalf("expected error for missing input_file")
	}
}

func TestListRunsHandler(t *testing.T) {
	svc := &fakeService{runs: []amber.RunRecord{{ID: "a", Tool: amber.ToolRelax, Status: amber.StateTimedOut, ErrorKind: amber.KindTimeout}}}
	res, err := (&ListRunsHandler{Service: svc}).ToolAdapter(context.Background(), call(map[string]any{"limit": float64(5000)}))
	if err != nil || res.IsError {
		t.Fatalf("unexpected failure %v", err)
	}
	if svc.limit != maxListedRuns {
		t.Fatalf("limit not capped: %d", svc.limit)
	}
	body := resultText(t, res)
	if gjson.Get(body, "total").Int() != 1 || gjson.Get(body, "runs.0.status").String() != "timed_out" {
		t.Fatalf("unexpected body %s", body)
	}

	empty := &fakeService{}
	res, _ = (&ListRunsHandler{Service: empty}).ToolAdapter(context.Background(), call(nil))
	if got := gjson.Get(resultText(t, res), "runs").Raw; got != "[]" {
		t.Fatalf("runs = %s", got)
	}
	if empty.limit != 20 {
		t.Fatalf("default limit = %d", empty.limit)
	}
}

func TestIntArgument(t *testing.T) {
	args := map[string]any{"a": float64(7), "b": "12", "c": 3.2, "d": nil}
	if v, err := intArgument(args, "a", 0); err != nil || v != 7 {
		t.Fatalf("a = %d %v", v, err)
	}
	if v, err := intArgument(args, "b", 0); err != nil || v != 12 {
		t.Fatalf("b = %d %v", v, err)
	}
	if _, err := intArgument(args, "c", 0); err == nil {
		t.Fatalf("c should be rejected")
	}
	if v, err := intArgument(args, "d", 9); err != nil || v != 9 {
		t.Fatalf("d = %d %v", v, err)
	}
}
