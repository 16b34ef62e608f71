package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/bio-mcp/bio-mcp-amber/internal/amber"
	"github.com/bio-mcp/bio-mcp-amber/internal/logging"
)

type memoryLedger struct{ runs []amber.RunRecord }

func (m *memoryLedger) RecordRun(_ context.Context, rec amber.RunRecord) error {
	m.runs = append(m.runs, rec)
	return nil
}

func (m *memoryLedger) RecentRuns(_ context.Context, limit int) ([]amber.RunRecord, error) {
	if limit < len(m.runs) {
		return m.runs[:limit], nil
	}
	return m.runs, nil
}

func newTestServer(t *testing.T, opts ...amber.ServiceOption) *Server {
	t.Helper()
	adapter := amber.NewAdapter(amber.Config{TempDir: t.TempDir(), Logger: logging.Discard()})
	svc := amber.NewService(adapter, opts...)
	return New(ServiceConfig(svc, adapter.Config().Catalog, logging.Discard()))
}

func rpc(t *testing.T, s *Server, body string) string {
	t.Helper()
	resp := s.MCP.HandleMessage(context.Background(), json.RawMessage(body))
	out, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return string(out)
}

func TestServerRegistersToolsWithoutLedger(t *testing.T) {
	s := newTestServer(t)
	out := rpc(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

	names := map[string]bool{}
	for _, n := range gjson.Get(out, "result.tools.#.name").Array() {
		names[n.String()] = true
	}
	if !names[amber.ToolRelax] || !names[amber.ToolPrepare] {
		t.Fatalf("missing amber tools in %s", out)
	}
	if names[ToolListRuns] {
		t.Fatalf("%s must not be registered without a ledger", ToolListRuns)
	}
	required := gjson.Get(out, `result.tools.#(name=="amber_relax_pdb").inputSchema.required`).String()
	if required != `["input_file"]` {
		t.Fatalf("required = %s", required)
	}
}

func TestServerRegistersListRunsWithLedger(t *testing.T) {
	s := newTestServer(t, amber.WithRecorder(&memoryLedger{}))
	out := rpc(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	if !gjson.Get(out, `result.tools.#(name=="amber_list_runs")`).Exists() {
		t.Fatalf("amber_list_runs missing: %s", out)
	}
}

func TestServerToolCallReturnsStructuredError(t *testing.T) {
	ledger := &memoryLedger{}
	s := newTestServer(t, amber.WithRecorder(ledger))
	out := rpc(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"amber_relax_pdb","arguments":{"input_file":"/nonexistent/input.pdb"}}}`)

	if !gjson.Get(out, "result.isError").Bool() {
		t.Fatalf("expected tool error: %s", out)
	}
	text := gjson.Get(out, "result.content.0.text").String()
	if gjson.Get(text, "kind").String() != "NotFoundError" {
		t.Fatalf("unexpected error body %s", text)
	}
	if len(ledger.runs) != 1 || ledger.runs[0].ErrorKind != amber.KindNotFound {
		t.Fatalf("failure not recorded: %+v", ledger.runs)
	}

	out = rpc(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"amber_list_runs","arguments":{}}}`)
	text = gjson.Get(out, "result.content.0.text").String()
	if gjson.Get(text, "runs.0.error_kind").String() != "NotFoundError" {
		t.Fatalf("unexpected run list %s", text)
	}
}
