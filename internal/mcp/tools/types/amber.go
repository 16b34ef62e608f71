package types

import "github.com/bio-mcp/bio-mcp-amber/internal/amber"

// ToolError is the body of a failed tool call.
type ToolError struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Tool     string `json:"tool,omitempty"`
	ExitCode int    `json:"exit_code,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
}

type RunList struct {
	Runs  []amber.RunRecord `json:"runs"`
	Total int               `json:"total"`
}
