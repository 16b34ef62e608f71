package amber

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/bio-mcp/bio-mcp-amber/internal/logging"
)

// Command is one invocation of an external binary.
type Command struct {
	// Tool is the short name used in logs and errors ("tleap", "pmemd", ...).
	Tool string
	Path string
	Args []string
	// Dir is the working directory, always the request workspace.
	Dir string
	// Env is appended to the adapter's own environment.
	Env []string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Path + " " + strings.Join(c.Args, " "))
}

// Execution is the outcome of a Command that ran to completion.
type Execution struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Executor runs external commands. Execute returns a nil error for any
// process that exited on its own, whatever its status. It returns the
// context error when ctx ended first (the process has been killed by then)
// and any other error when the process could not be started.
type Executor interface {
	Execute(ctx context.Context, cmd Command) (Execution, error)
}

// ProcessExecutor runs commands as child processes. Each child leads its
// own process group so that expiry kills everything it spawned.
type ProcessExecutor struct {
	// OutputLimit caps the bytes kept per stream; earlier output is dropped.
	OutputLimit int
	// WaitDelay bounds how long Wait blocks on open pipes after a kill.
	WaitDelay time.Duration
	Log       logging.Logger
}

func NewProcessExecutor(outputLimit int, log logging.Logger) *ProcessExecutor {
	if outputLimit <= 0 {
		outputLimit = defaultOutputLimitBytes
	}
	return &ProcessExecutor{OutputLimit: outputLimit, WaitDelay: 5 * time.Second, Log: log.WithName("executor")}
}

func (p *ProcessExecutor) Execute(ctx context.Context, c Command) (Execution, error) {
	if err := ctx.Err(); err != nil {
		return Execution{ExitCode: -1}, err
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	stdout := newTailBuffer(p.OutputLimit)
	stderr := newTailBuffer(p.OutputLimit)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = p.WaitDelay
	killProcessGroupOnCancel(cmd)

	p.Log.Debug("starting process", "tool", c.Tool, "command", c.String(), "dir", c.Dir)
	start := time.Now()
	err := cmd.Run()
	res := Execution{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil && ctx.Err() != nil {
		res.ExitCode = -1
		p.Log.Info("process killed", "tool", c.Tool, "reason", ctx.Err(), "elapsed", res.Duration)
		return res, ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			p.Log.Debug("process exited", "tool", c.Tool, "exitCode", res.ExitCode, "elapsed", res.Duration)
			return res, nil
		}
		res.ExitCode = -1
		return res, fmt.Errorf("run %s: %w", c.Tool, err)
	}
	p.Log.Debug("process exited", "tool", c.Tool, "exitCode", 0, "elapsed", res.Duration,
		"stdoutTruncated", stdout.Truncated(), "stderrTruncated", stderr.Truncated())
	return res, nil
}
