package amber

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bio-mcp/bio-mcp-amber/internal/logging"
)

const maxEnergyLogBytes = 64 << 10

// Adapter runs the AMBER toolchain for one request at a time per call; any
// number of calls may run concurrently.
type Adapter struct {
	cfg      Config
	executor Executor
	hook     StateHook
	log      logging.Logger
}

type Option func(*Adapter)

// WithExecutor replaces the process executor.
func WithExecutor(e Executor) Option {
	return func(a *Adapter) { a.executor = e }
}

// WithStateHook registers an observer for lifecycle transitions.
func WithStateHook(h StateHook) Option {
	return func(a *Adapter) { a.hook = h }
}

func NewAdapter(cfg Config, opts ...Option) *Adapter {
	cfg = cfg.withDefaults()
	a := &Adapter{cfg: cfg, log: cfg.Logger.WithName("amber.adapter")}
	for _, opt := range opts {
		opt(a)
	}
	if a.executor == nil {
		a.executor = NewProcessExecutor(cfg.OutputLimitBytes, cfg.Logger)
	}
	return a
}

// Config returns the adapter's effective configuration.
func (a *Adapter) Config() Config {
	return a.cfg
}

// Relax prepares the structure with tleap, minimizes it with pmemd and
// converts the restart file back to PDB with cpptraj.
func (a *Adapter) Relax(ctx context.Context, req RelaxRequest) (result RelaxResult, err error) {
	r := a.begin(ToolRelax)
	defer func() { err = r.finish(err) }()

	plan, err := a.validateRelax(req)
	if err != nil {
		return RelaxResult{}, err
	}
	r.log.Info("relax requested", "input", plan.input, "forceField", plan.ff.Name, "steps", plan.steps, "restraints", plan.restraints)

	r.enter(StatePreparing)
	sha, err := r.prepare(a.cfg.TempDir, plan.input)
	if err != nil {
		return RelaxResult{}, err
	}
	ws := r.ws
	if err := ws.writeFile(fileLeapScript, leapScript(plan.ff, plan.water, fileInputPDB)); err != nil {
		return RelaxResult{}, wrapError(KindInfrastructure, err, "write %s", fileLeapScript)
	}
	if err := ws.writeFile(fileMinInput, minimizationInput(plan)); err != nil {
		return RelaxResult{}, wrapError(KindInfrastructure, err, "write %s", fileMinInput)
	}
	if err := ws.writeFile(fileCpptrajInput, cpptrajScript()); err != nil {
		return RelaxResult{}, wrapError(KindInfrastructure, err, "write %s", fileCpptrajInput)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	r.enter(StateRunning)
	var last Execution
	for _, s := range []step{a.leapStep(ws.Dir), a.minimizeStep(ws.Dir), a.convertStep(ws.Dir)} {
		if last, err = a.runStep(ctx, r, s); err != nil {
			return RelaxResult{}, err
		}
	}

	result = RelaxResult{
		RunID:               r.id,
		Status:              StateSucceeded,
		Workspace:           ws.Dir,
		OutputStructurePath: ws.Path(fileMinimizedPDB),
		EnergyLogPath:       ws.Path(fileMinLog),
		ExitCode:            last.ExitCode,
		ForceField:          plan.ff.Name,
		WaterModel:          plan.water.Name,
		Steps:               plan.steps,
		Restraints:          plan.restraints,
		RestraintMask:       plan.mask,
		RestraintWeight:     plan.weight,
		InputSHA256:         sha,
		InputSummary:        plan.summary,
	}

	if mdout, err := ws.readTail(fileMinLog, maxEnergyLogBytes); err == nil {
		result.EnergyLog = mdout
		if energy, ok := parseFinalEnergy(mdout); ok {
			result.FinalEnergy = &energy
		}
	} else {
		r.log.Error(err, "read minimization log failed")
	}
	preview, truncated, err := ws.readHead(fileMinimizedPDB, a.cfg.StructurePreviewBytes)
	if err != nil {
		return RelaxResult{}, wrapError(KindInfrastructure, err, "read %s", fileMinimizedPDB)
	}
	result.StructurePreview = preview
	result.StructureTruncated = truncated
	if summary, err := summarizePDB(ws.Path(fileMinimizedPDB)); err == nil {
		result.OutputSummary = summary
	} else {
		r.log.Debug("relaxed structure summary unavailable", "error", err.Error())
	}

	if plan.outputDir != "" {
		stem := exportStem(plan.input, r.id)
		result.PersistedStructurePath = filepath.Join(plan.outputDir, stem+"_minimized.pdb")
		result.PersistedEnergyLogPath = filepath.Join(plan.outputDir, stem+"_minimization.log")
		if err := ws.export(fileMinimizedPDB, result.PersistedStructurePath); err != nil {
			return RelaxResult{}, wrapError(KindInfrastructure, err, "copy relaxed structure to %s", plan.outputDir)
		}
		if err := ws.export(fileMinLog, result.PersistedEnergyLogPath); err != nil {
			return RelaxResult{}, wrapError(KindInfrastructure, err, "copy minimization log to %s", plan.outputDir)
		}
	}

	result.Duration = time.Since(r.started)
	result.DurationSeconds = result.Duration.Seconds()
	return result, nil
}

// Prepare runs tleap only and reports the topology and coordinate files.
func (a *Adapter) Prepare(ctx context.Context, req PrepareRequest) (result PrepareResult, err error) {
	r := a.begin(ToolPrepare)
	defer func() { err = r.finish(err) }()

	plan, err := a.validatePrepare(req)
	if err != nil {
		return PrepareResult{}, err
	}
	r.log.Info("prepare requested", "input", plan.input, "forceField", plan.ff.Name, "waterModel", plan.water.Name)

	r.enter(StatePreparing)
	sha, err := r.prepare(a.cfg.TempDir, plan.input)
	if err != nil {
		return PrepareResult{}, err
	}
	ws := r.ws
	if err := ws.writeFile(fileLeapScript, leapScript(plan.ff, plan.water, fileInputPDB)); err != nil {
		return PrepareResult{}, wrapError(KindInfrastructure, err, "write %s", fileLeapScript)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	r.enter(StateRunning)
	leap, err := a.runStep(ctx, r, a.leapStep(ws.Dir))
	if err != nil {
		return PrepareResult{}, err
	}

	result = PrepareResult{
		RunID:            r.id,
		Status:           StateSucceeded,
		Workspace:        ws.Dir,
		TopologyPath:     ws.Path(fileTopology),
		CoordinatesPath:  ws.Path(fileCoordinates),
		TopologyBytes:    ws.size(fileTopology),
		CoordinatesBytes: ws.size(fileCoordinates),
		ExitCode:         leap.ExitCode,
		ForceField:       plan.ff.Name,
		WaterModel:       plan.water.Name,
		InputSHA256:      sha,
		InputSummary:     plan.summary,
		TleapLog:         leap.Stdout,
	}
	if ws.exists(filePreparedPDB) {
		result.PreparedStructurePath = ws.Path(filePreparedPDB)
	}
	if atoms, residues, err := prmtopCounts(ws.Path(fileTopology)); err == nil {
		result.AtomCount = atoms
		result.ResidueCount = residues
	} else {
		r.log.Debug("topology counts unavailable", "error", err.Error())
	}

	if plan.outputDir != "" {
		stem := exportStem(plan.input, r.id)
		exports := []struct {
			name string
			dst  *string
		}{
			{fileTopology, &result.PersistedTopologyPath},
			{fileCoordinates, &result.PersistedCoordinatesPath},
			{filePreparedPDB, &result.PersistedStructurePath},
		}
		for _, e := range exports {
			if !ws.exists(e.name) {
				continue
			}
			dst := filepath.Join(plan.outputDir, stem+"_"+e.name)
			if err := ws.export(e.name, dst); err != nil {
				return PrepareResult{}, wrapError(KindInfrastructure, err, "copy %s to %s", e.name, plan.outputDir)
			}
			*e.dst = dst
		}
	}

	result.Duration = time.Since(r.started)
	result.DurationSeconds = result.Duration.Seconds()
	return result, nil
}

// runStep executes one tool and maps its outcome onto the error taxonomy.
func (a *Adapter) runStep(ctx context.Context, r *run, s step) (Execution, error) {
	r.log.Debug("running tool", "tool", s.cmd.Tool, "command", s.cmd.String())
	res, err := a.executor.Execute(ctx, s.cmd)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return res, &Error{
				Kind:    KindTimeout,
				Tool:    s.cmd.Tool,
				Message: fmt.Sprintf("%s did not finish within %s and was terminated", s.cmd.Tool, a.cfg.Timeout),
				Err:     err,
			}
		case errors.Is(err, context.Canceled):
			return res, wrapError(KindInfrastructure, err, "%s canceled", s.cmd.Tool)
		default:
			return res, &Error{
				Kind:    KindInfrastructure,
				Tool:    s.cmd.Tool,
				Message: fmt.Sprintf("could not run %s (%s)", s.cmd.Tool, s.cmd.Path),
				Err:     err,
			}
		}
	}
	r.log.Debug("tool finished", "tool", s.cmd.Tool, "exitCode", res.ExitCode, "elapsed", res.Duration)
	if res.ExitCode != 0 {
		return res, &Error{
			Kind:     KindExternalTool,
			Tool:     s.cmd.Tool,
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
			Message:  fmt.Sprintf("%s exited with status %d", s.cmd.Tool, res.ExitCode),
		}
	}
	for _, name := range s.outputs {
		if !r.ws.exists(name) {
			return res, &Error{
				Kind:    KindMissingOutput,
				Tool:    s.cmd.Tool,
				Stderr:  res.Stderr,
				Message: fmt.Sprintf("%s exited successfully but did not produce %s", s.cmd.Tool, name),
			}
		}
	}
	return res, nil
}

func exportStem(input, runID string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	return base + "_" + short
}

// run tracks one invocation through its lifecycle.
type run struct {
	id      string
	started time.Time
	ws      *Workspace
	log     logging.Logger
	hook    StateHook
}

func (a *Adapter) begin(tool string) *run {
	id := uuid.NewString()
	r := &run{
		id:      id,
		started: time.Now(),
		log:     a.log.WithValues("run", id, "tool", tool),
		hook:    a.hook,
	}
	r.enter(StateValidating)
	return r
}

func (r *run) enter(s State) {
	r.log.Debug("state", "state", s)
	if r.hook != nil {
		r.hook(r.id, s)
	}
}

// prepare creates the workspace and stages the input into it.
func (r *run) prepare(root, input string) (string, error) {
	ws, err := newWorkspace(root)
	if err != nil {
		return "", wrapError(KindInfrastructure, err, "cannot create workspace")
	}
	r.ws = ws
	r.log = r.log.WithValues("workspace", ws.Dir)
	sha, err := ws.stage(input, fileInputPDB)
	if err != nil {
		return "", wrapError(KindInfrastructure, err, "cannot stage input file")
	}
	return sha, nil
}

// finish records the terminal state, removes the workspace and tags err with
// the run id. It runs on every exit path.
func (r *run) finish(err error) error {
	terminal := terminalState(err)
	if err != nil {
		e := AsError(err)
		e.RunID = r.id
		err = e
		r.log.Info("run failed", "kind", e.Kind, "reason", e.Message, "elapsed", time.Since(r.started))
	} else {
		r.log.Info("run succeeded", "elapsed", time.Since(r.started))
	}
	r.enter(terminal)
	if r.ws != nil {
		if rerr := r.ws.Release(); rerr != nil {
			r.log.Error(rerr, "remove workspace failed")
		}
	}
	r.enter(StateCleaned)
	return err
}
