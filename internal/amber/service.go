package amber

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/bio-mcp/bio-mcp-amber/internal/logging"
)

// RunRecord is one ledger row describing a finished invocation.
type RunRecord struct {
	ID              string    `json:"id"`
	Tool            string    `json:"tool"`
	InputFile       string    `json:"input_file"`
	InputSHA256     string    `json:"input_sha256,omitempty"`
	ForceField      string    `json:"force_field,omitempty"`
	WaterModel      string    `json:"water_model,omitempty"`
	Steps           int       `json:"steps,omitempty"`
	Restraints      bool      `json:"restraints"`
	Status          State     `json:"status"`
	ErrorKind       Kind      `json:"error_kind,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	ExitCode        int       `json:"exit_code"`
	DurationSeconds float64   `json:"duration_seconds"`
	FinalEnergy     *float64  `json:"final_energy,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

// RunRecorder persists run records.
type RunRecorder interface {
	RecordRun(ctx context.Context, rec RunRecord) error
	RecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
}

// Service fronts the adapter with an optional concurrency ceiling and an
// optional run ledger.
type Service struct {
	adapter  *Adapter
	recorder RunRecorder
	sem      *semaphore.Weighted
	log      logging.Logger
}

type ServiceOption func(*Service)

// WithRecorder stores every finished run through rec.
func WithRecorder(rec RunRecorder) ServiceOption {
	return func(s *Service) { s.recorder = rec }
}

// WithMaxConcurrentRuns limits how many runs execute at once; n <= 0 means
// no limit.
func WithMaxConcurrentRuns(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.sem = semaphore.NewWeighted(int64(n))
		} else {
			s.sem = nil
		}
	}
}

func NewService(adapter *Adapter, opts ...ServiceOption) *Service {
	s := &Service{adapter: adapter, log: adapter.cfg.Logger.WithName("amber.service")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasLedger reports whether runs are being recorded.
func (s *Service) HasLedger() bool {
	return s.recorder != nil
}

func (s *Service) Relax(ctx context.Context, req RelaxRequest) (RelaxResult, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return RelaxResult{}, err
	}
	defer release()

	started := time.Now()
	res, err := s.adapter.Relax(ctx, req)
	rec := RunRecord{
		Tool:       ToolRelax,
		InputFile:  req.InputFile,
		ForceField: req.ForceField,
		WaterModel: req.WaterModel,
		Steps:      req.Steps,
		Restraints: req.Restraints,
		StartedAt:  started,
	}
	if err == nil {
		rec.ID = res.RunID
		rec.InputSHA256 = res.InputSHA256
		rec.ForceField = res.ForceField
		rec.WaterModel = res.WaterModel
		rec.ExitCode = res.ExitCode
		rec.FinalEnergy = res.FinalEnergy
	}
	s.record(ctx, rec, err)
	return res, err
}

func (s *Service) Prepare(ctx context.Context, req PrepareRequest) (PrepareResult, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return PrepareResult{}, err
	}
	defer release()

	started := time.Now()
	res, err := s.adapter.Prepare(ctx, req)
	rec := RunRecord{
		Tool:       ToolPrepare,
		InputFile:  req.InputFile,
		ForceField: req.ForceField,
		WaterModel: req.WaterModel,
		StartedAt:  started,
	}
	if err == nil {
		rec.ID = res.RunID
		rec.InputSHA256 = res.InputSHA256
		rec.ForceField = res.ForceField
		rec.WaterModel = res.WaterModel
		rec.ExitCode = res.ExitCode
	}
	s.record(ctx, rec, err)
	return res, err
}

// RecentRuns lists the newest ledger entries.
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if s.recorder == nil {
		return nil, newError(KindInfrastructure, "run ledger is not configured")
	}
	runs, err := s.recorder.RecentRuns(ctx, limit)
	if err != nil {
		return nil, wrapError(KindInfrastructure, err, "list runs")
	}
	return runs, nil
}

func (s *Service) acquire(ctx context.Context) (func(), error) {
	if s.sem == nil {
		return func() {}, nil
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, wrapError(KindInfrastructure, err, "waiting for a free run slot")
	}
	return func() { s.sem.Release(1) }, nil
}

// record writes rec to the ledger. Ledger failures are logged only: the
// caller's result never depends on them.
func (s *Service) record(ctx context.Context, rec RunRecord, runErr error) {
	if s.recorder == nil {
		return
	}
	rec.FinishedAt = time.Now()
	rec.DurationSeconds = rec.FinishedAt.Sub(rec.StartedAt).Seconds()
	rec.Status = terminalState(runErr)
	if runErr != nil {
		e := AsError(runErr)
		rec.ID = e.RunID
		rec.ErrorKind = e.Kind
		rec.ErrorMessage = e.Message
		rec.ExitCode = e.ExitCode
	}
	// The request context may already be done (timeouts); the ledger write
	// gets its own short budget.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.recorder.RecordRun(wctx, rec); err != nil {
		s.log.Error(err, "record run failed", "run", rec.ID, "tool", rec.Tool)
	}
}
