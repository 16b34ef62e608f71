package amber

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type memoryRecorder struct {
	mu   sync.Mutex
	runs []RunRecord
	err  error
}

func (m *memoryRecorder) RecordRun(_ context.Context, rec RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, rec)
	return nil
}

func (m *memoryRecorder) RecentRuns(_ context.Context, limit int) ([]RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RunRecord, 0, len(m.runs))
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}

func TestServiceRecordsSuccessAndFailure(t *testing.T) {
	a, _ := newTestAdapter(t, &fakeExecutor{}, nil)
	rec := &memoryRecorder{}
	s := NewService(a, WithRecorder(rec))
	if !s.HasLedger() {
		t.Fatalf("expected ledger")
	}

	res, err := s.Relax(context.Background(), NewRelaxRequest(writePDB(t, t.TempDir(), 2)))
	if err != nil {
		t.Fatalf("Relax: %v", err)
	}
	_, relaxErr := s.Relax(context.Background(), NewRelaxRequest(filepath.Join(t.TempDir(), "missing.pdb")))
	if !IsKind(relaxErr, KindNotFound) {
		t.Fatalf("expected NotFoundError, got %v", relaxErr)
	}

	runs, err := s.RecentRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	failed, succeeded := runs[0], runs[1]
	if succeeded.ID != res.RunID || succeeded.Status != StateSucceeded || succeeded.InputSHA256 != res.InputSHA256 {
		t.Fatalf("success record %+v", succeeded)
	}
	if succeeded.FinalEnergy == nil || *succeeded.FinalEnergy != -1234.5 {
		t.Fatalf("final energy not recorded")
	}
	if failed.ID == "" || failed.ID != AsError(relaxErr).RunID {
		t.Fatalf("failure record id %q, error run id %q", failed.ID, AsError(relaxErr).RunID)
	}
	if failed.Status != StateFailed || failed.ErrorKind != KindNotFound || failed.Tool != ToolRelax {
		t.Fatalf("failure record %+v", failed)
	}
}

func TestServiceIgnoresLedgerErrors(t *testing.T) {
	a, _ := newTestAdapter(t, &fakeExecutor{}, nil)
	s := NewService(a, WithRecorder(&memoryRecorder{err: errors.New("database is down")}))
	if _, err := s.Prepare(context.Background(), NewPrepareRequest(writePDB(t, t.TempDir(), 2))); err != nil {
		t.Fatalf("ledger failure leaked into result: %v", err)
	}
}

func TestServiceWithoutLedger(t *testing.T) {
	a, _ := newTestAdapter(t, &fakeExecutor{}, nil)
	s := NewService(a)
	if s.HasLedger() {
		t.Fatalf("no ledger configured")
	}
	if _, err := s.RecentRuns(context.Background(), 5); !IsKind(err, KindInfrastructure) {
		t.Fatalf("expected InfrastructureError, got %v", err)
	}
}

// countingExecutor tracks how many commands run at the same time.
type countingExecutor struct {
	fakeExecutor
	active, peak atomic.Int32
}

func (c *countingExecutor) Execute(ctx context.Context, cmd Command) (Execution, error) {
	n := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return c.fakeExecutor.Execute(ctx, cmd)
}

func TestServiceLimitsConcurrentRuns(t *testing.T) {
	exec := &countingExecutor{}
	a, _ := newTestAdapter(t, exec, nil)
	s := NewService(a, WithMaxConcurrentRuns(2))
	input := writePDB(t, t.TempDir(), 2)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Prepare(context.Background(), NewPrepareRequest(input)); err != nil {
				t.Errorf("Prepare: %v", err)
			}
		}()
	}
	wg.Wait()
	if peak := exec.peak.Load(); peak > 2 {
		t.Fatalf("peak concurrency %d exceeds limit", peak)
	}
}

func TestServiceAcquireHonorsContext(t *testing.T) {
	exec := &fakeExecutor{block: map[string]bool{"tleap": true}}
	a, _ := newTestAdapter(t, exec, nil)
	s := NewService(a, WithMaxConcurrentRuns(1))
	input := writePDB(t, t.TempDir(), 2)

	first, cancelFirst := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Prepare(first, NewPrepareRequest(input))
	}()
	for len(exec.tools()) == 0 {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := s.Prepare(ctx, NewPrepareRequest(input)); !IsKind(err, KindInfrastructure) {
		t.Fatalf("expected InfrastructureError while waiting for a slot, got %v", err)
	}
	cancelFirst()
	<-done
}
