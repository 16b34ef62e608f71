package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"github.com/bio-mcp/bio-mcp-amber/internal/amber"
)

// RunRepository stores the run ledger. It satisfies amber.RunRecorder.
type RunRepository struct {
	// HistoryMax bounds the table; older rows are pruned on insert. Zero
	// disables recording entirely.
	HistoryMax int
	db         *bun.DB
}

var _ amber.RunRecorder = (*RunRepository)(nil)

func NewRunRepository(database *Database, opts ...func(*RunRepository)) *RunRepository {
	repo := &RunRepository{db: database.Bun()}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

func WithHistoryMax(n int) func(*RunRepository) {
	return func(r *RunRepository) { r.HistoryMax = n }
}

func (r *RunRepository) RecordRun(ctx context.Context, rec amber.RunRecord) error {
	if r.HistoryMax <= 0 {
		return nil
	}
	_, err := r.db.NewInsert().
		Model(FromRunRecord(rec)).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	_, err = r.db.NewDelete().
		Model((*AmberRun)(nil)).
		Where("ctid IN (SELECT ctid FROM amber_runs ORDER BY started_at DESC OFFSET ?)", r.HistoryMax).
		Exec(ctx)
	return err
}

func (r *RunRepository) RecentRuns(ctx context.Context, limit int) ([]amber.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []AmberRun
	err := r.db.NewSelect().
		Model(&rows).
		Order("started_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]amber.RunRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToRunRecord(row))
	}
	return out, nil
}

// GetRun returns nil when no run has the given id.
func (r *RunRepository) GetRun(ctx context.Context, id string) (*amber.RunRecord, error) {
	row := new(AmberRun)
	err := r.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rec := ToRunRecord(*row)
	return &rec, nil
}

func (r *RunRepository) CountRuns(ctx context.Context) (int, error) {
	return r.db.NewSelect().Model((*AmberRun)(nil)).Count(ctx)
}
