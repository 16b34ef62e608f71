package db

import (
	"time"

	"github.com/uptrace/bun"
)

// AmberRun is one row of the run ledger.
type AmberRun struct {
	bun.BaseModel `bun:"table:amber_runs"`

	ID              string    `bun:"id,pk"`
	Tool            string    `bun:"tool"` // amber_relax_pdb|amber_prepare_system
	InputFile       string    `bun:"input_file"`
	InputSHA256     string    `bun:"input_sha256,nullzero"`
	ForceField      string    `bun:"force_field,nullzero"`
	WaterModel      string    `bun:"water_model,nullzero"`
	Steps           int       `bun:"steps,nullzero"`
	Restraints      bool      `bun:"restraints"`
	Status          string    `bun:"status"` // succeeded|failed|timed_out
	ErrorKind       string    `bun:"error_kind,nullzero"`
	ErrorMessage    string    `bun:"error_message,nullzero"`
	ExitCode        int       `bun:"exit_code"`
	DurationSeconds float64   `bun:"duration_seconds"`
	FinalEnergy     *float64  `bun:"final_energy"`
	StartedAt       time.Time `bun:"started_at"`
	FinishedAt      time.Time `bun:"finished_at"`
	InsertedAt      time.Time `bun:"inserted_at,nullzero,default:now()"`
}
