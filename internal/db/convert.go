package db

import (
	"github.com/google/uuid"

	"github.com/bio-mcp/bio-mcp-amber/internal/amber"
)

func FromRunRecord(rec amber.RunRecord) *AmberRun {
	id := rec.ID
	if id == "" {
		// Runs rejected before the adapter assigned an id still get a row.
		id = uuid.NewString()
	}
	return &AmberRun{
		ID:              id,
		Tool:            rec.Tool,
		InputFile:       rec.InputFile,
		InputSHA256:     rec.InputSHA256,
		ForceField:      rec.ForceField,
		WaterModel:      rec.WaterModel,
		Steps:           rec.Steps,
		Restraints:      rec.Restraints,
		Status:          string(rec.Status),
		ErrorKind:       string(rec.ErrorKind),
		ErrorMessage:    rec.ErrorMessage,
		ExitCode:        rec.ExitCode,
		DurationSeconds: rec.DurationSeconds,
		FinalEnergy:     rec.FinalEnergy,
		StartedAt:       rec.StartedAt.UTC(),
		FinishedAt:      rec.FinishedAt.UTC(),
	}
}

func ToRunRecord(row AmberRun) amber.RunRecord {
	return amber.RunRecord{
		ID:              row.ID,
		Tool:            row.Tool,
		InputFile:       row.InputFile,
		InputSHA256:     row.InputSHA256,
		ForceField:      row.ForceField,
		WaterModel:      row.WaterModel,
		Steps:           row.Steps,
		Restraints:      row.Restraints,
		Status:          amber.State(row.Status),
		ErrorKind:       amber.Kind(row.ErrorKind),
		ErrorMessage:    row.ErrorMessage,
		ExitCode:        row.ExitCode,
		DurationSeconds: row.DurationSeconds,
		FinalEnergy:     row.FinalEnergy,
		StartedAt:       row.StartedAt,
		FinishedAt:      row.FinishedAt,
	}
}
