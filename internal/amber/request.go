package amber

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	ToolRelax   = "amber_relax_pdb"
	ToolPrepare = "amber_prepare_system"

	DefaultForceField      = "ff19SB"
	DefaultWaterModel      = "tip3p"
	DefaultSteps           = 10000
	DefaultRestraintMask   = "@CA,C,N"
	DefaultRestraintWeight = 10.0
)

// RelaxRequest asks for an energy minimization of a PDB structure.
type RelaxRequest struct {
	InputFile  string `json:"input_file"`
	ForceField string `json:"force_field"`
	WaterModel string `json:"water_model"`
	Steps      int    `json:"steps"`
	// Restraints holds the atoms selected by RestraintMask near their
	// starting positions with a harmonic weight of RestraintWeight.
	Restraints      bool    `json:"restraints"`
	RestraintMask   string  `json:"restraint_mask,omitempty"`
	RestraintWeight float64 `json:"restraint_weight,omitempty"`
	// OutputDir, when set, receives copies of the relaxed structure and the
	// minimization log before the workspace is removed.
	OutputDir string `json:"output_dir,omitempty"`
}

// NewRelaxRequest returns a request for input with every optional field at
// its default.
func NewRelaxRequest(input string) RelaxRequest {
	return RelaxRequest{
		InputFile:       input,
		ForceField:      DefaultForceField,
		WaterModel:      DefaultWaterModel,
		Steps:           DefaultSteps,
		RestraintMask:   DefaultRestraintMask,
		RestraintWeight: DefaultRestraintWeight,
	}
}

// PrepareRequest asks tleap to build topology and coordinates for a PDB structure.
type PrepareRequest struct {
	InputFile  string `json:"input_file"`
	ForceField string `json:"force_field"`
	WaterModel string `json:"water_model"`
	OutputDir  string `json:"output_dir,omitempty"`
}

func NewPrepareRequest(input string) PrepareRequest {
	return PrepareRequest{InputFile: input, ForceField: DefaultForceField, WaterModel: DefaultWaterModel}
}

// StructureSummary describes the atoms of a PDB model.
type StructureSummary struct {
	Atoms    int      `json:"atoms"`
	Residues int      `json:"residues"`
	Chains   []string `json:"chains,omitempty"`
}

// RelaxResult reports a successful minimization. Paths refer to the request
// workspace, which no longer exists once the result is returned; the
// content fields hold what was read from it before cleanup.
type RelaxResult struct {
	RunID     string `json:"run_id"`
	Status    State  `json:"status"`
	Workspace string `json:"workspace"`

	OutputStructurePath string `json:"output_structure_path"`
	EnergyLogPath       string `json:"energy_log_path"`

	PersistedStructurePath string `json:"persisted_structure_path,omitempty"`
	PersistedEnergyLogPath string `json:"persisted_energy_log_path,omitempty"`

	ExitCode        int           `json:"exit_code"`
	Duration        time.Duration `json:"-"`
	DurationSeconds float64       `json:"duration_seconds"`

	ForceField      string  `json:"force_field"`
	WaterModel      string  `json:"water_model"`
	Steps           int     `json:"steps"`
	Restraints      bool    `json:"restraints"`
	RestraintMask   string  `json:"restraint_mask,omitempty"`
	RestraintWeight float64 `json:"restraint_weight,omitempty"`

	InputSHA256 string   `json:"input_sha256"`
	FinalEnergy *float64 `json:"final_energy,omitempty"`

	EnergyLog          string `json:"energy_log,omitempty"`
	StructurePreview   string `json:"structure_preview,omitempty"`
	StructureTruncated bool   `json:"structure_truncated,omitempty"`

	InputSummary  *StructureSummary `json:"input_summary,omitempty"`
	OutputSummary *StructureSummary `json:"output_summary,omitempty"`
}

// PrepareResult reports the artifacts tleap produced.
type PrepareResult struct {
	RunID     string `json:"run_id"`
	Status    State  `json:"status"`
	Workspace string `json:"workspace"`

	TopologyPath          string `json:"topology_path"`
	CoordinatesPath       string `json:"coordinates_path"`
	PreparedStructurePath string `json:"prepared_structure_path,omitempty"`
	TopologyBytes         int64  `json:"topology_bytes"`
	CoordinatesBytes      int64  `json:"coordinates_bytes"`

	PersistedTopologyPath    string `json:"persisted_topology_path,omitempty"`
	PersistedCoordinatesPath string `json:"persisted_coordinates_path,omitempty"`
	PersistedStructurePath   string `json:"persisted_structure_path,omitempty"`

	AtomCount    int `json:"atom_count,omitempty"`
	ResidueCount int `json:"residue_count,omitempty"`

	ExitCode        int           `json:"exit_code"`
	Duration        time.Duration `json:"-"`
	DurationSeconds float64       `json:"duration_seconds"`

	ForceField   string            `json:"force_field"`
	WaterModel   string            `json:"water_model"`
	InputSHA256  string            `json:"input_sha256"`
	InputSummary *StructureSummary `json:"input_summary,omitempty"`
	TleapLog     string            `json:"tleap_log,omitempty"`
}

// systemPlan is the validated, normalized form shared by both operations.
type systemPlan struct {
	input     string
	inputSize int64
	ff        CatalogEntry
	water     CatalogEntry
	outputDir string
	summary   *StructureSummary
}

type relaxPlan struct {
	systemPlan
	steps      int
	restraints bool
	mask       string
	weight     float64
}

func (a *Adapter) validateRelax(req RelaxRequest) (relaxPlan, error) {
	sys, err := a.validateSystem(req.InputFile, req.ForceField, req.WaterModel, req.OutputDir)
	if err != nil {
		return relaxPlan{}, err
	}
	if req.Steps <= 0 {
		return relaxPlan{}, newError(KindInvalidParameter, "steps must be a positive integer, got %d", req.Steps)
	}
	plan := relaxPlan{systemPlan: sys, steps: req.Steps, restraints: req.Restraints}
	if req.Restraints {
		plan.mask = strings.TrimSpace(req.RestraintMask)
		if plan.mask == "" {
			plan.mask = DefaultRestraintMask
		}
		if strings.ContainsAny(plan.mask, "'\"\n\r") {
			return relaxPlan{}, newError(KindInvalidParameter, "restraint_mask must not contain quotes or line breaks")
		}
		plan.weight = req.RestraintWeight
		if plan.weight <= 0 {
			return relaxPlan{}, newError(KindInvalidParameter, "restraint_weight must be positive, got %g", req.RestraintWeight)
		}
	}
	if err := a.inspectInput(&plan.systemPlan); err != nil {
		return relaxPlan{}, err
	}
	return plan, nil
}

func (a *Adapter) validatePrepare(req PrepareRequest) (systemPlan, error) {
	sys, err := a.validateSystem(req.InputFile, req.ForceField, req.WaterModel, req.OutputDir)
	if err != nil {
		return systemPlan{}, err
	}
	if err := a.inspectInput(&sys); err != nil {
		return systemPlan{}, err
	}
	return sys, nil
}

// validateSystem runs the checks that need no file content: existence and
// size first, then the parameters.
func (a *Adapter) validateSystem(input, forceField, waterModel, outputDir string) (systemPlan, error) {
	path, size, err := a.checkInputFile(input)
	if err != nil {
		return systemPlan{}, err
	}
	plan := systemPlan{input: path, inputSize: size}

	if strings.TrimSpace(forceField) == "" {
		forceField = DefaultForceField
	}
	ff, ok := a.cfg.Catalog.ForceField(forceField)
	if !ok {
		return systemPlan{}, newError(KindInvalidParameter, "unsupported force_field %q (allowed: %s)",
			forceField, strings.Join(a.cfg.Catalog.ForceFieldNames(), ", "))
	}
	plan.ff = ff

	if strings.TrimSpace(waterModel) == "" {
		waterModel = DefaultWaterModel
	}
	wm, ok := a.cfg.Catalog.WaterModel(waterModel)
	if !ok {
		return systemPlan{}, newError(KindInvalidParameter, "unsupported water_model %q (allowed: %s)",
			waterModel, strings.Join(a.cfg.Catalog.WaterModelNames(), ", "))
	}
	plan.water = wm

	if outputDir != "" {
		abs, err := filepath.Abs(outputDir)
		if err != nil {
			return systemPlan{}, wrapError(KindInvalidParameter, err, "invalid output_dir")
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			return systemPlan{}, newError(KindInvalidParameter, "output_dir %s is not an existing directory", outputDir)
		}
		plan.outputDir = abs
	}
	return plan, nil
}

func (a *Adapter) checkInputFile(input string) (string, int64, error) {
	if strings.TrimSpace(input) == "" {
		return "", 0, newError(KindInvalidParameter, "input_file is required")
	}
	path, err := filepath.Abs(input)
	if err != nil {
		return "", 0, wrapError(KindInvalidParameter, err, "invalid input_file")
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", 0, newError(KindNotFound, "input file not found: %s", input)
		}
		return "", 0, wrapError(KindNotFound, err, "input file not accessible: %s", input)
	}
	if !info.Mode().IsRegular() {
		return "", 0, newError(KindInvalidParameter, "input_file %s is not a regular file", input)
	}
	if info.Size() > a.cfg.MaxFileSize {
		return "", 0, newError(KindTooLarge, "file too large: %d bytes (maximum %d bytes)", info.Size(), a.cfg.MaxFileSize)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", 0, wrapError(KindNotFound, err, "input file not readable: %s", input)
	}
	f.Close()
	return path, info.Size(), nil
}

func (a *Adapter) inspectInput(plan *systemPlan) error {
	summary, err := summarizePDB(plan.input)
	if err != nil {
		return wrapError(KindInvalidParameter, err, "input_file is not a usable PDB structure")
	}
	plan.summary = summary
	return nil
}
