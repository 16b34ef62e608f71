package amber

import (
	"fmt"
	"strings"
)

// Workspace file names. The AMBER tools are always run with the workspace as
// their working directory, so every reference is relative.
const (
	fileInputPDB     = "input.pdb"
	fileLeapScript   = "prep.leap"
	fileTopology     = "system.prmtop"
	fileCoordinates  = "system.inpcrd"
	filePreparedPDB  = "prepared.pdb"
	fileMinInput     = "min.in"
	fileMinLog       = "minimization.log"
	fileRestart      = "minimized.rst"
	fileCpptrajInput = "convert.cpptraj"
	fileMinimizedPDB = "minimized.pdb"
)

// step is one external tool run and the files it must leave behind.
type step struct {
	cmd     Command
	outputs []string
}

func leapScript(ff, water CatalogEntry, pdb string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "source %s\n", ff.Leaprc)
	fmt.Fprintf(&b, "source %s\n", water.Leaprc)
	b.WriteString("\n")
	fmt.Fprintf(&b, "mol = loadpdb %s\n", pdb)
	b.WriteString("addions mol Na+ 0\n")
	b.WriteString("addions mol Cl- 0\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "saveamberparm mol %s %s\n", fileTopology, fileCoordinates)
	fmt.Fprintf(&b, "savepdb mol %s\n", filePreparedPDB)
	b.WriteString("quit\n")
	return b.String()
}

// minimizationInput renders the &cntrl namelist: in-vacuo minimization with
// maxcyc=steps, the first half steepest descent, then conjugate gradient.
func minimizationInput(plan relaxPlan) string {
	var b strings.Builder
	b.WriteString("Energy minimization\n")
	b.WriteString(" &cntrl\n")
	b.WriteString("  imin=1,\n")
	fmt.Fprintf(&b, "  maxcyc=%d,\n", plan.steps)
	fmt.Fprintf(&b, "  ncyc=%d,\n", plan.steps/2)
	b.WriteString("  ntb=0,\n")
	b.WriteString("  cut=999.0,\n")
	if plan.restraints {
		b.WriteString("  ntr=1,\n")
		fmt.Fprintf(&b, "  restraint_wt=%s,\n", formatWeight(plan.weight))
		fmt.Fprintf(&b, "  restraintmask='%s',\n", plan.mask)
	}
	b.WriteString(" /\n")
	return b.String()
}

func formatWeight(w float64) string {
	s := fmt.Sprintf("%g", w)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func cpptrajScript() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parm %s\n", fileTopology)
	fmt.Fprintf(&b, "trajin %s\n", fileRestart)
	fmt.Fprintf(&b, "trajout %s pdb\n", fileMinimizedPDB)
	b.WriteString("run\n")
	b.WriteString("quit\n")
	return b.String()
}

func (a *Adapter) leapStep(dir string) step {
	return step{
		cmd: Command{
			Tool: "tleap",
			Path: a.cfg.TleapPath,
			Args: []string{"-f", fileLeapScript},
			Dir:  dir,
			Env:  a.cfg.toolEnv(),
		},
		outputs: []string{fileTopology, fileCoordinates},
	}
}

func (a *Adapter) minimizeStep(dir string) step {
	return step{
		cmd: Command{
			Tool: "pmemd",
			Path: a.cfg.PmemdPath,
			Args: []string{
				"-O",
				"-i", fileMinInput,
				"-o", fileMinLog,
				"-p", fileTopology,
				"-c", fileCoordinates,
				"-r", fileRestart,
				"-ref", fileCoordinates,
			},
			Dir: dir,
			Env: a.cfg.toolEnv(),
		},
		outputs: []string{fileRestart, fileMinLog},
	}
}

func (a *Adapter) convertStep(dir string) step {
	return step{
		cmd: Command{
			Tool: "cpptraj",
			Path: a.cfg.CpptrajPath,
			Args: []string{"-i", fileCpptrajInput},
			Dir:  dir,
			Env:  a.cfg.toolEnv(),
		},
		outputs: []string{fileMinimizedPDB},
	}
}
