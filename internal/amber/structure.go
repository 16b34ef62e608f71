package amber

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	chem "github.com/rmera/gochem"
)

// summarizePDB parses a PDB file and counts its atoms, residues and chains.
func summarizePDB(path string) (*StructureSummary, error) {
	if err := hasAtomRecords(path); err != nil {
		return nil, err
	}
	mol, err := readPDB(path)
	if err != nil {
		return nil, err
	}
	if mol == nil || mol.Len() == 0 {
		return nil, fmt.Errorf("no ATOM or HETATM records")
	}

	residues := make(map[string]struct{})
	chains := make(map[string]struct{})
	for i := 0; i < mol.Len(); i++ {
		at := mol.Atom(i)
		residues[fmt.Sprintf("%s:%d:%s", at.Chain, at.MolID, at.MolName)] = struct{}{}
		if c := strings.TrimSpace(at.Chain); c != "" {
			chains[c] = struct{}{}
		}
	}

	summary := &StructureSummary{Atoms: mol.Len(), Residues: len(residues)}
	for c := range chains {
		summary.Chains = append(summary.Chains, c)
	}
	sort.Strings(summary.Chains)
	return summary, nil
}

// readPDB wraps the gochem reader, which slices fixed columns and panics on
// records shorter than the PDB layout.
func readPDB(path string) (mol *chem.Molecule, err error) {
	defer func() {
		if r := recover(); r != nil {
			mol, err = nil, fmt.Errorf("malformed PDB record: %v", r)
		}
	}()
	return chem.PDBFileRead(path, false)
}

// hasAtomRecords checks that every ATOM/HETATM record reaches the
// coordinate columns and that at least one exists.
func hasAtomRecords(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 4096), 1024*1024)
	n, line := 0, 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if !strings.HasPrefix(text, "ATOM") && !strings.HasPrefix(text, "HETATM") {
			continue
		}
		if len(text) < 54 {
			return fmt.Errorf("line %d: %s record too short for coordinates", line, strings.Fields(text)[0])
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no ATOM or HETATM records")
	}
	return nil
}
