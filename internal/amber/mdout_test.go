package amber

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleMdout = `
   NSTEP       ENERGY          RMS            GMAX         NAME    NUMBER
      1      -5.0000E+02     3.0000E+00     9.0000E+00     CA         5

                    FINAL RESULTS



   NSTEP       ENERGY          RMS            GMAX         NAME    NUMBER
    500      -1.2345E+03     1.0000E-01     2.0000E+00     CA        12

 BOND    =       12.3456  ANGLE   =       45.6789  DIHED      =      123.4567
`

func TestParseFinalEnergy(t *testing.T) {
	got, ok := parseFinalEnergy(sampleMdout)
	if !ok {
		t.Fatalf("expected final energy")
	}
	if got != -1234.5 {
		t.Fatalf("final energy = %v, want -1234.5", got)
	}
	if _, ok := parseFinalEnergy("Minimization completed successfully"); ok {
		t.Fatalf("expected no energy without FINAL RESULTS")
	}
	if _, ok := parseFinalEnergy("FINAL RESULTS\n NSTEP ENERGY\n  500 garbage\n"); ok {
		t.Fatalf("expected no energy for unparsable value")
	}
}

const samplePrmtop = `%VERSION  VERSION_STAMP = V0001.000  DATE = 01/01/25  00:00:00
%FLAG TITLE
%FORMAT(20a4)
default_name
%FLAG POINTERS
%FORMAT(10I8)
    1912      14     943     977    2169    1317    4295    3110       0       0
    8498     121     977    1317    3110      52     102      75      23       0
       0       0       0       0       0       0       0       0      30       0
       0
%FLAG ATOM_NAME
%FORMAT(20a4)
N   H1  H2  H3  CA
`

func TestPrmtopCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system.prmtop")
	if err := os.WriteFile(path, []byte(samplePrmtop), 0o644); err != nil {
		t.Fatal(err)
	}
	atoms, residues, err := prmtopCounts(path)
	if err != nil {
		t.Fatalf("prmtopCounts: %v", err)
	}
	if atoms != 1912 || residues != 121 {
		t.Fatalf("got atoms=%d residues=%d", atoms, residues)
	}
}

func TestPrmtopCountsMissingFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system.prmtop")
	if err := os.WriteFile(path, []byte("%FLAG TITLE\n%FORMAT(20a4)\nx\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := prmtopCounts(path); err == nil {
		t.Fatalf("expected error without POINTERS")
	}
}
