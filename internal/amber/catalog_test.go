package amber

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	ff, ok := c.ForceField("ff19sb")
	if !ok {
		t.Fatalf("expected ff19SB in default catalog")
	}
	if ff.Name != "ff19SB" || ff.Leaprc != "leaprc.protein.ff19SB" {
		t.Fatalf("unexpected entry %+v", ff)
	}
	if _, ok := c.WaterModel("tip3p"); !ok {
		t.Fatalf("expected tip3p in default catalog")
	}
	if _, ok := c.ForceField("charmm36"); ok {
		t.Fatalf("charmm36 should not be allowed")
	}
}

func TestParseCatalogRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":          "forceFields: []\nwaterModels: []\n",
		"no water":       "forceFields:\n  - name: ff\n    leaprc: leaprc.ff\n",
		"duplicate":      "forceFields:\n  - name: ff\n    leaprc: a\n  - name: FF\n    leaprc: b\nwaterModels:\n  - name: w\n    leaprc: w\n",
		"injected":       "forceFields:\n  - name: ff\n    leaprc: \"a\\nquit\"\nwaterModels:\n  - name: w\n    leaprc: w\n",
		"unknown field":  "forceFields:\n  - name: ff\n    leaprc: a\n    bogus: 1\nwaterModels:\n  - name: w\n    leaprc: w\n",
		"missing leaprc": "forceFields:\n  - name: ff\nwaterModels:\n  - name: w\n    leaprc: w\n",
	}
	for name, doc := range cases {
		if _, err := ParseCatalog([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := "forceFields:\n  - name: custom\n    leaprc: leaprc.protein.custom\nwaterModels:\n  - name: tip3p\n    leaprc: leaprc.water.tip3p\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if got := c.ForceFieldNames(); len(got) != 1 || got[0] != "custom" {
		t.Fatalf("unexpected force fields %v", got)
	}
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
