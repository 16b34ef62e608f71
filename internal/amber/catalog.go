package amber

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"sigs.k8s.io/yaml"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// leaprc entries end up verbatim in a tleap script.
var leaprcPattern = regexp.MustCompile(`^[A-Za-z0-9._/+-]+$`)

type CatalogEntry struct {
	Name        string `json:"name"`
	Leaprc      string `json:"leaprc"`
	Description string `json:"description,omitempty"`
}

// Catalog is the allow-list of force fields and water models.
type Catalog struct {
	ForceFields []CatalogEntry `json:"forceFields"`
	WaterModels []CatalogEntry `json:"waterModels"`
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded force field catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog file, or returns the default one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return c, nil
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, err
	}
	if len(c.ForceFields) == 0 {
		return nil, fmt.Errorf("catalog lists no force fields")
	}
	if len(c.WaterModels) == 0 {
		return nil, fmt.Errorf("catalog lists no water models")
	}
	if err := validateEntries("force field", c.ForceFields); err != nil {
		return nil, err
	}
	if err := validateEntries("water model", c.WaterModels); err != nil {
		return nil, err
	}
	return &c, nil
}

func validateEntries(kind string, entries []CatalogEntry) error {
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("%s #%d has no name", kind, i+1)
		}
		key := strings.ToLower(e.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate %s %q", kind, e.Name)
		}
		seen[key] = struct{}{}
		if !leaprcPattern.MatchString(e.Leaprc) {
			return fmt.Errorf("%s %q has invalid leaprc %q", kind, e.Name, e.Leaprc)
		}
	}
	return nil
}

// ForceField looks up a force field by name, ignoring case.
func (c *Catalog) ForceField(name string) (CatalogEntry, bool) {
	return lookup(c.ForceFields, name)
}

// WaterModel looks up a water model by name, ignoring case.
func (c *Catalog) WaterModel(name string) (CatalogEntry, bool) {
	return lookup(c.WaterModels, name)
}

func (c *Catalog) ForceFieldNames() []string { return names(c.ForceFields) }
func (c *Catalog) WaterModelNames() []string { return names(c.WaterModels) }

func lookup(entries []CatalogEntry, name string) (CatalogEntry, bool) {
	name = strings.TrimSpace(name)
	for _, e := range entries {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

func names(entries []CatalogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	sort.Strings(out)
	return out
}
