package amber

import (
	"fmt"
	"os"
	"time"

	"github.com/bio-mcp/bio-mcp-amber/internal/config"
	"github.com/bio-mcp/bio-mcp-amber/internal/logging"
)

const (
	defaultMaxFileSize      int64 = 100_000_000
	defaultTimeout                = 300 * time.Second
	defaultPreviewBytes           = 2000
	defaultOutputLimitBytes       = 1 << 20
)

// Config is read once at startup and never modified afterwards.
type Config struct {
	MaxFileSize int64
	Timeout     time.Duration

	// AmberPath is the AMBER installation; when it is a directory it is
	// exported to the tools as AMBERHOME.
	AmberPath   string
	PmemdPath   string
	TleapPath   string
	CpptrajPath string

	// TempDir is the root under which per-request workspaces are created.
	TempDir string

	StructurePreviewBytes int
	// OutputLimitBytes caps how much of each stream is kept per tool run.
	OutputLimitBytes int

	Catalog *Catalog
	Logger  logging.Logger
}

// LoadConfig builds the adapter configuration from the process settings.
func LoadConfig() (Config, error) {
	timeout, err := config.Timeout()
	if err != nil {
		return Config{}, fmt.Errorf("invalid timeout: %w", err)
	}
	if config.MaxFileSize() < 0 {
		return Config{}, fmt.Errorf("invalid max_file_size: %d", config.MaxFileSize())
	}
	catalog, err := LoadCatalog(config.ForceFieldCatalog())
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		MaxFileSize:           config.MaxFileSize(),
		Timeout:               timeout,
		AmberPath:             config.AmberPath(),
		PmemdPath:             config.PmemdPath(),
		TleapPath:             config.TleapPath(),
		CpptrajPath:           config.CpptrajPath(),
		TempDir:               config.TempDir(),
		StructurePreviewBytes: config.StructurePreviewBytes(),
		Catalog:               catalog,
		Logger:                logging.New(logging.NewLogr(config.LogLevel())),
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = defaultMaxFileSize
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.PmemdPath == "" {
		c.PmemdPath = "pmemd"
	}
	if c.TleapPath == "" {
		c.TleapPath = "tleap"
	}
	if c.CpptrajPath == "" {
		c.CpptrajPath = "cpptraj"
	}
	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}
	if c.StructurePreviewBytes <= 0 {
		c.StructurePreviewBytes = defaultPreviewBytes
	}
	if c.OutputLimitBytes <= 0 {
		c.OutputLimitBytes = defaultOutputLimitBytes
	}
	if c.Catalog == nil {
		c.Catalog = DefaultCatalog()
	}
	if c.Logger.IsZero() {
		c.Logger = logging.New(logging.DefaultLogger())
	}
	return c
}

// toolEnv returns extra environment for the AMBER binaries.
func (c Config) toolEnv() []string {
	if c.AmberPath == "" {
		return nil
	}
	if info, err := os.Stat(c.AmberPath); err == nil && info.IsDir() {
		return []string{"AMBERHOME=" + c.AmberPath}
	}
	return nil
}
