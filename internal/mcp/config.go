package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bio-mcp/bio-mcp-amber/internal/amber"
	"github.com/bio-mcp/bio-mcp-amber/internal/config"
	"github.com/bio-mcp/bio-mcp-amber/internal/db"
	"github.com/bio-mcp/bio-mcp-amber/internal/logging"
	"github.com/bio-mcp/bio-mcp-amber/internal/mcp/tools"
)

const EndpointPath = "/mcp"

type Config struct {
	ToolAdapters map[string]ToolAdapter
	Options      []server.StreamableHTTPOption
	Database     *db.Database
	Catalog      *amber.Catalog
	Logger       logging.Logger
}

// ServiceConfig exposes the service behind the handlers in the shape New
// expects.
func ServiceConfig(svc *amber.Service, catalog *amber.Catalog, log logging.Logger) Config {
	adapters := map[string]ToolAdapter{
		amber.ToolRelax:   &tools.RelaxPDBHandler{Service: svc},
		amber.ToolPrepare: &tools.PrepareSystemHandler{Service: svc},
	}
	if svc.HasLedger() {
		adapters[ToolListRuns] = &tools.ListRunsHandler{Service: svc}
	}
	return Config{
		ToolAdapters: adapters,
		Options: []server.StreamableHTTPOption{
			server.WithEndpointPath(EndpointPath),
			server.WithStateLess(true),
		},
		Catalog: catalog,
		Logger:  log,
	}
}

// Runtime is the service graph shared by the MCP server and the CLI.
type Runtime struct {
	Service  *amber.Service
	Catalog  *amber.Catalog
	Database *db.Database
	Logger   logging.Logger
}

// NewRuntime builds the adapter, the optional run ledger and the service
// from the process configuration.
func NewRuntime(ctx context.Context) (*Runtime, error) {
	amberCfg, err := amber.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load amber config: %w", err)
	}
	rt := &Runtime{Catalog: amberCfg.Catalog, Logger: amberCfg.Logger}

	opts := []amber.ServiceOption{amber.WithMaxConcurrentRuns(config.MaxConcurrentRuns())}
	if dsn := config.PostgresURL(); dsn != "" {
		rt.Database, err = db.Open(ctx, db.Config{
			DSN:           dsn,
			Debug:         config.DBDebug(),
			MigrationsDir: config.MigrationsDir(),
			AutoMigrate:   config.AutoMigrate(),
		})
		if err != nil {
			return nil, fmt.Errorf("open run ledger: %w", err)
		}
		repo := db.NewRunRepository(rt.Database, db.WithHistoryMax(config.RunHistoryMax()))
		opts = append(opts, amber.WithRecorder(repo))
		rt.Logger.Info("run ledger enabled", "historyMax", config.RunHistoryMax())
	}

	rt.Service = amber.NewService(amber.NewAdapter(amberCfg), opts...)
	return rt, nil
}

// Runs returns the ledger repository, or nil without a database.
func (rt *Runtime) Runs() *db.RunRepository {
	if rt.Database == nil {
		return nil
	}
	return db.NewRunRepository(rt.Database, db.WithHistoryMax(config.RunHistoryMax()))
}

func (rt *Runtime) Close() {
	if rt.Database != nil {
		if err := rt.Database.Close(); err != nil {
			rt.Logger.Error(err, "error closing database")
		}
	}
}

// DefaultConfig returns the server configuration for the process settings.
func DefaultConfig(ctx context.Context) (Config, error) {
	rt, err := NewRuntime(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg := ServiceConfig(rt.Service, rt.Catalog, rt.Logger)
	cfg.Database = rt.Database
	return cfg, nil
}
