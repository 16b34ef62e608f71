package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	pgdriver "github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	dbmigrate "github.com/bio-mcp/bio-mcp-amber/internal/db/migrate"
)

type Config struct {
	DSN   string
	Debug bool
	// MigrationsDir overrides the embedded migrations when set.
	MigrationsDir string
	AutoMigrate   bool
}

type Database struct {
	bun *bun.DB
}

func NewDatabase(cfg Config) (*Database, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	connector := pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithTimeout(10*time.Second),
	)
	sqldb := sql.OpenDB(connector)
	sqldb.SetMaxOpenConns(4)
	db := bun.NewDB(sqldb, pgdialect.New())

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	return &Database{bun: db}, nil
}

// Open connects, verifies the server is reachable and checks that the
// ledger schema is current.
func Open(ctx context.Context, cfg Config) (*Database, error) {
	database, err := NewDatabase(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Ping(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("connect to run ledger: %w", err)
	}
	if err := dbmigrate.EnsureCurrent(ctx, database.Bun(), cfg.MigrationsDir, cfg.AutoMigrate); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

func (d *Database) Bun() *bun.DB {
	return d.bun
}

func (d *Database) Close() error {
	return d.bun.Close()
}

func (d *Database) Ping(ctx context.Context) error {
	return d.bun.PingContext(ctx)
}
