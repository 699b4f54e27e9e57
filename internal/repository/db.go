package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/vacation-distri/internal/common"
)

// DB is an open task store: an ent SQL driver plus, for postgres, the
// underlying pgx pool.
type DB struct {
	Driver  *entsql.Driver
	Dialect string
	pool    *pgxpool.Pool
}

// Open connects to the configured task store and creates its schema.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		db  *DB
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		db, err = openSQLite(ctx, cfg.DSN, logger)
	case "postgres":
		db, err = openPostgres(ctx, cfg, logger)
	default:
		return nil, common.InvalidInputf("unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		logger.Error("failed to connect to database", "driver", cfg.Driver, "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close(logger)
		return nil, fmt.Errorf("%w: migrate: %w", common.ErrDatabase, err)
	}
	logger.Info("successfully connected to database", "dialect", db.Dialect)
	return db, nil
}

func openSQLite(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	if dsn == "" {
		dsn = "./data/tasks.db"
	}
	if path := sqlitePath(dsn); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	logger.Info("connecting to database", "driver", "sqlite", "dsn", dsn)
	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one connection: writers never contend and :memory: stays a single database
	sdb.SetMaxOpenConns(1)
	if err := sdb.PingContext(ctx); err != nil {
		_ = sdb.Close()
		return nil, err
	}
	return &DB{Driver: entsql.OpenDB(dialect.SQLite, sdb), Dialect: dialect.SQLite}, nil
}

// sqlitePath returns the file behind dsn, or "" for in-memory databases.
func sqlitePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return ""
	}
	return path
}

func openPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", "postgres")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "vacation-distri"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	// Wrap pool as *sql.DB for the ent driver
	sdb := stdlib.OpenDBFromPool(pool)
	return &DB{Driver: entsql.OpenDB(dialect.Postgres, sdb), Dialect: dialect.Postgres, pool: pool}, nil
}

// Close closes the database connections gracefully
func (db *DB) Close(logger *slog.Logger) {
	if db == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("closing database connections")
	if db.Driver != nil {
		if err := db.Driver.Close(); err != nil {
			logger.Error("failed to close database driver", "error", err)
		}
	}
	if db.pool != nil {
		db.pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the store within timeout.
func (db *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.Driver.DB().PingContext(ctx)
}

func (db *DB) builder() *entsql.DialectBuilder {
	return entsql.Dialect(db.Dialect)
}

const createTasksTable = `CREATE TABLE IF NOT EXISTS processing_tasks (
	id            VARCHAR(36) NOT NULL PRIMARY KEY,
	file_name     TEXT        NOT NULL,
	status        VARCHAR(16) NOT NULL,
	progress      INTEGER     NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at    BIGINT      NOT NULL,
	completed_at  BIGINT,
	result        TEXT
)`

const createTasksIndex = `CREATE INDEX IF NOT EXISTS processing_tasks_created_at ON processing_tasks (created_at)`

// Migrate creates the task table and its index when missing. The DDL is
// shared by sqlite and postgres.
func (db *DB) Migrate(ctx context.Context) error {
	if err := db.Driver.Exec(ctx, createTasksTable, []any{}, nil); err != nil {
		return fmt.Errorf("create %s: %w", tasksTable, err)
	}
	if err := db.Driver.Exec(ctx, createTasksIndex, []any{}, nil); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}
