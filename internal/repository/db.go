package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/docforge/internal/common"
)

// Dialect selects placeholder style for the hand-written SQL in this package.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

func (d Dialect) String() string {
	if d == DialectSQLite {
		return common.DriverSQLite
	}
	return common.DriverPostgres
}

// placeholder returns the n-th (1-based) bind parameter.
func (d Dialect) placeholder(n int) string {
	if d == DialectSQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

// Store is an open database: the *sql.DB used by the repositories and, for
// Postgres, the pgx pool behind it.
type Store struct {
	DB      *sql.DB
	Pool    *pgxpool.Pool
	Dialect Dialect
}

// Open opens the store named by cfg.Driver.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	switch cfg.Driver {
	case common.DriverPostgres:
		return OpenPostgres(ctx, cfg, logger)
	case common.DriverSQLite:
		return OpenSQLite(cfg.SQLitePath, logger)
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported driver %q", cfg.Driver), common.ErrInvalidInput)
	}
}

// OpenPostgres creates a pgx pool and wraps it as *sql.DB.
func OpenPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	logger = common.LoggerOrDefault(logger)
	logger.Info("connecting to database", "driver", common.DriverPostgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.DatabaseError("parse dsn", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "docforge"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.DatabaseError("connect", err)
	}

	logger.Info("successfully connected to database")
	return &Store{DB: stdlib.OpenDBFromPool(pool), Pool: pool, Dialect: DialectPostgres}, nil
}

// OpenSQLite opens a single-writer SQLite database with WAL and a busy timeout.
func OpenSQLite(path string, logger *slog.Logger) (*Store, error) {
	logger = common.LoggerOrDefault(logger)
	logger.Debug("opening database", "driver", common.DriverSQLite, "path", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.DatabaseError("open sqlite", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, common.DatabaseError(pragma, err)
		}
	}

	logger.Info("database opened", "driver", common.DriverSQLite, "path", path)
	return &Store{DB: db, Dialect: DialectSQLite}, nil
}

// Close closes the database connections gracefully
func (s *Store) Close(logger *slog.Logger) {
	logger = common.LoggerOrDefault(logger)
	logger.Info("closing database connections")
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the store to catch DSN issues early.
func HealthCheck(ctx context.Context, s *Store, timeout time.Duration, logger *slog.Logger) error {
	logger = common.LoggerOrDefault(logger)
	logger.Debug("pinging database", "driver", s.Dialect.String())
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var err error
	if s.Pool != nil {
		err = s.Pool.Ping(ctx)
	} else {
		err = s.DB.PingContext(ctx)
	}
	if err != nil {
		return common.DatabaseError("ping", err)
	}
	logger.Debug("database ping successful")
	return nil
}
