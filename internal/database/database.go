package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pdf-quiz/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
	_ "github.com/sijms/go-ora/v2" // registers "oracle"
	_ "modernc.org/sqlite"         // registers "sqlite"
)

const (
	DriverOracle   = "oracle"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	// go-ora takes :name placeholders; sqlx does not know the driver by default.
	sqlx.BindDriver(DriverOracle, sqlx.NAMED)
}

// sqlDriverName maps a configured driver to its database/sql registration name.
func sqlDriverName(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverOracle:
		return DriverOracle, nil
	case DriverPostgres, "pgx":
		return "pgx", nil
	case DriverSQLite, "sqlite3":
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %q", driver)
	}
}

// Open connects to the configured database, tunes the pool and pings it.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	name, err := sqlDriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required for driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(name, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", name, err)
	}
	tunePool(name, db)

	if name == DriverOracle {
		// Oracle reports unquoted identifiers in upper case.
		db.Mapper = reflectx.NewMapperTagFunc("db", strings.ToUpper, strings.ToUpper)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", name, err)
	}

	if name == DriverSQLite {
		for _, p := range []string{"PRAGMA foreign_keys = ON;", "PRAGMA busy_timeout = 5000;"} {
			if _, err := db.ExecContext(ctx, p); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("sqlite pragma %q: %w", p, err)
			}
		}
	}
	return db, nil
}

func tunePool(driverName string, db *sqlx.DB) {
	if driverName == DriverSQLite {
		// Single writer; also keeps a :memory: database on one connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(45 * time.Minute)
	db.SetConnMaxIdleTime(15 * time.Minute)
}

// IsOracle reports whether db talks to Oracle.
func IsOracle(db *sqlx.DB) bool {
	return db.DriverName() == DriverOracle
}
