package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens the SQLite database at path. ":memory:" is supported and
// pins the pool to one connection so every query sees the same database.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}

	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("unable to configure sqlite (%s): %w", pragma, err)
		}
	}

	logger.Info("database connection established",
		slog.String("driver", "sqlite"),
		slog.String("path", path),
	)

	return db, nil
}

// SQLiteHealth adapts a *sql.DB to the health endpoint
type SQLiteHealth struct {
	DB *sql.DB
}

func (h SQLiteHealth) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
