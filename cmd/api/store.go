package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/muscuscope/internal/config"
	"github.com/BradenHooton/muscuscope/internal/database"
	"github.com/BradenHooton/muscuscope/internal/handlers"
	"github.com/BradenHooton/muscuscope/internal/repositories"
	"github.com/BradenHooton/muscuscope/internal/services"
)

// userStore is every user operation the binary needs
type userStore interface {
	services.UserRepository
	services.UserCreator
}

// store bundles the repositories for the configured driver
type store struct {
	users    userStore
	attempts services.LoginAttemptRepository
	health   handlers.HealthChecker
	close    func()
}

// openStore connects to the configured database, applying pending migrations when migrate is set
func openStore(ctx context.Context, cfg *config.DatabaseConfig, migrate bool, logger *slog.Logger) (*store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := database.NewConnection(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		if migrate {
			sqlDB := db.SQLDB()
			defer sqlDB.Close()
			if err := database.Migrate(ctx, sqlDB, cfg.Driver, logger); err != nil {
				db.Close()
				return nil, err
			}
		}
		return &store{
			users:    repositories.NewUserRepository(db),
			attempts: repositories.NewLoginAttemptRepository(db),
			health:   db,
			close:    db.Close,
		}, nil

	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := database.Migrate(ctx, db, cfg.Driver, logger); err != nil {
				db.Close()
				return nil, err
			}
		}
		return &store{
			users:    repositories.NewSQLiteUserRepository(db),
			attempts: repositories.NewSQLiteLoginAttemptRepository(db),
			health:   database.SQLiteHealth{DB: db},
			close:    func() { _ = db.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
