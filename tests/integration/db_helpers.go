//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BradenHooton/muscuscope/internal/config"
	"github.com/BradenHooton/muscuscope/internal/database"
	"github.com/BradenHooton/muscuscope/internal/models"
	"github.com/BradenHooton/muscuscope/internal/repositories"
	"github.com/BradenHooton/muscuscope/pkg/auth"
)

// TestDB manages the PostgreSQL testcontainer and its pool
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	DB         *database.DB
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SetupTestDatabase starts PostgreSQL, applies the embedded migrations and returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("muscuscope"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := database.NewFromPool(pool, quietLogger())

	sqlDB := db.SQLDB()
	defer sqlDB.Close()
	if err := database.Migrate(ctx, sqlDB, config.DriverPostgres, quietLogger()); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		DB:         db,
	}, nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.DB != nil {
		db.DB.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	for _, table := range []string{"login_attempts", "users"} {
		if _, err := db.DB.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}
	return nil
}

// InitializeRepositories creates the Postgres repositories
func InitializeRepositories(db *database.DB) (*repositories.UserRepository, *repositories.LoginAttemptRepository) {
	return repositories.NewUserRepository(db), repositories.NewLoginAttemptRepository(db)
}

// SeedUser inserts a user with a low-cost bcrypt hash of password
func SeedUser(ctx context.Context, repo *repositories.UserRepository, username, email, password string, roles ...string) (*models.User, error) {
	hash, err := auth.HashPasswordWithCost(password, 4)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := repo.Create(ctx, &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        append([]string{models.RoleUser}, roles...),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

// SeedAttempts inserts count attempts for login/ip at the given time
func SeedAttempts(ctx context.Context, repo *repositories.LoginAttemptRepository, login, ip string, success bool, at time.Time, count int) error {
	for i := 0; i < count; i++ {
		if err := repo.Insert(ctx, &models.LoginAttempt{
			AttemptedAt: at,
			Login:       login,
			IPAddress:   ip,
			Success:     success,
		}); err != nil {
			return fmt.Errorf("failed to insert attempt: %w", err)
		}
	}
	return nil
}
