package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/muscuscope/internal/database"
	"github.com/BradenHooton/muscuscope/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner is satisfied by pgx.Row and *sql.Row
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	err := scanner.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		pq.Array(&user.Roles), &user.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, roles, created_at
		FROM users WHERE id = $1
	`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

// GetByLogin finds a user by username or email
func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, roles, created_at
		FROM users WHERE username = $1 OR email = $1
		LIMIT 1
	`
	return scanUserRow(r.pool.QueryRow(ctx, query, login))
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if len(user.Roles) == 0 {
		user.Roles = []string{models.RoleUser}
	}
	user.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO users (username, email, password_hash, roles, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		user.Username, user.Email, user.PasswordHash, pq.Array(user.Roles), user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", database.MapPostgresError(err))
	}

	return user, nil
}
