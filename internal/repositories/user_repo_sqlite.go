package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/muscuscope/internal/database"
	"github.com/BradenHooton/muscuscope/internal/models"
)

// SQLiteUserRepository stores users in SQLite. Roles are kept as a
// comma-separated list.
type SQLiteUserRepository struct {
	db *sql.DB
}

func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func scanSQLiteUser(scanner rowScanner) (*models.User, error) {
	var (
		user      models.User
		roles     string
		createdAt int64
	)
	err := scanner.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &roles, &createdAt)
	if err != nil {
		return nil, database.MapSQLiteError(err)
	}

	user.Roles = splitRoles(roles)
	user.CreatedAt = time.Unix(0, createdAt).UTC()
	return &user, nil
}

func (r *SQLiteUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return scanSQLiteUser(r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, roles, created_at FROM users WHERE id = ?`, id))
}

func (r *SQLiteUserRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	return scanSQLiteUser(r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, roles, created_at FROM users
		 WHERE username = ?1 OR email = ?1 LIMIT 1`, login))
}

func (r *SQLiteUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if len(user.Roles) == 0 {
		user.Roles = []string{models.RoleUser}
	}
	user.CreatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, roles, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.Username, user.Email, user.PasswordHash, strings.Join(user.Roles, ","), user.CreatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", database.MapSQLiteError(err))
	}

	if user.ID, err = result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to read user id: %w", err)
	}
	return user, nil
}

func splitRoles(roles string) []string {
	out := []string{}
	for _, role := range strings.Split(roles, ",") {
		if role = strings.TrimSpace(role); role != "" {
			out = append(out, role)
		}
	}
	return out
}
