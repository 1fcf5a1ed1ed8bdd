package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/muscuscope/internal/database"
	"github.com/BradenHooton/muscuscope/internal/models"
)

// LoginAttemptRepository stores login attempts in PostgreSQL
type LoginAttemptRepository struct {
	db *database.DB
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository
func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

// Insert appends attempt and fills in its generated ID.
// Driver errors are wrapped unmapped: a failed write is never a client error.
func (r *LoginAttemptRepository) Insert(ctx context.Context, attempt *models.LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (attempted_at, login, ip_address, success)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, query,
		attempt.AttemptedAt.UTC(),
		attempt.Login,
		attempt.IPAddress,
		attempt.Success,
	).Scan(&attempt.ID)
	if err != nil {
		return fmt.Errorf("failed to insert login attempt: %w", err)
	}
	return nil
}

// CountFailuresByIP counts failed attempts from ipAddress within [since, until]
func (r *LoginAttemptRepository) CountFailuresByIP(ctx context.Context, ipAddress string, since, until time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE ip_address = $1 AND success = false AND attempted_at >= $2 AND attempted_at <= $3
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, ipAddress, since.UTC(), until.UTC()).Scan(&count)
	return count, err
}

// CountFailuresByLogin counts failed attempts for login within [since, until]
func (r *LoginAttemptRepository) CountFailuresByLogin(ctx context.Context, login string, since, until time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE login = $1 AND success = false AND attempted_at >= $2 AND attempted_at <= $3
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, login, since.UTC(), until.UTC()).Scan(&count)
	return count, err
}

// CountBetween returns the total and successful attempt counts within [from, to]
func (r *LoginAttemptRepository) CountBetween(ctx context.Context, from, to time.Time) (total, successful int, err error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE success)
		FROM login_attempts
		WHERE attempted_at >= $1 AND attempted_at <= $2
	`

	err = r.db.Pool.QueryRow(ctx, query, from.UTC(), to.UTC()).Scan(&total, &successful)
	return total, successful, err
}
