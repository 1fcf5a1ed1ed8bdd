package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/BradenHooton/muscuscope/internal/models"
)

// SQLiteLoginAttemptRepository stores login attempts in SQLite.
// Timestamps are stored as unix nanoseconds.
type SQLiteLoginAttemptRepository struct {
	db *sql.DB
}

func NewSQLiteLoginAttemptRepository(db *sql.DB) *SQLiteLoginAttemptRepository {
	return &SQLiteLoginAttemptRepository{db: db}
}

func (r *SQLiteLoginAttemptRepository) Insert(ctx context.Context, attempt *models.LoginAttempt) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO login_attempts (attempted_at, login, ip_address, success) VALUES (?, ?, ?, ?)`,
		attempt.AttemptedAt.UnixNano(),
		attempt.Login,
		attempt.IPAddress,
		attempt.Success,
	)
	if err != nil {
		return fmt.Errorf("failed to insert login attempt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read login attempt id: %w", err)
	}
	attempt.ID = id
	return nil
}

func (r *SQLiteLoginAttemptRepository) CountFailuresByIP(ctx context.Context, ipAddress string, since, until time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM login_attempts
		WHERE ip_address = ? AND success = 0 AND attempted_at >= ? AND attempted_at <= ?`,
		ipAddress, since.UnixNano(), until.UnixNano(),
	).Scan(&count)
	return count, err
}

func (r *SQLiteLoginAttemptRepository) CountFailuresByLogin(ctx context.Context, login string, since, until time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM login_attempts
		WHERE login = ? AND success = 0 AND attempted_at >= ? AND attempted_at <= ?`,
		login, since.UnixNano(), until.UnixNano(),
	).Scan(&count)
	return count, err
}

func (r *SQLiteLoginAttemptRepository) CountBetween(ctx context.Context, from, to time.Time) (total, successful int, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(success), 0)
		FROM login_attempts
		WHERE attempted_at >= ? AND attempted_at <= ?`,
		from.UnixNano(), to.UnixNano(),
	).Scan(&total, &successful)
	return total, successful, err
}
