package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/BradenHooton/muscuscope/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockUserRepository implements UserRepository and UserCreator for testing
type MockUserRepository struct {
	GetByIDFunc    func(ctx context.Context, id int64) (*models.User, error)
	GetByLoginFunc func(ctx context.Context, login string) (*models.User, error)
	CreateFunc     func(ctx context.Context, user *models.User) (*models.User, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	if m.GetByLoginFunc != nil {
		return m.GetByLoginFunc(ctx, login)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	user.ID = 1
	return user, nil
}

// MemoryLoginAttemptRepository is an in-memory LoginAttemptRepository
type MemoryLoginAttemptRepository struct {
	mu       sync.Mutex
	attempts []models.LoginAttempt

	InsertErr error
	CountErr  error
}

func (m *MemoryLoginAttemptRepository) Insert(ctx context.Context, attempt *models.LoginAttempt) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	attempt.ID = int64(len(m.attempts) + 1)
	m.attempts = append(m.attempts, *attempt)
	return nil
}

func (m *MemoryLoginAttemptRepository) CountFailuresByIP(ctx context.Context, ipAddress string, since, until time.Time) (int, error) {
	return m.count(func(a models.LoginAttempt) bool {
		return a.IPAddress == ipAddress && !a.Success && inRange(a.AttemptedAt, since, until)
	})
}

func (m *MemoryLoginAttemptRepository) CountFailuresByLogin(ctx context.Context, login string, since, until time.Time) (int, error) {
	return m.count(func(a models.LoginAttempt) bool {
		return a.Login == login && !a.Success && inRange(a.AttemptedAt, since, until)
	})
}

func (m *MemoryLoginAttemptRepository) CountBetween(ctx context.Context, from, to time.Time) (int, int, error) {
	total, err := m.count(func(a models.LoginAttempt) bool { return inRange(a.AttemptedAt, from, to) })
	if err != nil {
		return 0, 0, err
	}
	successful, _ := m.count(func(a models.LoginAttempt) bool { return a.Success && inRange(a.AttemptedAt, from, to) })
	return total, successful, nil
}

// Attempts returns a copy of the recorded attempts ordered by time
func (m *MemoryLoginAttemptRepository) Attempts() []models.LoginAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.LoginAttempt{}, m.attempts...)
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptedAt.Before(out[j].AttemptedAt) })
	return out
}

func (m *MemoryLoginAttemptRepository) count(match func(models.LoginAttempt) bool) (int, error) {
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.attempts {
		if match(a) {
			n++
		}
	}
	return n, nil
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
