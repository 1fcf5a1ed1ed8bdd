package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BradenHooton/muscuscope/internal/models"
	"github.com/go-playground/validator/v10"
	pkgauth "github.com/BradenHooton/muscuscope/pkg/auth"
)

// UserCreator persists new users
type UserCreator interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
}

var userValidate = validator.New()

// UserService provisions accounts (used by the create-user command)
type UserService struct {
	repo   UserCreator
	logger *slog.Logger
	hash   func(password string) (string, error)
}

func NewUserService(repo UserCreator, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
		hash:   pkgauth.HashPassword,
	}
}

// CreateUser validates input, hashes the password and stores the user.
// ROLE_USER is always granted.
func (s *UserService) CreateUser(ctx context.Context, username, email, password string, roles []string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if err := userValidate.Var(username, "required,max=255"); err != nil {
		return nil, fmt.Errorf("%w: username is required and at most 255 characters", models.ErrBadRequest)
	}
	if err := userValidate.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("%w: invalid email", models.ErrBadRequest)
	}
	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrBadRequest, err)
	}

	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Create(ctx, &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        normalizeRoles(roles),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created", slog.Int64("user_id", user.ID), slog.Any("roles", user.Roles))
	return user, nil
}

func normalizeRoles(roles []string) []string {
	out := []string{models.RoleUser}
	seen := map[string]bool{models.RoleUser: true}
	for _, role := range roles {
		role = strings.ToUpper(strings.TrimSpace(role))
		if role == "" {
			continue
		}
		if !strings.HasPrefix(role, "ROLE_") {
			role = "ROLE_" + role
		}
		if !seen[role] {
			seen[role] = true
			out = append(out, role)
		}
	}
	return out
}
