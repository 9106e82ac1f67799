package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/config"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

// AuthService handles login and user administration.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
	cfg    config.AuthConfig
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:  users,
		tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		cfg:    cfg,
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// LoginResult carries a signed token and its expiry.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// Login verifies credentials and issues a JWT.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.NewUnauthorized("account deactivated")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// CreateUserInput describes an admin user-creation payload.
type CreateUserInput struct {
	Username string
	Password string
	Role     domain.Role
	FullName string
}

// CreateUser registers a new account. Admin only.
func (s *AuthService) CreateUser(ctx context.Context, actor *domain.User, input CreateUserInput) (*domain.User, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only admin can create users")
	}
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, apperrors.NewValidationError("username required", nil)
	}
	if len(input.Password) < 6 {
		return nil, apperrors.NewValidationError("password must be at least 6 characters", nil)
	}
	if !domain.ValidRole(input.Role) {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": string(input.Role)})
	}

	hash, err := auth.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         input.Role,
		FullName:     strings.TrimSpace(input.FullName),
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// DeactivateUser flips a user inactive. Users are never hard-deleted because
// history rows reference them.
func (s *AuthService) DeactivateUser(ctx context.Context, actor *domain.User, userID int64) error {
	if actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("only admin can deactivate users")
	}
	if actor.ID == userID {
		return apperrors.NewValidationError("cannot deactivate yourself", nil)
	}
	if err := s.users.SetActive(ctx, userID, false); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return err
	}
	return nil
}

// ListMasters returns the active repair specialists.
func (s *AuthService) ListMasters(ctx context.Context) ([]domain.User, error) {
	return s.users.ListMasters(ctx)
}

// ListUsers returns all accounts. Admin only.
func (s *AuthService) ListUsers(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only admin can list users")
	}
	return s.users.List(ctx)
}
