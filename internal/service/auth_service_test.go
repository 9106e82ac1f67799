package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/config"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/repository/repotest"
	"github.com/spec-kit/repair-service/internal/service"
	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

func newAuthService(store *repotest.Store) *service.AuthService {
	return service.NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            bcrypt.MinCost,
	}, store.Users())
}

func addUserWithPassword(t *testing.T, store *repotest.Store, username, password string, role domain.Role, active bool) domain.User {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	return store.AddUser(domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     active,
	})
}

func TestLogin(t *testing.T) {
	store := repotest.NewStore()
	addUserWithPassword(t, store, "operator", "operator", domain.RoleOperator, true)
	svc := newAuthService(store)
	ctx := context.Background()

	result, err := svc.Login(ctx, "operator", "operator")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, domain.RoleOperator, result.User.Role)

	claims, err := svc.TokenManager().ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	store := repotest.NewStore()
	addUserWithPassword(t, store, "operator", "operator", domain.RoleOperator, true)
	addUserWithPassword(t, store, "gone", "gone12", domain.RoleMaster, false)
	svc := newAuthService(store)
	ctx := context.Background()

	_, err := svc.Login(ctx, "operator", "wrong")
	requireDomainError(t, err, apperrors.CodeUnauthorized)

	_, err = svc.Login(ctx, "nobody", "whatever")
	requireDomainError(t, err, apperrors.CodeUnauthorized)

	// Deactivated accounts cannot log in even with the right password.
	_, err = svc.Login(ctx, "gone", "gone12")
	requireDomainError(t, err, apperrors.CodeUnauthorized)
}

func TestCreateUser(t *testing.T) {
	store := repotest.NewStore()
	admin := addUserWithPassword(t, store, "admin", "admin1", domain.RoleAdmin, true)
	operator := addUserWithPassword(t, store, "operator", "operator", domain.RoleOperator, true)
	svc := newAuthService(store)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, &operator, service.CreateUserInput{Username: "x", Password: "123456", Role: domain.RoleMaster})
	requireDomainError(t, err, apperrors.CodeForbidden)

	_, err = svc.CreateUser(ctx, &admin, service.CreateUserInput{Username: "x", Password: "123", Role: domain.RoleMaster})
	requireDomainError(t, err, apperrors.CodeValidation)

	_, err = svc.CreateUser(ctx, &admin, service.CreateUserInput{Username: "x", Password: "123456", Role: domain.Role("boss")})
	requireDomainError(t, err, apperrors.CodeValidation)

	user, err := svc.CreateUser(ctx, &admin, service.CreateUserInput{
		Username: "sidorov",
		Password: "123456",
		Role:     domain.RoleMaster,
		FullName: "Pavel Sidorov",
	})
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	require.NoError(t, auth.ComparePassword(user.PasswordHash, "123456"))

	// Duplicate usernames surface as a conflict.
	_, err = svc.CreateUser(ctx, &admin, service.CreateUserInput{Username: "sidorov", Password: "123456", Role: domain.RoleMaster})
	requireDomainError(t, err, apperrors.CodeConflict)
}

func TestDeactivateUser(t *testing.T) {
	store := repotest.NewStore()
	admin := addUserWithPassword(t, store, "admin", "admin1", domain.RoleAdmin, true)
	master := addUserWithPassword(t, store, "ivanov", "master1", domain.RoleMaster, true)
	svc := newAuthService(store)
	ctx := context.Background()

	err := svc.DeactivateUser(ctx, &admin, admin.ID)
	requireDomainError(t, err, apperrors.CodeValidation)

	err = svc.DeactivateUser(ctx, &admin, int64(999))
	requireDomainError(t, err, apperrors.CodeNotFound)

	require.NoError(t, svc.DeactivateUser(ctx, &admin, master.ID))

	_, err = svc.Login(ctx, "ivanov", "master1")
	requireDomainError(t, err, apperrors.CodeUnauthorized)

	masters, err := svc.ListMasters(ctx)
	require.NoError(t, err)
	assert.Empty(t, masters)
}
