package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func newAuthServiceFixture() *AuthService {
	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "unit-test-secret",
			AccessTokenTTLMinutes:   60,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              4,
		},
	}
	return NewAuthService(cfg, AuthDependencies{
		UserRepo:          repository.NewMemoryUserRepository(),
		PasswordResetRepo: repository.NewMemoryPasswordResetRepository(),
	})
}

func TestRegisterDefaultsToL1(t *testing.T) {
	svc := newAuthServiceFixture()
	ctx := context.Background()

	user, token, _, err := svc.Register(ctx, "new@helpdesk.local", "New", "Agent", "s3cret-pass", "")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleL1Agent, user.Role)
	assert.NotEmpty(t, token)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := newAuthServiceFixture()
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, "dup@helpdesk.local", "A", "B", "s3cret-pass", domain.RoleL2Support)
	require.NoError(t, err)

	_, _, _, err = svc.Register(ctx, "dup@helpdesk.local", "A", "B", "s3cret-pass", domain.RoleL2Support)
	require.Error(t, err)

	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 400, domainErr.HTTPStatus)
}

func TestLogin(t *testing.T) {
	svc := newAuthServiceFixture()
	ctx := context.Background()

	registered, _, _, err := svc.Register(ctx, "agent@helpdesk.local", "A", "B", "s3cret-pass", domain.RoleL3Support)
	require.NoError(t, err)

	user, token, _, err := svc.Login(ctx, "agent@helpdesk.local", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEmpty(t, token)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, domain.RoleL3Support, claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newAuthServiceFixture()
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, "agent@helpdesk.local", "A", "B", "s3cret-pass", domain.RoleL1Agent)
	require.NoError(t, err)

	_, _, _, err = svc.Login(ctx, "agent@helpdesk.local", "wrong")
	requireUnauthorized(t, err)

	_, _, _, err = svc.Login(ctx, "unknown@helpdesk.local", "s3cret-pass")
	requireUnauthorized(t, err)
}

func requireUnauthorized(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 401, domainErr.HTTPStatus)
}

func TestChangePassword(t *testing.T) {
	svc := newAuthServiceFixture()
	ctx := context.Background()

	user, _, _, err := svc.Register(ctx, "agent@helpdesk.local", "A", "B", "old-pass-123", domain.RoleL1Agent)
	require.NoError(t, err)

	require.Error(t, svc.ChangePassword(ctx, user.ID, "not-the-old", "new-pass-123"))
	require.NoError(t, svc.ChangePassword(ctx, user.ID, "old-pass-123", "new-pass-123"))

	_, _, _, err = svc.Login(ctx, "agent@helpdesk.local", "new-pass-123")
	assert.NoError(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	svc := newAuthServiceFixture()
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, "agent@helpdesk.local", "A", "B", "old-pass-123", domain.RoleL1Agent)
	require.NoError(t, err)

	token, err := svc.RequestPasswordReset(ctx, "agent@helpdesk.local")
	require.NoError(t, err)
	require.NotEmpty(t, token.Token)

	require.NoError(t, svc.ConfirmPasswordReset(ctx, token.Token, "fresh-pass-123"))

	_, _, _, err = svc.Login(ctx, "agent@helpdesk.local", "fresh-pass-123")
	assert.NoError(t, err)

	// Tokens are single use.
	err = svc.ConfirmPasswordReset(ctx, token.Token, "another-pass-123")
	assert.Error(t, err)
}
