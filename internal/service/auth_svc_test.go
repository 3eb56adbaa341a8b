package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openhaus/internal/middleware"
	"openhaus/internal/model"
)

func TestAuthService_RegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Register(ctx, "new@example.com", "s3cretpass", "New User", model.RoleUser)
	require.NoError(t, err)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "s3cretpass", user.PasswordHash)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := env.auth.Register(ctx, "new@example.com", "whatever1", "Again", model.RoleUser)
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("admin role is not self-service", func(t *testing.T) {
		sneaky, err := env.auth.Register(ctx, "sneaky@example.com", "s3cretpass", "Sneaky", model.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, model.RoleUser, sneaky.Role)
	})

	t.Run("login round trip", func(t *testing.T) {
		got, pair, err := env.auth.Login(ctx, "new@example.com", "s3cretpass")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		require.NotEmpty(t, pair.AccessToken)

		claims, err := middleware.ParseToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.False(t, claims.Impersonated())
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := env.auth.Login(ctx, "new@example.com", "wrong-pass")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("disabled account", func(t *testing.T) {
		env.db.Model(user).Update("is_active", false)
		_, _, err := env.auth.Login(ctx, "new@example.com", "s3cretpass")
		assert.ErrorIs(t, err, ErrAccountDisabled)
	})

	t.Run("signup tracked", func(t *testing.T) {
		var count int64
		env.db.Model(&model.AnalyticsEvent{}).
			Where("event_type = ?", model.EventSignup).
			Count(&count)
		assert.EqualValues(t, 2, count)
	})
}

func TestAuthService_ImpersonationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.user(t, "admin@example.com", model.RoleAdmin)
	subject := env.user(t, "subject@example.com", model.RoleUser)

	t.Run("cannot impersonate an admin", func(t *testing.T) {
		other := env.user(t, "other-admin@example.com", model.RoleAdmin)
		_, err := env.auth.Impersonate(ctx, admin.ID, other.ID, "debugging")
		assert.ErrorIs(t, err, ErrSubjectIsAdmin)
	})

	t.Run("unknown subject", func(t *testing.T) {
		_, err := env.auth.Impersonate(ctx, admin.ID, 9999, "debugging")
		assert.ErrorIs(t, err, ErrSubjectNotFound)
	})

	session, err := env.auth.Impersonate(ctx, admin.ID, subject.ID, "support ticket 441")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	t.Run("exchange yields a marked token without refresh", func(t *testing.T) {
		pair, got, err := env.auth.ExchangeImpersonation(ctx, session.Token)
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
		assert.Empty(t, pair.RefreshToken, "impersonated access cannot be rotated")

		claims, err := middleware.ParseToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, subject.ID, claims.UserID)
		assert.Equal(t, admin.ID, claims.ActorID)
		assert.True(t, claims.Impersonated())

		// JWT life is clamped to the session's remaining life.
		assert.True(t, claims.ExpiresAt.Time.Before(session.ExpiresAt.Add(time.Minute)))

		stored, err := env.sessionRepo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.NotNil(t, stored.UsedAt)
	})

	t.Run("revoked session cannot be exchanged", func(t *testing.T) {
		require.NoError(t, env.auth.RevokeImpersonation(ctx, session.ID))

		_, _, err := env.auth.ExchangeImpersonation(ctx, session.Token)
		assert.ErrorIs(t, err, ErrSessionRevoked)

		err = env.auth.RevokeImpersonation(ctx, session.ID)
		assert.ErrorIs(t, err, ErrSessionRevoked)
	})

	t.Run("expired session cannot be exchanged", func(t *testing.T) {
		lapsed, err := env.auth.Impersonate(ctx, admin.ID, subject.ID, "late")
		require.NoError(t, err)
		env.db.Model(lapsed).Update("expires_at", time.Now().Add(-time.Minute))

		_, _, err = env.auth.ExchangeImpersonation(ctx, lapsed.Token)
		assert.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("sweep closes lapsed sessions", func(t *testing.T) {
		n, err := env.auth.SweepExpiredImpersonations(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		active, err := env.auth.ListActiveImpersonations(ctx)
		require.NoError(t, err)
		assert.Empty(t, active)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, _, err := env.auth.ExchangeImpersonation(ctx, "no-such-token")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Register(ctx, "r@example.com", "s3cretpass", "R", model.RoleUser)
	require.NoError(t, err)

	_, pair, err := env.auth.Login(ctx, "r@example.com", "s3cretpass")
	require.NoError(t, err)

	rotated, err := env.auth.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.AccessToken)

	t.Run("access token is not a refresh token", func(t *testing.T) {
		_, err := env.auth.Refresh(ctx, pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("deactivation blocks rotation", func(t *testing.T) {
		env.db.Model(user).Update("is_active", false)
		_, err := env.auth.Refresh(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, ErrAccountDisabled)
	})
}
