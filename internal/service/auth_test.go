package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GreenNest/config"
	apperrors "GreenNest/pkg/errors"
	"GreenNest/pkg/token"
)

func setupToken(t *testing.T) {
	t.Helper()
	prev := config.Cfg
	config.Cfg.ServiceName = "greennest-test"
	config.Cfg.JWTSecret = "test-secret"
	config.Cfg.JWTExpireMinutes = 30
	config.Cfg.JWTRefreshDays = 7
	t.Cleanup(func() { config.Cfg = prev })
	require.NoError(t, token.Init())
}

func TestAuthService_LoginAndRefresh(t *testing.T) {
	setupToken(t)
	accounts, _ := newTestAccounts(t)
	refresh := newFakeRefreshStore()
	auth := NewAuthService(accounts, refresh)
	ctx := context.Background()

	_, err := accounts.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	tokens, err := auth.Login(ctx, "mina@example.com", "garden12!")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.Equal(t, "Mina", tokens.User.Nickname)
	assert.Equal(t, "active", tokens.User.Status)

	renewed, err := auth.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, renewed.RefreshToken)

	// 旧 refresh token 只能使用一次
	_, err = auth.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, apperrors.Unauthorized)
}

func TestAuthService_LoginWrongPassword(t *testing.T) {
	setupToken(t)
	accounts, _ := newTestAccounts(t)
	auth := NewAuthService(accounts, newFakeRefreshStore())

	_, err := auth.Login(context.Background(), "mina@example.com", "garden12!")
	assert.ErrorIs(t, err, apperrors.InvalidCredentials)
}

func TestAuthService_RefreshRejectsGarbage(t *testing.T) {
	setupToken(t)
	accounts, _ := newTestAccounts(t)
	auth := NewAuthService(accounts, newFakeRefreshStore())

	_, err := auth.Refresh(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, apperrors.Unauthorized)
}

func TestUserService_GetUserProfile(t *testing.T) {
	accounts, _ := newTestAccounts(t)
	users := NewUserService(accounts)
	ctx := context.Background()

	account, err := accounts.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	profile, err := users.GetUserProfile(ctx, strconv.FormatInt(account.PublicID, 10))
	require.NoError(t, err)
	assert.Equal(t, "Mina", profile.Nickname)
	assert.Equal(t, "010****5678", profile.PhoneMasked)
}
