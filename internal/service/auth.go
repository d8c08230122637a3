package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"GreenNest/internal/cache"
	"GreenNest/internal/model"
	"GreenNest/internal/model/dto"
	"GreenNest/pkg/errors"
	"GreenNest/pkg/logger"
	"GreenNest/pkg/token"
)

// RefreshStore refresh token 的单次使用记录
type RefreshStore interface {
	Save(ctx context.Context, accountID, jti string, ttl time.Duration) error
	Consume(ctx context.Context, accountID, jti string) (bool, error)
}

type redisRefreshStore struct{}

func (redisRefreshStore) Save(ctx context.Context, accountID, jti string, ttl time.Duration) error {
	return cache.SetRefreshToken(ctx, accountID, jti, ttl)
}

func (redisRefreshStore) Consume(ctx context.Context, accountID, jti string) (bool, error) {
	return cache.ConsumeRefreshToken(ctx, accountID, jti)
}

var (
	authService *AuthService
	authOnce    sync.Once
)

func Auth() *AuthService {
	authOnce.Do(func() {
		authService = NewAuthService(Account(), redisRefreshStore{})
	})
	return authService
}

// AuthService 注册完成后的邮箱密码登录
type AuthService struct {
	accounts *AccountService
	refresh  RefreshStore
}

func NewAuthService(accounts *AccountService, refresh RefreshStore) *AuthService {
	return &AuthService{accounts: accounts, refresh: refresh}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*dto.TokenResponse, error) {
	account, err := s.accounts.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, account)
}

// Refresh 旧 refresh token 作废后签发新令牌
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	accountID, jti, err := token.ValidateRefreshToken(refreshToken)
	if err != nil || jti == "" {
		return nil, errors.Unauthorized
	}

	ok, err := s.refresh.Consume(ctx, accountID, jti)
	if err != nil {
		return nil, err
	}
	if !ok {
		logger.Logger.Warn("Refresh token reused or expired", zap.String("account_id", accountID))
		return nil, errors.Unauthorized
	}

	account, err := s.accounts.GetByPublicID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, account)
}

func (s *AuthService) issue(ctx context.Context, account *model.Account) (*dto.TokenResponse, error) {
	accountID := strconv.FormatInt(account.PublicID, 10)

	pair, err := token.GeneratePair(accountID)
	if err != nil {
		return nil, err
	}
	if err := s.refresh.Save(ctx, accountID, pair.RefreshID, pair.RefreshTTL); err != nil {
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		User: dto.UserSnapshot{
			ID:       accountID,
			Nickname: account.Nickname,
			Status:   string(account.Status),
		},
	}, nil
}
