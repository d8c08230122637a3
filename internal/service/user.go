package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"GreenNest/internal/model/dto"
	"GreenNest/utils"
)

var (
	userService *UserService
	userOnce    sync.Once
)

func User() *UserService {
	userOnce.Do(func() {
		userService = NewUserService(Account())
	})
	return userService
}

type UserService struct {
	accounts *AccountService
}

func NewUserService(accounts *AccountService) *UserService {
	return &UserService{accounts: accounts}
}

// GetUserProfile 当前登录用户的资料，手机号脱敏
func (s *UserService) GetUserProfile(ctx context.Context, accountID string) (*dto.UserProfileData, error) {
	account, err := s.accounts.GetByPublicID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &dto.UserProfileData{
		ID:          strconv.FormatInt(account.PublicID, 10),
		Nickname:    account.Nickname,
		Email:       account.Email,
		PhoneMasked: utils.MaskPhone(account.Phone),
		PostalCode:  account.PostalCode,
		Address:     account.Address,
		Image:       account.ImagePath,
		Gender:      account.Gender,
		BirthDate:   account.BirthDate,
		Type:        string(account.Type),
		Status:      string(account.Status),
		CreatedAt:   account.CreatedAt.Format(time.RFC3339),
	}, nil
}
