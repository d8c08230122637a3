package service

import (
	"context"
	"strconv"

	"GreenNest/internal/model/dto"
	"GreenNest/internal/wizard"
	"GreenNest/pkg/errors"
)

// LocalAccountAPI 进程内账户服务，未配置 ACCOUNT_API_BASE_URL 时供向导使用
type LocalAccountAPI struct {
	accounts *AccountService
}

var _ wizard.AccountAPI = (*LocalAccountAPI)(nil)

func NewLocalAccountAPI(accounts *AccountService) *LocalAccountAPI {
	return &LocalAccountAPI{accounts: accounts}
}

func (a *LocalAccountAPI) CheckEmailAvailability(ctx context.Context, email string) (bool, error) {
	return a.accounts.EmailAvailable(ctx, email)
}

func (a *LocalAccountAPI) CheckNicknameAvailability(ctx context.Context, nickname string) (bool, error) {
	return a.accounts.NicknameAvailable(ctx, nickname)
}

// CreateAccount 业务错误转成 ok=false 的响应，与远程接口的语义保持一致
func (a *LocalAccountAPI) CreateAccount(ctx context.Context, req wizard.CreateAccountRequest) (wizard.CreateAccountResponse, error) {
	account, err := a.accounts.Create(ctx, ToCreateAccountDTO(req))
	if err != nil {
		if def, ok := errors.As(err); ok {
			return wizard.CreateAccountResponse{OK: false, Message: def.Message}, nil
		}
		return wizard.CreateAccountResponse{}, err
	}

	return wizard.CreateAccountResponse{
		OK: true,
		Item: &wizard.CreatedAccount{
			ID:       strconv.FormatInt(account.PublicID, 10),
			Email:    account.Email,
			Nickname: account.Nickname,
		},
	}, nil
}

// ToCreateAccountDTO 向导载荷转 REST 请求体
func ToCreateAccountDTO(req wizard.CreateAccountRequest) dto.CreateAccountRequest {
	return dto.CreateAccountRequest{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Phone:        req.Phone,
		PostalCode:   req.PostalCode,
		Address:      req.Address,
		Type:         req.Type,
		Image:        req.Image,
		AgreeTerms:   req.AgreeTerms,
		AgreePrivacy: req.AgreePrivacy,
		Extra: dto.AccountExtra{
			Gender:    req.Extra.Gender,
			BirthDate: req.Extra.BirthDate,
		},
	}
}
