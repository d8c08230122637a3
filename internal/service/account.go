package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"GreenNest/internal/model"
	"GreenNest/internal/model/dto"
	"GreenNest/pkg/errors"
	"GreenNest/pkg/logger"
	"GreenNest/pkg/metrics"
	"GreenNest/pkg/snowflake"
	"GreenNest/storage/database"
	"GreenNest/storage/mq"
	"GreenNest/utils"
)

// EventPublisher 账户事件发布
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey, messageID string, body interface{}) error
}

// IDGenerator 生成账户 public id
type IDGenerator func() (int64, error)

var (
	accountService *AccountService
	accountOnce    sync.Once
)

// Account 使用全局数据库、snowflake 与 RabbitMQ 的单例
func Account() *AccountService {
	accountOnce.Do(func() {
		accountService = NewAccountService(database.DB(), snowflake.NextID, mq.Publisher{})
	})
	return accountService
}

type AccountService struct {
	db     *gorm.DB
	nextID IDGenerator
	events EventPublisher
	now    func() time.Time
}

func NewAccountService(db *gorm.DB, nextID IDGenerator, events EventPublisher) *AccountService {
	return &AccountService{db: db, nextID: nextID, events: events, now: time.Now}
}

// EmailAvailable 软删除的账户仍占用邮箱
func (s *AccountService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Unscoped().Model(&model.Account{}).
		Where("email = ?", utils.NormalizeEmail(email)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count accounts by email: %w", err)
	}
	return count == 0, nil
}

// NicknameAvailable 昵称不区分大小写
func (s *AccountService) NicknameAvailable(ctx context.Context, nickname string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Unscoped().Model(&model.Account{}).
		Where("LOWER(nickname) = ?", strings.ToLower(strings.TrimSpace(nickname))).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count accounts by nickname: %w", err)
	}
	return count == 0, nil
}

// Create 创建账户，邮箱或昵称已被占用时返回业务错误
func (s *AccountService) Create(ctx context.Context, req dto.CreateAccountRequest) (*model.Account, error) {
	if fields := utils.ValidateStruct(req); fields != nil {
		return nil, errors.InvalidRequest.WithMessage("Invalid account fields: " + joinKeys(fields))
	}
	if !utils.ValidatePhone(req.Phone) {
		return nil, errors.InvalidRequest.WithMessage("Invalid phone number")
	}

	nickname := strings.TrimSpace(req.Name)
	if ok, err := s.EmailAvailable(ctx, req.Email); err != nil {
		return nil, err
	} else if !ok {
		return nil, errors.AccountEmailTaken
	}
	if ok, err := s.NicknameAvailable(ctx, nickname); err != nil {
		return nil, err
	} else if !ok {
		return nil, errors.AccountNicknameTaken
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	publicID, err := s.nextID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate account ID: %w", err)
	}

	accountType := model.AccountType(req.Type)
	if accountType == "" {
		accountType = model.AccountTypeUser
	}

	now := s.now()
	account := &model.Account{
		PublicID:        publicID,
		Email:           utils.NormalizeEmail(req.Email),
		Nickname:        nickname,
		PasswordHash:    hash,
		Phone:           req.Phone,
		PostalCode:      req.PostalCode,
		Address:         strings.TrimSpace(req.Address),
		Type:            accountType,
		Status:          model.AccountStatusActive,
		ImagePath:       req.Image,
		Gender:          req.Extra.Gender,
		BirthDate:       req.Extra.BirthDate,
		TermsAgreedAt:   now,
		PrivacyAgreedAt: now,
	}

	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		// 并发注册时唯一索引兜底
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.AccountEmailTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	metrics.RecordAccountCreated(ctx, string(account.Type))
	logger.Logger.Info("Account created",
		zap.Int64("public_id", account.PublicID),
		zap.String("phone", utils.MaskPhone(account.Phone)),
		zap.Bool("with_image", account.ImagePath != ""),
	)

	s.publishCreated(ctx, account)
	return account, nil
}

// publishCreated 事件发布失败不影响注册结果
func (s *AccountService) publishCreated(ctx context.Context, account *model.Account) {
	if s.events == nil {
		return
	}

	msg := model.AccountCreatedMessage{
		MessageID:  "account_created_" + uuid.NewString(),
		AccountID:  strconv.FormatInt(account.PublicID, 10),
		Email:      account.Email,
		Nickname:   account.Nickname,
		WithImage:  account.ImagePath != "",
		OccurredAt: account.CreatedAt.Format(time.RFC3339),
	}
	if err := s.events.Publish(ctx, mq.ExchangeAccount, mq.RoutingAccountCreated, msg.MessageID, msg); err != nil {
		logger.Logger.Error("Failed to publish account created event",
			zap.Int64("public_id", account.PublicID),
			zap.Error(err),
		)
	}
}

// GetByPublicID 查询账户
func (s *AccountService) GetByPublicID(ctx context.Context, accountID string) (*model.Account, error) {
	publicID, err := strconv.ParseInt(accountID, 10, 64)
	if err != nil {
		return nil, errors.InvalidUserID
	}

	var account model.Account
	if err := s.db.WithContext(ctx).Where("public_id = ?", publicID).First(&account).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.AccountNotFound
		}
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return &account, nil
}

// Authenticate 邮箱密码校验，不区分账户不存在与密码错误
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*model.Account, error) {
	var account model.Account
	err := s.db.WithContext(ctx).Where("email = ?", utils.NormalizeEmail(email)).First(&account).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.InvalidCredentials
		}
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	if !utils.CheckPassword(account.PasswordHash, password) {
		return nil, errors.InvalidCredentials
	}
	if account.Status != model.AccountStatusActive {
		return nil, errors.Unauthorized
	}
	return &account, nil
}

func joinKeys(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
