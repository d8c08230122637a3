package wizard

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"GreenNest/pkg/logger"
)

const availabilityNotice = "Could not check availability right now, please try again"

// AvailabilityChecker 邮箱与昵称的唯一性检查，两个字段互不影响
type AvailabilityChecker struct {
	api       AccountAPI
	validator *Validator
	guard     Guard
}

type CheckerOption func(*AvailabilityChecker)

// WithGuard 为远程调用加熔断
func WithGuard(g Guard) CheckerOption {
	return func(c *AvailabilityChecker) {
		if g != nil {
			c.guard = g
		}
	}
}

func NewAvailabilityChecker(api AccountAPI, validator *Validator, opts ...CheckerOption) *AvailabilityChecker {
	c := &AvailabilityChecker{
		api:       api,
		validator: validator,
		guard:     passthrough{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckEmail 格式不合法时直接返回，不发请求
func (c *AvailabilityChecker) CheckEmail(ctx context.Context, s *Store, email string) {
	email = strings.TrimSpace(email)
	if !c.validator.ValidEmail(email) {
		return
	}
	c.check(ctx, s, FieldEmail, email, c.api.CheckEmailAvailability)
}

func (c *AvailabilityChecker) CheckNickname(ctx context.Context, s *Store, nickname string) {
	nickname = strings.TrimSpace(nickname)
	if !c.validator.ValidNickname(nickname) {
		return
	}
	c.check(ctx, s, FieldNickname, nickname, c.api.CheckNicknameAvailability)
}

func (c *AvailabilityChecker) check(ctx context.Context, s *Store, field Field, value string,
	remote func(context.Context, string) (bool, error)) {
	seq := s.beginCheck(field)

	available := false
	err := c.guard.Call(ctx, func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("availability check panicked: %v", r)
			}
		}()
		available, err = remote(ctx, value)
		return err
	})
	if err != nil {
		available = false
		logger.Logger.Warn("Availability check failed",
			logger.WizardID(s.Key()),
			zap.String("field", string(field)),
			zap.Error(err),
		)
	}

	if !s.finishCheck(field, seq, value, available) {
		logger.Logger.Debug("Discarded stale availability response",
			logger.WizardID(s.Key()),
			zap.String("field", string(field)),
			zap.Uint64("seq", seq),
		)
		return
	}
	if err != nil {
		s.SetNotice(availabilityNotice)
	}
}
