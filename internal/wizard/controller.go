package wizard

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"GreenNest/pkg/errors"
	"GreenNest/pkg/logger"
)

const (
	msgEmailNotConfirmed    = "Please check email availability first"
	msgEmailTaken           = "This email is already registered"
	msgNicknameNotConfirmed = "Please check nickname availability first"
	msgNicknameTaken        = "This nickname is already in use"
	msgEmailFormat          = "Invalid email format"
	msgNicknameLength       = "Must be at least 2 characters"
)

// Outcome Advance/Retreat 的结果
type Outcome struct {
	Navigation  Navigation        `json:"navigation"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

// Controller 负责步骤切换与访问控制
type Controller struct {
	validator *Validator
	checker   *AvailabilityChecker
}

func NewController(validator *Validator, checker *AvailabilityChecker) *Controller {
	return &Controller{validator: validator, checker: checker}
}

// IsStepUnlocked 第 n 步可达当且仅当 1..n-1 步均已通过校验
func (c *Controller) IsStepUnlocked(s *Store, step int) bool {
	if step < FirstStep || step > LastStep {
		return false
	}
	for prev := FirstStep; prev < step; prev++ {
		if !s.IsStepValid(prev) {
			return false
		}
	}
	return true
}

// UnlockedSteps 页面渲染使用
func (c *Controller) UnlockedSteps(s *Store) map[int]bool {
	out := make(map[int]bool, LastStep)
	for step := FirstStep; step <= LastStep; step++ {
		out[step] = c.IsStepUnlocked(s, step)
	}
	return out
}

// NavigateTo 直接访问某一步时的守卫
func (c *Controller) NavigateTo(s *Store, step int) Navigation {
	if !s.Ready() {
		return Navigation{}
	}
	if s.Redirecting() {
		return Navigation{}
	}
	if !c.IsStepUnlocked(s, step) {
		return Replace(StepPath(FirstStep))
	}
	if s.CurrentStep() != step {
		s.SetCurrentStep(step)
	}
	return Navigation{}
}

// Advance 校验并保存当前步骤，成功后前进一步。
// 校验失败写入字段错误并返回 SignupValidationFailed，不会前进。
func (c *Controller) Advance(ctx context.Context, s *Store, step int, data any) (Outcome, error) {
	if step < FirstStep || step > LastStep {
		return Outcome{}, errors.SignupStepInvalid
	}
	if !c.IsStepUnlocked(s, step) {
		return Outcome{Navigation: Replace(StepPath(FirstStep))}, errors.SignupStepLocked
	}

	s.ClearErrors()

	result := c.validator.Validate(step, data)
	if !result.Valid {
		s.SetFieldErrors(result.FieldErrors)
		return Outcome{FieldErrors: result.FieldErrors}, errors.SignupValidationFailed
	}

	if step == StepAccount {
		if fields := c.availabilityErrors(s, data); len(fields) > 0 {
			s.SetFieldErrors(fields)
			return Outcome{FieldErrors: fields}, errors.SignupValidationFailed
		}
	}

	if rule, ok := stepTable[step]; ok {
		if value, ok := rule.accepts(data); ok {
			s.putStepData(step, value)
		}
	}
	s.MarkStepValid(step)

	if step == LastStep {
		s.SetCurrentStep(step)
		if err := s.Save(ctx); err != nil {
			return Outcome{}, err
		}
		return Outcome{}, nil
	}

	next := step + 1
	s.SetCurrentStep(next)
	if err := s.Save(ctx); err != nil {
		return Outcome{}, err
	}

	logger.Logger.Debug("Wizard advanced",
		logger.WizardID(s.Key()),
		zap.Int("from", step),
		zap.Int("to", next),
	)
	return Outcome{Navigation: Push(StepPath(next))}, nil
}

// availabilityErrors 第二步要求邮箱和昵称都已确认可用，且确认的是当前提交的值
func (c *Controller) availabilityErrors(s *Store, data any) map[string]string {
	value, _ := stepTable[StepAccount].accepts(data)
	d, _ := value.(Step2Data)

	fields := map[string]string{}
	if msg := availabilityMessage(s, FieldEmail, d.Email, msgEmailNotConfirmed, msgEmailTaken); msg != "" {
		fields[FieldEmail.ErrorKey()] = msg
	}
	if msg := availabilityMessage(s, FieldNickname, d.Name, msgNicknameNotConfirmed, msgNicknameTaken); msg != "" {
		fields[FieldNickname.ErrorKey()] = msg
	}
	return fields
}

func availabilityMessage(s *Store, field Field, value, notConfirmed, taken string) string {
	available, checked := s.Availability(field)
	if available == nil || checked != strings.TrimSpace(value) {
		return notConfirmed
	}
	if !*available {
		return taken
	}
	return ""
}

// Retreat 后退一步，不做校验；第一步时返回浏览器后退
func (c *Controller) Retreat(ctx context.Context, s *Store) (Outcome, error) {
	current := s.CurrentStep()
	if current <= FirstStep {
		return Outcome{Navigation: Back()}, nil
	}

	prev := current - 1
	s.SetCurrentStep(prev)
	if err := s.Save(ctx); err != nil {
		return Outcome{}, err
	}
	return Outcome{Navigation: Push(StepPath(prev))}, nil
}

// CheckEmail 调用方的格式门槛：格式不对时写字段错误，不发请求
func (c *Controller) CheckEmail(ctx context.Context, s *Store, email string) bool {
	if !c.validator.ValidEmail(strings.TrimSpace(email)) {
		s.SetFieldError(FieldEmail.ErrorKey(), msgEmailFormat)
		return false
	}
	c.clearFieldError(s, FieldEmail)
	c.checker.CheckEmail(ctx, s, email)
	return true
}

func (c *Controller) CheckNickname(ctx context.Context, s *Store, nickname string) bool {
	if !c.validator.ValidNickname(nickname) {
		s.SetFieldError(FieldNickname.ErrorKey(), msgNicknameLength)
		return false
	}
	c.clearFieldError(s, FieldNickname)
	c.checker.CheckNickname(ctx, s, nickname)
	return true
}

func (c *Controller) clearFieldError(s *Store, field Field) {
	errs := s.Session().FieldErrors
	if _, ok := errs[field.ErrorKey()]; !ok {
		return
	}
	delete(errs, field.ErrorKey())
	s.SetFieldErrors(errs)
}
