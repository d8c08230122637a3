package wizard

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"GreenNest/pkg/errors"
	"GreenNest/pkg/logger"
)

// SubmitState 提交流程状态
type SubmitState string

const (
	SubmitIdle       SubmitState = "idle"
	SubmitValidating SubmitState = "validating"
	SubmitUploading  SubmitState = "uploading"
	SubmitSubmitting SubmitState = "submitting"
	SubmitSuccess    SubmitState = "success"
	SubmitFailed     SubmitState = "failed"
)

const (
	AccountTypeUser = "user"

	DefaultLoginPath   = "/login"
	CompletionMessage  = "Sign-up complete. Please log in."
	DefaultSettleDelay = time.Second
)

// SubmitResult States 记录本次提交经过的状态
type SubmitResult struct {
	States  []SubmitState   `json:"states"`
	Account *CreatedAccount `json:"account,omitempty"`
}

func (r *SubmitResult) enter(state SubmitState) {
	r.States = append(r.States, state)
}

// Final 最终状态
func (r SubmitResult) Final() SubmitState {
	if len(r.States) == 0 {
		return SubmitIdle
	}
	return r.States[len(r.States)-1]
}

// Visited 是否经过某个状态
func (r SubmitResult) Visited(state SubmitState) bool {
	for _, s := range r.States {
		if s == state {
			return true
		}
	}
	return false
}

// Pipeline 最后一步的提交流程，不做任何自动重试
type Pipeline struct {
	validator   *Validator
	api         AccountAPI
	uploader    Uploader
	guard       Guard
	schedule    Scheduler
	settleDelay time.Duration
	loginPath   string
	message     string
}

type PipelineOption func(*Pipeline)

func WithScheduler(fn Scheduler) PipelineOption {
	return func(p *Pipeline) {
		if fn != nil {
			p.schedule = fn
		}
	}
}

func WithSettleDelay(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d >= 0 {
			p.settleDelay = d
		}
	}
}

func WithLoginPath(path string) PipelineOption {
	return func(p *Pipeline) {
		if path != "" {
			p.loginPath = path
		}
	}
}

// WithPipelineGuard 账户创建与上传调用的熔断
func WithPipelineGuard(g Guard) PipelineOption {
	return func(p *Pipeline) {
		if g != nil {
			p.guard = g
		}
	}
}

func NewPipeline(validator *Validator, api AccountAPI, uploader Uploader, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		validator:   validator,
		api:         api,
		uploader:    uploader,
		guard:       passthrough{},
		schedule:    timerScheduler,
		settleDelay: DefaultSettleDelay,
		loginPath:   DefaultLoginPath,
		message:     CompletionMessage,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit 执行 校验 -> 上传(有图片时) -> 创建账户。
// 失败时保留向导数据，isLoading 总会恢复为 false。
func (p *Pipeline) Submit(ctx context.Context, s *Store, step3 Step3Data) (result SubmitResult, err error) {
	result.enter(SubmitIdle)

	if !s.beginLoading() {
		return result, errors.SignupInProgress
	}
	defer s.SetLoading(false)
	s.ClearErrors()

	defer func() {
		if r := recover(); r != nil {
			logger.Logger.Error("Sign-up submission panicked",
				logger.WizardID(s.Key()),
				zap.Any("panic", r),
			)
			err = p.failed(s, &result, errors.SignupCreateFailed)
		}
	}()

	result.enter(SubmitValidating)
	step1, step2 := s.Step1(), s.Step2()
	// 按步骤顺序校验，错误总是来自最靠前的无效步骤
	stages := []struct {
		step int
		data any
	}{
		{StepTerms, step1},
		{StepAccount, step2},
		{StepProfile, step3},
	}
	for _, stage := range stages {
		if res := p.validator.Validate(stage.step, stage.data); !res.Valid {
			s.SetFieldErrors(res.FieldErrors)
			return result, p.failed(s, &result, errors.SignupInputInvalid)
		}
	}
	s.putStepData(StepProfile, step3)
	s.MarkStepValid(StepProfile)

	imagePath := ""
	if step3.Image != nil {
		result.enter(SubmitUploading)
		// 上传不走账户服务的熔断器，上传自身的熔断在 uploader 外层
		uploaded, upErr := p.uploader.Upload(ctx, *step3.Image)
		if upErr != nil || !uploaded.OK || uploaded.Path() == "" {
			logger.Logger.Warn("Profile image upload failed",
				logger.WizardID(s.Key()),
				zap.String("filename", step3.Image.Filename),
				zap.Error(upErr),
			)
			return result, p.failed(s, &result, errors.SignupUploadFailed)
		}
		imagePath = uploaded.Path()
	}

	result.enter(SubmitSubmitting)
	req := BuildPayload(step1, step2, step3, imagePath)

	var resp CreateAccountResponse
	callErr := p.guard.Call(ctx, func() error {
		var err error
		resp, err = p.api.CreateAccount(ctx, req)
		return err
	})
	if callErr != nil {
		logger.Logger.Error("Account creation request failed",
			logger.WizardID(s.Key()),
			zap.Error(callErr),
		)
		failure := errors.SignupCreateFailed
		if def, ok := errors.As(callErr); ok {
			failure = failure.WithMessage(def.Message)
		}
		return result, p.failed(s, &result, failure)
	}
	if !resp.OK {
		return result, p.failed(s, &result, errors.SignupCreateFailed.WithMessage(resp.Message))
	}

	s.setCompleted(true)
	result.enter(SubmitSuccess)
	result.Account = resp.Item

	logger.Logger.Info("Sign-up submitted",
		logger.WizardID(s.Key()),
		zap.Bool("with_image", imagePath != ""),
	)
	return result, nil
}

func (p *Pipeline) failed(s *Store, result *SubmitResult, def errors.Definition) error {
	s.SetError(def.Message)
	result.enter(SubmitFailed)
	return def
}

// BuildPayload 合并三个步骤的数据
func BuildPayload(step1 Step1Data, step2 Step2Data, step3 Step3Data, imagePath string) CreateAccountRequest {
	return CreateAccountRequest{
		Name:         step2.Name,
		Email:        strings.TrimSpace(step2.Email),
		Password:     step2.Password,
		Phone:        step2.Phone,
		PostalCode:   step2.PostalCode,
		Address:      step2.Address + " " + step2.AddressDetail,
		Type:         AccountTypeUser,
		Image:        imagePath,
		AgreeTerms:   step1.AgreeTerms,
		AgreePrivacy: step1.AgreePrivacy,
		Extra: AccountExtra{
			Gender:    step3.Gender,
			BirthDate: step3.BirthDate,
		},
	}
}

// LoginTarget 登录页地址，带确认信息
func (p *Pipeline) LoginTarget() string {
	return fmt.Sprintf("%s?message=%s", p.loginPath, url.QueryEscape(p.message))
}

// Finalize 用户确认成功弹窗后调用：进入 Redirecting，清空向导并跳转到登录页，
// settleDelay 之后状态机回到 Idle。
func (p *Pipeline) Finalize(ctx context.Context, s *Store) (Navigation, error) {
	if !s.Completed() {
		return Navigation{}, errors.SignupNotCompleted
	}

	target := p.LoginTarget()
	epoch := s.BeginRedirect(target)
	s.Reset()

	if err := s.Discard(ctx); err != nil {
		logger.Logger.Error("Failed to clear wizard state",
			logger.WizardID(s.Key()),
			zap.Error(err),
		)
	}

	p.schedule(p.settleDelay, func() {
		s.SettleRedirect(epoch)
	})
	return Replace(target), nil
}
