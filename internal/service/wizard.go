package service

import (
	"context"
	stderrors "errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"GreenNest/config"
	"GreenNest/internal/cache"
	"GreenNest/internal/model/dto"
	"GreenNest/internal/wizard"
	"GreenNest/pkg/errors"
	"GreenNest/pkg/logger"
	"GreenNest/pkg/metrics"
)

// WizardService 按会话 id 管理向导 store。
// 内存中只保留活跃的向导，空闲超时后移除，持久化部分仍在 Persister 中。
type WizardService struct {
	persister  wizard.Persister
	validator  *wizard.Validator
	checker    *wizard.AvailabilityChecker
	controller *wizard.Controller
	pipeline   *wizard.Pipeline
	idleAfter  time.Duration

	mu     sync.Mutex
	stores map[string]*wizard.Store
}

type wizardOptions struct {
	accountGuard wizard.Guard
	uploadGuard  wizard.Guard
	pipeline     []wizard.PipelineOption
	idleAfter    time.Duration
}

type WizardOption func(*wizardOptions)

// WithGuards 账户服务与上传各自的熔断器
func WithGuards(account, upload wizard.Guard) WizardOption {
	return func(o *wizardOptions) {
		o.accountGuard = account
		o.uploadGuard = upload
	}
}

func WithPipelineOptions(opts ...wizard.PipelineOption) WizardOption {
	return func(o *wizardOptions) {
		o.pipeline = append(o.pipeline, opts...)
	}
}

func WithIdleTimeout(d time.Duration) WizardOption {
	return func(o *wizardOptions) {
		o.idleAfter = d
	}
}

func NewWizardService(persister wizard.Persister, api wizard.AccountAPI, uploader wizard.Uploader, opts ...WizardOption) *WizardService {
	o := wizardOptions{idleAfter: 30 * time.Minute}
	for _, opt := range opts {
		opt(&o)
	}

	if o.uploadGuard != nil {
		uploader = guardedUploader{Uploader: uploader, guard: o.uploadGuard}
	}

	pipelineOpts := o.pipeline
	if o.accountGuard != nil {
		pipelineOpts = append([]wizard.PipelineOption{wizard.WithPipelineGuard(o.accountGuard)}, pipelineOpts...)
	}

	var checkerOpts []wizard.CheckerOption
	if o.accountGuard != nil {
		checkerOpts = append(checkerOpts, wizard.WithGuard(o.accountGuard))
	}

	validator := wizard.NewValidator()
	checker := wizard.NewAvailabilityChecker(api, validator, checkerOpts...)
	return &WizardService{
		persister:  persister,
		validator:  validator,
		checker:    checker,
		controller: wizard.NewController(validator, checker),
		pipeline:   wizard.NewPipeline(validator, api, uploader, pipelineOpts...),
		idleAfter:  o.idleAfter,
		stores:     map[string]*wizard.Store{},
	}
}

// NewWizardServiceFromConfig 按全局配置组装依赖
func NewWizardServiceFromConfig(persister wizard.Persister, api wizard.AccountAPI, uploader wizard.Uploader) *WizardService {
	cfg := config.Cfg
	return NewWizardService(persister, api, uploader,
		WithGuards(cache.AccountAPIBreaker, cache.UploadBreaker),
		WithIdleTimeout(time.Duration(cfg.WizardIdleSweepMinutes)*time.Minute),
		WithPipelineOptions(
			wizard.WithSettleDelay(cfg.RedirectSettleDelay()),
			wizard.WithLoginPath(cfg.WizardLoginPath),
		),
	)
}

// 上传走独立的熔断器，pipeline 外层的账户熔断仍然生效
type guardedUploader struct {
	wizard.Uploader
	guard wizard.Guard
}

func (g guardedUploader) Upload(ctx context.Context, file wizard.ImageFile) (wizard.UploadResult, error) {
	var res wizard.UploadResult
	err := g.guard.Call(ctx, func() error {
		var err error
		res, err = g.Uploader.Upload(ctx, file)
		return err
	})
	return res, err
}

// Open 获取或加载向导，相当于一次页面加载
func (s *WizardService) Open(ctx context.Context, id string) (*wizard.Store, error) {
	s.mu.Lock()
	if st, ok := s.stores[id]; ok {
		s.mu.Unlock()
		st.Touch()
		return st, nil
	}
	s.mu.Unlock()

	st, err := wizard.Open(ctx, id, s.persister)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.stores[id]; ok {
		return existing, nil
	}
	s.stores[id] = st
	metrics.AddActiveWizards(ctx, 1)
	return st, nil
}

// Page 进入某一步时执行导航守卫并返回页面模型
func (s *WizardService) Page(ctx context.Context, id string, step int) (wizard.Navigation, *dto.StepPageData, error) {
	st, err := s.Open(ctx, id)
	if err != nil {
		return wizard.Navigation{}, nil, err
	}

	nav := s.controller.NavigateTo(st, step)
	if !nav.None() {
		metrics.RecordStep(ctx, step, "locked")
		return nav, nil, nil
	}
	if err := st.Save(ctx); err != nil {
		logger.Logger.Warn("Failed to persist wizard step", logger.WizardID(id), zap.Error(err))
	}

	if step < wizard.FirstStep || step > wizard.LastStep {
		step = st.CurrentStep()
	}

	state := st.Snapshot()
	st.TakeNotice()
	return nav, &dto.StepPageData{
		Step:     step,
		StepName: wizard.StepName(step),
		Unlocked: unlockedList(s.controller.UnlockedSteps(st)),
		State:    state,
	}, nil
}

// State 当前状态，不触发守卫
func (s *WizardService) State(ctx context.Context, id string) (wizard.State, error) {
	st, err := s.Open(ctx, id)
	if err != nil {
		return wizard.State{}, err
	}
	return st.Snapshot(), nil
}

// Patch 合并表单字段，不改变校验状态
func (s *WizardService) Patch(ctx context.Context, id string, patch any) (wizard.State, error) {
	st, err := s.Open(ctx, id)
	if err != nil {
		return wizard.State{}, err
	}

	switch p := patch.(type) {
	case wizard.Step1Patch:
		st.SetStep1(p)
	case wizard.Step2Patch:
		st.SetStep2(p)
	case wizard.Step3Patch:
		p.Image = nil
		st.SetStep3(p)
	default:
		return wizard.State{}, errors.SignupStepInvalid
	}

	if err := st.Save(ctx); err != nil {
		return wizard.State{}, err
	}
	return st.Snapshot(), nil
}

func (s *WizardService) Advance(ctx context.Context, id string, step int, data any) (wizard.Outcome, wizard.State, error) {
	st, err := s.Open(ctx, id)
	if err != nil {
		return wizard.Outcome{}, wizard.State{}, err
	}

	outcome, err := s.controller.Advance(ctx, st, step, data)
	switch {
	case err == nil:
		metrics.RecordStep(ctx, step, "advanced")
	case stderrors.Is(err, errors.SignupStepLocked):
		metrics.RecordStep(ctx, step, "locked")
	default:
		metrics.RecordStep(ctx, step, "rejected")
	}
	return outcome, st.Snapshot(), err
}

func (s *WizardService) Retreat(ctx context.Context, id string) (wizard.Outcome, wizard.State, error) {
	st, err := s.Open(ctx, id)
	if err != nil {
		return wizard.Outcome{}, wizard.State{}, err
	}

	step := st.CurrentStep()
	outcome, err := s.controller.Retreat(ctx, st)
	if err == nil {
		metrics.RecordStep(ctx, step, "back")
	}
	return outcome, st.Snapshot(), err
}

// CheckAvailability 执行邮箱或昵称检查，返回检查后的状态
func (s *WizardService) CheckAvailability(ctx context.Context, id string, field wizard.Field, value string) (dto.AvailabilityData, error) {
	st, err := s.Open(ctx, id)
	if err != nil {
		return dto.AvailabilityData{}, err
	}

	var passed bool
	switch field {
	case wizard.FieldEmail:
		passed = s.controller.CheckEmail(ctx, st, value)
	case wizard.FieldNickname:
		passed = s.controller.CheckNickname(ctx, st, value)
	default:
		return dto.AvailabilityData{}, errors.InvalidRequest
	}

	available, _ := st.Availability(field)
	result := "skipped"
	if passed && available != nil {
		result = "taken"
		if *available {
			result = "available"
		}
	}
	metrics.RecordAvailabilityCheck(ctx, string(field), result)

	data := dto.AvailabilityData{
		Field:     string(field),
		Value:     value,
		Available: available,
		Checking:  st.Checking(field),
		Notice:    st.TakeNotice(),
	}
	if !passed {
		return data, errors.SignupValidationFailed
	}
	return data, nil
}

// FieldErrors 最近一次操作留下的字段错误
func (s *WizardService) FieldErrors(ctx context.Context, id string) map[string]string {
	st, err := s.Open(ctx, id)
	if err != nil {
		return nil
	}
	return st.Session().FieldErrors
}

func (s *WizardService) Submit(ctx context.Context, id string, step3 wizard.Step3Data) (wizard.SubmitResult, wizard.State, error) {
	st, err := s.Open(ctx, id)
	if err != nil {
		return wizard.SubmitResult{}, wizard.State{}, err
	}

	start := time.Now()
	result, err := s.pipeline.Submit(ctx, st, step3)
	metrics.RecordSubmission(ctx, string(result.Final()), step3.Image != nil, time.Since(start))

	if saveErr := st.Save(ctx); saveErr != nil {
		logger.Logger.Warn("Failed to persist wizard after submit", logger.WizardID(id), zap.Error(saveErr))
	}
	return result, st.Snapshot(), err
}

func (s *WizardService) Finalize(ctx context.Context, id string) (wizard.Navigation, error) {
	st, err := s.Open(ctx, id)
	if err != nil {
		return wizard.Navigation{}, err
	}
	return s.pipeline.Finalize(ctx, st)
}

// Sweep 移除空闲的向导，提交中或重定向中的保留
func (s *WizardService) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, st := range s.stores {
		if now.Sub(st.IdleSince()) < s.idleAfter {
			continue
		}
		if st.Session().IsLoading || st.Redirecting() {
			continue
		}
		delete(s.stores, id)
		removed++
	}
	if removed > 0 {
		metrics.AddActiveWizards(context.Background(), -int64(removed))
		logger.Logger.Debug("Swept idle wizards", zap.Int("removed", removed), zap.Int("remaining", len(s.stores)))
	}
	return removed
}

// Run 周期性清理，ctx 取消后返回
func (s *WizardService) Run(ctx context.Context) {
	interval := s.idleAfter / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}

// Active 内存中的向导数量
func (s *WizardService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stores)
}

func unlockedList(steps map[int]bool) []int {
	out := make([]int, 0, len(steps))
	for step, ok := range steps {
		if ok {
			out = append(out, step)
		}
	}
	sort.Ints(out)
	return out
}

// ParseStep 路由参数形如 "step-2"
func ParseStep(raw string) (int, error) {
	num, ok := strings.CutPrefix(raw, "step-")
	if !ok {
		return 0, errors.SignupStepInvalid
	}
	step, err := strconv.Atoi(num)
	if err != nil || step < wizard.FirstStep || step > wizard.LastStep {
		return 0, errors.SignupStepInvalid
	}
	return step, nil
}
