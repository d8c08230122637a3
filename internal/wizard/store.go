package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Step1Patch 等补丁类型只合并非 nil 字段
type Step1Patch struct {
	AgreeTerms   *bool `json:"agreeTerms,omitempty"`
	AgreePrivacy *bool `json:"agreePrivacy,omitempty"`
}

type Step2Patch struct {
	Name            *string `json:"name,omitempty"`
	Email           *string `json:"email,omitempty"`
	Password        *string `json:"password,omitempty"`
	ConfirmPassword *string `json:"confirmPassword,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	PostalCode      *string `json:"postalCode,omitempty"`
	Address         *string `json:"address,omitempty"`
	AddressDetail   *string `json:"addressDetail,omitempty"`
}

type Step3Patch struct {
	Image     *ImageFile `json:"-"`
	Gender    *string    `json:"gender,omitempty"`
	BirthDate *string    `json:"birthDate,omitempty"`
}

// Store 单个向导的状态容器。
// hertz 在多个 goroutine 上处理同一会话的请求，所有读写都经过 mu，语义仍是后写者胜出。
type Store struct {
	mu        sync.RWMutex
	key       string
	persister Persister
	ready     bool

	persistent Persistent
	session    Session
	redirect   redirection
	seq        map[Field]uint64

	touchedAt time.Time
}

// New 创建未加载的 store，Ready 返回 false 直到 Hydrate 完成
func New(key string, persister Persister) *Store {
	return &Store{
		key:        key,
		persister:  persister,
		persistent: DefaultPersistent(),
		redirect:   newRedirection(),
		seq:        map[Field]uint64{},
		touchedAt:  time.Now(),
	}
}

// Open 创建并从持久化存储加载，相当于一次页面刷新
func Open(ctx context.Context, key string, persister Persister) (*Store, error) {
	s := New(key, persister)
	if err := s.Hydrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Hydrate 从持久化存储恢复 Persistent，会话态保持默认
func (s *Store) Hydrate(ctx context.Context) error {
	state := DefaultPersistent()
	if s.persister != nil {
		loaded, ok, err := s.persister.Load(ctx, s.key)
		if err != nil {
			return fmt.Errorf("failed to hydrate wizard %s: %w", s.key, err)
		}
		if ok {
			state = loaded
		}
	}
	state.normalize()

	s.mu.Lock()
	s.persistent = state
	s.ready = true
	s.touchedAt = time.Now()
	s.mu.Unlock()
	return nil
}

func (s *Store) Key() string {
	return s.key
}

// Ready 加载完成前导航守卫不生效
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Save 写入持久化部分
func (s *Store) Save(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	s.mu.RLock()
	state := s.persistent.clone()
	s.mu.RUnlock()

	if err := s.persister.Save(ctx, s.key, state); err != nil {
		return fmt.Errorf("failed to save wizard %s: %w", s.key, err)
	}
	return nil
}

// Discard 删除持久化记录
func (s *Store) Discard(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	if err := s.persister.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("failed to discard wizard %s: %w", s.key, err)
	}
	return nil
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Persistent: s.persistent.clone(),
		Session:    s.session.clone(),
		Redirect:   s.redirect.state,
	}
}

func (s *Store) Persistent() Persistent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistent.clone()
}

func (s *Store) Session() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.clone()
}

func (s *Store) CurrentStep() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistent.CurrentStep
}

func (s *Store) SetCurrentStep(step int) {
	if step < FirstStep || step > LastStep {
		return
	}
	s.mu.Lock()
	s.persistent.CurrentStep = step
	s.touch()
	s.mu.Unlock()
}

func (s *Store) Step1() Step1Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistent.Step1
}

func (s *Store) Step2() Step2Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistent.Step2
}

func (s *Store) Step3() Step3Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistent.Step3
}

// SetStep1 浅合并，不修改步骤有效性
func (s *Store) SetStep1(p Step1Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := &s.persistent.Step1
	mergeBool(&d.AgreeTerms, p.AgreeTerms)
	mergeBool(&d.AgreePrivacy, p.AgreePrivacy)
	s.touch()
}

func (s *Store) SetStep2(p Step2Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := &s.persistent.Step2
	mergeString(&d.Name, p.Name)
	mergeString(&d.Email, p.Email)
	mergeString(&d.Password, p.Password)
	mergeString(&d.ConfirmPassword, p.ConfirmPassword)
	mergeString(&d.Phone, p.Phone)
	mergeString(&d.PostalCode, p.PostalCode)
	mergeString(&d.Address, p.Address)
	mergeString(&d.AddressDetail, p.AddressDetail)
	s.touch()
}

func (s *Store) SetStep3(p Step3Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := &s.persistent.Step3
	if p.Image != nil {
		d.Image = p.Image
	}
	mergeString(&d.Gender, p.Gender)
	mergeString(&d.BirthDate, p.BirthDate)
	s.touch()
}

// putStepData 整体写入某一步的数据，仅控制器在校验通过后调用
func (s *Store) putStepData(step int, data any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch d := data.(type) {
	case Step1Data:
		s.persistent.Step1 = d
	case Step2Data:
		s.persistent.Step2 = d
	case Step3Data:
		s.persistent.Step3 = d
	default:
		return false
	}
	s.touch()
	return true
}

func (s *Store) IsStepValid(step int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistent.StepValid[step]
}

func (s *Store) MarkStepValid(step int) {
	if step < FirstStep || step > LastStep {
		return
	}
	s.mu.Lock()
	s.persistent.StepValid[step] = true
	s.touch()
	s.mu.Unlock()
}

func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	s.session.IsLoading = loading
	s.mu.Unlock()
}

// beginLoading 已在提交中时返回 false
func (s *Store) beginLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.IsLoading {
		return false
	}
	s.session.IsLoading = true
	return true
}

func (s *Store) SetError(msg string) {
	s.mu.Lock()
	s.session.Error = msg
	s.mu.Unlock()
}

// SetFieldErrors 传 nil 清空
func (s *Store) SetFieldErrors(errs map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(errs) == 0 {
		s.session.FieldErrors = nil
		return
	}
	s.session.FieldErrors = make(map[string]string, len(errs))
	for k, v := range errs {
		s.session.FieldErrors[k] = v
	}
}

func (s *Store) SetFieldError(field, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.FieldErrors == nil {
		s.session.FieldErrors = map[string]string{}
	}
	s.session.FieldErrors[field] = msg
}

// ClearErrors 每次检查或提交开始时调用
func (s *Store) ClearErrors() {
	s.mu.Lock()
	s.session.Error = ""
	s.session.FieldErrors = nil
	s.mu.Unlock()
}

func (s *Store) SetNotice(msg string) {
	s.mu.Lock()
	s.session.Notice = msg
	s.mu.Unlock()
}

// TakeNotice 读取并清除提示，提示只展示一次
func (s *Store) TakeNotice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.session.Notice
	s.session.Notice = ""
	return msg
}

func (s *Store) Completed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Completed
}

func (s *Store) setCompleted(done bool) {
	s.mu.Lock()
	s.session.Completed = done
	s.mu.Unlock()
}

// Availability 返回字段的检查结果及其对应的值
func (s *Store) Availability(field Field) (available *bool, checked string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch field {
	case FieldEmail:
		available, checked = s.session.EmailAvailable, s.session.EmailChecked
	case FieldNickname:
		available, checked = s.session.NicknameAvailable, s.session.NicknameChecked
	}
	if available != nil {
		available = boolPtr(*available)
	}
	return available, checked
}

func (s *Store) Checking(field Field) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if field == FieldEmail {
		return s.session.IsEmailChecking
	}
	return s.session.IsNicknameChecking
}

// beginCheck 发起新的检查：清空旧结果，返回本次序号
func (s *Store) beginCheck(field Field) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[field]++
	switch field {
	case FieldEmail:
		s.session.IsEmailChecking = true
		s.session.EmailAvailable = nil
		s.session.EmailChecked = ""
	case FieldNickname:
		s.session.IsNicknameChecking = true
		s.session.NicknameAvailable = nil
		s.session.NicknameChecked = ""
	}
	return s.seq[field]
}

// finishCheck 只接受最新序号的结果，过期响应直接丢弃
func (s *Store) finishCheck(field Field, seq uint64, value string, available bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq[field] != seq {
		return false
	}
	switch field {
	case FieldEmail:
		s.session.IsEmailChecking = false
		s.session.EmailAvailable = boolPtr(available)
		s.session.EmailChecked = value
	case FieldNickname:
		s.session.IsNicknameChecking = false
		s.session.NicknameAvailable = boolPtr(available)
		s.session.NicknameChecked = value
	}
	return true
}

// Reset 恢复步骤数据和会话态，保留重定向状态。
// 序号递增，使重置前发出的检查结果失效。
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistent = DefaultPersistent()
	s.session = Session{}
	for _, f := range []Field{FieldEmail, FieldNickname} {
		s.seq[f]++
	}
	s.touch()
}

func (s *Store) Redirect() RedirectState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.redirect.state
}

func (s *Store) Redirecting() bool {
	return s.Redirect().Redirecting()
}

// BeginRedirect 进入 Redirecting，返回用于结束本次跳转的 epoch
func (s *Store) BeginRedirect(target string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redirect.begin(target)
}

// SettleRedirect 回到 Idle，epoch 不匹配时忽略
func (s *Store) SettleRedirect(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redirect.settle(epoch)
}

// IdleSince 最后一次修改的时间，用于清理长时间不活跃的向导
func (s *Store) IdleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.touchedAt
}

// Touch 记录一次访问，只读请求也会推迟空闲清理
func (s *Store) Touch() {
	s.mu.Lock()
	s.touch()
	s.mu.Unlock()
}

func (s *Store) touch() {
	s.touchedAt = time.Now()
}

func mergeBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func mergeString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
