package wizard

import (
	"encoding/json"
	"fmt"
)

// 向导步骤
const (
	StepTerms   = 1 // 条款同意
	StepAccount = 2 // 个人与账户信息
	StepProfile = 3 // 可选资料

	FirstStep = StepTerms
	LastStep  = StepProfile
)

// 性别枚举，空字符串表示未填写
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

type Step1Data struct {
	AgreeTerms   bool `json:"agreeTerms" validate:"required"`
	AgreePrivacy bool `json:"agreePrivacy" validate:"required"`
}

// Step2Data 的 Name 同时作为社区昵称
type Step2Data struct {
	Name            string `json:"name" validate:"required,min=2,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,password_strength"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Phone           string `json:"phone" validate:"required,mobile_010"`
	PostalCode      string `json:"postalCode" validate:"required"`
	Address         string `json:"address" validate:"required"`
	AddressDetail   string `json:"addressDetail" validate:"required,trimmed_min=5"`
}

// ImageFile 头像文件句柄，只在单次请求内存在，不会被持久化
type ImageFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (f *ImageFile) Size() int {
	if f == nil {
		return 0
	}
	return len(f.Data)
}

type Step3Data struct {
	Image     *ImageFile `json:"-"`
	Gender    string     `json:"gender,omitempty"`
	BirthDate string     `json:"birthDate,omitempty"`
}

// Persistent 可持久化部分，页面刷新后仍然保留
type Persistent struct {
	CurrentStep int          `json:"currentStep"`
	Step1       Step1Data    `json:"step1Data"`
	Step2       Step2Data    `json:"step2Data"`
	Step3       Step3Data    `json:"step3Data"`
	StepValid   map[int]bool `json:"isStepValid"`
}

func DefaultPersistent() Persistent {
	return Persistent{
		CurrentStep: FirstStep,
		StepValid:   map[int]bool{},
	}
}

func (p Persistent) clone() Persistent {
	out := p
	out.StepValid = make(map[int]bool, len(p.StepValid))
	for k, v := range p.StepValid {
		out.StepValid[k] = v
	}
	return out
}

// normalize 修正来自存储的脏数据
func (p *Persistent) normalize() {
	if p.CurrentStep < FirstStep || p.CurrentStep > LastStep {
		p.CurrentStep = FirstStep
	}
	if p.StepValid == nil {
		p.StepValid = map[int]bool{}
	}
	for step := range p.StepValid {
		if step < FirstStep || step > LastStep {
			delete(p.StepValid, step)
		}
	}
	p.Step3.Image = nil
}

// MarshalPersistent 序列化持久化部分，图片句柄天然被忽略
func MarshalPersistent(p Persistent) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal wizard state: %w", err)
	}
	return data, nil
}

func UnmarshalPersistent(data []byte) (Persistent, error) {
	p := DefaultPersistent()
	if err := json.Unmarshal(data, &p); err != nil {
		return Persistent{}, fmt.Errorf("failed to unmarshal wizard state: %w", err)
	}
	p.normalize()
	return p, nil
}

// Session 会话态，从不序列化，刷新即丢失
type Session struct {
	IsLoading          bool              `json:"isLoading"`
	IsEmailChecking    bool              `json:"isEmailChecking"`
	IsNicknameChecking bool              `json:"isNicknameChecking"`
	EmailAvailable     *bool             `json:"emailAvailable"`
	NicknameAvailable  *bool             `json:"nicknameAvailable"`
	EmailChecked       string            `json:"-"`
	NicknameChecked    string            `json:"-"`
	Error              string            `json:"error,omitempty"`
	FieldErrors        map[string]string `json:"fieldErrors,omitempty"`
	Notice             string            `json:"notice,omitempty"`
	Completed          bool              `json:"completed"`
}

func (s Session) clone() Session {
	out := s
	if s.EmailAvailable != nil {
		v := *s.EmailAvailable
		out.EmailAvailable = &v
	}
	if s.NicknameAvailable != nil {
		v := *s.NicknameAvailable
		out.NicknameAvailable = &v
	}
	if s.FieldErrors != nil {
		out.FieldErrors = make(map[string]string, len(s.FieldErrors))
		for k, v := range s.FieldErrors {
			out.FieldErrors[k] = v
		}
	}
	return out
}

// State 只读视图，持久化部分与会话部分在这里合并
type State struct {
	Persistent
	Session
	Redirect RedirectState `json:"redirect"`
}

// Field 可做可用性检查的字段
type Field string

const (
	FieldEmail    Field = "email"
	FieldNickname Field = "nickname"
)

// ErrorKey 可用性错误在字段错误表中的键，昵称对应表单的 name
func (f Field) ErrorKey() string {
	if f == FieldNickname {
		return "name"
	}
	return string(f)
}

func boolPtr(v bool) *bool {
	return &v
}
