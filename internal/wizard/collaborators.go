package wizard

import (
	"context"
	"time"
)

// CreateAccountRequest 账户创建请求体，合并三个步骤的数据
type CreateAccountRequest struct {
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Password     string       `json:"password"`
	Phone        string       `json:"phone"`
	PostalCode   string       `json:"postalCode"`
	Address      string       `json:"address"`
	Type         string       `json:"type"`
	Image        string       `json:"image"`
	AgreeTerms   bool         `json:"agreeTerms"`
	AgreePrivacy bool         `json:"agreePrivacy"`
	Extra        AccountExtra `json:"extra"`
}

type AccountExtra struct {
	Gender    string `json:"gender"`
	BirthDate string `json:"birthDate"`
}

type CreatedAccount struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

// CreateAccountResponse OK 为 false 时 Message 为服务端给出的原因
type CreateAccountResponse struct {
	OK      bool            `json:"ok"`
	Item    *CreatedAccount `json:"item,omitempty"`
	Message string          `json:"message,omitempty"`
}

// AccountAPI 账户服务，远程 REST 或进程内实现
type AccountAPI interface {
	CheckEmailAvailability(ctx context.Context, email string) (bool, error)
	CheckNicknameAvailability(ctx context.Context, nickname string) (bool, error)
	CreateAccount(ctx context.Context, req CreateAccountRequest) (CreateAccountResponse, error)
}

type UploadedFile struct {
	Path string `json:"path"`
}

type UploadResult struct {
	OK   bool           `json:"ok"`
	Item []UploadedFile `json:"item"`
}

// Path 第一个文件的路径
func (r UploadResult) Path() string {
	if len(r.Item) == 0 {
		return ""
	}
	return r.Item[0].Path
}

// Uploader 文件上传服务
type Uploader interface {
	Upload(ctx context.Context, file ImageFile) (UploadResult, error)
}

// Guard 远程调用保护，例如熔断器
type Guard interface {
	Call(ctx context.Context, op func() error) error
}

type passthrough struct{}

func (passthrough) Call(ctx context.Context, op func() error) error {
	return op()
}

// Scheduler 延迟执行，测试中替换为手动触发
type Scheduler func(delay time.Duration, fn func())

func timerScheduler(delay time.Duration, fn func()) {
	time.AfterFunc(delay, fn)
}
