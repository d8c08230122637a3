package wizard

import (
	"context"
	"sync"
	"time"
)

type fakeAccountAPI struct {
	mu            sync.Mutex
	emailCalls    []string
	nicknameCalls []string
	created       []CreateAccountRequest

	emailFn    func(ctx context.Context, email string) (bool, error)
	nicknameFn func(ctx context.Context, nickname string) (bool, error)
	createFn   func(ctx context.Context, req CreateAccountRequest) (CreateAccountResponse, error)
}

func (f *fakeAccountAPI) CheckEmailAvailability(ctx context.Context, email string) (bool, error) {
	f.mu.Lock()
	f.emailCalls = append(f.emailCalls, email)
	fn := f.emailFn
	f.mu.Unlock()
	if fn == nil {
		return true, nil
	}
	return fn(ctx, email)
}

func (f *fakeAccountAPI) CheckNicknameAvailability(ctx context.Context, nickname string) (bool, error) {
	f.mu.Lock()
	f.nicknameCalls = append(f.nicknameCalls, nickname)
	fn := f.nicknameFn
	f.mu.Unlock()
	if fn == nil {
		return true, nil
	}
	return fn(ctx, nickname)
}

func (f *fakeAccountAPI) CreateAccount(ctx context.Context, req CreateAccountRequest) (CreateAccountResponse, error) {
	f.mu.Lock()
	f.created = append(f.created, req)
	fn := f.createFn
	f.mu.Unlock()
	if fn == nil {
		return CreateAccountResponse{OK: true, Item: &CreatedAccount{ID: "1", Email: req.Email, Nickname: req.Name}}, nil
	}
	return fn(ctx, req)
}

func (f *fakeAccountAPI) emailCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.emailCalls)
}

type fakeUploader struct {
	mu    sync.Mutex
	files []ImageFile
	err   error
	path  string
}

func (u *fakeUploader) Upload(ctx context.Context, file ImageFile) (UploadResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.files = append(u.files, file)
	if u.err != nil {
		return UploadResult{}, u.err
	}
	path := u.path
	if path == "" {
		path = "/uploads/" + file.Filename
	}
	return UploadResult{OK: true, Item: []UploadedFile{{Path: path}}}, nil
}

// manualScheduler 记录延迟任务，由测试手动触发
type manualScheduler struct {
	mu     sync.Mutex
	delays []time.Duration
	tasks  []func()
}

func (m *manualScheduler) schedule(delay time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays = append(m.delays, delay)
	m.tasks = append(m.tasks, fn)
}

func (m *manualScheduler) runAll() {
	m.mu.Lock()
	tasks := m.tasks
	m.tasks = nil
	m.mu.Unlock()
	for _, fn := range tasks {
		fn()
	}
}

func validStep1() Step1Data {
	return Step1Data{AgreeTerms: true, AgreePrivacy: true}
}

func validStep2() Step2Data {
	return Step2Data{
		Name:            "Mina",
		Email:           "mina@example.com",
		Password:        "garden12!",
		ConfirmPassword: "garden12!",
		Phone:           "01012345678",
		PostalCode:      "04524",
		Address:         "Seoul Jung-gu",
		AddressDetail:   "Apt 101, Room 2",
	}
}

func hydrated(key string) (*Store, *MemoryPersister) {
	p := NewMemoryPersister()
	s, err := Open(context.Background(), key, p)
	if err != nil {
		panic(err)
	}
	return s, p
}

func ptr[T any](v T) *T {
	return &v
}

// countingGuard 直接执行操作并记录调用次数
type countingGuard struct {
	mu    sync.Mutex
	calls int
}

func (g *countingGuard) Call(ctx context.Context, op func() error) error {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return op()
}

func (g *countingGuard) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
