package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"GreenNest/internal/model/dto"
	"GreenNest/pkg/snowflake"
	"GreenNest/storage/database"
)

type publishedEvent struct {
	Exchange   string
	RoutingKey string
	MessageID  string
	Body       interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, exchange, routingKey, messageID string, body interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{exchange, routingKey, messageID, body})
	return nil
}

func (f *fakePublisher) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakeRefreshStore struct {
	mu     sync.Mutex
	tokens map[string]bool
}

func newFakeRefreshStore() *fakeRefreshStore {
	return &fakeRefreshStore{tokens: map[string]bool{}}
}

func (f *fakeRefreshStore) Save(ctx context.Context, accountID, jti string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[accountID+":"+jti] = true
	return nil
}

func (f *fakeRefreshStore) Consume(ctx context.Context, accountID, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := accountID + ":" + jti
	ok := f.tokens[key]
	delete(f.tokens, key)
	return ok, nil
}

// newTestDB 每个测试独立的内存 sqlite
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestAccounts(t *testing.T) (*AccountService, *fakePublisher) {
	t.Helper()
	node, err := snowflake.NewNode(1, 1)
	require.NoError(t, err)

	pub := &fakePublisher{}
	svc := NewAccountService(newTestDB(t), func() (int64, error) {
		return node.Generate().Int64(), nil
	}, pub)
	return svc, pub
}

func validCreateRequest() dto.CreateAccountRequest {
	return dto.CreateAccountRequest{
		Name:         "Mina",
		Email:        "Mina@Example.com",
		Password:     "garden12!",
		Phone:        "01012345678",
		PostalCode:   "04524",
		Address:      "Seoul Jung-gu Apt 101, Room 2",
		Type:         "user",
		AgreeTerms:   true,
		AgreePrivacy: true,
		Extra:        dto.AccountExtra{Gender: "female", BirthDate: "1994-05-02"},
	}
}
