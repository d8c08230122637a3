package wizard

import (
	"context"
	"sync"
)

// Persister 向导持久化存储，按向导 key 读写
type Persister interface {
	// Load 第二个返回值为 false 表示不存在
	Load(ctx context.Context, key string) (Persistent, bool, error)
	Save(ctx context.Context, key string, state Persistent) error
	Delete(ctx context.Context, key string) error
}

// MemoryPersister 进程内实现，测试和本地开发使用。
// 保存的是序列化后的字节，读回时与 Redis 的行为一致。
type MemoryPersister struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{data: make(map[string][]byte)}
}

func (m *MemoryPersister) Load(ctx context.Context, key string) (Persistent, bool, error) {
	m.mu.Lock()
	raw, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return Persistent{}, false, nil
	}

	state, err := UnmarshalPersistent(raw)
	if err != nil {
		return Persistent{}, false, err
	}
	return state, true, nil
}

func (m *MemoryPersister) Save(ctx context.Context, key string, state Persistent) error {
	raw, err := MarshalPersistent(state)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryPersister) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// Len 当前保存的向导数量
func (m *MemoryPersister) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
