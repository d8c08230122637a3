package objectstore

import (
	"context"
	"sync"
)

type memoryObject struct {
	ContentType string
	Data        []byte
}

// MemoryStorage 未配置对象存储时使用，进程退出即丢失
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: map[string]memoryObject{}}
}

func (m *MemoryStorage) Put(ctx context.Context, key, contentType string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	m.objects[key] = memoryObject{ContentType: contentType, Data: buf}
	m.mu.Unlock()
	return nil
}

// Get 返回对象内容和类型
func (m *MemoryStorage) Get(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.Data, obj.ContentType, ok
}

func (m *MemoryStorage) URL(key string) string {
	return "/files/" + key
}

func (m *MemoryStorage) Backend() string {
	return "memory"
}

func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
