package cache

import (
	"context"
	"fmt"
	"time"

	ri "github.com/redis/go-redis/v9"

	"GreenNest/internal/wizard"
	"GreenNest/storage/redis"
)

const wizardPrefix = "wizard"

// kvClient RedisPersister 用到的命令子集
type kvClient interface {
	Get(ctx context.Context, key string) *ri.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *ri.StatusCmd
	Del(ctx context.Context, keys ...string) *ri.IntCmd
}

// RedisPersister 向导草稿的持久化存储。
// 键为 <prefix>:wizard:<storage name>:<wizard id>，每次保存刷新 TTL。
type RedisPersister struct {
	client      kvClient
	storageName string
	ttl         time.Duration
}

var _ wizard.Persister = (*RedisPersister)(nil)

func NewRedisPersister(client kvClient, storageName string, ttl time.Duration) *RedisPersister {
	return &RedisPersister{client: client, storageName: storageName, ttl: ttl}
}

func (p *RedisPersister) key(id string) string {
	return redis.Key(wizardPrefix, p.storageName, id)
}

func (p *RedisPersister) Load(ctx context.Context, id string) (wizard.Persistent, bool, error) {
	data, err := p.client.Get(ctx, p.key(id)).Bytes()
	if err == ri.Nil {
		return wizard.Persistent{}, false, nil
	}
	if err != nil {
		return wizard.Persistent{}, false, fmt.Errorf("failed to load wizard draft: %w", err)
	}

	state, err := wizard.UnmarshalPersistent(data)
	if err != nil {
		// 损坏的草稿按不存在处理，用户从第一步重新开始
		return wizard.Persistent{}, false, nil
	}
	return state, true, nil
}

func (p *RedisPersister) Save(ctx context.Context, id string, state wizard.Persistent) error {
	data, err := wizard.MarshalPersistent(state)
	if err != nil {
		return err
	}
	if err := p.client.Set(ctx, p.key(id), data, p.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save wizard draft: %w", err)
	}
	return nil
}

func (p *RedisPersister) Delete(ctx context.Context, id string) error {
	if err := p.client.Del(ctx, p.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete wizard draft: %w", err)
	}
	return nil
}
