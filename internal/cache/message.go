package cache

import (
	"context"
	"fmt"
	"time"

	"GreenNest/storage/redis"
)

const (
	messageProcessedPrefix = "message:processed"
	processedTTL           = 24 * time.Hour
)

// TryMarkMessageProcessing 尝试原子性地标记消息正在处理（SETNX）
// 返回 true 表示首次处理，false 表示重复消息或正在处理
func TryMarkMessageProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = processedTTL
	}

	ok, err := redis.Client().SetNX(ctx, redis.Key(messageProcessedPrefix, messageID), "processing", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return ok, nil
}

// UnmarkMessageProcessing 处理失败时清除标记，允许重投后再次处理
func UnmarkMessageProcessing(ctx context.Context, messageID string) error {
	return redis.Client().Del(ctx, redis.Key(messageProcessedPrefix, messageID)).Err()
}

// MarkMessageProcessed 处理成功后写入 completed 并延长 TTL
func MarkMessageProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = processedTTL
	}
	return redis.Client().Set(ctx, redis.Key(messageProcessedPrefix, messageID), "completed", ttl).Err()
}
