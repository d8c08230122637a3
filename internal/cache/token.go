package cache

import (
	"context"
	"time"

	ri "github.com/redis/go-redis/v9"

	"GreenNest/storage/redis"
)

const tokenPrefix = "token"

// SetRefreshToken 记录签发的 refresh token
// Key: gnst:token:refresh:{account_id}:{jti}
func SetRefreshToken(ctx context.Context, accountID, jti string, ttl time.Duration) error {
	return redis.Client().Set(ctx, redis.Key(tokenPrefix, "refresh", accountID, jti), "1", ttl).Err()
}

// ConsumeRefreshToken 原子取出，refresh token 只能使用一次
func ConsumeRefreshToken(ctx context.Context, accountID, jti string) (bool, error) {
	err := redis.Client().GetDel(ctx, redis.Key(tokenPrefix, "refresh", accountID, jti)).Err()
	if err == ri.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
