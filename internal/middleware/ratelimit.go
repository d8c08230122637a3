package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"GreenNest/config"
	"GreenNest/pkg/errors"
	"GreenNest/pkg/logger"
	"GreenNest/pkg/response"
	"GreenNest/storage/redis"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 时间窗口（秒）
	Window int
	// 时间窗口内最大请求数
	MaxRequests int
	// 限流键前缀
	KeyPrefix string
	// 按登录用户限流
	ByUserID bool
	// 按向导会话限流
	ByWizard bool
	// 按 IP 限流，前两者都取不到时使用
	ByIP bool
	// 超限后的封禁时长（秒），0 表示不封禁
	BlockDuration int
}

// AvailabilityRateLimitConfig 邮箱/昵称可用性检查，防止枚举已注册账户
var AvailabilityRateLimitConfig = RateLimitConfig{
	Window:        60,
	MaxRequests:   20,
	KeyPrefix:     "rate:availability",
	ByWizard:      true,
	ByIP:          true,
	BlockDuration: 300,
}

// SubmitRateLimitConfig 提交与上传
var SubmitRateLimitConfig = RateLimitConfig{
	Window:      60,
	MaxRequests: 5,
	KeyPrefix:   "rate:submit",
	ByWizard:    true,
	ByIP:        true,
}

// AuthRateLimitConfig 登录与刷新
var AuthRateLimitConfig = RateLimitConfig{
	Window:        60,
	MaxRequests:   5,
	KeyPrefix:     "rate:auth",
	ByIP:          true,
	BlockDuration: 900,
}

// RateLimiter 基于 Redis ZSET 的滑动窗口限流器
type RateLimiter struct {
	config RateLimitConfig
	client func() redislib.Cmdable
	now    func() time.Time
}

func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		config: config,
		client: func() redislib.Cmdable { return redis.Client() },
		now:    time.Now,
	}
}

// identifier 优先级：用户 > 向导会话 > IP
func (rl *RateLimiter) identifier(ctx context.Context, c *app.RequestContext) string {
	if rl.config.ByUserID {
		if userID, exists := GetUserID(ctx, c); exists {
			return "user:" + userID
		}
	}
	if rl.config.ByWizard {
		if id, ok := GetWizardID(c); ok {
			return "wizard:" + id
		}
	}
	if rl.config.ByIP {
		return "ip:" + c.ClientIP()
	}
	return "global"
}

func (rl *RateLimiter) getKey(ctx context.Context, c *app.RequestContext) string {
	return redis.Key(rl.config.KeyPrefix, rl.identifier(ctx, c))
}

func (rl *RateLimiter) blockKey(ctx context.Context, c *app.RequestContext) string {
	return redis.Key(rl.config.KeyPrefix, "block", rl.identifier(ctx, c))
}

// Allow 检查是否允许请求，返回窗口内的请求数
func (rl *RateLimiter) Allow(ctx context.Context, c *app.RequestContext) (bool, int, error) {
	key := rl.getKey(ctx, c)
	now := rl.now()
	windowStart := now.Add(-time.Duration(rl.config.Window) * time.Second)

	pipe := rl.client().Pipeline()
	// 先清掉窗口外的记录
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	pipe.ZAdd(ctx, key, redislib.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})
	zcardCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, time.Duration(rl.config.Window+10)*time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to execute pipeline: %w", err)
	}

	count := int(zcardCmd.Val())
	return count <= rl.config.MaxRequests, count, nil
}

func (rl *RateLimiter) Block(ctx context.Context, c *app.RequestContext) error {
	if rl.config.BlockDuration <= 0 {
		return nil
	}
	return rl.client().Set(ctx, rl.blockKey(ctx, c), "1", time.Duration(rl.config.BlockDuration)*time.Second).Err()
}

func (rl *RateLimiter) IsBlocked(ctx context.Context, c *app.RequestContext) (bool, error) {
	if rl.config.BlockDuration <= 0 {
		return false, nil
	}
	result, err := rl.client().Exists(ctx, rl.blockKey(ctx, c)).Result()
	return result > 0, err
}

// RateLimitMiddleware 创建限流中间件，RATE_LIMIT_ENABLED=false 时直接放行
func RateLimitMiddleware(cfg RateLimitConfig) app.HandlerFunc {
	if !config.Cfg.RateLimitEnabled {
		return func(ctx context.Context, c *app.RequestContext) { c.Next(ctx) }
	}
	return NewRateLimiter(cfg).Handler()
}

func (rl *RateLimiter) Handler() app.HandlerFunc {
	cfg := rl.config
	return func(ctx context.Context, c *app.RequestContext) {
		blocked, err := rl.IsBlocked(ctx, c)
		if err != nil {
			logger.Logger.Error("Failed to check block status", zap.Error(err))
			response.Error(ctx, c, errors.Internal)
			c.Abort()
			return
		}
		if blocked {
			response.Error(ctx, c, errors.TooManyRequests)
			c.Abort()
			return
		}

		allowed, count, err := rl.Allow(ctx, c)
		if err != nil {
			logger.Logger.Error("Failed to check rate limit", zap.Error(err))
			response.Error(ctx, c, errors.Internal)
			c.Abort()
			return
		}

		remaining := cfg.MaxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Response.Header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Response.Header.Set("X-RateLimit-Reset", strconv.FormatInt(rl.now().Add(time.Duration(cfg.Window)*time.Second).Unix(), 10))

		if !allowed {
			if err := rl.Block(ctx, c); err != nil {
				logger.Logger.Error("Failed to block client", zap.Error(err))
			}
			logger.Logger.Warn("Rate limit exceeded",
				zap.String("prefix", cfg.KeyPrefix),
				zap.String("path", string(c.Path())),
			)
			response.Error(ctx, c, errors.TooManyRequests)
			c.Abort()
			return
		}

		c.Next(ctx)
	}
}
