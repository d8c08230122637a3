package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"GreenNest/internal/cache"
	"GreenNest/pkg/response"
)

// HealthHandler 进程存活与远端依赖的熔断状态
type HealthHandler struct {
	breakers []*cache.CircuitBreaker
}

func NewHealthHandler(breakers ...*cache.CircuitBreaker) *HealthHandler {
	return &HealthHandler{breakers: breakers}
}

// Check 任一熔断器开启时 status 为 degraded，HTTP 状态仍为 200，避免上游故障导致实例被重启
// GET /healthz
func (h *HealthHandler) Check(ctx context.Context, c *app.RequestContext) {
	status := "ok"
	breakers := make([]map[string]interface{}, 0, len(h.breakers))
	for _, cb := range h.breakers {
		if cb.GetState() == cache.StateOpen {
			status = "degraded"
		}
		breakers = append(breakers, cb.GetStats())
	}

	response.Success(ctx, c, map[string]interface{}{
		"status":   status,
		"breakers": breakers,
	})
}
