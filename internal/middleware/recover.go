package middleware

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"GreenNest/config"
	"GreenNest/pkg/errors"
	"GreenNest/pkg/logger"
	"GreenNest/pkg/response"
)

// RecoverConfig recover 中间件配置
type RecoverConfig struct {
	// 是否启用堆栈追踪
	EnableStackTrace bool
	// 堆栈追踪级别（full, simple, none）
	StackTraceLevel string
	// 生产环境是否返回详细错误
	ExposeDetailsInProduction bool
	// 是否在 span 中记录异常
	RecordInSpan bool
	// 严重错误回调
	OnSevereError func(ctx context.Context, c *app.RequestContext, err interface{}, stack []byte)
	IsProduction  bool
}

func NewRecoverConfig() RecoverConfig {
	return RecoverConfig{
		EnableStackTrace: true,
		StackTraceLevel:  "simple",
		RecordInSpan:     true,
		IsProduction:     config.Cfg.IsProduction(),
	}
}

// RecoverMiddleware 使用启动时的配置
func RecoverMiddleware() app.HandlerFunc {
	return RecoverMiddlewareWithConfig(NewRecoverConfig())
}

func RecoverMiddlewareWithConfig(config RecoverConfig) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				handlePanic(ctx, c, err, config)
			}
		}()

		c.Next(ctx)
	}
}

func handlePanic(ctx context.Context, c *app.RequestContext, err interface{}, config RecoverConfig) {
	var stack []byte
	if config.EnableStackTrace {
		stack = getStackTrace(config.StackTraceLevel)
	}

	logPanic(ctx, c, err, stack, config)

	if config.OnSevereError != nil && isSeverePanic(err) {
		config.OnSevereError(ctx, c, err, stack)
	}

	writeErrorResponse(ctx, c, err, stack, config)
	c.Abort()
}

func writeErrorResponse(ctx context.Context, c *app.RequestContext, err interface{}, stack []byte, config RecoverConfig) {
	if config.IsProduction && !config.ExposeDetailsInProduction {
		response.Error(ctx, c, errors.Internal)
		return
	}

	details := map[string]interface{}{
		"panic":     fmt.Sprintf("%v", err),
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if config.EnableStackTrace {
		details["stack"] = string(stack)
	}
	response.ErrorWithDetails(ctx, c, errors.Internal.WithMessage(fmt.Sprintf("Internal error: %v", err)), details)
}

func getStackTrace(level string) []byte {
	var buf bytes.Buffer

	switch level {
	case "full":
		buf.Write(debug.Stack())
	case "simple":
		buf.WriteString("goroutine panic:\n")
		// 跳过 runtime 与 recover 自身
		for i := 3; ; i++ {
			pc, file, line, ok := runtime.Caller(i)
			if !ok {
				break
			}
			fn := runtime.FuncForPC(pc)
			if fn == nil || strings.Contains(file, "/runtime/") {
				continue
			}
			fmt.Fprintf(&buf, "  %s:%d\n    %s\n", file, line, fn.Name())
		}
	}

	return buf.Bytes()
}

// logPanic 不记录请求体，注册表单里有密码
func logPanic(ctx context.Context, c *app.RequestContext, err interface{}, stack []byte, config RecoverConfig) {
	fields := []zap.Field{
		zap.String("panic", fmt.Sprintf("%v", err)),
		zap.String("path", string(c.Path())),
		zap.String("method", string(c.Method())),
		zap.String("client_ip", c.ClientIP()),
		zap.String("request_id", string(c.GetHeader("X-Request-ID"))),
	}
	if userID, exists := GetUserID(ctx, c); exists {
		fields = append(fields, zap.String("user_id", userID))
	}
	if wizardID, ok := GetWizardID(c); ok {
		fields = append(fields, logger.WizardID(wizardID))
	}
	if config.EnableStackTrace {
		fields = append(fields, zap.ByteString("stack", stack))
	}

	if config.RecordInSpan {
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.RecordError(fmt.Errorf("panic: %v", err))
			span.SetStatus(codes.Error, "panic recovered")
		}
	}

	logger.Logger.Error("[PANIC RECOVERED]", fields...)
	if isSeverePanic(err) {
		logger.Logger.Error("[SEVERE PANIC DETECTED]", fields...)
	}
}

func isSeverePanic(err interface{}) bool {
	if err == nil {
		return false
	}

	errStr := fmt.Sprintf("%v", err)
	for _, pattern := range []string{
		"runtime: out of memory",
		"fatal error:",
		"concurrent map writes",
		"concurrent map read and map write",
		"all goroutines are asleep - deadlock!",
		"unexpected signal",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
