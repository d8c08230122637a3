package middleware

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
	"github.com/hertz-contrib/csrf"
	"github.com/hertz-contrib/sessions"
	"github.com/hertz-contrib/sessions/cookie"
	"go.uber.org/zap"

	"GreenNest/config"
	"GreenNest/pkg/errors"
	"GreenNest/pkg/logger"
	"GreenNest/pkg/response"
)

const (
	// CSRFHeader 前端提交时携带的令牌头
	CSRFHeader = "X-CSRF-Token"

	wizardSessionKey = "wizard_id"
	wizardContextKey = "wizard_id"
)

// SessionMiddleware cookie 会话，有效期与向导草稿一致
func SessionMiddleware() app.HandlerFunc {
	cfg := config.Cfg
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.WizardTTL().Seconds()),
		Secure:   cfg.IsProduction(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.New(cfg.SessionName, store)
}

// CSRFMiddleware 依赖 SessionMiddleware，GET/HEAD/OPTIONS 不校验
func CSRFMiddleware() app.HandlerFunc {
	if !config.Cfg.CSRFEnabled {
		return func(ctx context.Context, c *app.RequestContext) { c.Next(ctx) }
	}

	return csrf.New(
		csrf.WithSecret(config.Cfg.CSRFSecret),
		csrf.WithKeyLookUp("header:"+CSRFHeader),
		csrf.WithErrorFunc(func(ctx context.Context, c *app.RequestContext) {
			response.Error(ctx, c, errors.CSRFInvalid)
			c.Abort()
		}),
	)
}

// CSRFToken 当前会话的令牌，CSRF 关闭时为空
func CSRFToken(c *app.RequestContext) string {
	if !config.Cfg.CSRFEnabled {
		return ""
	}
	return csrf.GetToken(c)
}

// WizardSessionMiddleware 为每个浏览器会话分配向导 id
func WizardSessionMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		session := sessions.Default(c)
		id, _ := session.Get(wizardSessionKey).(string)
		if id == "" {
			id = uuid.NewString()
			session.Set(wizardSessionKey, id)
			if err := session.Save(); err != nil {
				logger.Logger.Error("Failed to save wizard session", zap.Error(err))
				response.Error(ctx, c, err)
				c.Abort()
				return
			}
		}

		c.Set(wizardContextKey, id)
		c.Next(ctx)
	}
}

// GetWizardID 由 WizardSessionMiddleware 写入
func GetWizardID(c *app.RequestContext) (string, bool) {
	id := c.GetString(wizardContextKey)
	return id, id != ""
}
