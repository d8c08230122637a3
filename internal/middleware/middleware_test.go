package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "GreenNest/config"
)

func setupConfig(t *testing.T) {
	t.Helper()
	prev := appconfig.Cfg
	appconfig.Cfg.ServiceName = "greennest-test"
	appconfig.Cfg.SessionSecret = "session-secret-for-tests"
	appconfig.Cfg.SessionName = "gnst-session"
	appconfig.Cfg.CSRFEnabled = true
	appconfig.Cfg.CSRFSecret = "csrf-secret-for-tests"
	appconfig.Cfg.WizardTTLHours = 1
	t.Cleanup(func() { appconfig.Cfg = prev })
}

func newEngine() *route.Engine {
	return route.NewEngine(config.NewOptions([]config.Option{}))
}

// sessionCookie 取 Set-Cookie 的 name=value 部分
func sessionCookie(t *testing.T, w *ut.ResponseRecorder) string {
	t.Helper()
	raw := w.Header().Get("Set-Cookie")
	require.NotEmpty(t, raw)
	return strings.SplitN(raw, ";", 2)[0]
}

func decode(t *testing.T, w *ut.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRecoverMiddleware(t *testing.T) {
	e := newEngine()
	e.Use(RecoverMiddlewareWithConfig(RecoverConfig{IsProduction: true}))
	e.GET("/boom", func(ctx context.Context, c *app.RequestContext) {
		panic("watering can exploded")
	})

	w := ut.PerformRequest(e, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	body := decode(t, w)
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, "INTERNAL_SERVER_ERROR", errBody["code"])
	assert.NotContains(t, w.Body.String(), "watering can")
}

func TestRecoverMiddleware_DevelopmentDetails(t *testing.T) {
	e := newEngine()
	e.Use(RecoverMiddlewareWithConfig(RecoverConfig{EnableStackTrace: true, StackTraceLevel: "simple"}))
	e.GET("/boom", func(ctx context.Context, c *app.RequestContext) {
		panic("watering can exploded")
	})

	w := ut.PerformRequest(e, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "watering can exploded")
}

func TestIsSeverePanic(t *testing.T) {
	assert.True(t, isSeverePanic("fatal error: concurrent map writes"))
	assert.False(t, isSeverePanic("nil pointer"))
	assert.False(t, isSeverePanic(nil))
}

func TestCORSMiddleware(t *testing.T) {
	e := newEngine()
	e.Use(CORSMiddleware())
	e.GET("/ping", func(ctx context.Context, c *app.RequestContext) { c.String(http.StatusOK, "pong") })

	w := ut.PerformRequest(e, http.MethodOptions, "/ping", nil,
		ut.Header{Key: "Origin", Value: "https://greennest.example"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://greennest.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), CSRFHeader)

	w = ut.PerformRequest(e, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestWizardSessionMiddleware_StableID(t *testing.T) {
	setupConfig(t)
	e := newEngine()
	e.Use(SessionMiddleware(), WizardSessionMiddleware())
	e.GET("/id", func(ctx context.Context, c *app.RequestContext) {
		id, ok := GetWizardID(c)
		require.True(t, ok)
		c.String(http.StatusOK, id)
	})

	first := ut.PerformRequest(e, http.MethodGet, "/id", nil)
	require.Equal(t, http.StatusOK, first.Code)
	id := first.Body.String()
	assert.Len(t, id, 36)

	second := ut.PerformRequest(e, http.MethodGet, "/id", nil,
		ut.Header{Key: "Cookie", Value: sessionCookie(t, first)})
	assert.Equal(t, id, second.Body.String())

	other := ut.PerformRequest(e, http.MethodGet, "/id", nil)
	assert.NotEqual(t, id, other.Body.String())
}

func TestCSRFMiddleware(t *testing.T) {
	setupConfig(t)
	e := newEngine()
	e.Use(SessionMiddleware(), CSRFMiddleware())
	e.GET("/form", func(ctx context.Context, c *app.RequestContext) {
		c.String(http.StatusOK, CSRFToken(c))
	})
	e.POST("/form", func(ctx context.Context, c *app.RequestContext) {
		c.String(http.StatusOK, "saved")
	})

	page := ut.PerformRequest(e, http.MethodGet, "/form", nil)
	require.Equal(t, http.StatusOK, page.Code)
	csrfToken := page.Body.String()
	require.NotEmpty(t, csrfToken)
	cookie := sessionCookie(t, page)

	w := ut.PerformRequest(e, http.MethodPost, "/form", nil, ut.Header{Key: "Cookie", Value: cookie})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "CSRF_INVALID")

	w = ut.PerformRequest(e, http.MethodPost, "/form", nil,
		ut.Header{Key: "Cookie", Value: cookie},
		ut.Header{Key: CSRFHeader, Value: csrfToken},
	)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "saved", w.Body.String())
}

func TestCSRFMiddleware_Disabled(t *testing.T) {
	setupConfig(t)
	appconfig.Cfg.CSRFEnabled = false

	e := newEngine()
	e.Use(SessionMiddleware(), CSRFMiddleware())
	e.POST("/form", func(ctx context.Context, c *app.RequestContext) {
		assert.Empty(t, CSRFToken(c))
		c.String(http.StatusOK, "saved")
	})

	w := ut.PerformRequest(e, http.MethodPost, "/form", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter_Identifier(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{KeyPrefix: "rate:test", ByUserID: true, ByWizard: true})
	ctx := context.Background()

	c := app.NewContext(0)
	assert.Equal(t, "global", rl.identifier(ctx, c))

	c.Set(wizardContextKey, "w-1")
	assert.Equal(t, "wizard:w-1", rl.identifier(ctx, c))
	assert.Equal(t, "gnst:rate:test:wizard:w-1", rl.getKey(ctx, c))

	c.Set(IdentityKey, "42")
	assert.Equal(t, "user:42", rl.identifier(ctx, c))
	assert.Equal(t, "gnst:rate:test:block:user:42", rl.blockKey(ctx, c))
}

func TestRateLimitMiddleware_DisabledPassesThrough(t *testing.T) {
	setupConfig(t)
	appconfig.Cfg.RateLimitEnabled = false

	e := newEngine()
	e.Use(RateLimitMiddleware(AuthRateLimitConfig))
	e.GET("/ping", func(ctx context.Context, c *app.RequestContext) { c.String(http.StatusOK, "pong") })

	w := ut.PerformRequest(e, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
