package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"GreenNest/internal/handler"
	"GreenNest/internal/middleware"
)

// Handlers 路由依赖的处理器
type Handlers struct {
	Signup  *handler.SignupHandler
	Account *handler.AccountHandler
	File    *handler.FileHandler
	Auth    *handler.AuthHandler
	User    *handler.UserHandler
	Health  *handler.HealthHandler
}

func Register(h *server.Hertz, hs Handlers) {
	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	h.GET("/healthz", hs.Health.Check)

	// 注册向导：cookie 会话 + CSRF，向导 id 存在会话里
	signup := h.Group("/signup",
		middleware.SessionMiddleware(),
		middleware.CSRFMiddleware(),
		middleware.WizardSessionMiddleware(),
	)
	{
		signup.GET("", hs.Signup.Start)
		signup.GET("/:step", hs.Signup.GetStep)
		signup.PATCH("/:step", hs.Signup.PatchStep)
		signup.POST("/:step/next", hs.Signup.NextStep)
		signup.POST("/back", hs.Signup.Back)

		check := signup.Group("", middleware.RateLimitMiddleware(middleware.AvailabilityRateLimitConfig))
		{
			check.POST("/check-email", hs.Signup.CheckEmail)
			check.POST("/check-nickname", hs.Signup.CheckNickname)
		}

		signup.POST("/complete", middleware.RateLimitMiddleware(middleware.SubmitRateLimitConfig), hs.Signup.Complete)
		signup.POST("/finalize", hs.Signup.Finalize)
	}

	v1 := h.Group("/v1")

	// 账户服务，向导配置远程 AccountAPI 时调用这些接口
	accounts := v1.Group("/accounts")
	{
		accounts.GET("/email-availability", hs.Account.EmailAvailability)
		accounts.GET("/nickname-availability", hs.Account.NicknameAvailability)
		accounts.POST("", hs.Account.CreateAccount)
	}

	v1.POST("/files", middleware.RateLimitMiddleware(middleware.SubmitRateLimitConfig), hs.File.Upload)
	h.GET("/files/*key", hs.File.Serve)

	auth := v1.Group("/auth")
	auth.Use(middleware.RateLimitMiddleware(middleware.AuthRateLimitConfig))
	{
		auth.POST("/login", hs.Auth.Login)
		auth.POST("/token/refresh", hs.Auth.RefreshToken)
	}

	users := v1.Group("/users")
	users.Use(middleware.AuthMiddleware())
	{
		users.GET("/me", hs.User.GetUserProfile)
	}
}
