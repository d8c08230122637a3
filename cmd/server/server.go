package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"GreenNest/config"
	"GreenNest/internal/accountapi"
	"GreenNest/internal/cache"
	"GreenNest/internal/handler"
	"GreenNest/internal/middleware"
	"GreenNest/internal/objectstore"
	"GreenNest/internal/router"
	"GreenNest/internal/service"
	"GreenNest/internal/wizard"
	"GreenNest/pkg/logger"
	"GreenNest/pkg/metrics"
	gnotel "GreenNest/pkg/otel"
	"GreenNest/pkg/snowflake"
	"GreenNest/pkg/token"
	"GreenNest/storage"
	"GreenNest/storage/redis"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}

	// 日志部分
	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	cfg := config.Cfg

	// 链路追踪需要在存储层之前初始化，Redis 与 GORM 的 hook 依赖全局 provider
	var serverOpts []hertzconfig.Option
	var tracerMW []app.HandlerFunc
	if cfg.TracingEnabled {
		shutdown, err := gnotel.InitOpenTelemetry(ctx, gnotel.Config{
			ServiceName:  cfg.ServiceName,
			Environment:  cfg.Environment,
			OTLPEndpoint: cfg.OTLPEndpoint,
			SampleRatio:  cfg.TracingSampler,
		})
		if err != nil {
			logger.Logger.Warn("Failed to initialize OpenTelemetry, tracing disabled", zap.Error(err))
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
				}
			}()

			if err := metrics.InitMetrics(cfg.ServiceName); err != nil {
				logger.Logger.Warn("Failed to initialize business metrics", zap.Error(err))
			}
			if err := middleware.InitMetrics(otel.Meter(cfg.ServiceName + ".http")); err != nil {
				logger.Logger.Warn("Failed to initialize HTTP metrics", zap.Error(err))
			}

			tracerOpt, tracerHandler := middleware.NewServerTracerConfig()
			serverOpts = append(serverOpts, tracerOpt)
			tracerMW = append(tracerMW, tracerHandler)
		}
	}

	// 初始化存储层，记得关闭外部连接
	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(cfg.SnowflakeMachineID, cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	if err := token.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize token package", zap.Error(err))
	} // token 在中间件前初始化，middleware 依赖 token

	if err := middleware.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize middlewares", zap.Error(err))
	}

	accounts := service.Account()
	api, uploader, memory := buildCollaborators(ctx, accounts)

	persister := cache.NewRedisPersister(redis.Client(), cfg.WizardStorageName, cfg.WizardTTL())
	wizards := service.NewWizardServiceFromConfig(persister, api, uploader)
	go wizards.Run(ctx)

	logger.Logger.Info("Server starting",
		zap.String("service", cfg.ServiceName),
		zap.String("port", cfg.ServerPort),
		zap.String("environment", cfg.Environment),
	)

	addr := net.JoinHostPort(cfg.ServerHost, cfg.ServerPort)
	serverOpts = append(serverOpts,
		server.WithHostPorts(addr),
		// multipart 头与表单字段留出 1MB 余量，文件本身的上限由 handler 校验
		server.WithMaxRequestBodySize(int(cfg.UploadMaxBytes)+1<<20),
	)
	h := server.Default(serverOpts...)
	// 追踪中间件需在路由中间件之前注册，span 才能覆盖整个请求
	h.Use(tracerMW...)

	router.Register(h, router.Handlers{
		Signup:  handler.NewSignupHandler(wizards, cfg.UploadMaxBytes),
		Account: handler.NewAccountHandler(accounts),
		File:    handler.NewFileHandler(uploader, memory, cfg.UploadMaxBytes),
		Auth:    handler.NewAuthHandler(service.Auth()),
		User:    handler.NewUserHandler(service.User()),
		Health:  handler.NewHealthHandler(cache.AccountAPIBreaker, cache.UploadBreaker),
	})

	// 优雅关闭：在单独的 goroutine 中监听关闭信号并调用 Shutdown
	go func() {
		<-ctx.Done()
		logger.Logger.Info("Initiating graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
	}()

	logger.Logger.Info("HTTP server listening", zap.String("addr", addr))

	h.Spin()

	logger.Logger.Info("Server shutting down gracefully")
}

// buildCollaborators 配置了 ACCOUNT_API_BASE_URL 时走远端账户服务，否则使用进程内实现。
// memory 仅在使用内存存储时非 nil，供 /files 读取。
func buildCollaborators(ctx context.Context, accounts *service.AccountService) (wizard.AccountAPI, wizard.Uploader, *objectstore.MemoryStorage) {
	cfg := config.Cfg

	if cfg.AccountAPIBaseURL != "" {
		remote, err := accountapi.NewClient(cfg.AccountAPIBaseURL, cfg.AccountAPITimeout())
		if err != nil {
			logger.Logger.Fatal("Failed to create account API client", zap.Error(err))
		}
		logger.Logger.Info("Using remote account API", zap.String("base_url", cfg.AccountAPIBaseURL))
		return remote, remote, nil
	}

	local := service.NewLocalAccountAPI(accounts)

	if cfg.StorageAccessKey != "" {
		s3, err := objectstore.NewS3Storage(ctx, cfg)
		if err != nil {
			logger.Logger.Fatal("Failed to create object storage client", zap.Error(err))
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			logger.Logger.Fatal("Failed to ensure object storage bucket", zap.Error(err))
		}
		return local, objectstore.NewUploader(s3, cfg.UploadMaxBytes), nil
	}

	memory := objectstore.NewMemoryStorage()
	return local, objectstore.NewUploader(memory, cfg.UploadMaxBytes), memory
}
