package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"GreenNest/config"
	"GreenNest/internal/queue"
	"GreenNest/pkg/logger"
	"GreenNest/pkg/metrics"
	gnotel "GreenNest/pkg/otel"
	"GreenNest/storage"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}

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
	if cfg.TracingEnabled {
		shutdown, err := gnotel.InitOpenTelemetry(ctx, gnotel.Config{
			ServiceName:  cfg.ServiceName + "-worker",
			Environment:  cfg.Environment,
			OTLPEndpoint: cfg.OTLPEndpoint,
			SampleRatio:  cfg.TracingSampler,
		})
		if err != nil {
			logger.Logger.Warn("Failed to initialize OpenTelemetry, tracing disabled", zap.Error(err))
		} else {
			defer func() { _ = shutdown(context.Background()) }()
			if err := metrics.InitMetrics(cfg.ServiceName + "-worker"); err != nil {
				logger.Logger.Warn("Failed to initialize business metrics", zap.Error(err))
			}
		}
	}

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	logger.Logger.Info("Worker service starting",
		zap.String("service", cfg.ServiceName+"-worker"),
		zap.String("environment", cfg.Environment),
	)

	// 欢迎通知消费者，阻塞到收到退出信号
	if err := queue.NewWelcomeConsumer(nil, nil).Start(ctx); err != nil && ctx.Err() == nil {
		logger.Logger.Error("Welcome consumer stopped", zap.Error(err))
	}

	logger.Logger.Info("Worker service shutting down gracefully")
}
