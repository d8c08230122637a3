package logger

import (
	"io"
	"os"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzap "github.com/hertz-contrib/logger/zap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"GreenNest/config"
)

// Logger 在 Init 之前为 no-op，单元测试可以直接调用
var (
	Logger   = zap.NewNop()
	logClose io.Closer
)

// options 从配置中取出的日志参数
type options struct {
	level       zapcore.Level
	text        bool
	output      string
	service     string
	environment string
}

func optionsFromConfig(cfg config.Config) options {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.LoggerLevel))
	if err != nil {
		level = zapcore.InfoLevel
	}
	return options{
		level:       level,
		text:        cfg.IsDevelopment() || strings.EqualFold(cfg.LoggerFormat, "text"),
		output:      cfg.LoggerOutputPath,
		service:     cfg.ServiceName,
		environment: cfg.Environment,
	}
}

// Init 安装 zap 作为 hertz 的 hlog，并设置全局 Logger
func Init() {
	opts := optionsFromConfig(config.Cfg)

	ws, closer, err := openOutput(opts.output)
	if err != nil {
		panic("failed to open log file: " + err.Error())
	}
	logClose = closer

	coreLevel := zap.NewAtomicLevelAt(opts.level)
	hzLogger := hertzzap.NewLogger(
		hertzzap.WithCoreEnc(newEncoder(opts.text)),
		hertzzap.WithCoreWs(ws),
		hertzzap.WithCoreLevel(coreLevel),
		hertzzap.WithZapOptions(
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		),
	)
	hlog.SetLogger(hzLogger)
	hlog.SetLevel(hlogLevel(opts.level))

	Logger = hzLogger.Logger().With(
		zap.String("service", opts.service),
		zap.String("env", opts.environment),
	)
	Logger.Info("Logger initialized",
		zap.String("level", opts.level.CapitalString()),
		zap.Bool("text", opts.text),
		zap.String("output", opts.output),
	)
}

func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
	if logClose != nil {
		_ = logClose.Close()
	}
}

// WizardID 向导 id 同时是 Redis 草稿的键，日志里只保留前 8 位
func WizardID(id string) zap.Field {
	if len(id) > 8 {
		id = id[:8] + "…"
	}
	return zap.String("wizard", id)
}

func newEncoder(text bool) zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder

	if text {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encCfg)
	}
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encCfg)
}

// openOutput stdout/stderr 直接输出，其余视为文件路径
func openOutput(path string) (zapcore.WriteSyncer, io.Closer, error) {
	switch strings.ToLower(path) {
	case "", "stdout":
		return zapcore.AddSync(os.Stdout), nil, nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil, nil
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return zapcore.AddSync(file), file, nil
}

func hlogLevel(level zapcore.Level) hlog.Level {
	switch {
	case level <= zapcore.DebugLevel:
		return hlog.LevelDebug
	case level == zapcore.InfoLevel:
		return hlog.LevelInfo
	case level == zapcore.WarnLevel:
		return hlog.LevelWarn
	default:
		return hlog.LevelError
	}
}
