package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"8888"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"greennest"`

	// PostgreSQL 配置
	PostgreSQLHost     string `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string `env:"POSTGRESQL_DATABASE" envDefault:"greennest"`
	PostgreSQLSchema   string `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int    `env:"POSTGRESQL_MAX_IDLE" envDefault:"30"`
	PostgreSQLMaxOpen  int    `env:"POSTGRESQL_MAX_OPEN" envDefault:"200"`

	// Redis 配置
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"gnst"`

	// RabbitMQ 配置
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// JWT 配置
	JWTSecret        string `env:"JWT_SECRET"` // 必填，用于签名 JWT
	JWTExpireMinutes int    `env:"JWT_EXPIRE_MINUTES" envDefault:"30"`
	JWTRefreshDays   int    `env:"JWT_REFRESH_DAYS" envDefault:"7"`

	// 会话与 CSRF 配置，注册向导依赖 cookie 会话
	SessionSecret string `env:"SESSION_SECRET"`
	SessionName   string `env:"SESSION_NAME" envDefault:"gnst-session"`
	CSRFSecret    string `env:"CSRF_SECRET"`
	CSRFEnabled   bool   `env:"CSRF_ENABLED" envDefault:"true"`

	// 注册向导配置
	WizardStorageName       string `env:"WIZARD_STORAGE_NAME" envDefault:"signup-storage"`
	WizardTTLHours          int    `env:"WIZARD_TTL_HOURS" envDefault:"72"`
	WizardRedirectSettleMS  int    `env:"WIZARD_REDIRECT_SETTLE_MS" envDefault:"1000"`
	WizardLoginPath         string `env:"WIZARD_LOGIN_PATH" envDefault:"/login"`
	WizardIdleSweepMinutes  int    `env:"WIZARD_IDLE_SWEEP_MINUTES" envDefault:"30"`
	AccountAPIBaseURL       string `env:"ACCOUNT_API_BASE_URL"` // 为空时使用进程内账户服务
	AccountAPITimeoutMillis int    `env:"ACCOUNT_API_TIMEOUT_MS" envDefault:"3000"`

	// 对象存储（S3 兼容）配置
	StorageEndpoint     string `env:"STORAGE_ENDPOINT"`
	StorageRegion       string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	StorageBucket       string `env:"STORAGE_BUCKET" envDefault:"greennest-profiles"`
	StorageAccessKey    string `env:"STORAGE_ACCESS_KEY"`
	StorageSecretKey    string `env:"STORAGE_SECRET_KEY"`
	StorageUsePathStyle bool   `env:"STORAGE_USE_PATH_STYLE" envDefault:"true"`
	StoragePublicURL    string `env:"STORAGE_PUBLIC_URL"`
	UploadMaxBytes      int64  `env:"UPLOAD_MAX_BYTES" envDefault:"5242880"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// 链路追踪配置
	TracingEnabled bool    `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint   string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4317"`
	TracingSampler float64 `env:"TRACING_SAMPLER" envDefault:"0.1"`

	// 速率限制配置, 配置在中间件内
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS     int  `env:"RATE_LIMIT_RPS" envDefault:"100"` // 每秒请求数
}

// Load 读取 .env 与环境变量并校验，服务启动时调用一次
func Load() error {
	if err := godotenv.Load(); err != nil {
		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	Cfg = cfg
	return nil
}

// Validate 校验必填项，非致命缺失仅打印告警
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}

	if c.CSRFEnabled && c.CSRFSecret == "" {
		return fmt.Errorf("CSRF_SECRET is required when CSRF_ENABLED=true")
	}

	if c.WizardRedirectSettleMS < 0 {
		return fmt.Errorf("WIZARD_REDIRECT_SETTLE_MS must not be negative")
	}

	if c.StorageAccessKey == "" {
		log.Printf("WARN: STORAGE_ACCESS_KEY is not set, profile images are kept in memory")
	}

	if c.AccountAPIBaseURL == "" {
		log.Printf("WARN: ACCOUNT_API_BASE_URL is not set, using the in-process account service")
	}

	return nil
}

func (c *Config) GetDSN() string {
	return "host=" + c.PostgreSQLHost +
		" port=" + c.PostgreSQLPort +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

// WizardTTL 向导草稿在 Redis 中的保留时长
func (c *Config) WizardTTL() time.Duration {
	return time.Duration(c.WizardTTLHours) * time.Hour
}

// RedirectSettleDelay 注册成功跳转后清除重定向状态的延迟
func (c *Config) RedirectSettleDelay() time.Duration {
	return time.Duration(c.WizardRedirectSettleMS) * time.Millisecond
}

func (c *Config) AccountAPITimeout() time.Duration {
	return time.Duration(c.AccountAPITimeoutMillis) * time.Millisecond
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
