package database

import (
	"regexp"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanKey  = "otel:span"
	startKey = "otel:start_time"
)

var (
	dbQueriesTotal  metric.Int64Counter
	dbQueryDuration metric.Float64Histogram

	quotedValue = regexp.MustCompile(`'[^']*'`)
)

// InitDatabaseMetrics 初始化数据库指标
func InitDatabaseMetrics(meter metric.Meter) error {
	var err error

	dbQueriesTotal, err = meter.Int64Counter(
		"db.queries.total",
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return err
	}

	dbQueryDuration, err = meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	return err
}

// PluginConfig 插件配置
type PluginConfig struct {
	ServiceName  string
	DBSystem     attribute.KeyValue
	MaxSQLLength int
}

func DefaultPluginConfig(serviceName string) PluginConfig {
	return PluginConfig{
		ServiceName:  serviceName,
		DBSystem:     semconv.DBSystemPostgreSQL,
		MaxSQLLength: 500,
	}
}

// OTELPlugin GORM OpenTelemetry 插件，账户表的读写都会产生 span
type OTELPlugin struct {
	tracer trace.Tracer
	config PluginConfig
}

func NewOTELPlugin(config PluginConfig) *OTELPlugin {
	if config.ServiceName == "" {
		config.ServiceName = "greennest"
	}
	if config.MaxSQLLength <= 0 {
		config.MaxSQLLength = 500
	}
	return &OTELPlugin{
		tracer: otel.Tracer(config.ServiceName + ".gorm"),
		config: config,
	}
}

func (p *OTELPlugin) Name() string {
	return "otel_plugin"
}

// Initialize 注册回调，span 名称取自回调类型
func (p *OTELPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op       string
		register func(name string, before, after func(*gorm.DB)) error
	}{
		{"select", func(name string, before, after func(*gorm.DB)) error {
			if err := cb.Query().Before("gorm:query").Register("otel:before_"+name, before); err != nil {
				return err
			}
			return cb.Query().After("gorm:query").Register("otel:after_"+name, after)
		}},
		{"insert", func(name string, before, after func(*gorm.DB)) error {
			if err := cb.Create().Before("gorm:create").Register("otel:before_"+name, before); err != nil {
				return err
			}
			return cb.Create().After("gorm:create").Register("otel:after_"+name, after)
		}},
		{"update", func(name string, before, after func(*gorm.DB)) error {
			if err := cb.Update().Before("gorm:update").Register("otel:before_"+name, before); err != nil {
				return err
			}
			return cb.Update().After("gorm:update").Register("otel:after_"+name, after)
		}},
		{"delete", func(name string, before, after func(*gorm.DB)) error {
			if err := cb.Delete().Before("gorm:delete").Register("otel:before_"+name, before); err != nil {
				return err
			}
			return cb.Delete().After("gorm:delete").Register("otel:after_"+name, after)
		}},
		{"row", func(name string, before, after func(*gorm.DB)) error {
			if err := cb.Row().Before("gorm:row").Register("otel:before_"+name, before); err != nil {
				return err
			}
			return cb.Row().After("gorm:row").Register("otel:after_"+name, after)
		}},
		{"raw", func(name string, before, after func(*gorm.DB)) error {
			if err := cb.Raw().Before("gorm:raw").Register("otel:before_"+name, before); err != nil {
				return err
			}
			return cb.Raw().After("gorm:raw").Register("otel:after_"+name, after)
		}},
	}

	for _, h := range hooks {
		if err := h.register(h.op, p.before(h.op), p.after(h.op)); err != nil {
			return err
		}
	}
	return nil
}

func (p *OTELPlugin) before(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx, span := p.tracer.Start(db.Statement.Context, "db."+op,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				p.config.DBSystem,
				attribute.String("service.name", p.config.ServiceName),
			),
		)
		db.InstanceSet(startKey, time.Now())
		db.InstanceSet(spanKey, span)
		db.Statement.Context = ctx
	}
}

func (p *OTELPlugin) after(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(spanKey)
		if !ok {
			return
		}
		span, ok := v.(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		if table := db.Statement.Table; table != "" {
			span.SetAttributes(attribute.String("db.table", table))
		}
		span.SetAttributes(
			semconv.DBStatement(p.sanitizeSQL(db.Statement.SQL.String())),
			attribute.Int64("db.rows_affected", db.Statement.RowsAffected),
		)

		status := "success"
		switch {
		case db.Error == nil:
			span.SetStatus(codes.Ok, "Success")
		case db.Error == gorm.ErrRecordNotFound:
			span.SetStatus(codes.Ok, "Record not found")
		default:
			status = "error"
			span.SetStatus(codes.Error, db.Error.Error())
			span.RecordError(db.Error)
		}

		if dbQueriesTotal == nil {
			return
		}
		var elapsed float64
		if start, ok := db.InstanceGet(startKey); ok {
			if t, ok := start.(time.Time); ok {
				elapsed = time.Since(t).Seconds()
			}
		}
		labels := metric.WithAttributes(
			attribute.String("db.operation", op),
			attribute.String("db.status", status),
		)
		dbQueriesTotal.Add(db.Statement.Context, 1, labels)
		dbQueryDuration.Record(db.Statement.Context, elapsed, labels)
	}
}

// sanitizeSQL 截断并抹掉字面量，密码哈希之类的值不会进入 trace
func (p *OTELPlugin) sanitizeSQL(sql string) string {
	if len(sql) > p.config.MaxSQLLength {
		sql = sql[:p.config.MaxSQLLength] + "..."
	}
	return quotedValue.ReplaceAllString(sql, "'?'")
}

// WithOTELPlugin 为 GORM 添加 OpenTelemetry 插件
func WithOTELPlugin(db *gorm.DB, config PluginConfig) error {
	return db.Use(NewOTELPlugin(config))
}
