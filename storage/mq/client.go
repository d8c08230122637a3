package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"GreenNest/config"
	mqotel "GreenNest/pkg/mq"
	"GreenNest/pkg/logger"
)

// 账户事件拓扑
const (
	ExchangeAccount        = "account.topic"
	RoutingAccountCreated  = "account.created"
	QueueAccountWelcome    = "account.created.welcome"
	QueueAccountWelcomeDLQ = "account.created.welcome.dlq"
	exchangeDeadLetter     = "account.dlx"
)

var (
	conn   *amqp.Connection
	connMu sync.RWMutex
	tracer *mqotel.Tracer
)

func Init() error {
	connMu.Lock()
	defer connMu.Unlock()

	if conn != nil && !conn.IsClosed() {
		return nil
	}

	c, err := amqp.Dial(config.Cfg.GetRabbitMQURL())
	if err != nil {
		return fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}

	if err := declareTopology(c); err != nil {
		_ = c.Close()
		return err
	}

	if config.Cfg.TracingEnabled {
		if err := mqotel.InitMQMetrics(otel.Meter(config.Cfg.ServiceName + ".rabbitmq")); err != nil {
			logger.Logger.Warn("Failed to init RabbitMQ metrics", zap.Error(err))
		}
		tracer = mqotel.NewTracer(config.Cfg.ServiceName)
	}

	conn = c
	logger.Logger.Info("RabbitMQ initialized successfully",
		zap.String("addr", config.Cfg.RabbitMQAddr),
		zap.String("vhost", config.Cfg.RabbitMQVhost),
	)
	return nil
}

// declareTopology 声明交换机与队列，处理失败的消息进入死信队列
func declareTopology(c *amqp.Connection) error {
	ch, err := c.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(ExchangeAccount, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", ExchangeAccount, err)
	}
	if err := ch.ExchangeDeclare(exchangeDeadLetter, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchangeDeadLetter, err)
	}

	if _, err := ch.QueueDeclare(QueueAccountWelcomeDLQ, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", QueueAccountWelcomeDLQ, err)
	}
	if err := ch.QueueBind(QueueAccountWelcomeDLQ, "", exchangeDeadLetter, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", QueueAccountWelcomeDLQ, err)
	}

	if _, err := ch.QueueDeclare(QueueAccountWelcome, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": exchangeDeadLetter,
	}); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", QueueAccountWelcome, err)
	}
	if err := ch.QueueBind(QueueAccountWelcome, RoutingAccountCreated, ExchangeAccount, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", QueueAccountWelcome, err)
	}

	return nil
}

// Connection 未初始化时返回 nil
func Connection() *amqp.Connection {
	connMu.RLock()
	defer connMu.RUnlock()
	return conn
}

func Close(ctx context.Context) error {
	closePublisher()

	connMu.Lock()
	c := conn
	conn = nil
	connMu.Unlock()

	if c == nil || c.IsClosed() {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
