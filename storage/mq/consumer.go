package mq

import (
	"context"
	stderrors "errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"GreenNest/pkg/errors"
	"GreenNest/pkg/logger"
)

type MessageHandler func(ctx context.Context, body []byte) error

type ConsumeOptions struct {
	Queue         string
	ConsumerTag   string
	PrefetchCount int
	Handler       MessageHandler
}

// Consume 阻塞消费直到 ctx 取消或连接关闭。
// 处理成功或 SkipMessageError 时 ack，其余错误 nack 进入死信队列，避免毒消息无限重投。
func Consume(ctx context.Context, opts ConsumeOptions) error {
	c := Connection()
	if c == nil {
		return fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := c.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if opts.PrefetchCount > 0 {
		if err := ch.Qos(opts.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	msgs, err := ch.Consume(
		opts.Queue,
		opts.ConsumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.Logger.Info("Started consuming messages",
		zap.String("queue", opts.Queue),
		zap.String("consumer_tag", opts.ConsumerTag),
		zap.Int("prefetch_count", opts.PrefetchCount),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %s", opts.Queue)
			}
			handle(ctx, opts, msg)
		}
	}
}

func handle(ctx context.Context, opts ConsumeOptions, msg amqp.Delivery) {
	finish := func(error) {}
	if tracer != nil {
		ctx, finish = tracer.StartDelivery(ctx, opts.Queue, msg)
	}

	err := opts.Handler(ctx, msg.Body)
	finish(err)

	var skip *errors.SkipMessageError
	switch {
	case err == nil:
		_ = msg.Ack(false)
	case stderrors.As(err, &skip):
		logger.Logger.Info("Skipped message",
			zap.String("queue", opts.Queue),
			zap.String("message_id", msg.MessageId),
			zap.String("reason", skip.Reason),
		)
		_ = msg.Ack(false)
	default:
		logger.Logger.Error("Failed to process message",
			zap.String("queue", opts.Queue),
			zap.String("consumer_tag", opts.ConsumerTag),
			zap.String("message_id", msg.MessageId),
			zap.Error(err),
		)
		_ = msg.Nack(false, false)
	}
}
