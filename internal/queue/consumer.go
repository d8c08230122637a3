package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"GreenNest/internal/cache"
	"GreenNest/internal/model"
	"GreenNest/pkg/errors"
	"GreenNest/pkg/logger"
	"GreenNest/pkg/metrics"
	"GreenNest/storage/mq"
)

// MessageMarker 消息幂等标记，默认基于 Redis SETNX
type MessageMarker interface {
	TryMark(ctx context.Context, messageID string, ttl time.Duration) (bool, error)
	Unmark(ctx context.Context, messageID string) error
	MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) error
}

type redisMarker struct{}

func (redisMarker) TryMark(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	return cache.TryMarkMessageProcessing(ctx, messageID, ttl)
}

func (redisMarker) Unmark(ctx context.Context, messageID string) error {
	return cache.UnmarkMessageProcessing(ctx, messageID)
}

func (redisMarker) MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	return cache.MarkMessageProcessed(ctx, messageID, ttl)
}

// Notifier 欢迎通知的发送方，邮件服务商在仓库之外
type Notifier interface {
	Welcome(ctx context.Context, msg model.AccountCreatedMessage) error
}

// LogNotifier 只记录一条欢迎通知日志
type LogNotifier struct{}

func (LogNotifier) Welcome(ctx context.Context, msg model.AccountCreatedMessage) error {
	logger.Logger.Info("Welcome notice queued",
		zap.String("account_id", msg.AccountID),
		zap.String("nickname", msg.Nickname),
		zap.Bool("with_image", msg.WithImage),
	)
	return nil
}

// WelcomeConsumer 消费 account.created，每个 message_id 只发送一次
type WelcomeConsumer struct {
	marker   MessageMarker
	notifier Notifier
}

func NewWelcomeConsumer(marker MessageMarker, notifier Notifier) *WelcomeConsumer {
	if marker == nil {
		marker = redisMarker{}
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &WelcomeConsumer{marker: marker, notifier: notifier}
}

// Handle 处理单条消息，返回 SkipMessageError 表示重复消息
func (w *WelcomeConsumer) Handle(ctx context.Context, body []byte) error {
	var msg model.AccountCreatedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		metrics.RecordWelcomeNotification(ctx, "invalid")
		return fmt.Errorf("failed to unmarshal account created message: %w", err)
	}
	if msg.MessageID == "" || msg.AccountID == "" {
		metrics.RecordWelcomeNotification(ctx, "invalid")
		return fmt.Errorf("account created message missing ids")
	}

	first, err := w.marker.TryMark(ctx, msg.MessageID, 24*time.Hour)
	if err != nil {
		// 标记失败时继续处理，宁可重复也不丢
		logger.Logger.Warn("Failed to check message processed status",
			zap.String("message_id", msg.MessageID),
			zap.Error(err),
		)
	} else if !first {
		metrics.RecordWelcomeNotification(ctx, "duplicate")
		return &errors.SkipMessageError{Reason: fmt.Sprintf("Message %s already processed", msg.MessageID)}
	}

	if err := w.notifier.Welcome(ctx, msg); err != nil {
		if uerr := w.marker.Unmark(ctx, msg.MessageID); uerr != nil {
			logger.Logger.Warn("Failed to unmark message", zap.String("message_id", msg.MessageID), zap.Error(uerr))
		}
		metrics.RecordWelcomeNotification(ctx, "failed")
		return fmt.Errorf("failed to send welcome notice: %w", err)
	}

	if err := w.marker.MarkProcessed(ctx, msg.MessageID, 48*time.Hour); err != nil {
		logger.Logger.Warn("Failed to mark message as processed",
			zap.String("message_id", msg.MessageID),
			zap.Error(err),
		)
	}
	metrics.RecordWelcomeNotification(ctx, "sent")
	return nil
}

// Start 阻塞消费直到 ctx 取消
func (w *WelcomeConsumer) Start(ctx context.Context) error {
	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         mq.QueueAccountWelcome,
		ConsumerTag:   "account_welcome_consumer",
		PrefetchCount: 10,
		Handler:       w.Handle,
	})
}
