package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"GreenNest/pkg/logger"
)

// 发布端复用一个 channel，关闭后下次发布时重建
var (
	publisherCh *amqp.Channel
	pubMutex    sync.RWMutex
)

func getPublisherChannel() (*amqp.Channel, error) {
	pubMutex.RLock()
	if publisherCh != nil && !publisherCh.IsClosed() {
		ch := publisherCh
		pubMutex.RUnlock()
		return ch, nil
	}
	pubMutex.RUnlock()

	pubMutex.Lock()
	defer pubMutex.Unlock()

	if publisherCh != nil && !publisherCh.IsClosed() {
		return publisherCh, nil
	}

	c := Connection()
	if c == nil {
		return nil, fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := c.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open publish channel: %w", err)
	}
	publisherCh = ch

	go func(ch *amqp.Channel) {
		<-ch.NotifyClose(make(chan *amqp.Error, 1))

		pubMutex.Lock()
		if publisherCh == ch {
			publisherCh = nil
		}
		pubMutex.Unlock()

		logger.Logger.Warn("Publisher channel closed, will recreate on next publish",
			zap.String("component", "rabbitmq"),
		)
	}(ch)

	logger.Logger.Info("Publisher channel created", zap.String("component", "rabbitmq"))
	return ch, nil
}

func closePublisher() {
	pubMutex.Lock()
	defer pubMutex.Unlock()
	if publisherCh != nil && !publisherCh.IsClosed() {
		_ = publisherCh.Close()
	}
	publisherCh = nil
}

// PublishMessage 发送 JSON 持久化消息，messageID 用于消费端幂等
func PublishMessage(ctx context.Context, exchange, routingKey, messageID string, body interface{}) error {
	ch, err := getPublisherChannel()
	if err != nil {
		return err
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         bodyBytes,
		MessageId:    messageID,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	}

	if tracer != nil {
		err = tracer.Publish(ctx, ch, exchange, routingKey, msg)
	} else {
		err = ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
	}
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Publisher 适配到 service 层的事件发布接口
type Publisher struct{}

func (Publisher) Publish(ctx context.Context, exchange, routingKey, messageID string, body interface{}) error {
	return PublishMessage(ctx, exchange, routingKey, messageID, body)
}
