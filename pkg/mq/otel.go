package mq

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	// RabbitMQ 相关指标，未初始化时只做追踪
	mqMessagesTotal   metric.Int64Counter
	mqMessageDuration metric.Float64Histogram
	mqPublishErrors   metric.Int64Counter
	mqConsumeErrors   metric.Int64Counter
)

// InitMQMetrics 初始化 RabbitMQ 指标
func InitMQMetrics(meter metric.Meter) error {
	var err error

	mqMessagesTotal, err = meter.Int64Counter(
		"mq.messages.total",
		metric.WithDescription("Total number of RabbitMQ messages"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return err
	}

	mqMessageDuration, err = meter.Float64Histogram(
		"mq.message.duration",
		metric.WithDescription("RabbitMQ publish and handling duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	if err != nil {
		return err
	}

	mqPublishErrors, err = meter.Int64Counter(
		"mq.publish.errors",
		metric.WithDescription("Number of RabbitMQ publish errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	mqConsumeErrors, err = meter.Int64Counter(
		"mq.consume.errors",
		metric.WithDescription("Number of RabbitMQ handler errors"),
		metric.WithUnit("{error}"),
	)
	return err
}

// Tracer 发布端注入、消费端提取追踪上下文
type Tracer struct {
	serviceName string
	propagators propagation.TextMapPropagator
	tracer      trace.Tracer
}

func NewTracer(serviceName string) *Tracer {
	return &Tracer{
		serviceName: serviceName,
		propagators: otel.GetTextMapPropagator(),
		tracer:      otel.Tracer(serviceName + ".rabbitmq"),
	}
}

// Publish 在 span 内发布消息，追踪上下文写入消息头
func (t *Tracer) Publish(ctx context.Context, ch *amqp.Channel, exchange, routingKey string, msg amqp.Publishing) error {
	startTime := time.Now()

	ctx, span := t.tracer.Start(ctx, "rabbitmq.publish "+routingKey,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystem("rabbitmq"),
			semconv.MessagingDestinationName(exchange),
			semconv.MessagingRabbitmqDestinationRoutingKey(routingKey),
			semconv.MessagingMessageID(msg.MessageId),
			attribute.String("service.name", t.serviceName),
		))
	defer span.End()

	headers := make(amqp.Table, len(msg.Headers))
	for k, v := range msg.Headers {
		headers[k] = v
	}
	t.propagators.Inject(ctx, &MessageHeaderCarrier{Headers: headers})
	msg.Headers = headers

	err := ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg)

	status := "success"
	if err != nil {
		status = "error"
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		if mqPublishErrors != nil {
			mqPublishErrors.Add(ctx, 1)
		}
	} else {
		span.SetStatus(codes.Ok, "Message published")
	}

	t.record(ctx, "publish", routingKey, status, startTime)
	return err
}

// StartDelivery 为单条消息开启处理 span，返回的 finish 在处理结束后调用
func (t *Tracer) StartDelivery(ctx context.Context, queue string, msg amqp.Delivery) (context.Context, func(error)) {
	startTime := time.Now()

	ctx = t.propagators.Extract(ctx, &MessageHeaderCarrier{Headers: msg.Headers})
	ctx, span := t.tracer.Start(ctx, "rabbitmq.process "+queue,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystem("rabbitmq"),
			semconv.MessagingDestinationName(queue),
			semconv.MessagingRabbitmqDestinationRoutingKey(msg.RoutingKey),
			semconv.MessagingMessageID(msg.MessageId),
			attribute.String("service.name", t.serviceName),
		))

	return ctx, func(err error) {
		defer span.End()

		status := "success"
		if err != nil {
			status = "error"
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
			if mqConsumeErrors != nil {
				mqConsumeErrors.Add(ctx, 1)
			}
		} else {
			span.SetStatus(codes.Ok, "Message handled")
		}
		t.record(ctx, "process", msg.RoutingKey, status, startTime)
	}
}

func (t *Tracer) record(ctx context.Context, op, routingKey, status string, start time.Time) {
	if mqMessagesTotal == nil {
		return
	}
	labels := metric.WithAttributes(
		semconv.MessagingSystem("rabbitmq"),
		attribute.String("messaging.operation", op),
		attribute.String("messaging.rabbitmq.routing_key", routingKey),
		attribute.String("messaging.status", status),
	)
	mqMessagesTotal.Add(ctx, 1, labels)
	mqMessageDuration.Record(ctx, time.Since(start).Seconds(), labels)
}

// MessageHeaderCarrier 实现 propagation.TextMapCarrier 接口
type MessageHeaderCarrier struct {
	Headers amqp.Table
}

func (m *MessageHeaderCarrier) Get(key string) string {
	if val, ok := m.Headers[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func (m *MessageHeaderCarrier) Set(key, value string) {
	if m.Headers == nil {
		m.Headers = make(amqp.Table)
	}
	m.Headers[key] = value
}

func (m *MessageHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(m.Headers))
	for k := range m.Headers {
		keys = append(keys, k)
	}
	return keys
}
