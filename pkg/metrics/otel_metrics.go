package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics 注册向导与账户相关指标
type OTelMetrics struct {
	WizardStepTotal         metric.Int64Counter
	WizardActive            metric.Int64UpDownCounter
	AvailabilityCheckTotal  metric.Int64Counter
	SubmissionTotal         metric.Int64Counter
	SubmissionDuration      metric.Float64Histogram
	AccountCreatedTotal     metric.Int64Counter
	UploadBytesTotal        metric.Int64Counter
	WelcomeNotificationSent metric.Int64Counter
}

// 未调用 InitMetrics 时为 nil，Record* 系列函数全部跳过
var metrics *OTelMetrics

// InitMetrics 使用全局 MeterProvider 初始化
func InitMetrics(serviceName string) error {
	meter := otel.Meter(serviceName)
	m := &OTelMetrics{}
	var err error

	if m.WizardStepTotal, err = meter.Int64Counter(
		"signup_wizard_step_total",
		metric.WithDescription("Wizard step transitions by step and result"),
		metric.WithUnit("{step}"),
	); err != nil {
		return err
	}

	if m.WizardActive, err = meter.Int64UpDownCounter(
		"signup_wizard_active",
		metric.WithDescription("Wizards currently held in memory"),
		metric.WithUnit("{wizard}"),
	); err != nil {
		return err
	}

	if m.AvailabilityCheckTotal, err = meter.Int64Counter(
		"signup_availability_check_total",
		metric.WithDescription("Email and nickname availability checks"),
		metric.WithUnit("{check}"),
	); err != nil {
		return err
	}

	if m.SubmissionTotal, err = meter.Int64Counter(
		"signup_submission_total",
		metric.WithDescription("Sign-up submissions by final state"),
		metric.WithUnit("{submission}"),
	); err != nil {
		return err
	}

	if m.SubmissionDuration, err = meter.Float64Histogram(
		"signup_submission_duration_seconds",
		metric.WithDescription("Time spent in the submission pipeline"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	); err != nil {
		return err
	}

	if m.AccountCreatedTotal, err = meter.Int64Counter(
		"account_created_total",
		metric.WithDescription("Accounts created"),
		metric.WithUnit("{account}"),
	); err != nil {
		return err
	}

	if m.UploadBytesTotal, err = meter.Int64Counter(
		"upload_bytes_total",
		metric.WithDescription("Bytes written to object storage"),
		metric.WithUnit("By"),
	); err != nil {
		return err
	}

	if m.WelcomeNotificationSent, err = meter.Int64Counter(
		"welcome_notification_total",
		metric.WithDescription("Welcome notifications handled by the worker"),
		metric.WithUnit("{notification}"),
	); err != nil {
		return err
	}

	metrics = m
	return nil
}

// RecordStep result 取值 advanced / rejected / locked / back
func RecordStep(ctx context.Context, step int, result string) {
	if metrics == nil {
		return
	}
	metrics.WizardStepTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("step", step),
		attribute.String("result", result),
	))
}

func AddActiveWizards(ctx context.Context, delta int64) {
	if metrics == nil {
		return
	}
	metrics.WizardActive.Add(ctx, delta)
}

// RecordAvailabilityCheck result 取值 available / taken / skipped
func RecordAvailabilityCheck(ctx context.Context, field, result string) {
	if metrics == nil {
		return
	}
	metrics.AvailabilityCheckTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("field", field),
		attribute.String("result", result),
	))
}

func RecordSubmission(ctx context.Context, finalState string, withImage bool, elapsed time.Duration) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("state", finalState),
		attribute.Bool("with_image", withImage),
	)
	metrics.SubmissionTotal.Add(ctx, 1, attrs)
	metrics.SubmissionDuration.Record(ctx, elapsed.Seconds(), attrs)
}

func RecordAccountCreated(ctx context.Context, accountType string) {
	if metrics == nil {
		return
	}
	metrics.AccountCreatedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("type", accountType)))
}

func RecordUpload(ctx context.Context, backend string, size int64) {
	if metrics == nil {
		return
	}
	metrics.UploadBytesTotal.Add(ctx, size, metric.WithAttributes(attribute.String("backend", backend)))
}

func RecordWelcomeNotification(ctx context.Context, status string) {
	if metrics == nil {
		return
	}
	metrics.WelcomeNotificationSent.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
