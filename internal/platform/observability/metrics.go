package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const metricNamespace = "github.com/onclick-pay/onclick-web"

// Metrics groups the instruments recorded by the page builder.
type Metrics struct {
	handleChecks     metric.Int64Counter
	handleCheckTime  metric.Float64Histogram
	publishes        metric.Int64Counter
	simulatedPayment metric.Int64Counter
}

// NewMetrics registers instruments on the supplied meter, or the global provider when nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(metricNamespace)
	}
	checks, err := meter.Int64Counter("onclick.handle.checks",
		metric.WithDescription("Handle availability checks by resolved status"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("onclick.handle.check.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds of handle availability checks"))
	if err != nil {
		return nil, err
	}
	publishes, err := meter.Int64Counter("onclick.pages.published",
		metric.WithDescription("Published pages by role and addressability"))
	if err != nil {
		return nil, err
	}
	payments, err := meter.Int64Counter("onclick.payments.simulated",
		metric.WithDescription("Simulated payments by method and currency"))
	if err != nil {
		return nil, err
	}
	return &Metrics{
		handleChecks:     checks,
		handleCheckTime:  latency,
		publishes:        publishes,
		simulatedPayment: payments,
	}, nil
}

// RecordHandleCheck counts a resolved check and its latency.
func (m *Metrics) RecordHandleCheck(ctx context.Context, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.handleChecks.Add(ctx, 1, attrs)
	m.handleCheckTime.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
}

// RecordPublish counts a publish outcome.
func (m *Metrics) RecordPublish(ctx context.Context, role string, addressable bool) {
	if m == nil {
		return
	}
	m.publishes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("role", role),
		attribute.Bool("addressable", addressable),
	))
}

// RecordPayment counts a simulated payment.
func (m *Metrics) RecordPayment(ctx context.Context, method, currency string) {
	if m == nil {
		return
	}
	m.simulatedPayment.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("currency", currency),
	))
}
