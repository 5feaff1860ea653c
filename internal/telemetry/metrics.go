// Package telemetry defines the application metric instruments.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "coolmath-pro/backend"

// Metrics bundles the counters incremented by the services. A nil *Metrics is
// valid and records nothing, so tests can pass nil.
type Metrics struct {
	webhookDeliveries metric.Int64Counter
	logins            metric.Int64Counter
	resetRequests     metric.Int64Counter
	activationChecks  metric.Int64Counter
}

// NewMetrics creates the instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)

	webhookDeliveries, err := meter.Int64Counter(
		"webhook_deliveries_total",
		metric.WithDescription("Payment webhook deliveries by outcome"),
	)
	if err != nil {
		return nil, err
	}
	logins, err := meter.Int64Counter(
		"logins_total",
		metric.WithDescription("Successful register-or-login calls"),
	)
	if err != nil {
		return nil, err
	}
	resetRequests, err := meter.Int64Counter(
		"password_reset_requests_total",
		metric.WithDescription("Password reset code requests"),
	)
	if err != nil {
		return nil, err
	}
	activationChecks, err := meter.Int64Counter(
		"activation_checks_total",
		metric.WithDescription("Device activation status checks by status"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		webhookDeliveries: webhookDeliveries,
		logins:            logins,
		resetRequests:     resetRequests,
		activationChecks:  activationChecks,
	}, nil
}

// RecordWebhookDelivery counts a webhook delivery with its outcome
// (applied, duplicate, ignored, failed).
func (m *Metrics) RecordWebhookDelivery(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.webhookDeliveries.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordLogin counts a successful register-or-login.
func (m *Metrics) RecordLogin(ctx context.Context, newUser bool) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.Bool("new_user", newUser)))
}

// RecordResetRequest counts a password reset code request.
func (m *Metrics) RecordResetRequest(ctx context.Context) {
	if m == nil {
		return
	}
	m.resetRequests.Add(ctx, 1)
}

// RecordActivationCheck counts an activation status check.
func (m *Metrics) RecordActivationCheck(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.activationChecks.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
