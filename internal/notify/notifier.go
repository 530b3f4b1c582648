package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/metrics"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"

	"go.uber.org/zap"
)

// AlertNotifier receives committed alert lifecycle events.
// Implementations run after the transaction; their errors never undo it.
type AlertNotifier interface {
	Name() string
	AlertRaised(ctx context.Context, alert models.Alert) error
	AlertResolved(ctx context.Context, alert models.Alert) error
}

// Multi fans an event out to every notifier; one failure does not stop the rest.
type Multi struct {
	notifiers []AlertNotifier
	logger    *zap.Logger
}

// NewMulti nil notifiers are skipped.
func NewMulti(logger *zap.Logger, notifiers ...AlertNotifier) *Multi {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Multi{logger: logger}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

func (m *Multi) Name() string { return "multi" }

// Len number of wrapped notifiers
func (m *Multi) Len() int { return len(m.notifiers) }

func (m *Multi) AlertRaised(ctx context.Context, alert models.Alert) error {
	return m.each(alert, "raised", func(n AlertNotifier) error { return n.AlertRaised(ctx, alert) })
}

func (m *Multi) AlertResolved(ctx context.Context, alert models.Alert) error {
	return m.each(alert, "resolved", func(n AlertNotifier) error { return n.AlertResolved(ctx, alert) })
}

func (m *Multi) each(alert models.Alert, event string, fn func(AlertNotifier) error) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := fn(n); err != nil {
			metrics.IncNotifyError(n.Name())
			m.logger.Warn("Alert notification failed",
				zap.String("notifier", n.Name()),
				zap.String("event", event),
				zap.String("alert_id", alert.AlertID),
				zap.String("patient_id", alert.PatientID),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Name() string                                      { return "nop" }
func (Nop) AlertRaised(context.Context, models.Alert) error   { return nil }
func (Nop) AlertResolved(context.Context, models.Alert) error { return nil }

// MetricsNotifier counts alert lifecycle events in Prometheus.
type MetricsNotifier struct{}

func NewMetricsNotifier() *MetricsNotifier {
	metrics.Init()
	return &MetricsNotifier{}
}

func (*MetricsNotifier) Name() string { return "metrics" }

func (*MetricsNotifier) AlertRaised(_ context.Context, alert models.Alert) error {
	metrics.IncAlertRaised(string(alert.Kind))
	return nil
}

func (*MetricsNotifier) AlertResolved(_ context.Context, alert models.Alert) error {
	metrics.IncAlertResolved(string(alert.Kind))
	return nil
}
