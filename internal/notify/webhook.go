package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Webhook event names
const (
	EventAlertRaised   = "alert.raised"
	EventAlertResolved = "alert.resolved"
)

// WebhookPayload body posted to the caregiver webhook
type WebhookPayload struct {
	Event  string       `json:"event"`
	Alert  models.Alert `json:"alert"`
	SentAt time.Time    `json:"sent_at"`
}

// WebhookNotifier posts alert events to an external endpoint (pager, chat bridge).
type WebhookNotifier struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
	now        func() time.Time
}

// NewWebhookNotifier creates the notifier; url must be non-empty.
func NewWebhookNotifier(url string, timeout time.Duration, retryCount int, logger *zap.Logger) (*WebhookNotifier, error) {
	if url == "" {
		return nil, errors.New("webhook notifier: empty url")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WebhookNotifier{
		httpClient: client,
		url:        url,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (w *WebhookNotifier) Name() string { return "webhook" }

func (w *WebhookNotifier) AlertRaised(ctx context.Context, alert models.Alert) error {
	return w.post(ctx, EventAlertRaised, alert)
}

func (w *WebhookNotifier) AlertResolved(ctx context.Context, alert models.Alert) error {
	return w.post(ctx, EventAlertResolved, alert)
}

func (w *WebhookNotifier) post(ctx context.Context, event string, alert models.Alert) error {
	payload := WebhookPayload{
		Event:  event,
		Alert:  alert,
		SentAt: w.now().UTC(),
	}

	resp, err := w.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("failed to call alert webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode())
	}

	w.logger.Debug("Alert webhook delivered",
		zap.String("event", event),
		zap.String("alert_id", alert.AlertID),
		zap.Int("status_code", resp.StatusCode()),
	)
	return nil
}
