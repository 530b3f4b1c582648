package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// AlertCache keeps each patient's unresolved alerts in a Redis hash
// ({prefix}{patient_id}:alerts, field = alert id, value = alert JSON) for
// dashboards that read Redis directly. The service never reads it back:
// ListAlerts always goes to the database, since the hash only holds alerts
// raised while Redis was reachable and expires after ttl without writes.
type AlertCache struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration
	logger      *zap.Logger
}

func NewAlertCache(redisClient *redis.Client, keyPrefix string, ttl time.Duration, logger *zap.Logger) *AlertCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertCache{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
		ttl:         ttl,
		logger:      logger,
	}
}

func (c *AlertCache) Name() string { return "redis_cache" }

// Key hash key of a patient
func (c *AlertCache) Key(patientID string) string {
	return fmt.Sprintf("%s%s:alerts", c.keyPrefix, patientID)
}

func (c *AlertCache) AlertRaised(ctx context.Context, alert models.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	key := c.Key(alert.PatientID)
	pipe := c.redisClient.TxPipeline()
	pipe.HSet(ctx, key, alert.AlertID, data)
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache alert %s: %w", alert.AlertID, err)
	}
	return nil
}

func (c *AlertCache) AlertResolved(ctx context.Context, alert models.Alert) error {
	if err := c.redisClient.HDel(ctx, c.Key(alert.PatientID), alert.AlertID).Err(); err != nil {
		return fmt.Errorf("failed to evict alert %s: %w", alert.AlertID, err)
	}
	return nil
}

// ActiveAlerts cached unresolved alerts of a patient, newest first.
// ActiveAlerts decodes a patient's hash the way dashboard readers do, newest first.
func (c *AlertCache) ActiveAlerts(ctx context.Context, patientID string) ([]models.Alert, error) {
	values, err := c.redisClient.HGetAll(ctx, c.Key(patientID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read alert cache: %w", err)
	}

	alerts := make([]models.Alert, 0, len(values))
	for id, raw := range values {
		var a models.Alert
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			c.logger.Warn("Dropping malformed cached alert", zap.String("alert_id", id), zap.Error(err))
			continue
		}
		alerts = append(alerts, a)
	}
	sort.Slice(alerts, func(i, j int) bool {
		if !alerts[i].At.Equal(alerts[j].At) {
			return alerts[i].At.After(alerts[j].At)
		}
		return alerts[i].AlertID > alerts[j].AlertID
	})
	return alerts, nil
}
