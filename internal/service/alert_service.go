package service

import (
	"context"
	"strings"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/notify"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/repository"

	"go.uber.org/zap"
)

// AlertService caregiver-facing alert operations
type AlertService struct {
	store    repository.Store
	notifier notify.AlertNotifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewAlertService(store repository.Store, notifier notify.AlertNotifier, logger *zap.Logger) *AlertService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertService{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// ListAlerts newest first. Caregivers see every patient (optionally narrowed
// by filter.PatientID); anyone else sees only their own alerts.
func (s *AlertService) ListAlerts(ctx context.Context, callerID string, filter models.AlertFilter) ([]models.Alert, error) {
	caller, err := s.store.GetUser(ctx, strings.TrimSpace(callerID))
	if err != nil {
		return nil, err
	}
	if !caller.IsCaregiver() {
		filter.PatientID = caller.UserID
	}
	return s.store.ListAlerts(ctx, filter)
}

// ResolveAlert marks the alert resolved; resolving an already resolved alert
// returns it unchanged.
func (s *AlertService) ResolveAlert(ctx context.Context, alertID string) (*models.Alert, error) {
	alertID = strings.TrimSpace(alertID)
	if alertID == "" {
		return nil, models.NewValidationError("alert id is required")
	}

	alert, changed, err := s.store.ResolveAlert(ctx, alertID, s.now())
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("Alert resolved",
			zap.String("alert_id", alert.AlertID),
			zap.String("patient_id", alert.PatientID),
			zap.String("kind", string(alert.Kind)),
		)
		if nerr := s.notifier.AlertResolved(ctx, *alert); nerr != nil {
			s.logger.Warn("Post-commit resolve notification failed",
				zap.String("alert_id", alert.AlertID),
				zap.Error(nerr),
			)
		}
	}
	return alert, nil
}
