package service

import (
	"context"
	"strings"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PatientService account registry and threshold management
type PatientService struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func NewPatientService(store repository.Store, logger *zap.Logger) *PatientService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatientService{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

// RegisterUser creates an account. Patients get default thresholds in the same transaction.
func (s *PatientService) RegisterUser(ctx context.Context, username string, role models.Role) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || role == "" {
		return nil, models.NewValidationError("Username and user_type required")
	}
	if !role.Valid() {
		return nil, models.NewValidationError("Invalid user_type")
	}

	user := &models.User{
		UserID:    s.newID(),
		Username:  username,
		Role:      role,
		CreatedAt: s.now().UTC(),
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, repo repository.Repository) error {
		if err := repo.CreateUser(ctx, user); err != nil {
			return err
		}
		if role == models.RolePatient {
			return repo.CreatePatientConfig(ctx, models.NewPatientConfig(user.UserID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.UserID),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}

func (s *PatientService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, models.NewValidationError("user id is required")
	}
	return s.store.GetUser(ctx, userID)
}

// ListPatients caregivers only.
func (s *PatientService) ListPatients(ctx context.Context, callerID string) ([]models.PatientSummary, error) {
	caller, err := s.GetUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !caller.IsCaregiver() {
		return nil, models.NewForbiddenError("Access denied")
	}
	return s.store.ListPatients(ctx)
}

// GetThresholds current thresholds of a patient
func (s *PatientService) GetThresholds(ctx context.Context, patientID string) (*models.PatientConfig, error) {
	return s.store.GetPatientConfig(ctx, strings.TrimSpace(patientID))
}

// UpdateThresholds applies a partial update. Any caller may update any
// patient; the merged result must still satisfy min_hr <= max_hr and a
// positive inactivity limit.
func (s *PatientService) UpdateThresholds(ctx context.Context, patientID string, update models.ThresholdUpdate) (*models.PatientConfig, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, models.NewValidationError("patient id is required")
	}

	var updated models.PatientConfig
	err := s.store.WithinTx(ctx, func(ctx context.Context, repo repository.Repository) error {
		current, err := repo.GetPatientConfig(ctx, patientID)
		if err != nil {
			return err
		}
		if update.Empty() {
			updated = *current
			return nil
		}
		updated, err = update.Apply(*current)
		if err != nil {
			return err
		}
		return repo.UpdatePatientConfig(ctx, &updated)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Thresholds updated",
		zap.String("patient_id", patientID),
		zap.Float64("min_hr", updated.MinHR),
		zap.Float64("max_hr", updated.MaxHR),
		zap.Duration("inactivity_limit", updated.InactivityLimit),
	)
	return &updated, nil
}
