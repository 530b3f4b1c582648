package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"

	"go.uber.org/zap"
)

func (r *pgRepo) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil || user.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (user_id, username, role, created_at)
		VALUES ($1, $2, $3, $4)
	`, user.UserID, user.Username, string(user.Role), createdAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("Username already exists")
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *pgRepo) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	var role string
	err := r.q.QueryRowContext(ctx, `
		SELECT user_id, username, role, created_at
		FROM users
		WHERE user_id = $1
	`, userID).Scan(&u.UserID, &u.Username, &role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFoundError("user", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.Role = models.Role(role)
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func (r *pgRepo) CreatePatientConfig(ctx context.Context, cfg *models.PatientConfig) error {
	if cfg == nil || cfg.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO patient_configs (patient_id, min_hr, max_hr, inactivity_limit_seconds)
		VALUES ($1, $2, $3, $4)
	`, cfg.PatientID, cfg.MinHR, cfg.MaxHR, int64(cfg.InactivityLimit/time.Second))
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("patient config already exists: " + cfg.PatientID)
		}
		return fmt.Errorf("failed to insert patient config: %w", err)
	}
	return nil
}

func (r *pgRepo) GetPatientConfig(ctx context.Context, patientID string) (*models.PatientConfig, error) {
	var cfg models.PatientConfig
	var limitSeconds int64
	err := r.q.QueryRowContext(ctx, `
		SELECT patient_id, min_hr, max_hr, inactivity_limit_seconds
		FROM patient_configs
		WHERE patient_id = $1
	`, patientID).Scan(&cfg.PatientID, &cfg.MinHR, &cfg.MaxHR, &limitSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFoundError("patient", patientID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient config: %w", err)
	}
	cfg.InactivityLimit = time.Duration(limitSeconds) * time.Second
	return &cfg, nil
}

func (r *pgRepo) UpdatePatientConfig(ctx context.Context, cfg *models.PatientConfig) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE patient_configs
		SET min_hr = $2, max_hr = $3, inactivity_limit_seconds = $4, updated_at = NOW()
		WHERE patient_id = $1
	`, cfg.PatientID, cfg.MinHR, cfg.MaxHR, int64(cfg.InactivityLimit/time.Second))
	if err != nil {
		return fmt.Errorf("failed to update patient config: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return models.NewNotFoundError("patient", cfg.PatientID)
	}
	return nil
}

func (r *pgRepo) ListPatients(ctx context.Context) ([]models.PatientSummary, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT pc.patient_id, u.username, pc.min_hr, pc.max_hr, pc.inactivity_limit_seconds
		FROM patient_configs pc
		JOIN users u ON u.user_id = pc.patient_id
		ORDER BY u.username, pc.patient_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	out := []models.PatientSummary{}
	for rows.Next() {
		var cfg models.PatientConfig
		var username string
		var limitSeconds int64
		if err := rows.Scan(&cfg.PatientID, &username, &cfg.MinHR, &cfg.MaxHR, &limitSeconds); err != nil {
			r.logger.Warn("Failed to scan patient row", zap.Error(err))
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		cfg.InactivityLimit = time.Duration(limitSeconds) * time.Second
		out = append(out, cfg.Summary(username))
	}
	return out, rows.Err()
}
