package repository

import (
	"context"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"
)

// UserRepository account registry
type UserRepository interface {
	// CreateUser fails with *models.ConflictError when the username is taken.
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// PatientConfigRepository threshold store
type PatientConfigRepository interface {
	CreatePatientConfig(ctx context.Context, cfg *models.PatientConfig) error
	GetPatientConfig(ctx context.Context, patientID string) (*models.PatientConfig, error)
	UpdatePatientConfig(ctx context.Context, cfg *models.PatientConfig) error
	// ListPatients every patient with its thresholds, ordered by username.
	ListPatients(ctx context.Context) ([]models.PatientSummary, error)
}

// HistoryRepository append-only heart-rate and motion series
type HistoryRepository interface {
	AppendHeartRate(ctx context.Context, s models.HeartRateSample) error
	AppendMotion(ctx context.Context, s models.MotionSample) error
	// MotionSince samples with at >= from, ascending by at (arrival order on ties).
	MotionSince(ctx context.Context, patientID string, from time.Time) ([]models.MotionSample, error)
}

// AlertRepository alert ledger
type AlertRepository interface {
	// LockAlertKind serializes writers of (patientID, kind) until the surrounding transaction ends.
	LockAlertKind(ctx context.Context, patientID string, kind models.AlertKind) error
	HasUnresolvedAlert(ctx context.Context, patientID string, kind models.AlertKind) (bool, error)
	// LatestAlert alert with the greatest at, resolved or not; nil, nil if none.
	LatestAlert(ctx context.Context, patientID string, kind models.AlertKind) (*models.Alert, error)
	InsertAlert(ctx context.Context, alert *models.Alert) error
	GetAlert(ctx context.Context, alertID string) (*models.Alert, error)
	// ResolveAlert marks the alert resolved. Resolving twice is a no-op and
	// reports changed=false. Unknown ids fail with *models.NotFoundError.
	ResolveAlert(ctx context.Context, alertID string, at time.Time) (alert *models.Alert, changed bool, err error)
	// ListAlerts newest first (at desc, insertion order desc on ties).
	ListAlerts(ctx context.Context, filter models.AlertFilter) ([]models.Alert, error)
}

// Repository everything the services read and write.
type Repository interface {
	UserRepository
	PatientConfigRepository
	HistoryRepository
	AlertRepository
}

// TxFunc unit of work; returning an error rolls back every write made through repo.
type TxFunc func(ctx context.Context, repo Repository) error

// Store Repository plus all-or-nothing units of work.
type Store interface {
	Repository
	WithinTx(ctx context.Context, fn TxFunc) error
	Close() error
}
