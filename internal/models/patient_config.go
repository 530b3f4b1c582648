package models

import (
	"fmt"
	"math"
	"time"
)

// Default thresholds for a newly registered patient.
const (
	DefaultMinHR           = 40
	DefaultMaxHR           = 120
	DefaultInactivityLimit = 30 * time.Minute

	// MinInactivityLimit limits are persisted in whole seconds
	MinInactivityLimit = time.Second
)

// PatientConfig per-patient thresholds (patient_configs table)
// Created together with the patient account and never deleted on its own.
type PatientConfig struct {
	PatientID       string        `db:"patient_id"`
	MinHR           float64       `db:"min_hr"`
	MaxHR           float64       `db:"max_hr"`
	InactivityLimit time.Duration `db:"inactivity_limit_seconds"`
}

// NewPatientConfig returns the default thresholds for patientID.
func NewPatientConfig(patientID string) *PatientConfig {
	return &PatientConfig{
		PatientID:       patientID,
		MinHR:           DefaultMinHR,
		MaxHR:           DefaultMaxHR,
		InactivityLimit: DefaultInactivityLimit,
	}
}

// ThresholdUpdate partial threshold update; nil fields are left unchanged.
type ThresholdUpdate struct {
	MinHR           *float64
	MaxHR           *float64
	InactivityLimit *time.Duration
}

// Empty reports whether the update carries no fields.
func (u ThresholdUpdate) Empty() bool {
	return u.MinHR == nil && u.MaxHR == nil && u.InactivityLimit == nil
}

// Apply returns a copy of cfg with the update applied and validated.
func (u ThresholdUpdate) Apply(cfg PatientConfig) (PatientConfig, error) {
	if u.MinHR != nil {
		cfg.MinHR = *u.MinHR
	}
	if u.MaxHR != nil {
		cfg.MaxHR = *u.MaxHR
	}
	if u.InactivityLimit != nil {
		cfg.InactivityLimit = *u.InactivityLimit
	}
	if err := cfg.Validate(); err != nil {
		return PatientConfig{}, err
	}
	return cfg, nil
}

// Validate checks the threshold invariants.
func (c PatientConfig) Validate() error {
	if !isFinite(c.MinHR) || !isFinite(c.MaxHR) {
		return NewValidationError("heart rate thresholds must be finite numbers")
	}
	if c.MinHR > c.MaxHR {
		return NewValidationError(fmt.Sprintf("min_hr (%v) must not exceed max_hr (%v)", c.MinHR, c.MaxHR))
	}
	if c.InactivityLimit < MinInactivityLimit {
		return NewValidationError(fmt.Sprintf("inactivity limit must be at least %v", MinInactivityLimit))
	}
	return nil
}

// InactivityLimitMinutes inactivity limit expressed in minutes (API representation).
func (c PatientConfig) InactivityLimitMinutes() float64 {
	return c.InactivityLimit.Minutes()
}

// PatientSummary patient row for caregiver listings
type PatientSummary struct {
	PatientID              string  `json:"user_id"`
	Username               string  `json:"username"`
	MinHR                  float64 `json:"min_hr"`
	MaxHR                  float64 `json:"max_hr"`
	InactivityLimitMinutes float64 `json:"inactivity_limit_minutes"`
}

// Summary converts the config into its listing form.
func (c PatientConfig) Summary(username string) PatientSummary {
	return PatientSummary{
		PatientID:              c.PatientID,
		Username:               username,
		MinHR:                  c.MinHR,
		MaxHR:                  c.MaxHR,
		InactivityLimitMinutes: c.InactivityLimitMinutes(),
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
