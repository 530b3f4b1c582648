package evaluator

import (
	"context"
	"fmt"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"

	"go.uber.org/zap"
)

// Candidate alert proposed by an evaluator, before dedup and commit.
type Candidate struct {
	PatientID   string
	Kind        models.AlertKind
	Message     string
	At          time.Time
	BypassDedup bool // panic button presses are never suppressed
}

// Alert materializes the candidate as an unresolved alert with the given id.
func (c Candidate) Alert(alertID string) *models.Alert {
	return &models.Alert{
		AlertID:   alertID,
		PatientID: c.PatientID,
		Kind:      c.Kind,
		Message:   c.Message,
		At:        c.At.UTC(),
	}
}

// MotionHistory read side of the motion series.
type MotionHistory interface {
	// MotionSince returns samples with at >= from, ascending by at.
	MotionSince(ctx context.Context, patientID string, from time.Time) ([]models.MotionSample, error)
}

// Evaluator dispatches a sample to the evaluator for its kind.
type Evaluator struct {
	heartRate  *HeartRateEvaluator
	inactivity *InactivityEvaluator
	button     *ButtonEvaluator
	fall       *FallEvaluator
	logger     *zap.Logger
}

// NewEvaluator creates the evaluator set. motionThreshold is the per-axis
// acceleration delta above which a sample counts as movement.
func NewEvaluator(motionThreshold float64, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		heartRate:  NewHeartRateEvaluator(),
		inactivity: NewInactivityEvaluator(motionThreshold),
		button:     NewButtonEvaluator(),
		fall:       NewFallEvaluator(),
		logger:     logger,
	}
}

// Evaluate returns the alert candidates for sample under cfg.
// The motion history must already contain sample when it is a MotionSample.
func (e *Evaluator) Evaluate(ctx context.Context, history MotionHistory, sample models.Sample, cfg models.PatientConfig) ([]Candidate, error) {
	var (
		c   *Candidate
		err error
	)

	switch s := sample.(type) {
	case models.HeartRateSample:
		c = e.heartRate.Evaluate(s, cfg)
	case models.MotionSample:
		c, err = e.inactivity.Evaluate(ctx, history, s, cfg)
	case models.InactivityReport:
		c = e.inactivity.EvaluateReport(s)
	case models.ButtonSample:
		c = e.button.Evaluate(s)
	case models.FallSample:
		c = e.fall.Evaluate(s)
	default:
		return nil, fmt.Errorf("unsupported sample type %T", sample)
	}
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}

	e.logger.Debug("Alert candidate",
		zap.String("patient_id", c.PatientID),
		zap.String("kind", string(c.Kind)),
		zap.Time("at", c.At),
	)
	return []Candidate{*c}, nil
}
