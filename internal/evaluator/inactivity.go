package evaluator

import (
	"context"
	"fmt"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"
)

// DefaultMotionThreshold per-axis acceleration delta that counts as movement.
const DefaultMotionThreshold = 1.0

const (
	inactivityMessage       = "Patient inactive"
	deviceInactivityMessage = "Patient inactivity detected by wristlet"
)

// InactivityEvaluator sliding-window stillness detector over motion history.
type InactivityEvaluator struct {
	threshold float64
}

// NewInactivityEvaluator threshold <= 0 selects DefaultMotionThreshold.
func NewInactivityEvaluator(threshold float64) *InactivityEvaluator {
	if threshold <= 0 {
		threshold = DefaultMotionThreshold
	}
	return &InactivityEvaluator{threshold: threshold}
}

// Evaluate raises INACTIVITY when the history covers at least the patient's
// inactivity limit and no sample in the window differs from s by more than
// the threshold on any axis.
func (e *InactivityEvaluator) Evaluate(ctx context.Context, history MotionHistory, s models.MotionSample, cfg models.PatientConfig) (*Candidate, error) {
	windowStart := s.At.Add(-cfg.InactivityLimit)

	window, err := history.MotionSince(ctx, s.PatientID, windowStart)
	if err != nil {
		return nil, fmt.Errorf("read motion window: %w", err)
	}
	if len(window) == 0 {
		return nil, nil
	}

	// Not enough history yet to cover the full limit.
	if s.At.Sub(window[0].At) < cfg.InactivityLimit {
		return nil, nil
	}

	for _, m := range window {
		if m.Accel.MaxAxisDelta(s.Accel) > e.threshold {
			return nil, nil
		}
	}

	return &Candidate{
		PatientID: s.PatientID,
		Kind:      models.AlertKindInactivity,
		Message:   inactivityMessage,
		At:        s.At,
	}, nil
}

// EvaluateReport handles the wristlet's own inactivity verdict.
func (e *InactivityEvaluator) EvaluateReport(r models.InactivityReport) *Candidate {
	if !r.Detected {
		return nil
	}
	return &Candidate{
		PatientID: r.PatientID,
		Kind:      models.AlertKindInactivity,
		Message:   deviceInactivityMessage,
		At:        r.At,
	}
}
