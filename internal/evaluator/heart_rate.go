package evaluator

import (
	"strconv"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"
)

// HeartRateEvaluator compares a reading against the patient's inclusive band.
type HeartRateEvaluator struct{}

func NewHeartRateEvaluator() *HeartRateEvaluator {
	return &HeartRateEvaluator{}
}

// Evaluate returns HR_LOW below min_hr, HR_HIGH above max_hr, nil otherwise.
func (e *HeartRateEvaluator) Evaluate(s models.HeartRateSample, cfg models.PatientConfig) *Candidate {
	var (
		kind   models.AlertKind
		prefix string
	)
	switch {
	case s.Value < cfg.MinHR:
		kind, prefix = models.AlertKindHRLow, "Heart rate low: "
	case s.Value > cfg.MaxHR:
		kind, prefix = models.AlertKindHRHigh, "Heart rate high: "
	default:
		return nil
	}

	return &Candidate{
		PatientID: s.PatientID,
		Kind:      kind,
		Message:   prefix + formatNumber(s.Value),
		At:        s.At,
	}
}

// formatNumber shortest representation: 120 -> "120", 72.5 -> "72.5".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
