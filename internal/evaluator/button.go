package evaluator

import "github.com/MahmutEsadErman/HealthCareWristlet/internal/models"

// ButtonEvaluator panic button
type ButtonEvaluator struct{}

func NewButtonEvaluator() *ButtonEvaluator {
	return &ButtonEvaluator{}
}

// Evaluate every press is an alert and bypasses dedup; releases raise nothing.
func (e *ButtonEvaluator) Evaluate(s models.ButtonSample) *Candidate {
	if !s.Pressed {
		return nil
	}
	return &Candidate{
		PatientID:   s.PatientID,
		Kind:        models.AlertKindButton,
		Message:     "Panic button pressed",
		At:          s.At,
		BypassDedup: true,
	}
}
