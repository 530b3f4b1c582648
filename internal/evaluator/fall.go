package evaluator

import (
	"fmt"
	"strings"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"
)

// FallEvaluator turns every on-device fall report into a FALL candidate.
type FallEvaluator struct{}

func NewFallEvaluator() *FallEvaluator {
	return &FallEvaluator{}
}

func (e *FallEvaluator) Evaluate(s models.FallSample) *Candidate {
	var b strings.Builder
	fmt.Fprintf(&b, "Fall detected (p=%.2f", s.Probability)
	if s.BPM != nil {
		b.WriteString(", bpm=")
		b.WriteString(formatNumber(*s.BPM))
	}
	b.WriteString(")")

	return &Candidate{
		PatientID: s.PatientID,
		Kind:      models.AlertKindFall,
		Message:   b.String(),
		At:        s.At,
	}
}
