package evaluator

import (
	"context"
	"fmt"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"
)

// DefaultCooldown minimum spacing between two alerts of the same (patient, kind).
const DefaultCooldown = 3 * time.Minute

// AlertLedger read side of the alert ledger used by the dedup policy.
type AlertLedger interface {
	HasUnresolvedAlert(ctx context.Context, patientID string, kind models.AlertKind) (bool, error)
	// LatestAlert returns the alert with the greatest at, resolved or not; nil if none.
	LatestAlert(ctx context.Context, patientID string, kind models.AlertKind) (*models.Alert, error)
}

// DedupPolicy anti-spam rule for alert creation.
//
// A candidate is suppressed when an unresolved alert of the same
// (patient, kind) exists, or when the most recent alert of that pair is less
// than cooldown older than the candidate. The caller must hold the
// (patient, kind) lock across ShouldRaise and the insert.
type DedupPolicy struct {
	cooldown time.Duration
}

// NewDedupPolicy creates a policy; cooldown <= 0 selects DefaultCooldown.
func NewDedupPolicy(cooldown time.Duration) *DedupPolicy {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &DedupPolicy{cooldown: cooldown}
}

// Cooldown configured cooldown
func (p *DedupPolicy) Cooldown() time.Duration { return p.cooldown }

// ShouldRaise reports whether a new alert of kind at time at may be created.
func (p *DedupPolicy) ShouldRaise(ctx context.Context, ledger AlertLedger, patientID string, kind models.AlertKind, at time.Time) (bool, error) {
	unresolved, err := ledger.HasUnresolvedAlert(ctx, patientID, kind)
	if err != nil {
		return false, fmt.Errorf("check unresolved %s alert: %w", kind, err)
	}
	if unresolved {
		return false, nil
	}

	last, err := ledger.LatestAlert(ctx, patientID, kind)
	if err != nil {
		return false, fmt.Errorf("load latest %s alert: %w", kind, err)
	}
	if last != nil && at.Sub(last.At) < p.cooldown {
		return false, nil
	}
	return true, nil
}
