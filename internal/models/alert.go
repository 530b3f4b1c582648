package models

import "time"

// AlertKind alert type stored in alerts.kind
type AlertKind string

const (
	AlertKindFall       AlertKind = "FALL"
	AlertKindInactivity AlertKind = "INACTIVITY"
	AlertKindHRHigh     AlertKind = "HR_HIGH"
	AlertKindHRLow      AlertKind = "HR_LOW"
	AlertKindButton     AlertKind = "BUTTON"
)

// Valid reports whether k is one of the known alert kinds.
func (k AlertKind) Valid() bool {
	switch k {
	case AlertKindFall, AlertKindInactivity, AlertKindHRHigh, AlertKindHRLow, AlertKindButton:
		return true
	}
	return false
}

// Alert caregiver-facing alert (alerts table)
// Resolved flips false -> true once; alerts are never deleted.
type Alert struct {
	AlertID    string     `json:"id" db:"alert_id"`
	PatientID  string     `json:"user_id" db:"patient_id"`
	Kind       AlertKind  `json:"type" db:"kind"`
	Message    string     `json:"message" db:"message"`
	At         time.Time  `json:"timestamp" db:"at"`
	Resolved   bool       `json:"is_resolved" db:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
}

// AlertFilter alert list filter
type AlertFilter struct {
	PatientID      string // empty = all patients
	UnresolvedOnly bool
	Limit          int // <= 0 = no limit
}
