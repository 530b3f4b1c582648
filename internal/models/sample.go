package models

import (
	"fmt"
	"time"
)

// SampleKind wearable signal class; also the last segment of ingestion routes and MQTT topics.
type SampleKind string

const (
	SampleKindHeartRate  SampleKind = "heart_rate"
	SampleKindMotion     SampleKind = "imu"
	SampleKindButton     SampleKind = "button"
	SampleKindFall       SampleKind = "fall"
	SampleKindInactivity SampleKind = "inactivity"
)

// AlertKinds alert kinds a sample of this kind can raise.
func (k SampleKind) AlertKinds() []AlertKind {
	switch k {
	case SampleKindHeartRate:
		return []AlertKind{AlertKindHRLow, AlertKindHRHigh}
	case SampleKindMotion, SampleKindInactivity:
		return []AlertKind{AlertKindInactivity}
	case SampleKindButton:
		return []AlertKind{AlertKindButton}
	case SampleKindFall:
		return []AlertKind{AlertKindFall}
	}
	return nil
}

// Sample one timestamped wearable reading.
type Sample interface {
	Kind() SampleKind
	Owner() string
	Time() time.Time
	Validate() error
}

// HeartRateSample heart_rates row
type HeartRateSample struct {
	PatientID string    `db:"patient_id"`
	Value     float64   `db:"value"`
	At        time.Time `db:"at"`
}

func (s HeartRateSample) Kind() SampleKind { return SampleKindHeartRate }
func (s HeartRateSample) Owner() string    { return s.PatientID }
func (s HeartRateSample) Time() time.Time  { return s.At }

func (s HeartRateSample) Validate() error {
	if err := validateEnvelope(s.PatientID, s.At); err != nil {
		return err
	}
	if !isFinite(s.Value) {
		return NewValidationError("heart rate value must be a finite number")
	}
	return nil
}

// Vector3 three-axis reading
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// MaxAxisDelta largest absolute per-axis difference between v and o.
func (v Vector3) MaxAxisDelta(o Vector3) float64 {
	d := abs(v.X - o.X)
	if dy := abs(v.Y - o.Y); dy > d {
		d = dy
	}
	if dz := abs(v.Z - o.Z); dz > d {
		d = dz
	}
	return d
}

func (v Vector3) finite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

// MotionSample motion_samples row (accelerometer required, gyroscope optional)
type MotionSample struct {
	PatientID string    `db:"patient_id"`
	Accel     Vector3   `db:"-"`
	Gyro      *Vector3  `db:"-"`
	At        time.Time `db:"at"`
}

func (s MotionSample) Kind() SampleKind { return SampleKindMotion }
func (s MotionSample) Owner() string    { return s.PatientID }
func (s MotionSample) Time() time.Time  { return s.At }

func (s MotionSample) Validate() error {
	if err := validateEnvelope(s.PatientID, s.At); err != nil {
		return err
	}
	if !s.Accel.finite() {
		return NewValidationError("accelerometer axes must be finite numbers")
	}
	if s.Gyro != nil && !s.Gyro.finite() {
		return NewValidationError("gyroscope axes must be finite numbers")
	}
	return nil
}

// ButtonSample panic button report (not stored as history)
type ButtonSample struct {
	PatientID string
	Pressed   bool
	At        time.Time
}

func (s ButtonSample) Kind() SampleKind { return SampleKindButton }
func (s ButtonSample) Owner() string    { return s.PatientID }
func (s ButtonSample) Time() time.Time  { return s.At }
func (s ButtonSample) Validate() error  { return validateEnvelope(s.PatientID, s.At) }

// FallSample on-device fall detection report (not stored as history)
type FallSample struct {
	PatientID   string
	Probability float64
	BPM         *float64
	At          time.Time
}

func (s FallSample) Kind() SampleKind { return SampleKindFall }
func (s FallSample) Owner() string    { return s.PatientID }
func (s FallSample) Time() time.Time  { return s.At }

func (s FallSample) Validate() error {
	if err := validateEnvelope(s.PatientID, s.At); err != nil {
		return err
	}
	if !isFinite(s.Probability) || s.Probability < 0 || s.Probability > 1 {
		return NewValidationError(fmt.Sprintf("probability must be within [0,1], got %v", s.Probability))
	}
	if s.BPM != nil && !isFinite(*s.BPM) {
		return NewValidationError("bpm must be a finite number")
	}
	return nil
}

// InactivityReport inactivity verdict computed on the wristlet itself
type InactivityReport struct {
	PatientID string
	Detected  bool
	At        time.Time
}

func (s InactivityReport) Kind() SampleKind { return SampleKindInactivity }
func (s InactivityReport) Owner() string    { return s.PatientID }
func (s InactivityReport) Time() time.Time  { return s.At }
func (s InactivityReport) Validate() error  { return validateEnvelope(s.PatientID, s.At) }

func validateEnvelope(patientID string, at time.Time) error {
	if patientID == "" {
		return NewValidationError("patient id is required")
	}
	if at.IsZero() {
		return NewValidationError("timestamp is required")
	}
	return nil
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
