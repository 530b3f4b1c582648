package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ====================================================================
// Wearable wire payloads (HTTP body, MQTT payload, Redis stream "data")
// ====================================================================

// wireTime timestamp field; non-string values are treated as absent.
type wireTime string

func (t *wireTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*t = ""
		return nil
	}
	*t = wireTime(s)
	return nil
}

type heartRatePayload struct {
	Value     *float64 `json:"value"`
	Timestamp wireTime `json:"timestamp"`
}

type imuPayload struct {
	X         *float64 `json:"x_axis"`
	Y         *float64 `json:"y_axis"`
	Z         *float64 `json:"z_axis"`
	GX        *float64 `json:"gx"`
	GY        *float64 `json:"gy"`
	GZ        *float64 `json:"gz"`
	Timestamp wireTime `json:"timestamp"`
}

type buttonPayload struct {
	PanicButtonStatus json.RawMessage `json:"panic_button_status"`
	Timestamp         wireTime        `json:"timestamp"`
}

type inactivityPayload struct {
	InactivityDetected json.RawMessage `json:"inactivity_detected"`
	Timestamp          wireTime        `json:"timestamp"`
}

type fallPayload struct {
	Probability *float64 `json:"probability"`
	BPM         *float64 `json:"bpm"`
	Timestamp   wireTime `json:"timestamp"`
}

// DecodeSample decodes a wearable JSON payload of the given kind for patientID.
// A missing or unparsable timestamp falls back to now (UTC).
func DecodeSample(kind SampleKind, patientID string, body []byte, now time.Time) (Sample, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		body = []byte("{}")
	}

	switch kind {
	case SampleKindHeartRate:
		var p heartRatePayload
		if err := unmarshalPayload(body, &p); err != nil {
			return nil, err
		}
		if p.Value == nil {
			return nil, NewValidationError("Value required")
		}
		return HeartRateSample{
			PatientID: patientID,
			Value:     *p.Value,
			At:        ParseTimestamp(string(p.Timestamp), now),
		}, nil

	case SampleKindMotion:
		var p imuPayload
		if err := unmarshalPayload(body, &p); err != nil {
			return nil, err
		}
		if p.X == nil || p.Y == nil || p.Z == nil {
			return nil, NewValidationError("Accelerometer data required")
		}
		s := MotionSample{
			PatientID: patientID,
			Accel:     Vector3{X: *p.X, Y: *p.Y, Z: *p.Z},
			At:        ParseTimestamp(string(p.Timestamp), now),
		}
		if p.GX != nil && p.GY != nil && p.GZ != nil {
			s.Gyro = &Vector3{X: *p.GX, Y: *p.GY, Z: *p.GZ}
		}
		return s, nil

	case SampleKindButton:
		var p buttonPayload
		if err := unmarshalPayload(body, &p); err != nil {
			return nil, err
		}
		pressed, present, err := truthy(p.PanicButtonStatus)
		if err != nil {
			return nil, NewValidationError("panic_button_status: " + err.Error())
		}
		if !present {
			return nil, NewValidationError("Status required")
		}
		return ButtonSample{
			PatientID: patientID,
			Pressed:   pressed,
			At:        ParseTimestamp(string(p.Timestamp), now),
		}, nil

	case SampleKindInactivity:
		var p inactivityPayload
		if err := unmarshalPayload(body, &p); err != nil {
			return nil, err
		}
		detected, _, err := truthy(p.InactivityDetected)
		if err != nil {
			return nil, NewValidationError("inactivity_detected: " + err.Error())
		}
		return InactivityReport{
			PatientID: patientID,
			Detected:  detected,
			At:        ParseTimestamp(string(p.Timestamp), now),
		}, nil

	case SampleKindFall:
		var p fallPayload
		if err := unmarshalPayload(body, &p); err != nil {
			return nil, err
		}
		if p.Probability == nil {
			return nil, NewValidationError("Probability required")
		}
		return FallSample{
			PatientID:   patientID,
			Probability: *p.Probability,
			BPM:         p.BPM,
			At:          ParseTimestamp(string(p.Timestamp), now),
		}, nil
	}

	return nil, NewValidationError(fmt.Sprintf("unknown sample kind: %q", kind))
}

func unmarshalPayload(body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return NewValidationError(fmt.Sprintf("invalid JSON payload: %v", err))
	}
	return nil
}

// truthy interprets a flag sent either as a JSON bool, a number or a string.
func truthy(raw json.RawMessage) (value, present bool, err error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return false, false, nil
	}
	switch s {
	case "true":
		return true, true, nil
	case "false":
		return false, true, nil
	}
	if f, perr := strconv.ParseFloat(s, 64); perr == nil {
		return f != 0, true, nil
	}
	var str string
	if jerr := json.Unmarshal(raw, &str); jerr == nil {
		switch strings.ToLower(strings.TrimSpace(str)) {
		case "", "0", "false", "no", "off":
			return false, true, nil
		default:
			return true, true, nil
		}
	}
	return false, false, fmt.Errorf("unsupported value %s", s)
}
