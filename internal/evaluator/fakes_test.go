package evaluator

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"
)

type fakeHistory struct {
	samples []models.MotionSample
	err     error
}

func (f *fakeHistory) MotionSince(_ context.Context, patientID string, from time.Time) ([]models.MotionSample, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.MotionSample
	for _, s := range f.samples {
		if s.PatientID == patientID && !s.At.Before(from) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}

type fakeLedger struct {
	alerts []models.Alert
	err    error
}

func (f *fakeLedger) HasUnresolvedAlert(_ context.Context, patientID string, kind models.AlertKind) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, a := range f.alerts {
		if a.PatientID == patientID && a.Kind == kind && !a.Resolved {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) LatestAlert(_ context.Context, patientID string, kind models.AlertKind) (*models.Alert, error) {
	if f.err != nil {
		return nil, f.err
	}
	var latest *models.Alert
	for i := range f.alerts {
		a := &f.alerts[i]
		if a.PatientID == patientID && a.Kind == kind && (latest == nil || a.At.After(latest.At)) {
			latest = a
		}
	}
	return latest, nil
}

var errStore = errors.New("store unavailable")

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func still(patientID string, at time.Time) models.MotionSample {
	return models.MotionSample{PatientID: patientID, Accel: models.Vector3{X: 0, Y: 0, Z: 9.8}, At: at}
}
