package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/evaluator"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu       sync.Mutex
	raised   []models.Alert
	resolved []models.Alert
	err      error
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) AlertRaised(_ context.Context, a models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raised = append(r.raised, a)
	return r.err
}

func (r *recordingNotifier) AlertResolved(_ context.Context, a models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = append(r.resolved, a)
	return r.err
}

func (r *recordingNotifier) raisedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.raised)
}

func newTestEngine(t *testing.T, store repository.Store) (*Engine, *recordingNotifier) {
	t.Helper()
	n := &recordingNotifier{}
	e := NewEngine(
		store,
		evaluator.NewEvaluator(evaluator.DefaultMotionThreshold, zap.NewNop()),
		evaluator.NewDedupPolicy(evaluator.DefaultCooldown),
		zap.NewNop(),
		WithNotifier(n),
	)
	return e, n
}

func addUser(t *testing.T, store *repository.MemoryStore, id string, role models.Role) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, &models.User{UserID: id, Username: "user-" + id, Role: role, CreatedAt: t0}))
	if role == models.RolePatient {
		require.NoError(t, store.CreatePatientConfig(ctx, models.NewPatientConfig(id)))
	}
}

func setConfig(t *testing.T, store *repository.MemoryStore, cfg *models.PatientConfig) {
	t.Helper()
	require.NoError(t, store.UpdatePatientConfig(context.Background(), cfg))
}

func allAlerts(t *testing.T, store *repository.MemoryStore) []models.Alert {
	t.Helper()
	list, err := store.ListAlerts(context.Background(), models.AlertFilter{})
	require.NoError(t, err)
	return list
}

func hr(patientID string, value float64, at time.Time) models.HeartRateSample {
	return models.HeartRateSample{PatientID: patientID, Value: value, At: at}
}

func still(patientID string, at time.Time) models.MotionSample {
	return models.MotionSample{PatientID: patientID, Accel: models.Vector3{}, At: at}
}
