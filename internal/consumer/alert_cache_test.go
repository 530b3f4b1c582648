package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/evaluator"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/repository"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestAlertCache_RaiseAndResolve(t *testing.T) {
	mr, client := setupMiniredis(t)
	cache := NewAlertCache(client, "wristlet:patient:", time.Hour, zap.NewNop())
	ctx := context.Background()

	older := models.Alert{AlertID: "a1", PatientID: "p1", Kind: models.AlertKindHRLow, Message: "Heart rate low: 30", At: t0}
	newer := models.Alert{AlertID: "a2", PatientID: "p1", Kind: models.AlertKindButton, Message: "Panic button pressed", At: t0.Add(time.Minute)}
	require.NoError(t, cache.AlertRaised(ctx, older))
	require.NoError(t, cache.AlertRaised(ctx, newer))

	assert.Equal(t, "wristlet:patient:p1:alerts", cache.Key("p1"))
	assert.True(t, mr.Exists(cache.Key("p1")))
	assert.Equal(t, time.Hour, mr.TTL(cache.Key("p1")))

	active, err := cache.ActiveAlerts(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "a2", active[0].AlertID)
	assert.True(t, active[1].At.Equal(t0))

	require.NoError(t, cache.AlertResolved(ctx, older))
	active, err = cache.ActiveAlerts(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "a2", active[0].AlertID)

	mr.FastForward(2 * time.Hour)
	active, err = cache.ActiveAlerts(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestAlertCache_SkipsMalformedEntries(t *testing.T) {
	mr, client := setupMiniredis(t)
	cache := NewAlertCache(client, "wristlet:patient:", 0, nil)

	mr.HSet(cache.Key("p1"), "broken", "{not json")
	active, err := cache.ActiveAlerts(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestAlertCache_RedisDown(t *testing.T) {
	mr, client := setupMiniredis(t)
	cache := NewAlertCache(client, "wristlet:patient:", time.Hour, nil)
	mr.Close()

	err := cache.AlertRaised(context.Background(), models.Alert{AlertID: "a1", PatientID: "p1", At: t0})
	assert.Error(t, err)
}

func TestAlertCache_TracksEngineAndResolve(t *testing.T) {
	_, client := setupMiniredis(t)
	cache := NewAlertCache(client, "wristlet:patient:", time.Hour, nil)
	store := repository.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateUser(ctx, &models.User{UserID: "p1", Username: "p1", Role: models.RolePatient, CreatedAt: t0}))
	require.NoError(t, store.CreatePatientConfig(ctx, models.NewPatientConfig("p1")))

	engine := service.NewEngine(store,
		evaluator.NewEvaluator(evaluator.DefaultMotionThreshold, zap.NewNop()),
		evaluator.NewDedupPolicy(evaluator.DefaultCooldown),
		zap.NewNop(),
		service.WithNotifier(cache),
	)
	alerts := service.NewAlertService(store, cache, nil)

	res, err := engine.Ingest(ctx, models.ButtonSample{PatientID: "p1", Pressed: true, At: t0})
	require.NoError(t, err)
	require.True(t, res.Raised())

	active, err := cache.ActiveAlerts(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, res.Alert.AlertID, active[0].AlertID)
	assert.Equal(t, models.AlertKindButton, active[0].Kind)

	_, err = alerts.ResolveAlert(ctx, res.Alert.AlertID)
	require.NoError(t, err)
	active, err = cache.ActiveAlerts(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, active)
}
