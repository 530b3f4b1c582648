package consumer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/evaluator"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"
	mqttc "github.com/MahmutEsadErman/HealthCareWristlet/internal/mqtt"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/repository"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/service"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

// fakeIngester records samples and returns err for every call.
type fakeIngester struct {
	mu      sync.Mutex
	samples []models.Sample
	err     error
}

func (f *fakeIngester) Ingest(_ context.Context, s models.Sample) (*service.IngestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = append(f.samples, s)
	if f.err != nil {
		return nil, f.err
	}
	return &service.IngestResult{Kind: s.Kind()}, nil
}

type fakeSubscriber struct {
	topic        string
	qos          byte
	handler      mqttc.MessageHandler
	unsubscribed []string
}

func (f *fakeSubscriber) Subscribe(topic string, qos byte, handler mqttc.MessageHandler) error {
	f.topic, f.qos, f.handler = topic, qos, handler
	return nil
}

func (f *fakeSubscriber) Unsubscribe(topics ...string) error {
	f.unsubscribed = append(f.unsubscribed, topics...)
	return nil
}

func newEngine(t *testing.T, patients ...string) (*service.Engine, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	ctx := context.Background()
	for _, id := range patients {
		require.NoError(t, store.CreateUser(ctx, &models.User{UserID: id, Username: id, Role: models.RolePatient, CreatedAt: t0}))
		require.NoError(t, store.CreatePatientConfig(ctx, models.NewPatientConfig(id)))
	}
	e := service.NewEngine(store,
		evaluator.NewEvaluator(evaluator.DefaultMotionThreshold, zap.NewNop()),
		evaluator.NewDedupPolicy(evaluator.DefaultCooldown),
		zap.NewNop(),
	)
	return e, store
}
