package redis

import (
	"context"
	"testing"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), &config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(client) })
	return client
}

func TestStreams_PublishReadAck(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, CreateConsumerGroup(ctx, client, "samples", "g1"))
	require.NoError(t, CreateConsumerGroup(ctx, client, "samples", "g1"), "existing group is fine")

	id, err := PublishToStream(ctx, client, "samples", map[string]interface{}{
		"patient_id": "p1",
		"kind":       "heart_rate",
		"data":       []byte(`{"value":72}`),
		"seq":        int64(7),
	})
	require.NoError(t, err)

	msgs, err := ReadFromStream(ctx, client, "samples", "g1", "c1", NewEntries, 10, 50*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, "p1", msgs[0].String("patient_id"))
	assert.Equal(t, `{"value":72}`, msgs[0].String("data"))
	assert.Equal(t, "7", msgs[0].String("seq"))
	assert.Equal(t, "", msgs[0].String("missing"))

	require.NoError(t, Ack(ctx, client, "samples", "g1", id))
	pending, err := client.XPending(ctx, "samples", "g1").Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestStreams_ReadTimeoutIsEmpty(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	require.NoError(t, CreateConsumerGroup(ctx, client, "samples", "g1"))

	msgs, err := ReadFromStream(ctx, client, "samples", "g1", "c1", NewEntries, 10, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestStreams_ReadPendingRedelivers(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	require.NoError(t, CreateConsumerGroup(ctx, client, "samples", "g1"))

	id, err := PublishToStream(ctx, client, "samples", map[string]interface{}{"kind": "button"})
	require.NoError(t, err)

	msgs, err := ReadFromStream(ctx, client, "samples", "g1", "c1", NewEntries, 10, 20*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	msgs, err = ReadFromStream(ctx, client, "samples", "g1", "c1", NewEntries, 10, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, msgs, "new-entry reads skip delivered entries")

	msgs, err = ReadFromStream(ctx, client, "samples", "g1", "c1", PendingEntries, 10, -1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)

	require.NoError(t, Ack(ctx, client, "samples", "g1", id))
	msgs, err = ReadFromStream(ctx, client, "samples", "g1", "c1", PendingEntries, 10, -1)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestPublishToStream_UnsupportedValue(t *testing.T) {
	client := setupRedis(t)
	_, err := PublishToStream(context.Background(), client, "samples", map[string]interface{}{"x": struct{}{}})
	assert.Error(t, err)
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(context.Background(), &config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
