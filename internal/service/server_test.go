package service

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestServer_StartServeStop(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	srv := NewServer("127.0.0.1:0", mux, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	addr, err := srv.Addr(ctx)
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr.String() + "/healthz")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	require.NoError(t, srv.Stop(ctx))
	select {
	case err := <-done:
		assert.NoError(t, err, "shutdown is not reported as a failure")
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_StartListenError(t *testing.T) {
	srv := NewServer("127.0.0.1:-1", http.NewServeMux(), nil)
	assert.Error(t, srv.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := srv.Addr(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
