package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbviz/dbviz/internal/config"
)

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		Host:              "127.0.0.1",
		Port:              0,
		MaxConnections:    4,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       5 * time.Second,
		ShutdownTimeout:   time.Second,
	}
}

func TestServer_StartStop(t *testing.T) {
	srv := NewServer(testServerConfig(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "pong")
	}), zerolog.Nop())

	assert.False(t, srv.IsReady())
	require.NoError(t, srv.Start())
	assert.True(t, srv.IsReady())

	resp, err := http.Get("http://" + srv.Addr() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))

	require.NoError(t, srv.Stop())
	assert.False(t, srv.IsReady())

	_, err = http.Get("http://" + srv.Addr() + "/")
	assert.Error(t, err)
}

func TestServer_StopBeforeStart(t *testing.T) {
	srv := NewServer(testServerConfig(), http.NotFoundHandler(), zerolog.Nop())
	assert.NoError(t, srv.Stop())
	assert.Equal(t, "127.0.0.1:0", srv.Addr())
}

func TestServer_StartBindFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := testServerConfig()
	cfg.Port = busy.Addr().(*net.TCPAddr).Port
	srv := NewServer(cfg, http.NotFoundHandler(), zerolog.Nop())

	err = srv.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to bind")
	assert.False(t, srv.IsReady())
}

func TestServer_WaitForShutdownOnContextCancel(t *testing.T) {
	srv := NewServer(testServerConfig(), http.NotFoundHandler(), zerolog.Nop())
	require.NoError(t, srv.Start())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.WaitForShutdown(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForShutdown did not return after cancel")
	}
	assert.False(t, srv.IsReady())
}

func TestLimitedListener_CapsConnections(t *testing.T) {
	inner, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	l := &limitedListener{Listener: inner, semaphore: make(chan struct{}, 1)}
	defer l.Close()

	accepted := make(chan net.Conn, 2)
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			accepted <- conn
		}
	}()

	c1, err := net.Dial("tcp", inner.Addr().String())
	require.NoError(t, err)
	defer c1.Close()
	c2, err := net.Dial("tcp", inner.Addr().String())
	require.NoError(t, err)
	defer c2.Close()

	first := <-accepted
	select {
	case <-accepted:
		t.Fatal("second connection accepted while the cap was reached")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, first.Close())
	// Closing twice must not release the slot twice.
	first.Close()

	select {
	case second := <-accepted:
		second.Close()
	case <-time.After(5 * time.Second):
		t.Fatal("second connection not accepted after the first was closed")
	}
}
