package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(s *Server) <-chan error {
	errc := make(chan error, 1)
	go func() { errc <- s.Start() }()
	return errc
}

func waitStart(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
		return nil
	}
}

func TestServer_StopBeforeStart(t *testing.T) {
	f := newFixture(t, defaultSearch())
	require.NoError(t, f.srv.Stop(context.Background()))

	err := waitStart(t, startServer(f.srv))
	assert.ErrorIs(t, err, http.ErrServerClosed)
}

func TestServer_StartThenStop(t *testing.T) {
	f := newFixture(t, defaultSearch())
	errc := startServer(f.srv)
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.srv.Stop(ctx))
	assert.ErrorIs(t, waitStart(t, errc), http.ErrServerClosed)
}

func TestServer_ConcurrentStartStop(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t, defaultSearch())
		errc := startServer(f.srv)
		require.NoError(t, f.srv.Stop(context.Background()))
		assert.ErrorIs(t, waitStart(t, errc), http.ErrServerClosed)
	}
}
