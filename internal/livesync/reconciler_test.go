package livesync_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"rehab-service/internal/livesync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedFetch blocks every fetch until the test releases it.
type gatedFetch struct {
	started chan struct{}
	release chan error
	calls   atomic.Int32
}

func newGatedFetch() *gatedFetch {
	return &gatedFetch{started: make(chan struct{}, 16), release: make(chan error)}
}

func (g *gatedFetch) fetch(ctx context.Context) error {
	g.calls.Add(1)
	g.started <- struct{}{}
	select {
	case err := <-g.release:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func waitStarted(t *testing.T, g *gatedFetch) {
	t.Helper()
	select {
	case <-g.started:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not start")
	}
}

func startReconciler(t *testing.T, fetch livesync.FetchFunc, cfg livesync.ReconcilerConfig) *livesync.Reconciler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	r := livesync.NewReconciler(fetch, cfg)
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r
}

func TestTriggersCoalesceWhileInFlight(t *testing.T) {
	g := newGatedFetch()
	r := startReconciler(t, g.fetch, livesync.ReconcilerConfig{})

	r.Trigger()
	waitStarted(t, g)
	for i := 0; i < 5; i++ {
		r.Trigger()
	}
	g.release <- nil

	waitStarted(t, g)
	g.release <- nil

	select {
	case <-g.started:
		t.Fatal("unexpected third fetch")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, int32(2), g.calls.Load())
}

func TestRefreshWaitsForFetchStartedAfterCall(t *testing.T) {
	g := newGatedFetch()
	r := startReconciler(t, g.fetch, livesync.ReconcilerConfig{})

	r.Trigger()
	waitStarted(t, g)

	result := make(chan error, 1)
	go func() { result <- r.Refresh(context.Background()) }()

	// Give Refresh time to register before the in-flight fetch ends.
	time.Sleep(20 * time.Millisecond)
	g.release <- nil

	select {
	case <-result:
		t.Fatal("refresh returned on a fetch that started before it")
	case <-g.started:
	}

	boom := errors.New("boom")
	g.release <- boom
	select {
	case err := <-result:
		require.ErrorIs(t, err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not return")
	}
}

func TestRefreshHonoursContext(t *testing.T) {
	g := newGatedFetch()
	r := startReconciler(t, g.fetch, livesync.ReconcilerConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := r.Refresh(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	waitStarted(t, g)
	g.release <- nil
}

func TestPollInterval(t *testing.T) {
	var calls atomic.Int32
	r := startReconciler(t, func(context.Context) error {
		calls.Add(1)
		return errors.New("offline")
	}, livesync.ReconcilerConfig{Interval: 5 * time.Millisecond})

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond,
		"polling must continue after failures")
	assert.GreaterOrEqual(t, r.Fetches(), uint64(3))
}

func TestBackoff(t *testing.T) {
	b := livesync.Backoff{Base: time.Second, Max: 30 * time.Second}

	var got []time.Duration
	for i := 0; i < 7; i++ {
		got = append(got, b.Next())
	}
	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second,
	}, got)

	b.Reset()
	assert.Equal(t, time.Second, b.Next())
}
