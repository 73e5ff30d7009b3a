// Package livesync keeps the court board's copy of a game in step with the
// server: one reconciliation queue fed by the poll timer, push signals and
// post-mutation refreshes, plus the push connection itself.
package livesync

import (
	"context"
	"sync"
	"time"

	"rehab-service/pkg/logger"

	"go.uber.org/zap"
)

// FetchFunc refetches the game and replaces local state. On error the
// previous state must stay in place.
type FetchFunc func(ctx context.Context) error

type ReconcilerConfig struct {
	// Interval is the poll period. Zero disables polling.
	Interval time.Duration
}

// Reconciler funnels refetch triggers into a single worker. Triggers that
// arrive while a fetch is in flight collapse into one follow-up fetch.
type Reconciler struct {
	fetch FetchFunc
	cfg   ReconcilerConfig
	kick  chan struct{}

	mu        sync.Mutex
	requested uint64
	completed uint64
	waiters   []waiter
	fetches   uint64
}

type waiter struct {
	gen uint64
	ch  chan error
}

func NewReconciler(fetch FetchFunc, cfg ReconcilerConfig) *Reconciler {
	return &Reconciler{
		fetch: fetch,
		cfg:   cfg,
		kick:  make(chan struct{}, 1),
	}
}

// Trigger asks for a refetch without waiting for it.
func (r *Reconciler) Trigger() {
	r.mu.Lock()
	r.requested++
	r.mu.Unlock()
	r.signal()
}

// Refresh asks for a refetch and waits for one that started after the call.
// It returns that fetch's error.
func (r *Reconciler) Refresh(ctx context.Context) error {
	ch := make(chan error, 1)
	r.mu.Lock()
	r.requested++
	r.waiters = append(r.waiters, waiter{gen: r.requested, ch: ch})
	r.mu.Unlock()
	r.signal()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fetches reports how many fetches have run.
func (r *Reconciler) Fetches() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetches
}

// Run performs fetches until ctx is done. It must be called once.
func (r *Reconciler) Run(ctx context.Context) {
	var tick <-chan time.Time
	if r.cfg.Interval > 0 {
		ticker := time.NewTicker(r.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			r.release(ctx.Err())
			return
		case <-tick:
			r.mu.Lock()
			r.requested++
			r.mu.Unlock()
		case <-r.kick:
		}
		r.runOnce(ctx)
	}
}

func (r *Reconciler) runOnce(ctx context.Context) {
	r.mu.Lock()
	target := r.requested
	if target == r.completed {
		r.mu.Unlock()
		return
	}
	r.fetches++
	r.mu.Unlock()

	err := r.fetch(ctx)
	if err != nil {
		logger.Log.Warn("live refetch failed, keeping previous state", zap.Error(err))
	}

	r.mu.Lock()
	r.completed = target
	pending := r.waiters[:0]
	for _, w := range r.waiters {
		if w.gen <= target {
			w.ch <- err
			continue
		}
		pending = append(pending, w)
	}
	r.waiters = pending
	r.mu.Unlock()
}

func (r *Reconciler) release(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.waiters {
		w.ch <- err
	}
	r.waiters = nil
}

func (r *Reconciler) signal() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}
