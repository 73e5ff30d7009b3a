// Package liveboard is the live court board: the roster of one game, the
// staging group, the court grid and the sync loop that keeps them current.
package liveboard

import (
	"context"
	"sync"
	"time"

	"rehab-service/internal/apiclient"
	"rehab-service/internal/board"
	"rehab-service/internal/livesync"
	appErr "rehab-service/pkg/errors"
	"rehab-service/pkg/logger"
	"rehab-service/pkg/types"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// API is the slice of the backend the board calls.
type API interface {
	LoadBoard(ctx context.Context, gameID int64) (*apiclient.Board, error)
	LiveStatus(ctx context.Context, gameID int64) (*types.LiveStatus, error)
	StartMatch(ctx context.Context, req types.StartMatchRequest) (*types.Match, error)
	FinishMatch(ctx context.Context, req types.FinishMatchRequest) (*types.Match, error)
	CheckIn(ctx context.Context, req types.CheckinRequest) (*types.Player, error)
}

type Options struct {
	GameID       int64
	AutoFill     board.AutoFillOptions
	PollInterval time.Duration

	// PushURL enables the websocket channel. Token and Dialer are passed to it.
	PushURL string
	Token   func() string
	Dialer  livesync.Dialer
	Backoff livesync.Backoff

	// OnChange runs after every applied refetch.
	OnChange func(View)
	// OnPushState runs when the push connection changes state.
	OnPushState func(livesync.State)
}

// Controller owns the board state. Operator actions and the sync loop run on
// different goroutines; mu guards everything below it.
type Controller struct {
	api        API
	opts       Options
	log        *zap.Logger
	reconciler *livesync.Reconciler
	push       *livesync.PushChannel

	mu      sync.Mutex
	loaded  bool
	game    types.Game
	status  types.LiveStatus
	staging *board.Staging
	grid    *board.Grid
	pushed  livesync.State
}

func New(api API, opts Options) *Controller {
	c := &Controller{
		api:     api,
		opts:    opts,
		log:     logger.Named("liveboard").With(zap.Int64("gameID", opts.GameID)),
		staging: board.NewStaging(),
		grid:    board.NewGrid(nil),
	}
	c.reconciler = livesync.NewReconciler(c.fetch, livesync.ReconcilerConfig{Interval: opts.PollInterval})
	if opts.PushURL != "" {
		c.push = livesync.NewPushChannel(livesync.PushConfig{
			URL:       opts.PushURL,
			GameID:    opts.GameID,
			Token:     opts.Token,
			Dialer:    opts.Dialer,
			Backoff:   opts.Backoff,
			OnRefresh: c.reconciler.Trigger,
			OnState:   c.setPushState,
		})
	}
	return c
}

// Run loads the board and keeps it in sync until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	var wg conc.WaitGroup
	wg.Go(func() { c.reconciler.Run(ctx) })
	if c.push != nil {
		wg.Go(func() { c.push.Run(ctx) })
	}
	c.reconciler.Trigger()
	wg.Wait()
}

// Refresh refetches and waits for the result.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.reconciler.Refresh(ctx)
}

func (c *Controller) fetch(ctx context.Context) error {
	c.mu.Lock()
	loaded := c.loaded
	c.mu.Unlock()

	var (
		game   *types.Game
		status *types.LiveStatus
	)
	if !loaded {
		b, err := c.api.LoadBoard(ctx, c.opts.GameID)
		if err != nil {
			return err
		}
		game, status = &b.Game, &b.Status
	} else {
		st, err := c.api.LiveStatus(ctx, c.opts.GameID)
		if err != nil {
			return err
		}
		status = st
	}

	c.mu.Lock()
	if game != nil {
		c.game = *game
		c.grid = board.NewGrid(game.CourtLabels)
		c.loaded = true
	}
	c.status = *status
	c.grid.Sync(c.status.Matches)
	pruned := c.pruneLocked()
	view := c.viewLocked()
	c.mu.Unlock()

	if len(pruned) > 0 {
		c.log.Info("unstaged players no longer idle", zap.Int64s("players", pruned))
	}
	if c.opts.OnChange != nil {
		c.opts.OnChange(view)
	}
	return nil
}

// pruneLocked drops staged or pending players the roster no longer reports
// as idle.
func (c *Controller) pruneLocked() []int64 {
	idle := make(map[int64]bool, len(c.status.Players))
	for _, p := range c.status.Players {
		idle[p.ID] = p.Status == types.PlayerIdle
	}
	var pruned []int64
	for _, id := range c.staging.Slots() {
		if id != 0 && !idle[id] {
			c.staging.Remove(id)
			pruned = append(pruned, id)
		}
	}
	if p := c.staging.Pending(); p != 0 && !idle[p] {
		c.staging.Remove(p)
	}
	return pruned
}

func (c *Controller) setPushState(s livesync.State) {
	c.mu.Lock()
	c.pushed = s
	c.mu.Unlock()
	// Refreshes sent while disconnected are lost.
	if s == livesync.Connected {
		c.reconciler.Trigger()
	}
	if c.opts.OnPushState != nil {
		c.opts.OnPushState(s)
	}
}

// eligibleLocked checks that id is a known idle player.
func (c *Controller) eligibleLocked(id int64) error {
	for _, p := range c.status.Players {
		if p.ID != id {
			continue
		}
		if p.Status != types.PlayerIdle {
			return appErr.ErrPlayerNotIdle
		}
		return nil
	}
	return appErr.ErrPlayerNotFound
}

// Place toggles a player in the staging group.
func (c *Controller) Place(id int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.staging.Contains(id) {
		if err := c.eligibleLocked(id); err != nil {
			return false, err
		}
	}
	return c.staging.Place(id)
}

// Pick selects a roster player for the next slot click.
func (c *Controller) Pick(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.staging.Pending() != id {
		if err := c.eligibleLocked(id); err != nil {
			return err
		}
	}
	c.staging.Pick(id)
	return nil
}

func (c *Controller) SlotClick(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.staging.SlotClick(i)
}

func (c *Controller) AutoFill() ([]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.staging.AutoFill(c.status.Players, c.opts.AutoFill)
}

func (c *Controller) SetStrategy(s board.Strategy) {
	c.mu.Lock()
	c.opts.AutoFill.Strategy = s
	c.mu.Unlock()
}

func (c *Controller) Clear() {
	c.mu.Lock()
	c.staging.Clear()
	c.mu.Unlock()
}

// Commit starts a match on court with the staged group. Nothing is sent
// unless four distinct players are staged and the court is free. On success
// the group is cleared and the board refetched; on failure it is kept.
func (c *Controller) Commit(ctx context.Context, court string) (*types.Match, error) {
	c.mu.Lock()
	lineup, err := c.staging.Lineup()
	if err == nil {
		var target board.Court
		target, err = c.grid.Court(court, c.status.Matches)
		if err == nil && target.Occupied() {
			err = appErr.ErrCourtOccupied
		}
		court = target.Label
	}
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m, err := c.api.StartMatch(ctx, types.StartMatchRequest{
		GameID:      c.opts.GameID,
		CourtNumber: court,
		Players:     lineup,
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.staging.Clear()
	c.mu.Unlock()

	c.log.Info("match committed", zap.Int64("matchID", m.ID), zap.String("court", court))
	c.refreshAfterMutation(ctx)
	return m, nil
}

// Finish ends the match on court. The court shows empty right away; the
// players come back idle with the refetch.
func (c *Controller) Finish(ctx context.Context, court, winner string) error {
	c.mu.Lock()
	target, err := c.grid.Court(court, c.status.Matches)
	if err == nil && !target.Occupied() {
		err = appErr.ErrMatchNotFound
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}

	if _, err := c.api.FinishMatch(ctx, types.FinishMatchRequest{MatchID: target.Match.ID, Winner: winner}); err != nil {
		return err
	}

	c.mu.Lock()
	c.grid.Release(target.Match.ID)
	c.mu.Unlock()

	c.log.Info("match finished", zap.Int64("matchID", target.Match.ID), zap.String("court", target.Label))
	c.refreshAfterMutation(ctx)
	return nil
}

// CheckIn checks in the operator, or playerID on their behalf when non-zero.
func (c *Controller) CheckIn(ctx context.Context, playerID int64) error {
	req := types.CheckinRequest{GameID: c.opts.GameID}
	if playerID != 0 {
		req.PlayerID = &playerID
	}
	if _, err := c.api.CheckIn(ctx, req); err != nil {
		return err
	}
	c.refreshAfterMutation(ctx)
	return nil
}

func (c *Controller) AddCourt(label string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grid.Add(label)
}

func (c *Controller) RemoveCourt(label string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grid.Remove(label, c.status.Matches)
}

func (c *Controller) refreshAfterMutation(ctx context.Context) {
	if err := c.reconciler.Refresh(ctx); err != nil {
		c.log.Warn("refresh after mutation failed", zap.Error(err))
	}
}
