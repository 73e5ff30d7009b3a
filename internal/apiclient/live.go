package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"rehab-service/pkg/types"

	"golang.org/x/sync/errgroup"
)

// Board is everything the court board needs to render a game.
type Board struct {
	Game   types.Game
	Status types.LiveStatus
}

func (c *Client) Game(ctx context.Context, gameID int64) (*types.Game, error) {
	var g types.Game
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/games/%d", gameID), authNone, nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// LiveStatus is readable anonymously; with a token the answer carries the
// caller's player id.
func (c *Client) LiveStatus(ctx context.Context, gameID int64) (*types.LiveStatus, error) {
	var st types.LiveStatus
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/match/live-status/%d", gameID), authOptional, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// LoadBoard fetches game metadata and live status concurrently.
func (c *Client) LoadBoard(ctx context.Context, gameID int64) (*Board, error) {
	var b Board
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		game, err := c.Game(gctx, gameID)
		if err != nil {
			return err
		}
		b.Game = *game
		return nil
	})
	g.Go(func() error {
		st, err := c.LiveStatus(gctx, gameID)
		if err != nil {
			return err
		}
		b.Status = *st
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) StartMatch(ctx context.Context, req types.StartMatchRequest) (*types.Match, error) {
	var m types.Match
	if err := c.do(ctx, http.MethodPost, "/api/match/start", authRequired, req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) FinishMatch(ctx context.Context, req types.FinishMatchRequest) (*types.Match, error) {
	var m types.Match
	if err := c.do(ctx, http.MethodPost, "/api/match/finish", authRequired, req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// CheckIn checks in the caller, or playerID on the host's behalf when set.
func (c *Client) CheckIn(ctx context.Context, req types.CheckinRequest) (*types.Player, error) {
	var p types.Player
	if err := c.do(ctx, http.MethodPost, "/api/match/checkin", authRequired, req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
