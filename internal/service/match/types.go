package match

import (
	"context"
	"time"
)

// Notifier tells connected boards that a game's live state changed.
type Notifier interface {
	NotifyRefresh(ctx context.Context, gameID int64)
}

type NotifierFunc func(ctx context.Context, gameID int64)

func (f NotifierFunc) NotifyRefresh(ctx context.Context, gameID int64) { f(ctx, gameID) }

type Config struct {
	StartLockTTL  time.Duration
	MaxCourtLabel int
}

func defaultConfig() Config {
	return Config{
		StartLockTTL:  5 * time.Second,
		MaxCourtLabel: 16,
	}
}

// CheckinRequest is a self check-in when PlayerID is zero, otherwise a host
// checking in one of the game's players.
type CheckinRequest struct {
	UserID   int64
	AdminID  int64
	GameID   int64
	PlayerID int64
}
