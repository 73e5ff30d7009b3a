package match

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"rehab-service/internal/config"
	"rehab-service/internal/model"
	"rehab-service/internal/service/game"
	appErr "rehab-service/pkg/errors"
	"rehab-service/pkg/logger"
	"rehab-service/pkg/types"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Service runs the live side of a game: check-in, court assignment and
// match results. Every successful mutation publishes a refresh.
type Service struct {
	db       *gorm.DB
	rdb      *redis.Client
	games    *game.Service
	notifier Notifier
	cfg      Config
	now      func() time.Time

	status singleflight.Group
}

func NewService(db *gorm.DB, rdb *redis.Client, games *game.Service, notifier Notifier) *Service {
	cfg := defaultConfig()
	if config.GlobalConfig != nil && config.GlobalConfig.Live.StartLockTTL > 0 {
		cfg.StartLockTTL = config.GlobalConfig.Live.StartLockTTL
	}
	if notifier == nil {
		notifier = NotifierFunc(func(context.Context, int64) {})
	}
	return &Service{
		db:       db,
		rdb:      rdb,
		games:    games,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// LiveStatus returns the roster and matches of a game. Concurrent polls of the
// same game share one database read; myPlayerId is resolved per caller.
func (s *Service) LiveStatus(ctx context.Context, gameID, userID int64) (*types.LiveStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// The shared read outlives any single caller.
	readCtx := context.WithoutCancel(ctx)
	ch := s.status.DoChan(statusKey(gameID), func() (interface{}, error) {
		return s.loadStatus(readCtx, gameID)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}
	shared := res.Val.(*types.LiveStatus)

	out := &types.LiveStatus{Players: shared.Players, Matches: shared.Matches}
	if userID != 0 {
		for _, p := range shared.Players {
			if p.UserID == userID {
				id := p.ID
				out.MyPlayerID = &id
				break
			}
		}
	}
	return out, nil
}

func (s *Service) loadStatus(ctx context.Context, gameID int64) (*types.LiveStatus, error) {
	if _, err := s.games.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	players, err := game.LoadPlayers(ctx, s.db, gameID)
	if err != nil {
		return nil, err
	}

	var rows []model.Match
	if err := s.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	matches := make([]types.Match, 0, len(rows))
	for _, m := range rows {
		matches = append(matches, toMatchDTO(m))
	}
	return &types.LiveStatus{Players: players, Matches: matches}, nil
}

// StartMatch puts four idle players of the game on a free court.
func (s *Service) StartMatch(ctx context.Context, actor game.Actor, req types.StartMatchRequest) (*types.Match, error) {
	court, err := s.validateCourt(req.CourtNumber)
	if err != nil {
		return nil, err
	}
	ids, err := validateLineup(req.Players)
	if err != nil {
		return nil, err
	}
	if _, err := s.games.Authorize(ctx, actor, req.GameID); err != nil {
		return nil, err
	}

	unlock, err := s.lockGame(ctx, req.GameID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	m, err := s.composeMatch(ctx, req.GameID, court, req.Players, ids)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("match started",
		zap.Int64("gameID", req.GameID),
		zap.Int64("matchID", m.ID),
		zap.String("court", court),
		zap.Int64s("players", ids[:]),
	)
	s.refresh(ctx, req.GameID)
	dto := toMatchDTO(*m)
	return &dto, nil
}

// FinishMatch closes an active match, frees its court and credits the players.
func (s *Service) FinishMatch(ctx context.Context, actor game.Actor, req types.FinishMatchRequest) (*types.Match, error) {
	winner, err := normalizeWinner(req.Winner)
	if err != nil {
		return nil, err
	}

	var m model.Match
	if err := s.db.WithContext(ctx).First(&m, req.MatchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrMatchNotFound
		}
		return nil, err
	}
	if _, err := s.games.Authorize(ctx, actor, m.GameID); err != nil {
		return nil, err
	}
	if m.Status != string(types.MatchActive) {
		return nil, appErr.ErrMatchFinished
	}

	endedAt := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Match{}).
			Where("id = ? AND status = ?", m.ID, string(types.MatchActive)).
			Updates(map[string]interface{}{
				"status":   string(types.MatchFinished),
				"winner":   winner,
				"ended_at": endedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return appErr.ErrMatchFinished
		}

		all := []int64{m.A1, m.A2, m.B1, m.B2}
		if err := tx.Model(&model.Enrollment{}).
			Where("id IN ?", all).
			Updates(map[string]interface{}{
				"status":       string(types.PlayerIdle),
				"games_played": gorm.Expr("games_played + 1"),
				"updated_at":   endedAt,
			}).Error; err != nil {
			return err
		}

		var winners []int64
		switch winner {
		case types.WinnerA:
			winners = []int64{m.A1, m.A2}
		case types.WinnerB:
			winners = []int64{m.B1, m.B2}
		}
		if len(winners) > 0 {
			return tx.Model(&model.Enrollment{}).
				Where("id IN ?", winners).
				Update("wins", gorm.Expr("wins + 1")).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.Status = string(types.MatchFinished)
	m.Winner = winner
	m.EndedAt = &endedAt

	logger.Log.Info("match finished",
		zap.Int64("gameID", m.GameID),
		zap.Int64("matchID", m.ID),
		zap.String("court", m.CourtNumber),
		zap.String("winner", winner),
	)
	s.refresh(ctx, m.GameID)
	dto := toMatchDTO(m)
	return &dto, nil
}

// CheckIn marks a player as arrived, making them eligible for courts.
func (s *Service) CheckIn(ctx context.Context, req CheckinRequest) (*types.Player, error) {
	var enrollment model.Enrollment
	if req.PlayerID == 0 {
		err := s.db.WithContext(ctx).
			Where("game_id = ? AND user_id = ?", req.GameID, req.UserID).
			First(&enrollment).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, appErr.ErrNotEnrolled
			}
			return nil, err
		}
	} else {
		actor := game.Actor{UserID: req.UserID, AdminID: req.AdminID}
		if _, err := s.games.Authorize(ctx, actor, req.GameID); err != nil {
			return nil, err
		}
		err := s.db.WithContext(ctx).
			Where("id = ? AND game_id = ?", req.PlayerID, req.GameID).
			First(&enrollment).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, appErr.ErrPlayerNotFound
			}
			return nil, err
		}
	}

	now := s.now()
	res := s.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("id = ? AND status = ?", enrollment.ID, string(types.PlayerWaitingCheckin)).
		Updates(map[string]interface{}{
			"status":      string(types.PlayerIdle),
			"check_in_at": now,
			"updated_at":  now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, appErr.ErrAlreadyCheckedIn
	}

	logger.Log.Info("player checked in",
		zap.Int64("gameID", req.GameID),
		zap.Int64("playerID", enrollment.ID),
		zap.Bool("proxy", req.PlayerID != 0),
	)
	s.refresh(ctx, req.GameID)

	players, err := game.LoadPlayers(ctx, s.db, req.GameID)
	if err != nil {
		return nil, err
	}
	for _, p := range players {
		if p.ID == enrollment.ID {
			return &p, nil
		}
	}
	return nil, appErr.ErrPlayerNotFound
}

// refresh drops any in-flight shared read of the game, so the next poll
// starts after the mutation, then tells subscribers.
func (s *Service) refresh(ctx context.Context, gameID int64) {
	s.status.Forget(statusKey(gameID))
	s.notifier.NotifyRefresh(ctx, gameID)
}

func statusKey(gameID int64) string {
	return strconv.FormatInt(gameID, 10)
}

// lockGame serialises starts per game across instances. Without redis the
// conditional updates in composeMatch are the only guard.
func (s *Service) lockGame(ctx context.Context, gameID int64) (func(), error) {
	if s.rdb == nil {
		return func() {}, nil
	}
	key := buildStartLockKey(gameID)
	ok, err := s.rdb.SetNX(ctx, key, 1, s.cfg.StartLockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErr.ErrLiveBusy
	}
	return func() { s.rdb.Del(context.WithoutCancel(ctx), key) }, nil
}

func toMatchDTO(m model.Match) types.Match {
	return types.Match{
		ID:          m.ID,
		GameID:      m.GameID,
		CourtNumber: m.CourtNumber,
		Players:     types.Lineup{A1: m.A1, A2: m.A2, B1: m.B1, B2: m.B2},
		StartTime:   m.StartedAt,
		EndTime:     m.EndedAt,
		Status:      types.MatchStatus(m.Status),
		Winner:      m.Winner,
	}
}

func buildStartLockKey(gameID int64) string {
	return fmt.Sprintf("live:start:%d", gameID)
}
