package game

import (
	"context"
	"errors"
	"time"

	"rehab-service/internal/model"
	appErr "rehab-service/pkg/errors"
	"rehab-service/pkg/logger"
	"rehab-service/pkg/types"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Enroll adds userID to the game's roster, enforcing capacity inside the
// transaction so concurrent sign-ups cannot overshoot it.
func (s *Service) Enroll(ctx context.Context, gameID, userID int64) (*types.Player, error) {
	var enrollment model.Enrollment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var g model.Game
		if err := tx.First(&g, gameID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return appErr.ErrGameNotFound
			}
			return err
		}
		if g.Status != StatusOpen {
			return appErr.ErrGameClosed
		}

		var existing int64
		if err := tx.Model(&model.Enrollment{}).
			Where("game_id = ? AND user_id = ?", gameID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return appErr.ErrAlreadyEnrolled
		}

		var enrolled int64
		if err := tx.Model(&model.Enrollment{}).Where("game_id = ?", gameID).Count(&enrolled).Error; err != nil {
			return err
		}
		if enrolled >= int64(g.Capacity) {
			return appErr.ErrGameFull
		}

		enrollment = model.Enrollment{
			GameID: gameID,
			UserID: userID,
			Status: string(types.PlayerWaitingCheckin),
		}
		return tx.Create(&enrollment).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("player enrolled",
		zap.Int64("gameID", gameID),
		zap.Int64("userID", userID),
		zap.Int64("playerID", enrollment.ID),
	)
	return s.player(ctx, enrollment.ID)
}

// CancelEnrollment withdraws userID from the game. Players on court and the
// host cannot withdraw.
func (s *Service) CancelEnrollment(ctx context.Context, gameID, userID int64) error {
	var enrollment model.Enrollment
	err := s.db.WithContext(ctx).
		Where("game_id = ? AND user_id = ?", gameID, userID).
		First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.ErrNotEnrolled
		}
		return err
	}
	if enrollment.IsHost {
		return appErr.ErrHostCannotWithdraw
	}

	res := s.db.WithContext(ctx).
		Where("id = ? AND status <> ?", enrollment.ID, string(types.PlayerPlaying)).
		Delete(&model.Enrollment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return appErr.ErrEnrollmentLocked
	}

	logger.Log.Info("enrollment cancelled", zap.Int64("gameID", gameID), zap.Int64("userID", userID))
	return nil
}

// SetStatus opens or closes enrollment for a game.
func (s *Service) SetStatus(ctx context.Context, actor Actor, gameID int64, status string) error {
	if status != StatusOpen && status != StatusClosed {
		return appErr.ErrInvalidGame
	}
	if _, err := s.Authorize(ctx, actor, gameID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Model(&model.Game{}).
		Where("id = ?", gameID).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
}

// Roster lists the game's players ordered by enrollment.
func (s *Service) Roster(ctx context.Context, gameID int64) ([]types.Player, error) {
	if _, err := s.loadGame(ctx, gameID); err != nil {
		return nil, err
	}
	return LoadPlayers(ctx, s.db, gameID)
}

// MyGames lists the games userID is enrolled in, soonest first.
func (s *Service) MyGames(ctx context.Context, userID int64) ([]types.Game, error) {
	var games []model.Game
	if err := s.db.WithContext(ctx).
		Model(&model.Game{}).
		Joins("JOIN enrollments ON enrollments.game_id = games.id").
		Where("enrollments.user_id = ?", userID).
		Order("games.start_time ASC").
		Find(&games).Error; err != nil {
		return nil, err
	}
	counts, err := s.enrolledCounts(ctx, games)
	if err != nil {
		return nil, err
	}
	out := make([]types.Game, 0, len(games))
	for _, g := range games {
		out = append(out, toDTO(g, counts[g.ID]))
	}
	return out, nil
}

// MyPlayerID returns the enrollment id of userID in gameID, or 0.
func (s *Service) MyPlayerID(ctx context.Context, gameID, userID int64) (int64, error) {
	if userID == 0 {
		return 0, nil
	}
	var enrollment model.Enrollment
	err := s.db.WithContext(ctx).
		Select("id").
		Where("game_id = ? AND user_id = ?", gameID, userID).
		First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return enrollment.ID, nil
}

func (s *Service) player(ctx context.Context, enrollmentID int64) (*types.Player, error) {
	var row playerRow
	err := playerQuery(s.db.WithContext(ctx)).
		Where("enrollments.id = ?", enrollmentID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrPlayerNotFound
		}
		return nil, err
	}
	p := row.toPlayer()
	return &p, nil
}

type playerRow struct {
	ID          int64
	UserID      int64
	DisplayName string
	Avatar      string
	Level       int
	GamesPlayed int
	Wins        int
	Status      string
	CheckInAt   *time.Time
	IsHost      bool
}

func (r playerRow) toPlayer() types.Player {
	return types.Player{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.DisplayName,
		Avatar:      r.Avatar,
		Level:       r.Level,
		GamesPlayed: r.GamesPlayed,
		Wins:        r.Wins,
		Status:      types.PlayerStatus(r.Status),
		CheckInAt:   r.CheckInAt,
		IsHost:      r.IsHost,
	}
}

func playerQuery(db *gorm.DB) *gorm.DB {
	return db.Model(&model.Enrollment{}).
		Select("enrollments.id, enrollments.user_id, users.display_name, users.avatar, users.level, " +
			"enrollments.games_played, enrollments.wins, enrollments.status, enrollments.check_in_at, enrollments.is_host").
		Joins("JOIN users ON users.id = enrollments.user_id")
}

// LoadPlayers reads every player of a game in enrollment order.
func LoadPlayers(ctx context.Context, db *gorm.DB, gameID int64) ([]types.Player, error) {
	var rows []playerRow
	if err := playerQuery(db.WithContext(ctx)).
		Where("enrollments.game_id = ?", gameID).
		Order("enrollments.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	players := make([]types.Player, 0, len(rows))
	for _, r := range rows {
		players = append(players, r.toPlayer())
	}
	return players, nil
}
