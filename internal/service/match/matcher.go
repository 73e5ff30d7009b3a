package match

import (
	"context"
	"strings"

	"rehab-service/internal/model"
	appErr "rehab-service/pkg/errors"
	"rehab-service/pkg/types"

	"gorm.io/gorm"
)

func (s *Service) validateCourt(court string) (string, error) {
	court = strings.TrimSpace(court)
	if court == "" || len(court) > s.cfg.MaxCourtLabel {
		return "", appErr.ErrInvalidCourt
	}
	return court, nil
}

// validateLineup requires four distinct, non-zero player ids.
func validateLineup(l types.Lineup) ([4]int64, error) {
	ids := l.IDs()
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return ids, appErr.ErrPlayerNotFound
		}
		if _, dup := seen[id]; dup {
			return ids, appErr.ErrDuplicatePlayer
		}
		seen[id] = struct{}{}
	}
	return ids, nil
}

func normalizeWinner(w string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(w)) {
	case "":
		return types.WinnerNone, nil
	case "NONE":
		return types.WinnerNone, nil
	case types.WinnerA:
		return types.WinnerA, nil
	case types.WinnerB:
		return types.WinnerB, nil
	}
	return "", appErr.ErrInvalidWinner
}

// composeMatch claims the court and the four players in one transaction. The
// status flip is conditional, so a player taken by a concurrent start makes
// the whole start fail.
func (s *Service) composeMatch(ctx context.Context, gameID int64, court string, lineup types.Lineup, ids [4]int64) (*model.Match, error) {
	var m model.Match
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var busy int64
		if err := tx.Model(&model.Match{}).
			Where("game_id = ? AND court_number = ? AND status = ?", gameID, court, string(types.MatchActive)).
			Count(&busy).Error; err != nil {
			return err
		}
		if busy > 0 {
			return appErr.ErrCourtOccupied
		}

		var players []model.Enrollment
		if err := tx.Where("game_id = ? AND id IN ?", gameID, ids[:]).Find(&players).Error; err != nil {
			return err
		}
		if len(players) != len(ids) {
			return appErr.ErrPlayerNotFound
		}
		for _, p := range players {
			if p.Status != string(types.PlayerIdle) {
				return appErr.ErrPlayerNotIdle
			}
		}

		now := s.now()
		res := tx.Model(&model.Enrollment{}).
			Where("id IN ? AND status = ?", ids[:], string(types.PlayerIdle)).
			Updates(map[string]interface{}{
				"status":     string(types.PlayerPlaying),
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			return appErr.ErrPlayerNotIdle
		}

		m = model.Match{
			GameID:      gameID,
			CourtNumber: court,
			A1:          lineup.A1,
			A2:          lineup.A2,
			B1:          lineup.B1,
			B2:          lineup.B2,
			Status:      string(types.MatchActive),
			StartedAt:   now,
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}
