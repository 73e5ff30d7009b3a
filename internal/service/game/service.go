package game

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"rehab-service/internal/model"
	appErr "rehab-service/pkg/errors"
	"rehab-service/pkg/logger"
	"rehab-service/pkg/types"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxLabelLength  = 16

	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Service owns sessions (games) and their enrollments.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Actor is the caller of a mutating operation. Exactly one of the ids is set.
type Actor struct {
	UserID  int64
	AdminID int64
}

func (a Actor) IsAdmin() bool { return a.AdminID != 0 }

type ListFilter struct {
	Page     int
	Size     int
	From     *time.Time
	HostID   int64
	OpenOnly bool
}

type ListResult struct {
	Items []types.Game
	Total int64
}

func (s *Service) ListGames(ctx context.Context, filter ListFilter) (*ListResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Size <= 0 {
		filter.Size = defaultPageSize
	}
	if filter.Size > maxPageSize {
		filter.Size = maxPageSize
	}

	query := func() *gorm.DB {
		db := s.db.WithContext(ctx).Model(&model.Game{})
		if filter.From != nil {
			db = db.Where("end_time >= ?", *filter.From)
		}
		if filter.HostID != 0 {
			db = db.Where("host_id = ?", filter.HostID)
		}
		if filter.OpenOnly {
			db = db.Where("status = ?", StatusOpen)
		}
		return db
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, err
	}

	result := &ListResult{Items: make([]types.Game, 0), Total: total}
	if total == 0 {
		return result, nil
	}

	var games []model.Game
	if err := query().
		Order("start_time ASC, id ASC").
		Limit(filter.Size).
		Offset((filter.Page - 1) * filter.Size).
		Find(&games).Error; err != nil {
		return nil, err
	}
	counts, err := s.enrolledCounts(ctx, games)
	if err != nil {
		return nil, err
	}
	for _, g := range games {
		result.Items = append(result.Items, toDTO(g, counts[g.ID]))
	}
	return result, nil
}

func (s *Service) GetGame(ctx context.Context, id int64) (*types.Game, error) {
	g, err := s.loadGame(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.enrolledCounts(ctx, []model.Game{*g})
	if err != nil {
		return nil, err
	}
	dto := toDTO(*g, counts[g.ID])
	return &dto, nil
}

// CreateGame stores a new session hosted by hostID and enrolls the host.
func (s *Service) CreateGame(ctx context.Context, hostID int64, in types.GameInput) (*types.Game, error) {
	labels, err := normalizeInput(&in)
	if err != nil {
		return nil, err
	}
	labelJSON, err := json.Marshal(labels)
	if err != nil {
		return nil, err
	}

	g := model.Game{
		HostID:      hostID,
		Title:       in.Title,
		Location:    in.Location,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		CourtCount:  in.CourtCount,
		CourtLabels: datatypes.JSON(labelJSON),
		HostContact: in.HostContact,
		Capacity:    in.Capacity,
		Notes:       in.Notes,
		Status:      StatusOpen,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&g).Error; err != nil {
			return err
		}
		return tx.Create(&model.Enrollment{
			GameID: g.ID,
			UserID: hostID,
			Status: string(types.PlayerWaitingCheckin),
			IsHost: true,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("game created",
		zap.Int64("gameID", g.ID),
		zap.Int64("hostID", hostID),
		zap.Int("courts", g.CourtCount),
	)
	dto := toDTO(g, 1)
	return &dto, nil
}

func (s *Service) UpdateGame(ctx context.Context, actor Actor, id int64, in types.GameInput) (*types.Game, error) {
	if _, err := s.Authorize(ctx, actor, id); err != nil {
		return nil, err
	}
	labels, err := normalizeInput(&in)
	if err != nil {
		return nil, err
	}
	labelJSON, err := json.Marshal(labels)
	if err != nil {
		return nil, err
	}

	var enrolled int64
	if err := s.db.WithContext(ctx).Model(&model.Enrollment{}).Where("game_id = ?", id).Count(&enrolled).Error; err != nil {
		return nil, err
	}
	if int64(in.Capacity) < enrolled {
		return nil, appErr.ErrInvalidGame
	}

	updates := map[string]interface{}{
		"title":        in.Title,
		"location":     in.Location,
		"start_time":   in.StartTime,
		"end_time":     in.EndTime,
		"court_count":  in.CourtCount,
		"court_labels": datatypes.JSON(labelJSON),
		"host_contact": in.HostContact,
		"capacity":     in.Capacity,
		"notes":        in.Notes,
		"updated_at":   time.Now(),
	}
	if err := s.db.WithContext(ctx).Model(&model.Game{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetGame(ctx, id)
}

// DeleteGame removes the session with its enrollments and matches.
func (s *Service) DeleteGame(ctx context.Context, actor Actor, id int64) error {
	if _, err := s.Authorize(ctx, actor, id); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("game_id = ?", id).Delete(&model.Match{}).Error; err != nil {
			return err
		}
		if err := tx.Where("game_id = ?", id).Delete(&model.Enrollment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Game{}, id).Error
	})
	if err != nil {
		return err
	}
	logger.Log.Info("game deleted", zap.Int64("gameID", id), zap.Int64("userID", actor.UserID), zap.Int64("adminID", actor.AdminID))
	return nil
}

// Authorize loads the game and checks the actor may manage it (host or admin).
func (s *Service) Authorize(ctx context.Context, actor Actor, gameID int64) (*model.Game, error) {
	g, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || (actor.UserID != 0 && actor.UserID == g.HostID) {
		return g, nil
	}
	return nil, appErr.ErrForbidden
}

func (s *Service) loadGame(ctx context.Context, id int64) (*model.Game, error) {
	var g model.Game
	if err := s.db.WithContext(ctx).First(&g, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrGameNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (s *Service) enrolledCounts(ctx context.Context, games []model.Game) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(games))
	if len(games) == 0 {
		return counts, nil
	}
	ids := make([]int64, 0, len(games))
	for _, g := range games {
		ids = append(ids, g.ID)
	}

	var rows []struct {
		GameID int64
		Total  int64
	}
	if err := s.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Select("game_id, COUNT(*) AS total").
		Where("game_id IN ?", ids).
		Group("game_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.GameID] = r.Total
	}
	return counts, nil
}

func normalizeInput(in *types.GameInput) ([]string, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Location = strings.TrimSpace(in.Location)
	in.HostContact = strings.TrimSpace(in.HostContact)
	in.Notes = strings.TrimSpace(in.Notes)
	if in.Title == "" || in.Location == "" || in.CourtCount < 1 || in.Capacity < 4 {
		return nil, appErr.ErrInvalidGame
	}
	if !in.EndTime.After(in.StartTime) {
		return nil, appErr.ErrInvalidGame
	}
	return normalizeLabels(in.CourtLabels, in.CourtCount)
}

// normalizeLabels defaults to "1".."n" and otherwise requires exactly n
// unique, non-empty labels.
func normalizeLabels(labels []string, count int) ([]string, error) {
	if len(labels) == 0 {
		out := make([]string, count)
		for i := range out {
			out[i] = strconv.Itoa(i + 1)
		}
		return out, nil
	}
	if len(labels) != count {
		return nil, appErr.ErrInvalidGame
	}
	seen := make(map[string]struct{}, count)
	out := make([]string, 0, count)
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" || len(l) > maxLabelLength {
			return nil, appErr.ErrInvalidGame
		}
		if _, dup := seen[l]; dup {
			return nil, appErr.ErrInvalidGame
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out, nil
}

func toDTO(g model.Game, enrolled int64) types.Game {
	var labels []string
	if len(g.CourtLabels) > 0 {
		_ = json.Unmarshal(g.CourtLabels, &labels)
	}
	if len(labels) == 0 {
		labels, _ = normalizeLabels(nil, g.CourtCount)
	}
	return types.Game{
		ID:          g.ID,
		HostID:      g.HostID,
		Title:       g.Title,
		Location:    g.Location,
		StartTime:   g.StartTime,
		EndTime:     g.EndTime,
		CourtCount:  g.CourtCount,
		CourtLabels: labels,
		HostContact: g.HostContact,
		Capacity:    g.Capacity,
		Notes:       g.Notes,
		Status:      g.Status,
		Enrolled:    enrolled,
	}
}
