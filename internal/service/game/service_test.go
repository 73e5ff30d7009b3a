package game_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"rehab-service/internal/model"
	"rehab-service/internal/service/game"
	appErr "rehab-service/pkg/errors"
	"rehab-service/pkg/types"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newGameService(t *testing.T) (*gorm.DB, *game.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db, game.NewService(db)
}

func seedUsers(t *testing.T, db *gorm.DB, names ...string) []model.User {
	t.Helper()
	users := make([]model.User, 0, len(names))
	for i, n := range names {
		users = append(users, model.User{DisplayName: n, Level: i + 1})
	}
	if err := db.Create(&users).Error; err != nil {
		t.Fatalf("seed users: %v", err)
	}
	return users
}

func sampleInput(capacity int) types.GameInput {
	start := time.Date(2026, 11, 1, 19, 0, 0, 0, time.UTC)
	return types.GameInput{
		Title:      "週五夜羽球",
		Location:   "信義運動中心",
		StartTime:  start,
		EndTime:    start.Add(3 * time.Hour),
		CourtCount: 2,
		Capacity:   capacity,
	}
}

func TestCreateGameEnrollsHost(t *testing.T) {
	ctx := context.Background()
	db, svc := newGameService(t)
	users := seedUsers(t, db, "host")

	created, err := svc.CreateGame(ctx, users[0].ID, sampleInput(8))
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	if created.ID == 0 || created.Enrolled != 1 {
		t.Fatalf("unexpected game: %+v", created)
	}
	if len(created.CourtLabels) != 2 || created.CourtLabels[0] != "1" || created.CourtLabels[1] != "2" {
		t.Fatalf("expected default court labels, got %v", created.CourtLabels)
	}

	roster, err := svc.Roster(ctx, created.ID)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster) != 1 || !roster[0].IsHost || roster[0].Status != types.PlayerWaitingCheckin {
		t.Fatalf("unexpected roster: %+v", roster)
	}
	if roster[0].Name != "host" {
		t.Fatalf("expected host name on player, got %q", roster[0].Name)
	}
}

func TestCreateGameRejectsBadLabels(t *testing.T) {
	ctx := context.Background()
	db, svc := newGameService(t)
	users := seedUsers(t, db, "host")

	in := sampleInput(8)
	in.CourtLabels = []string{"A", "A"}
	if _, err := svc.CreateGame(ctx, users[0].ID, in); !errors.Is(err, appErr.ErrInvalidGame) {
		t.Fatalf("expected duplicate labels to be rejected, got %v", err)
	}

	in = sampleInput(8)
	in.EndTime = in.StartTime
	if _, err := svc.CreateGame(ctx, users[0].ID, in); !errors.Is(err, appErr.ErrInvalidGame) {
		t.Fatalf("expected empty time window to be rejected, got %v", err)
	}
}

func TestEnrollCapacityAndDuplicates(t *testing.T) {
	ctx := context.Background()
	db, svc := newGameService(t)
	users := seedUsers(t, db, "host", "a", "b", "c", "d")

	g, err := svc.CreateGame(ctx, users[0].ID, sampleInput(4))
	if err != nil {
		t.Fatalf("create game: %v", err)
	}

	for _, u := range users[1:4] {
		if _, err := svc.Enroll(ctx, g.ID, u.ID); err != nil {
			t.Fatalf("enroll %s: %v", u.DisplayName, err)
		}
	}
	if _, err := svc.Enroll(ctx, g.ID, users[1].ID); !errors.Is(err, appErr.ErrAlreadyEnrolled) {
		t.Fatalf("expected duplicate enrollment error, got %v", err)
	}
	if _, err := svc.Enroll(ctx, g.ID, users[4].ID); !errors.Is(err, appErr.ErrGameFull) {
		t.Fatalf("expected full game error, got %v", err)
	}

	mine, err := svc.MyGames(ctx, users[2].ID)
	if err != nil {
		t.Fatalf("my games: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != g.ID || mine[0].Enrolled != 4 {
		t.Fatalf("unexpected my games: %+v", mine)
	}
}

func TestEnrollClosedGame(t *testing.T) {
	ctx := context.Background()
	db, svc := newGameService(t)
	users := seedUsers(t, db, "host", "a")

	g, _ := svc.CreateGame(ctx, users[0].ID, sampleInput(8))
	if err := svc.SetStatus(ctx, game.Actor{UserID: users[0].ID}, g.ID, game.StatusClosed); err != nil {
		t.Fatalf("close game: %v", err)
	}
	if _, err := svc.Enroll(ctx, g.ID, users[1].ID); !errors.Is(err, appErr.ErrGameClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestCancelEnrollmentRules(t *testing.T) {
	ctx := context.Background()
	db, svc := newGameService(t)
	users := seedUsers(t, db, "host", "a", "b")

	g, _ := svc.CreateGame(ctx, users[0].ID, sampleInput(8))
	pa, _ := svc.Enroll(ctx, g.ID, users[1].ID)
	if _, err := svc.Enroll(ctx, g.ID, users[2].ID); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	if err := svc.CancelEnrollment(ctx, g.ID, users[0].ID); !errors.Is(err, appErr.ErrHostCannotWithdraw) {
		t.Fatalf("expected host withdrawal rejected, got %v", err)
	}

	if err := db.Model(&model.Enrollment{}).Where("id = ?", pa.ID).Update("status", "playing").Error; err != nil {
		t.Fatalf("mark playing: %v", err)
	}
	if err := svc.CancelEnrollment(ctx, g.ID, users[1].ID); !errors.Is(err, appErr.ErrEnrollmentLocked) {
		t.Fatalf("expected playing player locked, got %v", err)
	}

	if err := svc.CancelEnrollment(ctx, g.ID, users[2].ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := svc.CancelEnrollment(ctx, g.ID, users[2].ID); !errors.Is(err, appErr.ErrNotEnrolled) {
		t.Fatalf("expected not enrolled, got %v", err)
	}
}

func TestUpdateAndDeleteRequireHost(t *testing.T) {
	ctx := context.Background()
	db, svc := newGameService(t)
	users := seedUsers(t, db, "host", "stranger")

	g, _ := svc.CreateGame(ctx, users[0].ID, sampleInput(8))

	in := sampleInput(8)
	in.Title = "改期"
	if _, err := svc.UpdateGame(ctx, game.Actor{UserID: users[1].ID}, g.ID, in); !errors.Is(err, appErr.ErrForbidden) {
		t.Fatalf("expected forbidden for stranger, got %v", err)
	}
	updated, err := svc.UpdateGame(ctx, game.Actor{UserID: users[0].ID}, g.ID, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "改期" {
		t.Fatalf("title not updated: %+v", updated)
	}

	if err := svc.DeleteGame(ctx, game.Actor{AdminID: 1}, g.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := svc.GetGame(ctx, g.ID); !errors.Is(err, appErr.ErrGameNotFound) {
		t.Fatalf("expected game gone, got %v", err)
	}
}

func TestListGamesPaged(t *testing.T) {
	ctx := context.Background()
	db, svc := newGameService(t)
	users := seedUsers(t, db, "host")

	for i := 0; i < 3; i++ {
		in := sampleInput(8)
		in.StartTime = in.StartTime.Add(time.Duration(i) * 24 * time.Hour)
		in.EndTime = in.StartTime.Add(2 * time.Hour)
		if _, err := svc.CreateGame(ctx, users[0].ID, in); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	result, err := svc.ListGames(ctx, game.ListFilter{Page: 1, Size: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Total != 3 || len(result.Items) != 2 {
		t.Fatalf("unexpected page: total=%d items=%d", result.Total, len(result.Items))
	}
	if !result.Items[0].StartTime.Before(result.Items[1].StartTime) {
		t.Fatalf("expected ascending start times")
	}
}
