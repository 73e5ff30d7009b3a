package match_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"rehab-service/internal/model"
	"rehab-service/internal/service/game"
	"rehab-service/internal/service/match"
	appErr "rehab-service/pkg/errors"
	"rehab-service/pkg/types"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type recorder struct {
	mu    sync.Mutex
	games []int64
}

func (r *recorder) NotifyRefresh(_ context.Context, gameID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games = append(r.games, gameID)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.games)
}

type fixture struct {
	db      *gorm.DB
	games   *game.Service
	svc     *match.Service
	notes   *recorder
	host    model.User
	gameID  int64
	players []types.Player
}

// newFixture creates a game with a host and n more players, all checked in
// except the host.
func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	games := game.NewService(db)
	notes := &recorder{}
	f := &fixture{
		db:    db,
		games: games,
		svc:   match.NewService(db, nil, games, notes),
		notes: notes,
	}

	f.host = model.User{DisplayName: "host", Level: 5}
	if err := db.Create(&f.host).Error; err != nil {
		t.Fatalf("seed host: %v", err)
	}
	capacity := n + 1
	if capacity < 4 {
		capacity = 4
	}
	start := time.Date(2026, 11, 1, 19, 0, 0, 0, time.UTC)
	g, err := games.CreateGame(ctx, f.host.ID, types.GameInput{
		Title:      "練球",
		Location:   "體育館",
		StartTime:  start,
		EndTime:    start.Add(3 * time.Hour),
		CourtCount: 2,
		Capacity:   capacity,
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	f.gameID = g.ID

	for i := 0; i < n; i++ {
		u := model.User{DisplayName: fmt.Sprintf("p%d", i), Level: i + 1}
		if err := db.Create(&u).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
		p, err := games.Enroll(ctx, g.ID, u.ID)
		if err != nil {
			t.Fatalf("enroll: %v", err)
		}
		if _, err := f.svc.CheckIn(ctx, match.CheckinRequest{UserID: u.ID, GameID: g.ID}); err != nil {
			t.Fatalf("check in: %v", err)
		}
		f.players = append(f.players, *p)
	}
	return f
}

func (f *fixture) hostActor() game.Actor { return game.Actor{UserID: f.host.ID} }

func (f *fixture) lineup(i, j, k, l int) types.Lineup {
	return types.Lineup{A1: f.players[i].ID, A2: f.players[j].ID, B1: f.players[k].ID, B2: f.players[l].ID}
}

func (f *fixture) status(t *testing.T, playerID int64) types.PlayerStatus {
	t.Helper()
	var e model.Enrollment
	if err := f.db.First(&e, playerID).Error; err != nil {
		t.Fatalf("load enrollment: %v", err)
	}
	return types.PlayerStatus(e.Status)
}

func TestStartMatchMarksPlayersPlaying(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)
	before := f.notes.count()

	m, err := f.svc.StartMatch(ctx, f.hostActor(), types.StartMatchRequest{
		GameID:      f.gameID,
		CourtNumber: " 1 ",
		Players:     f.lineup(0, 3, 2, 1),
	})
	if err != nil {
		t.Fatalf("start match: %v", err)
	}
	if m.CourtNumber != "1" || m.Status != types.MatchActive || m.Terminal() {
		t.Fatalf("unexpected match: %+v", m)
	}
	if m.Players.A2 != f.players[3].ID || m.Players.B2 != f.players[1].ID {
		t.Fatalf("lineup order not kept: %+v", m.Players)
	}
	for _, i := range []int{0, 1, 2, 3} {
		if got := f.status(t, f.players[i].ID); got != types.PlayerPlaying {
			t.Fatalf("player %d status = %s, want playing", i, got)
		}
	}
	if got := f.status(t, f.players[4].ID); got != types.PlayerIdle {
		t.Fatalf("bench player status = %s, want idle", got)
	}
	if f.notes.count() != before+1 {
		t.Fatalf("expected one refresh notification")
	}
}

func TestStartMatchRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8)

	if _, err := f.svc.StartMatch(ctx, f.hostActor(), types.StartMatchRequest{
		GameID: f.gameID, CourtNumber: "  ", Players: f.lineup(0, 1, 2, 3),
	}); !errors.Is(err, appErr.ErrInvalidCourt) {
		t.Fatalf("expected invalid court, got %v", err)
	}
	if _, err := f.svc.StartMatch(ctx, f.hostActor(), types.StartMatchRequest{
		GameID: f.gameID, CourtNumber: "1", Players: f.lineup(0, 1, 2, 0),
	}); !errors.Is(err, appErr.ErrDuplicatePlayer) {
		t.Fatalf("expected duplicate player, got %v", err)
	}
	if _, err := f.svc.StartMatch(ctx, game.Actor{UserID: f.players[0].UserID}, types.StartMatchRequest{
		GameID: f.gameID, CourtNumber: "1", Players: f.lineup(0, 1, 2, 3),
	}); !errors.Is(err, appErr.ErrForbidden) {
		t.Fatalf("expected forbidden for non-host, got %v", err)
	}

	if _, err := f.svc.StartMatch(ctx, f.hostActor(), types.StartMatchRequest{
		GameID: f.gameID, CourtNumber: "1", Players: f.lineup(0, 1, 2, 3),
	}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.svc.StartMatch(ctx, f.hostActor(), types.StartMatchRequest{
		GameID: f.gameID, CourtNumber: "1", Players: f.lineup(4, 5, 6, 7),
	}); !errors.Is(err, appErr.ErrCourtOccupied) {
		t.Fatalf("expected occupied court, got %v", err)
	}
	if _, err := f.svc.StartMatch(ctx, f.hostActor(), types.StartMatchRequest{
		GameID: f.gameID, CourtNumber: "2", Players: f.lineup(3, 5, 6, 7),
	}); !errors.Is(err, appErr.ErrPlayerNotIdle) {
		t.Fatalf("expected player not idle, got %v", err)
	}
	if got := f.status(t, f.players[5].ID); got != types.PlayerIdle {
		t.Fatalf("failed start must not change players, got %s", got)
	}
}

func TestStartMatchRequiresCheckedInPlayers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)

	var host model.Enrollment
	if err := f.db.Where("game_id = ? AND is_host = ?", f.gameID, true).First(&host).Error; err != nil {
		t.Fatalf("load host enrollment: %v", err)
	}
	lineup := types.Lineup{A1: f.players[0].ID, A2: f.players[1].ID, B1: f.players[2].ID, B2: host.ID}
	if _, err := f.svc.StartMatch(ctx, f.hostActor(), types.StartMatchRequest{
		GameID: f.gameID, CourtNumber: "1", Players: lineup,
	}); !errors.Is(err, appErr.ErrPlayerNotIdle) {
		t.Fatalf("expected waiting host to be rejected, got %v", err)
	}

	lineup.B2 = 9999
	if _, err := f.svc.StartMatch(ctx, f.hostActor(), types.StartMatchRequest{
		GameID: f.gameID, CourtNumber: "1", Players: lineup,
	}); !errors.Is(err, appErr.ErrPlayerNotFound) {
		t.Fatalf("expected unknown player, got %v", err)
	}
}

func TestFinishMatchCreditsPlayers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4)

	m, err := f.svc.StartMatch(ctx, f.hostActor(), types.StartMatchRequest{
		GameID: f.gameID, CourtNumber: "2", Players: f.lineup(0, 1, 2, 3),
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := f.svc.FinishMatch(ctx, f.hostActor(), types.FinishMatchRequest{MatchID: m.ID, Winner: "C"}); !errors.Is(err, appErr.ErrInvalidWinner) {
		t.Fatalf("expected invalid winner, got %v", err)
	}

	done, err := f.svc.FinishMatch(ctx, f.hostActor(), types.FinishMatchRequest{MatchID: m.ID, Winner: "b"})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if !done.Terminal() || done.Winner != types.WinnerB || done.EndTime == nil {
		t.Fatalf("unexpected finished match: %+v", done)
	}

	for i, p := range f.players {
		var e model.Enrollment
		if err := f.db.First(&e, p.ID).Error; err != nil {
			t.Fatalf("load: %v", err)
		}
		wantWins := 0
		if i >= 2 {
			wantWins = 1
		}
		if e.Status != string(types.PlayerIdle) || e.GamesPlayed != 1 || e.Wins != wantWins {
			t.Fatalf("player %d: status=%s played=%d wins=%d", i, e.Status, e.GamesPlayed, e.Wins)
		}
	}

	if _, err := f.svc.FinishMatch(ctx, f.hostActor(), types.FinishMatchRequest{MatchID: m.ID}); !errors.Is(err, appErr.ErrMatchFinished) {
		t.Fatalf("expected already finished, got %v", err)
	}
	if _, err := f.svc.FinishMatch(ctx, f.hostActor(), types.FinishMatchRequest{MatchID: 424242}); !errors.Is(err, appErr.ErrMatchNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	// The court is free again.
	if _, err := f.svc.StartMatch(ctx, f.hostActor(), types.StartMatchRequest{
		GameID: f.gameID, CourtNumber: "2", Players: f.lineup(3, 2, 1, 0),
	}); err != nil {
		t.Fatalf("restart on freed court: %v", err)
	}
}

func TestCheckIn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	if _, err := f.svc.CheckIn(ctx, match.CheckinRequest{UserID: f.players[0].UserID, GameID: f.gameID}); !errors.Is(err, appErr.ErrAlreadyCheckedIn) {
		t.Fatalf("expected already checked in, got %v", err)
	}

	stranger := model.User{DisplayName: "stranger"}
	if err := f.db.Create(&stranger).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := f.svc.CheckIn(ctx, match.CheckinRequest{UserID: stranger.ID, GameID: f.gameID}); !errors.Is(err, appErr.ErrNotEnrolled) {
		t.Fatalf("expected not enrolled, got %v", err)
	}

	var host model.Enrollment
	if err := f.db.Where("game_id = ? AND is_host = ?", f.gameID, true).First(&host).Error; err != nil {
		t.Fatalf("load host: %v", err)
	}
	if _, err := f.svc.CheckIn(ctx, match.CheckinRequest{UserID: stranger.ID, GameID: f.gameID, PlayerID: host.ID}); !errors.Is(err, appErr.ErrForbidden) {
		t.Fatalf("expected proxy check-in forbidden, got %v", err)
	}

	p, err := f.svc.CheckIn(ctx, match.CheckinRequest{AdminID: 1, GameID: f.gameID, PlayerID: host.ID})
	if err != nil {
		t.Fatalf("admin proxy check-in: %v", err)
	}
	if p.Status != types.PlayerIdle || p.CheckInAt == nil || !p.IsHost {
		t.Fatalf("unexpected player: %+v", p)
	}
}

func TestLiveStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4)

	m, err := f.svc.StartMatch(ctx, f.hostActor(), types.StartMatchRequest{
		GameID: f.gameID, CourtNumber: "1", Players: f.lineup(0, 1, 2, 3),
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	st, err := f.svc.LiveStatus(ctx, f.gameID, f.players[2].UserID)
	if err != nil {
		t.Fatalf("live status: %v", err)
	}
	if len(st.Players) != 5 || len(st.Matches) != 1 || st.Matches[0].ID != m.ID {
		t.Fatalf("unexpected status: players=%d matches=%d", len(st.Players), len(st.Matches))
	}
	if st.MyPlayerID == nil || *st.MyPlayerID != f.players[2].ID {
		t.Fatalf("expected my player id %d, got %v", f.players[2].ID, st.MyPlayerID)
	}

	anon, err := f.svc.LiveStatus(ctx, f.gameID, 0)
	if err != nil {
		t.Fatalf("anonymous live status: %v", err)
	}
	if anon.MyPlayerID != nil {
		t.Fatalf("anonymous caller must not get a player id")
	}

	if _, err := f.svc.LiveStatus(ctx, 9999, 0); !errors.Is(err, appErr.ErrGameNotFound) {
		t.Fatalf("expected game not found, got %v", err)
	}
}

func TestLiveStatusSurvivesCancelledCaller(t *testing.T) {
	f := newFixture(t, 4)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.svc.LiveStatus(cancelled, f.gameID, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled caller to get context.Canceled, got %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		ctx, stop := context.WithCancel(context.Background())
		if i%2 == 0 {
			// Half of the pollers give up while the shared read may be running.
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = f.svc.LiveStatus(ctx, f.gameID, 0)
			}()
			stop()
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer stop()
			st, err := f.svc.LiveStatus(ctx, f.gameID, 0)
			if err == nil && len(st.Players) != 5 {
				err = fmt.Errorf("expected 5 players, got %d", len(st.Players))
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("poller failed: %v", err)
		}
	}
}

func TestLiveStatusAfterMutationSeesIt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4)

	before, err := f.svc.LiveStatus(ctx, f.gameID, 0)
	if err != nil {
		t.Fatalf("live status: %v", err)
	}
	if len(before.Matches) != 0 {
		t.Fatalf("expected no matches yet")
	}

	if _, err := f.svc.StartMatch(ctx, f.hostActor(), types.StartMatchRequest{
		GameID: f.gameID, CourtNumber: "2", Players: f.lineup(0, 1, 2, 3),
	}); err != nil {
		t.Fatalf("start: %v", err)
	}
	after, err := f.svc.LiveStatus(ctx, f.gameID, 0)
	if err != nil {
		t.Fatalf("live status: %v", err)
	}
	if len(after.Matches) != 1 || after.Matches[0].CourtNumber != "2" {
		t.Fatalf("expected the started match, got %+v", after.Matches)
	}
}
