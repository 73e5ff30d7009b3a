package board_test

import (
	"testing"
	"time"

	"rehab-service/internal/board"
	appErr "rehab-service/pkg/errors"
	"rehab-service/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idle(id int64, level, played int) types.Player {
	return types.Player{ID: id, Level: level, GamesPlayed: played, Status: types.PlayerIdle}
}

func at(minute int) *time.Time {
	t := time.Date(2026, 10, 17, 19, minute, 0, 0, time.UTC)
	return &t
}

func stagedPlayers(t *testing.T, s *board.Staging, players []types.Player) []types.Player {
	t.Helper()
	byID := map[int64]types.Player{}
	for _, p := range players {
		byID[p.ID] = p
	}
	var out []types.Player
	for _, id := range s.Slots() {
		if id != 0 {
			out = append(out, byID[id])
		}
	}
	return out
}

func TestAutoFillFairness(t *testing.T) {
	players := []types.Player{
		idle(1, 5, 0),
		idle(2, 5, 1),
		idle(3, 5, 1),
		idle(4, 5, 2),
		idle(5, 5, 3),
	}
	s := board.NewStaging()

	placed, err := s.AutoFill(players, board.AutoFillOptions{Strategy: board.StrategyFairness})
	require.NoError(t, err)
	assert.Len(t, placed, 4)

	var played []int
	for _, p := range stagedPlayers(t, s, players) {
		played = append(played, p.GamesPlayed)
	}
	assert.Equal(t, []int{0, 1, 1, 2}, played)
	assert.False(t, s.Contains(5))
}

func TestAutoFillPeak(t *testing.T) {
	players := []types.Player{
		idle(1, 5, 0),
		idle(2, 10, 0),
		idle(3, 10, 0),
		idle(4, 15, 0),
		idle(5, 20, 0),
	}
	s := board.NewStaging()

	_, err := s.AutoFill(players, board.AutoFillOptions{Strategy: board.StrategyPeak})
	require.NoError(t, err)

	var levels []int
	for _, p := range stagedPlayers(t, s, players) {
		levels = append(levels, p.Level)
	}
	assert.Equal(t, []int{20, 15, 10, 10}, levels)
	assert.False(t, s.Contains(1))
}

func TestAutoFillBalance(t *testing.T) {
	players := []types.Player{
		idle(1, 5, 0),
		idle(2, 10, 0),
		idle(3, 15, 0),
		idle(4, 20, 0),
	}
	s := board.NewStaging()

	_, err := s.AutoFill(players, board.AutoFillOptions{Strategy: board.StrategyFairness, Balance: true})
	require.NoError(t, err)
	assert.Equal(t, [4]int64{4, 1, 3, 2}, s.Slots(), "expected [rank1, rank4, rank2, rank3]")
}

func TestAutoFillPartialKeepsStaged(t *testing.T) {
	players := []types.Player{
		idle(1, 5, 4),
		idle(2, 5, 0),
		idle(3, 5, 0),
		idle(4, 5, 0),
		{ID: 5, Level: 18, Status: types.PlayerPlaying},
		{ID: 6, Level: 18, Status: types.PlayerWaitingCheckin},
	}
	s := board.NewStaging()
	_, _ = s.Place(1)
	require.NoError(t, s.SlotClick(0))
	require.NoError(t, s.SlotClick(2))

	placed, err := s.AutoFill(players, board.AutoFillOptions{Strategy: board.StrategyPeak, Balance: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{2, 3, 4}, placed)
	assert.Equal(t, int64(1), s.Slots()[2], "manually staged player keeps its slot")
	assert.False(t, s.Contains(5))
	assert.False(t, s.Contains(6))
}

func TestAutoFillNotEnoughPlayers(t *testing.T) {
	players := []types.Player{idle(1, 5, 0), idle(2, 5, 0), idle(3, 5, 0)}
	s := board.NewStaging()

	placed, err := s.AutoFill(players, board.AutoFillOptions{Strategy: board.StrategyFairness})
	require.ErrorIs(t, err, appErr.ErrNotEnoughPlayers)
	assert.Nil(t, placed)
	assert.True(t, s.IsEmpty())
}

func TestRankTieBreaks(t *testing.T) {
	players := []types.Player{
		{ID: 4, GamesPlayed: 1},
		{ID: 3, GamesPlayed: 1, CheckInAt: at(30)},
		{ID: 2, GamesPlayed: 1, CheckInAt: at(10)},
		{ID: 1, GamesPlayed: 1},
	}
	ranked := board.Rank(players, board.StrategyFairness)

	var ids []int64
	for _, p := range ranked {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int64{2, 3, 1, 4}, ids)
}

func TestParseStrategy(t *testing.T) {
	s, err := board.ParseStrategy("PEAK")
	require.NoError(t, err)
	assert.Equal(t, board.StrategyPeak, s)

	s, err = board.ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, board.StrategyFairness, s)

	_, err = board.ParseStrategy("random")
	require.ErrorIs(t, err, appErr.ErrInvalidStrategy)
}
