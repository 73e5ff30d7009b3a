package board

import (
	"sort"
	"strings"

	appErr "rehab-service/pkg/errors"
	"rehab-service/pkg/types"
)

type Strategy string

const (
	// StrategyFairness favours players with the fewest games.
	StrategyFairness Strategy = "fairness"
	// StrategyPeak favours the strongest players.
	StrategyPeak Strategy = "peak"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyFairness:
		return StrategyFairness, nil
	case StrategyPeak:
		return StrategyPeak, nil
	}
	return "", appErr.ErrInvalidStrategy
}

type AutoFillOptions struct {
	Strategy Strategy
	// Balance reorders a group filled entirely by auto-fill so the strongest
	// and weakest players share side A: ranks [1, 4, 2, 3] by level.
	Balance bool
}

// Rank returns players ordered by strategy.
//
//	fairness: games played asc, check-in asc (missing last), id asc
//	peak:     level desc, games played asc, check-in asc (missing last), id asc
func Rank(players []types.Player, strategy Strategy) []types.Player {
	out := make([]types.Player, len(players))
	copy(out, players)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if strategy == StrategyPeak && a.Level != b.Level {
			return a.Level > b.Level
		}
		if a.GamesPlayed != b.GamesPlayed {
			return a.GamesPlayed < b.GamesPlayed
		}
		if c := compareCheckIn(a, b); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
	return out
}

func compareCheckIn(a, b types.Player) int {
	switch {
	case a.CheckInAt == nil && b.CheckInAt == nil:
		return 0
	case a.CheckInAt == nil:
		return 1
	case b.CheckInAt == nil:
		return -1
	case a.CheckInAt.Before(*b.CheckInAt):
		return -1
	case b.CheckInAt.Before(*a.CheckInAt):
		return 1
	}
	return 0
}

// Candidates lists the idle players that are not staged.
func (s *Staging) Candidates(players []types.Player) []types.Player {
	out := make([]types.Player, 0, len(players))
	for _, p := range players {
		if p.Status == types.PlayerIdle && !s.Contains(p.ID) {
			out = append(out, p)
		}
	}
	return out
}

// AutoFill fills every open slot from the ranked candidates and returns the
// ids it placed. When there are fewer candidates than open slots nothing
// changes and ErrNotEnoughPlayers is returned.
func (s *Staging) AutoFill(players []types.Player, opts AutoFillOptions) ([]int64, error) {
	open := s.Open()
	if open == 0 {
		return nil, nil
	}
	ranked := Rank(s.Candidates(players), opts.Strategy)
	if len(ranked) < open {
		return nil, appErr.ErrNotEnoughPlayers
	}
	chosen := ranked[:open]
	if opts.Balance && open == SlotCount {
		chosen = balance(chosen)
	}

	placed := make([]int64, 0, open)
	next := 0
	for i := range s.slots {
		if s.slots[i] == 0 {
			s.slots[i] = chosen[next].ID
			placed = append(placed, chosen[next].ID)
			next++
		}
	}
	s.swapFrom = -1
	return placed, nil
}

// balance orders four players by level desc and interleaves them as
// [rank1, rank4, rank2, rank3].
func balance(group []types.Player) []types.Player {
	byLevel := make([]types.Player, len(group))
	copy(byLevel, group)
	sort.SliceStable(byLevel, func(i, j int) bool {
		return byLevel[i].Level > byLevel[j].Level
	})
	return []types.Player{byLevel[0], byLevel[3], byLevel[1], byLevel[2]}
}
