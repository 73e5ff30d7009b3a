package board

import (
	"strconv"
	"strings"

	appErr "rehab-service/pkg/errors"
	"rehab-service/pkg/types"
)

// Court is one cell of the grid. Match is nil while the court is empty.
type Court struct {
	Label string
	Match *types.Match
}

func (c Court) Occupied() bool { return c.Match != nil }

// Grid tracks the operator's courts. Occupancy comes from the server's match
// list; courts themselves are local, so adding one needs no backend call.
type Grid struct {
	labels   []string
	released map[int64]struct{}
}

func NewGrid(labels []string) *Grid {
	g := &Grid{released: make(map[int64]struct{})}
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l != "" && g.index(l) < 0 {
			g.labels = append(g.labels, l)
		}
	}
	if len(g.labels) == 0 {
		g.labels = []string{"1"}
	}
	return g
}

func (g *Grid) Labels() []string {
	out := make([]string, len(g.labels))
	copy(out, g.labels)
	return out
}

// Add appends a court. An empty label picks the next unused number.
func (g *Grid) Add(label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		for n := len(g.labels) + 1; ; n++ {
			candidate := strconv.Itoa(n)
			if g.index(candidate) < 0 {
				label = candidate
				break
			}
		}
	}
	if g.index(label) >= 0 {
		return "", appErr.ErrCourtExists
	}
	g.labels = append(g.labels, label)
	return label, nil
}

// Remove drops a court that holds no active match. The last court stays.
func (g *Grid) Remove(label string, matches []types.Match) error {
	i := g.index(strings.TrimSpace(label))
	if i < 0 {
		return appErr.ErrUnknownCourt
	}
	if g.activeOn(g.labels[i], matches) != nil {
		return appErr.ErrCourtBusy
	}
	if len(g.labels) == 1 {
		return appErr.ErrLastCourt
	}
	g.labels = append(g.labels[:i], g.labels[i+1:]...)
	return nil
}

// Release hides a finished match until the next match list stops reporting
// it as active.
func (g *Grid) Release(matchID int64) {
	g.released[matchID] = struct{}{}
}

// Sync forgets released matches the server has confirmed as finished or
// dropped.
func (g *Grid) Sync(matches []types.Match) {
	active := make(map[int64]struct{}, len(matches))
	for _, m := range matches {
		if !m.Terminal() {
			active[m.ID] = struct{}{}
		}
	}
	for id := range g.released {
		if _, ok := active[id]; !ok {
			delete(g.released, id)
		}
	}
}

// Courts lays matches onto the grid. Active matches on labels the grid does
// not know yet are shown as extra courts.
func (g *Grid) Courts(matches []types.Match) []Court {
	out := make([]Court, 0, len(g.labels))
	for _, l := range g.labels {
		out = append(out, Court{Label: l, Match: g.activeOn(l, matches)})
	}
	for i := range matches {
		m := &matches[i]
		if m.Terminal() || g.hidden(m.ID) || g.index(m.CourtNumber) >= 0 {
			continue
		}
		out = append(out, Court{Label: m.CourtNumber, Match: m})
	}
	return out
}

// Court returns the state of one court.
func (g *Grid) Court(label string, matches []types.Match) (Court, error) {
	label = strings.TrimSpace(label)
	if g.index(label) < 0 {
		if m := g.activeOn(label, matches); m != nil {
			return Court{Label: label, Match: m}, nil
		}
		return Court{}, appErr.ErrUnknownCourt
	}
	return Court{Label: label, Match: g.activeOn(label, matches)}, nil
}

func (g *Grid) activeOn(label string, matches []types.Match) *types.Match {
	for i := range matches {
		m := &matches[i]
		if m.CourtNumber == label && !m.Terminal() && !g.hidden(m.ID) {
			return m
		}
	}
	return nil
}

func (g *Grid) hidden(matchID int64) bool {
	_, ok := g.released[matchID]
	return ok
}

func (g *Grid) index(label string) int {
	for i, l := range g.labels {
		if l == label {
			return i
		}
	}
	return -1
}
