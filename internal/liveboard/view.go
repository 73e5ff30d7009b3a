package liveboard

import (
	"rehab-service/internal/board"
	"rehab-service/internal/livesync"
	"rehab-service/pkg/types"
)

// View is a copy of the board for rendering.
type View struct {
	Loaded     bool
	Game       types.Game
	Players    []types.Player
	Courts     []board.Court
	Staging    [board.SlotCount]int64
	Pending    int64
	SwapFrom   int
	Swapping   bool
	MyPlayerID *int64
	Push       livesync.State
}

// Player looks a roster entry up by id.
func (v View) Player(id int64) (types.Player, bool) {
	for _, p := range v.Players {
		if p.ID == id {
			return p, true
		}
	}
	return types.Player{}, false
}

// Pool lists players by status, in roster order.
func (v View) Pool(status types.PlayerStatus) []types.Player {
	var out []types.Player
	for _, p := range v.Players {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	players := make([]types.Player, len(c.status.Players))
	copy(players, c.status.Players)
	matches := make([]types.Match, len(c.status.Matches))
	copy(matches, c.status.Matches)

	swapFrom, swapping := c.staging.SwapSource()
	return View{
		Loaded:     c.loaded,
		Game:       c.game,
		Players:    players,
		Courts:     c.grid.Courts(matches),
		Staging:    c.staging.Slots(),
		Pending:    c.staging.Pending(),
		SwapFrom:   swapFrom,
		Swapping:   swapping,
		MyPlayerID: c.status.MyPlayerID,
		Push:       c.pushed,
	}
}
