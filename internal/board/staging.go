// Package board holds the operator-side logic of the live court board:
// the four-slot staging group, auto-fill, the court grid and match clocks.
// Nothing here talks to the network.
package board

import (
	appErr "rehab-service/pkg/errors"
	"rehab-service/pkg/types"
)

// SlotCount is the size of a doubles group.
const SlotCount = 4

// Staging is the group of four the operator assembles before committing it
// to a court. Slots 0 and 1 form side A, slots 2 and 3 side B. A zero id is
// an empty slot. A player id is never held by two slots.
//
// Staging is not safe for concurrent use.
type Staging struct {
	slots    [SlotCount]int64
	pending  int64
	swapFrom int
}

func NewStaging() *Staging {
	return &Staging{swapFrom: -1}
}

// Slots returns a copy of the slot array.
func (s *Staging) Slots() [SlotCount]int64 { return s.slots }

// Pending returns the player picked from the roster and not yet placed, or 0.
func (s *Staging) Pending() int64 { return s.pending }

// SwapSource reports the slot waiting for a swap partner.
func (s *Staging) SwapSource() (int, bool) {
	return s.swapFrom, s.swapFrom >= 0
}

func (s *Staging) Contains(id int64) bool { return s.indexOf(id) >= 0 }

// Open returns the number of empty slots.
func (s *Staging) Open() int {
	n := 0
	for _, id := range s.slots {
		if id == 0 {
			n++
		}
	}
	return n
}

func (s *Staging) Full() bool { return s.Open() == 0 }

func (s *Staging) IsEmpty() bool { return s.Open() == SlotCount }

// Place toggles a player: a staged player is removed, otherwise the player
// takes the first open slot. It reports whether the player is staged
// afterwards. A full group rejects new players with ErrStagingFull.
func (s *Staging) Place(id int64) (bool, error) {
	if id <= 0 {
		return false, appErr.ErrPlayerNotFound
	}
	s.swapFrom = -1
	if i := s.indexOf(id); i >= 0 {
		s.slots[i] = 0
		return false, nil
	}
	for i, cur := range s.slots {
		if cur == 0 {
			s.slots[i] = id
			if s.pending == id {
				s.pending = 0
			}
			return true, nil
		}
	}
	return false, appErr.ErrStagingFull
}

// Pick selects id as the pending player, or deselects it when it already is.
func (s *Staging) Pick(id int64) {
	s.swapFrom = -1
	if s.pending == id {
		s.pending = 0
		return
	}
	s.pending = id
}

// SlotClick applies a click on slot i.
//
// With a pending player, the player moves into slot i. If it was staged
// elsewhere, the previous occupant of i takes its old slot; otherwise that
// occupant returns to the pool. Without a pending player, the first click
// on an occupied slot starts a swap and the second click exchanges the two
// slots. Clicking the swap source again cancels the swap.
func (s *Staging) SlotClick(i int) error {
	if i < 0 || i >= SlotCount {
		return appErr.ErrInvalidSlot
	}

	if s.pending != 0 {
		id := s.pending
		s.pending = 0
		s.swapFrom = -1
		prev := s.indexOf(id)
		if prev == i {
			return nil
		}
		occupant := s.slots[i]
		s.slots[i] = id
		if prev >= 0 {
			s.slots[prev] = occupant
		}
		return nil
	}

	if s.swapFrom >= 0 {
		from := s.swapFrom
		s.swapFrom = -1
		if from != i {
			s.slots[from], s.slots[i] = s.slots[i], s.slots[from]
		}
		return nil
	}

	if s.slots[i] != 0 {
		s.swapFrom = i
	}
	return nil
}

// Remove drops id from the group and the pending selection.
func (s *Staging) Remove(id int64) bool {
	if s.pending == id {
		s.pending = 0
	}
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.slots[i] = 0
	if s.swapFrom == i {
		s.swapFrom = -1
	}
	return true
}

func (s *Staging) Clear() {
	s.slots = [SlotCount]int64{}
	s.pending = 0
	s.swapFrom = -1
}

// Lineup returns the group as a start-match payload. Every slot must hold a
// distinct player.
func (s *Staging) Lineup() (types.Lineup, error) {
	seen := make(map[int64]struct{}, SlotCount)
	for _, id := range s.slots {
		if id == 0 {
			return types.Lineup{}, appErr.ErrStagingIncomplete
		}
		if _, dup := seen[id]; dup {
			return types.Lineup{}, appErr.ErrStagingIncomplete
		}
		seen[id] = struct{}{}
	}
	return types.Lineup{A1: s.slots[0], A2: s.slots[1], B1: s.slots[2], B2: s.slots[3]}, nil
}

func (s *Staging) indexOf(id int64) int {
	if id == 0 {
		return -1
	}
	for i, cur := range s.slots {
		if cur == id {
			return i
		}
	}
	return -1
}
