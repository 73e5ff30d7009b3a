package board_test

import (
	"math/rand"
	"testing"

	"rehab-service/internal/board"
	appErr "rehab-service/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceToggleAndFull(t *testing.T) {
	s := board.NewStaging()

	for _, id := range []int64{1, 2, 3, 4} {
		staged, err := s.Place(id)
		require.NoError(t, err)
		require.True(t, staged)
	}
	assert.Equal(t, [4]int64{1, 2, 3, 4}, s.Slots())

	_, err := s.Place(5)
	require.ErrorIs(t, err, appErr.ErrStagingFull)
	assert.Equal(t, [4]int64{1, 2, 3, 4}, s.Slots(), "rejected place must not mutate")

	staged, err := s.Place(2)
	require.NoError(t, err)
	assert.False(t, staged)
	assert.Equal(t, [4]int64{1, 0, 3, 4}, s.Slots())

	staged, err = s.Place(5)
	require.NoError(t, err)
	assert.True(t, staged)
	assert.Equal(t, [4]int64{1, 5, 3, 4}, s.Slots(), "first open slot is reused")
}

func TestSlotClickWithPending(t *testing.T) {
	s := board.NewStaging()
	_, _ = s.Place(1)
	_, _ = s.Place(2)

	// Unstaged pending player replaces the occupant, who returns to the pool.
	s.Pick(9)
	require.NoError(t, s.SlotClick(0))
	assert.Equal(t, [4]int64{9, 2, 0, 0}, s.Slots())
	assert.Zero(t, s.Pending())

	// Staged pending player moves; the occupant takes its old slot.
	s.Pick(9)
	require.NoError(t, s.SlotClick(1))
	assert.Equal(t, [4]int64{2, 9, 0, 0}, s.Slots())

	// Moving into an empty slot vacates the previous one.
	s.Pick(2)
	require.NoError(t, s.SlotClick(3))
	assert.Equal(t, [4]int64{0, 9, 0, 2}, s.Slots())

	// Picking twice deselects.
	s.Pick(7)
	s.Pick(7)
	assert.Zero(t, s.Pending())
}

func TestSlotClickSwap(t *testing.T) {
	s := board.NewStaging()
	for _, id := range []int64{1, 2, 3} {
		_, _ = s.Place(id)
	}

	require.NoError(t, s.SlotClick(0))
	from, ok := s.SwapSource()
	require.True(t, ok)
	assert.Equal(t, 0, from)

	require.NoError(t, s.SlotClick(2))
	assert.Equal(t, [4]int64{3, 2, 1, 0}, s.Slots())
	_, ok = s.SwapSource()
	assert.False(t, ok)

	// Swapping into an empty slot moves the player.
	require.NoError(t, s.SlotClick(1))
	require.NoError(t, s.SlotClick(3))
	assert.Equal(t, [4]int64{3, 0, 1, 2}, s.Slots())

	// Same slot twice cancels.
	require.NoError(t, s.SlotClick(0))
	require.NoError(t, s.SlotClick(0))
	assert.Equal(t, [4]int64{3, 0, 1, 2}, s.Slots())
	_, ok = s.SwapSource()
	assert.False(t, ok)

	// Empty slot without pending does nothing.
	require.NoError(t, s.SlotClick(1))
	_, ok = s.SwapSource()
	assert.False(t, ok)

	require.ErrorIs(t, s.SlotClick(4), appErr.ErrInvalidSlot)
}

func TestRandomOperationsNeverDuplicate(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := board.NewStaging()

	for step := 0; step < 5000; step++ {
		id := int64(rng.Intn(7) + 1)
		switch rng.Intn(4) {
		case 0:
			_, _ = s.Place(id)
		case 1:
			s.Pick(id)
		case 2:
			_ = s.SlotClick(rng.Intn(board.SlotCount))
		case 3:
			s.Remove(id)
		}

		seen := map[int64]bool{}
		for _, v := range s.Slots() {
			if v == 0 {
				continue
			}
			require.False(t, seen[v], "duplicate %d at step %d: %v", v, step, s.Slots())
			seen[v] = true
		}
	}
}

func TestLineup(t *testing.T) {
	s := board.NewStaging()
	_, _ = s.Place(10)
	_, _ = s.Place(20)
	_, _ = s.Place(30)

	_, err := s.Lineup()
	require.ErrorIs(t, err, appErr.ErrStagingIncomplete)

	_, _ = s.Place(40)
	l, err := s.Lineup()
	require.NoError(t, err)
	assert.Equal(t, int64(10), l.A1)
	assert.Equal(t, int64(20), l.A2)
	assert.Equal(t, int64(30), l.B1)
	assert.Equal(t, int64(40), l.B2)

	s.Clear()
	assert.True(t, s.IsEmpty())
}
