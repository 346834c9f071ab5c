// Package roundstate holds the authoritative in-memory view of the live
// round: its id, liveness, button count, and the secret winning index. It is
// the only lock-protected critical section in the system; persistence and
// broadcasting always happen outside it.
package roundstate

import (
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

// Snapshot is an atomic read of all live-round fields. Reading a subset
// could observe a torn update, so there is no narrower accessor.
type Snapshot struct {
	RoundID      uuid.UUID
	Live         bool
	WinningIndex int
	ButtonCount  int
}

type State struct {
	mu           sync.Mutex
	roundID      uuid.UUID
	live         bool
	winningIndex int
	buttonCount  int
}

func New() *State {
	return &State{}
}

// Begin replaces any previous live round with a fresh one and draws the
// secret winning index uniformly in [0, buttonCount). The index is returned
// to the coordinator only and must never reach untrusted callers.
func (s *State) Begin(roundID uuid.UUID, buttonCount int) int {
	idx := rand.IntN(buttonCount)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.roundID = roundID
	s.live = true
	s.winningIndex = idx
	s.buttonCount = buttonCount
	return idx
}

// Snapshot returns all four fields under one lock acquisition.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		RoundID:      s.roundID,
		Live:         s.live,
		WinningIndex: s.winningIndex,
		ButtonCount:  s.buttonCount,
	}
}

// End clears the live round only if it is still the expected one, and
// reports whether the clear took effect. At most one caller per round id
// observes true; a round superseded by a newer Begin cannot be ended.
func (s *State) End(expectedRoundID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live || s.roundID != expectedRoundID {
		return false
	}
	s.live = false
	s.winningIndex = -1
	return true
}
