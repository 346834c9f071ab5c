package events

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// recorder captures everything a Fanout delivers to it.
type recorder struct {
	mu      sync.Mutex
	started []RoundStarted
	ranked  []RankingUpdated
	winners []WinnerConfirmed
}

func (r *recorder) PublishRoundStarted(e RoundStarted) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, e)
}

func (r *recorder) PublishRankingUpdated(e RankingUpdated) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ranked = append(r.ranked, e)
}

func (r *recorder) PublishWinnerConfirmed(e WinnerConfirmed) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.winners = append(r.winners, e)
}

func TestFanout_DeliversToAll(t *testing.T) {
	a := &recorder{}
	b := &recorder{}
	f := Fanout{a, b}

	roundID := uuid.New()
	f.PublishRoundStarted(RoundStarted{RoundID: roundID, ButtonCount: 8, StartedAt: time.Now()})
	f.PublishRankingUpdated(RankingUpdated{RoundID: roundID, Limit: 10})
	f.PublishWinnerConfirmed(WinnerConfirmed{RoundID: roundID, WinnerID: uuid.New()})

	for i, rec := range []*recorder{a, b} {
		if len(rec.started) != 1 {
			t.Errorf("publisher %d: started = %d, want 1", i, len(rec.started))
		}
		if len(rec.ranked) != 1 {
			t.Errorf("publisher %d: ranked = %d, want 1", i, len(rec.ranked))
		}
		if len(rec.winners) != 1 {
			t.Errorf("publisher %d: winners = %d, want 1", i, len(rec.winners))
		}
		if rec.started[0].RoundID != roundID {
			t.Errorf("publisher %d: round id = %v, want %v", i, rec.started[0].RoundID, roundID)
		}
	}
}

func TestFanout_Empty(t *testing.T) {
	var f Fanout
	// Should not panic with no publishers attached.
	f.PublishRoundStarted(RoundStarted{RoundID: uuid.New(), ButtonCount: 4})
	f.PublishRankingUpdated(RankingUpdated{})
	f.PublishWinnerConfirmed(WinnerConfirmed{})
}
