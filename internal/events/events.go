// Package events defines the notifications the round coordinator emits and
// the publisher boundary that fans them out to observers.
package events

import (
	"time"

	"github.com/google/uuid"
)

// RoundStarted announces a fresh round. The winning button index is never
// part of any event.
type RoundStarted struct {
	RoundID     uuid.UUID `json:"round_id"`
	ButtonCount int       `json:"button_count"`
	StartedAt   time.Time `json:"started_at"`
}

// RankingEntry is one row of a leaderboard snapshot.
type RankingEntry struct {
	PlayerID   uuid.UUID `json:"player_id"`
	ReactionMs int64     `json:"reaction_time_ms"`
}

// RankingUpdated carries the current top-K leaderboard for a round.
type RankingUpdated struct {
	RoundID uuid.UUID      `json:"round_id"`
	Entries []RankingEntry `json:"entries"`
	Limit   int            `json:"limit"`
}

// WinnerConfirmed announces the single resolved winner of a round.
type WinnerConfirmed struct {
	RoundID    uuid.UUID `json:"round_id"`
	WinnerID   uuid.UUID `json:"winner_id"`
	FinishedAt time.Time `json:"finished_at"`
}

// Publisher delivers round events to observers. Delivery is best-effort:
// implementations must not block the caller on slow observers and must not
// surface delivery failures as errors.
type Publisher interface {
	PublishRoundStarted(e RoundStarted)
	PublishRankingUpdated(e RankingUpdated)
	PublishWinnerConfirmed(e WinnerConfirmed)
}

// Fanout delivers every event to each wrapped publisher in order.
type Fanout []Publisher

func (f Fanout) PublishRoundStarted(e RoundStarted) {
	for _, p := range f {
		p.PublishRoundStarted(e)
	}
}

func (f Fanout) PublishRankingUpdated(e RankingUpdated) {
	for _, p := range f {
		p.PublishRankingUpdated(e)
	}
}

func (f Fanout) PublishWinnerConfirmed(e WinnerConfirmed) {
	for _, p := range f {
		p.PublishWinnerConfirmed(e)
	}
}
