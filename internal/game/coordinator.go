// Package game implements the round coordinator: it owns the round
// lifecycle, adjudicates clicks, and resolves each round's winner exactly
// once.
package game

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"buttonrace/internal/db"
	"buttonrace/internal/events"
	"buttonrace/internal/roundstate"
)

// Store is the durable record of rounds and clicks. *db.DB satisfies it.
type Store interface {
	CreateRound(ctx context.Context, buttonCount int, startedAt time.Time) (db.Round, error)
	DeactivateActiveRounds(ctx context.Context, finishedAt time.Time) (int64, error)
	CloseRound(ctx context.Context, roundID uuid.UUID, finishedAt time.Time, winnerID uuid.UUID) error
	GetRound(ctx context.Context, roundID uuid.UUID) (db.Round, error)
	AddClick(ctx context.Context, c db.Click) error
	TopRanking(ctx context.Context, roundID uuid.UUID, limit int) ([]events.RankingEntry, error)
}

type Coordinator struct {
	store       Store
	state       *roundstate.State
	pub         events.Publisher
	clock       clockwork.Clock
	rankingSize int
}

func New(store Store, state *roundstate.State, pub events.Publisher, rankingSize int) *Coordinator {
	return &Coordinator{
		store:       store,
		state:       state,
		pub:         pub,
		clock:       clockwork.NewRealClock(),
		rankingSize: rankingSize,
	}
}

// RoundStart is the successful result of StartRound.
type RoundStart struct {
	RoundID     uuid.UUID `json:"round_id"`
	ButtonCount int       `json:"button_count"`
	StartedAt   time.Time `json:"started_at"`
}

// ClickResult is the successful result of RegisterClick. Winner is true only
// for the single click that resolved the round.
type ClickResult struct {
	RoundID    uuid.UUID             `json:"round_id"`
	ReactionMs int64                 `json:"reaction_time_ms"`
	Ranking    []events.RankingEntry `json:"ranking"`
	Winner     bool                  `json:"winner"`
}

// StartRound deactivates any previous round, persists a fresh one, draws the
// secret winning index into the round state, and announces the round.
// Authorization (operator role) is the transport's responsibility.
func (c *Coordinator) StartRound(ctx context.Context, buttonCount int, requestedBy uuid.UUID) (RoundStart, error) {
	if buttonCount <= 0 {
		return RoundStart{}, fmt.Errorf("%w: button count must be positive, got %d", ErrInvalidInput, buttonCount)
	}

	now := c.clock.Now()
	if _, err := c.store.DeactivateActiveRounds(ctx, now); err != nil {
		return RoundStart{}, fmt.Errorf("starting round: %w", err)
	}

	round, err := c.store.CreateRound(ctx, buttonCount, now)
	if err != nil {
		return RoundStart{}, fmt.Errorf("starting round: %w", err)
	}

	// The drawn index stays between the state and this coordinator.
	c.state.Begin(round.ID, buttonCount)

	log.Info().
		Str("round_id", round.ID.String()).
		Int("buttons", buttonCount).
		Str("requested_by", requestedBy.String()).
		Msg("round started")

	c.pub.PublishRoundStarted(events.RoundStarted{
		RoundID:     round.ID,
		ButtonCount: buttonCount,
		StartedAt:   round.StartedAt,
	})

	return RoundStart{
		RoundID:     round.ID,
		ButtonCount: buttonCount,
		StartedAt:   round.StartedAt,
	}, nil
}

// RegisterClick validates a player's click against the live round, persists
// it, refreshes the ranking, and, when the click hits the winning button,
// races to close the round. Only the caller whose End succeeds becomes the
// winner; concurrent correct clicks persist as ordinary attempts.
//
// roundIDHint may be uuid.Nil when the caller does not know the round id.
func (c *Coordinator) RegisterClick(ctx context.Context, playerID uuid.UUID, buttonIndex int, roundIDHint uuid.UUID) (ClickResult, error) {
	snap := c.state.Snapshot()
	if !snap.Live {
		return ClickResult{}, fmt.Errorf("%w: no live round", ErrRoundNotActive)
	}
	if roundIDHint != uuid.Nil && roundIDHint != snap.RoundID {
		return ClickResult{}, fmt.Errorf("%w: round %s is not the live round", ErrRoundNotActive, roundIDHint)
	}
	if buttonIndex < 0 || buttonIndex >= snap.ButtonCount {
		return ClickResult{}, fmt.Errorf("%w: button index %d outside [0, %d)", ErrInvalidInput, buttonIndex, snap.ButtonCount)
	}

	round, err := c.store.GetRound(ctx, snap.RoundID)
	if err != nil {
		return ClickResult{}, fmt.Errorf("registering click: %w", err)
	}

	now := c.clock.Now()
	reactionMs := now.Sub(round.StartedAt).Milliseconds()
	if reactionMs < 0 {
		reactionMs = 0
	}

	// Every attempt is recorded, including ones that lose the winner race
	// a moment later.
	err = c.store.AddClick(ctx, db.Click{
		RoundID:     snap.RoundID,
		PlayerID:    playerID,
		ButtonIndex: buttonIndex,
		ClickedAt:   now,
		ReactionMs:  reactionMs,
	})
	if err != nil {
		return ClickResult{}, fmt.Errorf("registering click: %w", err)
	}

	ranking, err := c.store.TopRanking(ctx, snap.RoundID, c.rankingSize)
	if err != nil {
		return ClickResult{}, fmt.Errorf("registering click: %w", err)
	}
	c.pub.PublishRankingUpdated(events.RankingUpdated{
		RoundID: snap.RoundID,
		Entries: ranking,
		Limit:   c.rankingSize,
	})

	result := ClickResult{
		RoundID:    snap.RoundID,
		ReactionMs: reactionMs,
		Ranking:    ranking,
	}

	if buttonIndex == snap.WinningIndex && c.state.End(snap.RoundID) {
		// This caller won the race; everyone else's End returns false.
		if err := c.store.CloseRound(ctx, snap.RoundID, now, playerID); err != nil {
			log.Error().Err(err).
				Str("round_id", snap.RoundID.String()).
				Str("winner_id", playerID.String()).
				Msg("failed to persist round winner")
			return ClickResult{}, fmt.Errorf("closing round: %w", err)
		}

		log.Info().
			Str("round_id", snap.RoundID.String()).
			Str("winner_id", playerID.String()).
			Int64("reaction_ms", reactionMs).
			Msg("winner confirmed")

		c.pub.PublishWinnerConfirmed(events.WinnerConfirmed{
			RoundID:    snap.RoundID,
			WinnerID:   playerID,
			FinishedAt: now,
		})
		result.Winner = true
	}

	return result, nil
}
