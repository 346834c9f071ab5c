package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"buttonrace/internal/events"
)

type Click struct {
	RoundID     uuid.UUID
	PlayerID    uuid.UUID
	ButtonIndex int
	ClickedAt   time.Time
	ReactionMs  int64
}

func (d *DB) AddClick(ctx context.Context, c Click) error {
	_, err := d.exec(ctx, `
		INSERT INTO clicks (round_id, player_id, button_index, clicked_at, reaction_ms)
		VALUES ($1, $2, $3, $4, $5)
	`, c.RoundID, c.PlayerID, c.ButtonIndex, c.ClickedAt, c.ReactionMs)
	if err != nil {
		return fmt.Errorf("recording click: %w", err)
	}
	return nil
}

// TopRanking returns the round's leaderboard: each player's fastest click,
// ordered ascending by reaction time, ties broken by earliest click
// timestamp and finally by insertion order.
func (d *DB) TopRanking(ctx context.Context, roundID uuid.UUID, limit int) ([]events.RankingEntry, error) {
	rows, err := d.query(ctx, `
		SELECT player_id, reaction_ms FROM (
			SELECT DISTINCT ON (player_id) player_id, reaction_ms, clicked_at, id
			FROM clicks
			WHERE round_id = $1
			ORDER BY player_id, reaction_ms ASC, clicked_at ASC, id ASC
		) best
		ORDER BY reaction_ms ASC, clicked_at ASC, id ASC
		LIMIT $2
	`, roundID, limit)
	if err != nil {
		return nil, fmt.Errorf("ranking round: %w", err)
	}
	defer rows.Close()

	var entries []events.RankingEntry
	for rows.Next() {
		var e events.RankingEntry
		if err := rows.Scan(&e.PlayerID, &e.ReactionMs); err != nil {
			return nil, fmt.Errorf("scanning ranking entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ranking round: %w", err)
	}
	return entries, nil
}

type RoundStats struct {
	Clicks    int    `json:"clicks"`
	Players   int    `json:"players"`
	FastestMs *int64 `json:"fastest_ms,omitempty"`
	SlowestMs *int64 `json:"slowest_ms,omitempty"`
}

// Stats summarizes a round's click activity for the recap view.
func (d *DB) Stats(ctx context.Context, roundID uuid.UUID) (RoundStats, error) {
	var s RoundStats
	var fastest, slowest sql.NullInt64
	err := d.queryRow(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT player_id), MIN(reaction_ms), MAX(reaction_ms)
		FROM clicks WHERE round_id = $1
	`, roundID).Scan(&s.Clicks, &s.Players, &fastest, &slowest)
	if err != nil {
		return RoundStats{}, fmt.Errorf("round stats: %w", err)
	}
	if fastest.Valid {
		s.FastestMs = &fastest.Int64
	}
	if slowest.Valid {
		s.SlowestMs = &slowest.Int64
	}
	return s, nil
}

// CountClicks reports the number of clicks stored for a round.
func (d *DB) CountClicks(ctx context.Context, roundID uuid.UUID) (int, error) {
	var n int
	if err := d.queryRow(ctx, `SELECT COUNT(*) FROM clicks WHERE round_id = $1`, roundID).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("counting clicks: %w", err)
	}
	return n, nil
}
