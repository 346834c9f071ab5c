package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a queried round does not exist.
var ErrNotFound = errors.New("not found")

type Round struct {
	ID          uuid.UUID  `json:"id"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Active      bool       `json:"active"`
	ButtonCount int        `json:"button_count"`
	WinnerID    *uuid.UUID `json:"winner_id,omitempty"`
}

func (d *DB) CreateRound(ctx context.Context, buttonCount int, startedAt time.Time) (Round, error) {
	r := Round{
		StartedAt:   startedAt,
		Active:      true,
		ButtonCount: buttonCount,
	}
	err := d.queryRow(ctx, `
		INSERT INTO rounds (started_at, active, button_count)
		VALUES ($1, TRUE, $2)
		RETURNING id
	`, startedAt, buttonCount).Scan(&r.ID)
	if err != nil {
		return Round{}, fmt.Errorf("creating round: %w", err)
	}
	return r, nil
}

// DeactivateActiveRounds closes every round still marked active and returns
// how many were affected. Called before creating a new round so that at most
// one row is ever active.
func (d *DB) DeactivateActiveRounds(ctx context.Context, finishedAt time.Time) (int64, error) {
	res, err := d.exec(ctx, `
		UPDATE rounds SET active = FALSE, finished_at = $1 WHERE active
	`, finishedAt)
	if err != nil {
		return 0, fmt.Errorf("deactivating active rounds: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deactivating active rounds: %w", err)
	}
	return n, nil
}

// CloseRound finalizes a round with its winner. Idempotent by round id: a
// round already closed keeps its original winner and finish timestamp.
func (d *DB) CloseRound(ctx context.Context, roundID uuid.UUID, finishedAt time.Time, winnerID uuid.UUID) error {
	_, err := d.exec(ctx, `
		UPDATE rounds
		SET active = FALSE, finished_at = $2, winner_id = $3
		WHERE id = $1 AND winner_id IS NULL
	`, roundID, finishedAt, winnerID)
	if err != nil {
		return fmt.Errorf("closing round: %w", err)
	}
	return nil
}

func (d *DB) GetRound(ctx context.Context, roundID uuid.UUID) (Round, error) {
	var r Round
	err := d.queryRow(ctx, `
		SELECT id, started_at, finished_at, active, button_count, winner_id
		FROM rounds WHERE id = $1
	`, roundID).Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Active, &r.ButtonCount, &r.WinnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return Round{}, fmt.Errorf("getting round %s: %w", roundID, ErrNotFound)
	}
	if err != nil {
		return Round{}, fmt.Errorf("getting round: %w", err)
	}
	return r, nil
}

// CurrentRound returns the most recently started round, live or not.
func (d *DB) CurrentRound(ctx context.Context) (Round, error) {
	var r Round
	err := d.queryRow(ctx, `
		SELECT id, started_at, finished_at, active, button_count, winner_id
		FROM rounds ORDER BY started_at DESC, id DESC LIMIT 1
	`).Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Active, &r.ButtonCount, &r.WinnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return Round{}, fmt.Errorf("getting current round: %w", ErrNotFound)
	}
	if err != nil {
		return Round{}, fmt.Errorf("getting current round: %w", err)
	}
	return r, nil
}

// CountActiveRounds reports how many rounds are marked active.
func (d *DB) CountActiveRounds(ctx context.Context) (int, error) {
	var n int
	if err := d.queryRow(ctx, `SELECT COUNT(*) FROM rounds WHERE active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting active rounds: %w", err)
	}
	return n, nil
}
