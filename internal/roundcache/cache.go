// Package roundcache keeps a snapshot of the newest round in Redis so
// reconnecting clients can resync without hitting Postgres.
package roundcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"buttonrace/internal/events"
)

const (
	currentRoundKey = "race:round:current"
	currentRoundTTL = 24 * time.Hour
)

// Snapshot is the cached view of the newest round. Finished stays false
// until a winner is confirmed or a newer round replaces this one.
type Snapshot struct {
	RoundID     uuid.UUID  `json:"round_id"`
	ButtonCount int        `json:"button_count"`
	StartedAt   time.Time  `json:"started_at"`
	Finished    bool       `json:"finished"`
	WinnerID    *uuid.UUID `json:"winner_id,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

type Cache struct {
	rdb *redis.Client
}

// Connect dials Redis and verifies the connection with a ping.
func Connect(ctx context.Context, addr string) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	log.Info().Str("addr", addr).Msg("connected to Redis")
	return &Cache{rdb: rdb}, nil
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}

// Current returns the cached newest round, or nil when the cache is cold.
func (c *Cache) Current(ctx context.Context) (*Snapshot, error) {
	data, err := c.rdb.Get(ctx, currentRoundKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cached round: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("decoding cached round: %w", err)
	}
	return &snap, nil
}

func (c *Cache) store(snap Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal round snapshot")
		return
	}
	if err := c.rdb.Set(context.Background(), currentRoundKey, data, currentRoundTTL).Err(); err != nil {
		log.Error().Err(err).Msg("failed to cache round snapshot")
	}
}

// PublishRoundStarted replaces the cached snapshot with the new round.
func (c *Cache) PublishRoundStarted(e events.RoundStarted) {
	c.store(Snapshot{
		RoundID:     e.RoundID,
		ButtonCount: e.ButtonCount,
		StartedAt:   e.StartedAt,
	})
}

// PublishRankingUpdated is a no-op; rankings are served from Postgres.
func (c *Cache) PublishRankingUpdated(events.RankingUpdated) {}

// PublishWinnerConfirmed marks the cached round finished. If the cache
// holds a different round the event is stale and ignored.
func (c *Cache) PublishWinnerConfirmed(e events.WinnerConfirmed) {
	snap, err := c.Current(context.Background())
	if err != nil || snap == nil || snap.RoundID != e.RoundID {
		return
	}
	snap.Finished = true
	winner := e.WinnerID
	snap.WinnerID = &winner
	finishedAt := e.FinishedAt
	snap.FinishedAt = &finishedAt
	c.store(*snap)
}
