package roundcache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"buttonrace/internal/events"
)

func getTestCache(t *testing.T) *Cache {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping Redis tests")
	}

	cache, err := Connect(context.Background(), addr)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() {
		cache.rdb.Del(context.Background(), currentRoundKey)
		cache.Close()
	})
	return cache
}

func TestCurrent_Empty(t *testing.T) {
	cache := getTestCache(t)
	cache.rdb.Del(context.Background(), currentRoundKey)

	snap, err := cache.Current(context.Background())
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if snap != nil {
		t.Errorf("Current() = %+v, want nil on cold cache", snap)
	}
}

func TestRoundStartedStoresSnapshot(t *testing.T) {
	cache := getTestCache(t)

	started := events.RoundStarted{
		RoundID:     uuid.New(),
		ButtonCount: 8,
		StartedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	cache.PublishRoundStarted(started)

	snap, err := cache.Current(context.Background())
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if snap == nil {
		t.Fatal("Current() = nil after round started")
	}
	if snap.RoundID != started.RoundID || snap.ButtonCount != 8 || snap.Finished {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestWinnerConfirmedMarksFinished(t *testing.T) {
	cache := getTestCache(t)

	roundID := uuid.New()
	winnerID := uuid.New()
	cache.PublishRoundStarted(events.RoundStarted{RoundID: roundID, ButtonCount: 5, StartedAt: time.Now().UTC()})
	cache.PublishWinnerConfirmed(events.WinnerConfirmed{RoundID: roundID, WinnerID: winnerID, FinishedAt: time.Now().UTC()})

	snap, err := cache.Current(context.Background())
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if !snap.Finished {
		t.Error("snapshot not marked finished")
	}
	if snap.WinnerID == nil || *snap.WinnerID != winnerID {
		t.Errorf("winner = %v, want %v", snap.WinnerID, winnerID)
	}
}

func TestStaleWinnerIgnored(t *testing.T) {
	cache := getTestCache(t)

	current := uuid.New()
	cache.PublishRoundStarted(events.RoundStarted{RoundID: current, ButtonCount: 5, StartedAt: time.Now().UTC()})
	cache.PublishWinnerConfirmed(events.WinnerConfirmed{RoundID: uuid.New(), WinnerID: uuid.New(), FinishedAt: time.Now().UTC()})

	snap, err := cache.Current(context.Background())
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if snap.Finished || snap.WinnerID != nil {
		t.Errorf("stale winner mutated snapshot: %+v", snap)
	}
}

func TestNewRoundReplacesFinished(t *testing.T) {
	cache := getTestCache(t)

	old := uuid.New()
	cache.PublishRoundStarted(events.RoundStarted{RoundID: old, ButtonCount: 5, StartedAt: time.Now().UTC()})
	cache.PublishWinnerConfirmed(events.WinnerConfirmed{RoundID: old, WinnerID: uuid.New(), FinishedAt: time.Now().UTC()})

	fresh := uuid.New()
	cache.PublishRoundStarted(events.RoundStarted{RoundID: fresh, ButtonCount: 3, StartedAt: time.Now().UTC()})

	snap, err := cache.Current(context.Background())
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if snap.RoundID != fresh || snap.Finished || snap.WinnerID != nil {
		t.Errorf("snapshot = %+v, want fresh unfinished round", snap)
	}
}
