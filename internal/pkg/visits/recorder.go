package visits

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/panorago/panorago/internal/pkg/cache"
)

const (
	pendingVisitsKey = "tour:counters:visits"
	dedupKeyPrefix   = "tour:visits:seen"
	dedupTTL         = 48 * time.Hour
)

// DedupStore decides whether a visit was already counted for a
// (visitor, tour, date) triple. It is injected into the Recorder so embed
// handlers never depend on hidden process-wide state and tests can supply
// an in-memory implementation.
type DedupStore interface {
	MarkSeen(ctx context.Context, visitorID, tourID, date string) (bool, error)
}

// PendingCounter accumulates not-yet-flushed visit counts.
type PendingCounter interface {
	Incr(ctx context.Context, userID uint, tourID, date string) error
}

type redisDedupStore struct{}

// NewRedisDedupStore returns a DedupStore backed by Redis SETNX keys with a
// 48h TTL, safe across multiple app instances.
func NewRedisDedupStore() DedupStore {
	return redisDedupStore{}
}

func (redisDedupStore) MarkSeen(ctx context.Context, visitorID, tourID, date string) (bool, error) {
	key := fmt.Sprintf("%s:%s:%s:%s", dedupKeyPrefix, visitorID, tourID, date)
	return cache.GetClient().SetNX(ctx, key, 1, dedupTTL).Result()
}

type redisPendingCounter struct{}

// NewRedisPendingCounter returns the Redis hash accumulator drained by the
// flusher.
func NewRedisPendingCounter() PendingCounter {
	return redisPendingCounter{}
}

func (redisPendingCounter) Incr(ctx context.Context, userID uint, tourID, date string) error {
	field := pendingField(userID, tourID, date)
	return cache.GetClient().HIncrBy(ctx, pendingVisitsKey, field, 1).Err()
}

// Recorder counts embed visits, deduplicated per visitor, tour and day.
type Recorder struct {
	dedup   DedupStore
	pending PendingCounter
}

func NewRecorder(dedup DedupStore, pending PendingCounter) *Recorder {
	return &Recorder{dedup: dedup, pending: pending}
}

// RecordVisit registers a visit and reports whether it was counted (false
// means the visitor already viewed this tour today).
func (r *Recorder) RecordVisit(ctx context.Context, visitorID, tourID string, ownerID uint, at time.Time) (bool, error) {
	visitorID = strings.TrimSpace(visitorID)
	tourID = strings.TrimSpace(tourID)
	if visitorID == "" || tourID == "" {
		return false, fmt.Errorf("visits: visitor and tour are required")
	}

	date := at.UTC().Format("2006-01-02")
	first, err := r.dedup.MarkSeen(ctx, visitorID, tourID, date)
	if err != nil {
		return false, err
	}
	if !first {
		return false, nil
	}
	if err := r.pending.Incr(ctx, ownerID, tourID, date); err != nil {
		return false, err
	}
	return true, nil
}

func pendingField(userID uint, tourID, date string) string {
	return fmt.Sprintf("%d|%s|%s", userID, tourID, date)
}
