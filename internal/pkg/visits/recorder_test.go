package visits

import (
	"context"
	"errors"
	"testing"
	"time"
)

// memDedupStore keeps seen triples in a map, mirroring the Redis SETNX
// semantics.
type memDedupStore struct {
	seen map[string]struct{}
	err  error
}

func newMemDedupStore() *memDedupStore {
	return &memDedupStore{seen: make(map[string]struct{})}
}

func (m *memDedupStore) MarkSeen(_ context.Context, visitorID, tourID, date string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	key := visitorID + "|" + tourID + "|" + date
	if _, ok := m.seen[key]; ok {
		return false, nil
	}
	m.seen[key] = struct{}{}
	return true, nil
}

type memPendingCounter struct {
	counts map[string]int64
}

func newMemPendingCounter() *memPendingCounter {
	return &memPendingCounter{counts: make(map[string]int64)}
}

func (m *memPendingCounter) Incr(_ context.Context, userID uint, tourID, date string) error {
	m.counts[pendingField(userID, tourID, date)]++
	return nil
}

func TestRecordVisitCountsOncePerDay(t *testing.T) {
	dedup := newMemDedupStore()
	pending := newMemPendingCounter()
	recorder := NewRecorder(dedup, pending)
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 15, 30, 0, 0, time.UTC)

	counted, err := recorder.RecordVisit(ctx, "visitor-1", "tour-a", 7, at)
	if err != nil || !counted {
		t.Fatalf("first visit: counted=%v err=%v", counted, err)
	}

	// Same visitor, same tour, same day: deduplicated.
	counted, err = recorder.RecordVisit(ctx, "visitor-1", "tour-a", 7, at.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("repeat visit: %v", err)
	}
	if counted {
		t.Fatalf("repeat visit on the same day must not count")
	}

	if got := pending.counts[pendingField(7, "tour-a", "2025-06-01")]; got != 1 {
		t.Fatalf("pending count = %d, want 1", got)
	}
}

func TestRecordVisitNewDayCountsAgain(t *testing.T) {
	recorder := NewRecorder(newMemDedupStore(), newMemPendingCounter())
	ctx := context.Background()
	day1 := time.Date(2025, 6, 1, 23, 50, 0, 0, time.UTC)
	day2 := time.Date(2025, 6, 2, 0, 10, 0, 0, time.UTC)

	if counted, _ := recorder.RecordVisit(ctx, "v", "t", 1, day1); !counted {
		t.Fatalf("expected day-1 visit to count")
	}
	if counted, _ := recorder.RecordVisit(ctx, "v", "t", 1, day2); !counted {
		t.Fatalf("expected day-2 visit to count as a fresh day")
	}
}

func TestRecordVisitDistinctVisitorsAndTours(t *testing.T) {
	pending := newMemPendingCounter()
	recorder := NewRecorder(newMemDedupStore(), pending)
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for _, visitor := range []string{"v1", "v2", "v3"} {
		if counted, err := recorder.RecordVisit(ctx, visitor, "tour-a", 7, at); err != nil || !counted {
			t.Fatalf("visitor %s: counted=%v err=%v", visitor, counted, err)
		}
	}
	if counted, err := recorder.RecordVisit(ctx, "v1", "tour-b", 7, at); err != nil || !counted {
		t.Fatalf("second tour for same visitor: counted=%v err=%v", counted, err)
	}

	if got := pending.counts[pendingField(7, "tour-a", "2025-06-01")]; got != 3 {
		t.Fatalf("tour-a pending count = %d, want 3", got)
	}
	if got := pending.counts[pendingField(7, "tour-b", "2025-06-01")]; got != 1 {
		t.Fatalf("tour-b pending count = %d, want 1", got)
	}
}

func TestRecordVisitValidation(t *testing.T) {
	recorder := NewRecorder(newMemDedupStore(), newMemPendingCounter())
	ctx := context.Background()
	at := time.Now()

	if _, err := recorder.RecordVisit(ctx, "", "tour-a", 1, at); err == nil {
		t.Fatalf("expected missing visitor to be rejected")
	}
	if _, err := recorder.RecordVisit(ctx, "v", "", 1, at); err == nil {
		t.Fatalf("expected missing tour to be rejected")
	}
}

func TestRecordVisitDedupFailureSurfaces(t *testing.T) {
	dedup := newMemDedupStore()
	dedup.err = errors.New("redis down")
	pending := newMemPendingCounter()
	recorder := NewRecorder(dedup, pending)

	counted, err := recorder.RecordVisit(context.Background(), "v", "t", 1, time.Now())
	if err == nil {
		t.Fatalf("expected dedup failure to surface")
	}
	if counted {
		t.Fatalf("failed dedup must not report a counted visit")
	}
	if len(pending.counts) != 0 {
		t.Fatalf("failed dedup must not increment pending counters")
	}
}
