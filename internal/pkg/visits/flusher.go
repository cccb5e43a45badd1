package visits

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/panorago/panorago/internal/pkg/cache"
	"github.com/panorago/panorago/internal/pkg/database"
)

// pendingBuffer is the claim/requeue surface over the Redis visit hash.
// Injected into flushPending so failure handling is testable without Redis.
type pendingBuffer interface {
	// Claim atomically takes the pending hash and returns its fields keyed
	// by the claimed temporary key. An empty key means nothing was pending.
	Claim(ctx context.Context) (string, map[string]string, error)
	// Requeue adds claimed fields back onto the pending hash.
	Requeue(ctx context.Context, fields map[string]string) error
	// Discard drops a claimed temporary key.
	Discard(ctx context.Context, key string) error
}

type visitRow struct {
	userID uint64
	tourID string
	date   string
	inc    int64
}

// FlushPending drains the Redis visit hash and applies batched upserts to
// the daily visit table. Claimed counts survive an upsert failure: they are
// merged back onto the pending hash for the next flush.
func FlushPending() error {
	return flushPending(context.Background(), redisPendingBuffer{}, applyVisitRows)
}

func flushPending(ctx context.Context, buf pendingBuffer, apply func([]visitRow) error) error {
	key, fields, err := buf.Claim(ctx)
	if err != nil {
		return err
	}
	if key == "" {
		return nil
	}

	rows := parsePendingFields(fields)
	if len(rows) == 0 {
		return buf.Discard(ctx, key)
	}

	if err := apply(rows); err != nil {
		// Put the counts back so the next flush retries them. If even the
		// requeue fails the claimed key stays in Redis for recovery.
		if rqErr := buf.Requeue(ctx, fields); rqErr != nil {
			return fmt.Errorf("flush failed (%v) and requeue failed, counts stay under %s: %w", err, key, rqErr)
		}
		if dErr := buf.Discard(ctx, key); dErr != nil {
			log.Warnf("visits: discard of claimed key %s after requeue: %v", key, dErr)
		}
		return err
	}
	return buf.Discard(ctx, key)
}

// parsePendingFields turns "userID|tourID|date" -> count hash fields into
// rows, silently skipping malformed entries, sorted for deterministic SQL.
func parsePendingFields(fields map[string]string) []visitRow {
	rows := make([]visitRow, 0, len(fields))
	for field, v := range fields {
		parts := strings.SplitN(field, "|", 3)
		if len(parts) != 3 {
			continue
		}
		userID, uerr := strconv.ParseUint(parts[0], 10, 64)
		if uerr != nil {
			continue
		}
		inc, ierr := strconv.ParseInt(v, 10, 64)
		if ierr != nil || inc == 0 {
			continue
		}
		rows = append(rows, visitRow{userID: userID, tourID: parts[1], date: parts[2], inc: inc})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].tourID != rows[j].tourID {
			return rows[i].tourID < rows[j].tourID
		}
		return rows[i].date < rows[j].date
	})
	return rows
}

// applyVisitRows upserts one VALUES tuple per (tour, date) with the count
// added onto any existing row.
func applyVisitRows(rows []visitRow) error {
	var builder strings.Builder
	args := make([]interface{}, 0, len(rows)*6)
	builder.WriteString("INSERT INTO tour_visit_dailies (tour_id, user_id, visit_date, count, created_at, updated_at) VALUES ")
	now := time.Now()
	for i, r := range rows {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args, r.tourID, r.userID, r.date, r.inc, now, now)
	}
	builder.WriteString(" ON DUPLICATE KEY UPDATE count = count + VALUES(count), updated_at = VALUES(updated_at)")

	return database.GetDB().Exec(builder.String(), args...).Error
}

type redisPendingBuffer struct{}

func (redisPendingBuffer) Claim(ctx context.Context) (string, map[string]string, error) {
	rdb := cache.GetClient()
	tmpKey := fmt.Sprintf("%s:tmp:%d", pendingVisitsKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", pendingVisitsKey, tmpKey).Err(); err != nil {
		if err == redis.Nil || strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return "", nil, nil
		}
		return "", nil, err
	}
	fields, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return "", nil, err
	}
	return tmpKey, fields, nil
}

func (redisPendingBuffer) Requeue(ctx context.Context, fields map[string]string) error {
	rdb := cache.GetClient()
	for field, v := range fields {
		inc, err := strconv.ParseInt(v, 10, 64)
		if err != nil || inc == 0 {
			continue
		}
		if err := rdb.HIncrBy(ctx, pendingVisitsKey, field, inc).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (redisPendingBuffer) Discard(ctx context.Context, key string) error {
	return cache.GetClient().Del(ctx, key).Err()
}

// StartFlusher flushes pending visit counters on the given interval until
// the context is canceled.
func StartFlusher(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := FlushPending(); err != nil {
					log.Errorf("visits flusher: %v", err)
				}
			}
		}
	}()
}
