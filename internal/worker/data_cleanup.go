package worker

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"
)

// =============================================================================
// DATA CLEANUP WORKER
// =============================================================================
// Open and click events accumulate for every delivered newsletter. Campaign
// analytics keep their own counters, so raw events older than the retention
// window are removed in batches to keep newsletter_tracking_events small.

const (
	// DefaultCleanupInterval is how often the cleanup cycle runs.
	DefaultCleanupInterval = 1 * time.Hour

	// DefaultTrackingRetention is how long raw tracking events are kept.
	DefaultTrackingRetention = 90 * 24 * time.Hour

	// cleanupBatchSize limits each DELETE to avoid table-level locks.
	cleanupBatchSize = 10000
)

// DataCleanupWorker periodically removes expired tracking events.
type DataCleanupWorker struct {
	db         *sql.DB
	interval   time.Duration
	retention  time.Duration
	batchSize  int
	batchPause time.Duration

	mu      sync.Mutex
	removed int64
}

// NewDataCleanupWorker creates a cleanup worker. A zero retention uses
// DefaultTrackingRetention.
func NewDataCleanupWorker(db *sql.DB, retention time.Duration) *DataCleanupWorker {
	if retention <= 0 {
		retention = DefaultTrackingRetention
	}
	return &DataCleanupWorker{
		db:         db,
		interval:   DefaultCleanupInterval,
		retention:  retention,
		batchSize:  cleanupBatchSize,
		batchPause: 100 * time.Millisecond,
	}
}

// Start begins the cleanup loop. It blocks until ctx is cancelled.
func (dc *DataCleanupWorker) Start(ctx context.Context) {
	log.Printf("[DataCleanup] Starting (interval=%s, retention=%s, batch_size=%d)", dc.interval, dc.retention, dc.batchSize)

	dc.Cleanup(ctx)

	ticker := time.NewTicker(dc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[DataCleanup] Stopping")
			return
		case <-ticker.C:
			dc.Cleanup(ctx)
		}
	}
}

// Cleanup runs one cycle and returns the number of rows removed.
func (dc *DataCleanupWorker) Cleanup(ctx context.Context) int64 {
	start := time.Now()
	cutoff := start.Add(-dc.retention)

	total := dc.batchDelete(ctx, "newsletter_tracking_events", `
		DELETE FROM newsletter_tracking_events
		WHERE id IN (
			SELECT id FROM newsletter_tracking_events
			WHERE created_at < $1
			LIMIT $2
		)
	`, cutoff)
	if total > 0 {
		log.Printf("[DataCleanup] Removed %d tracking events older than %s in %s",
			total, cutoff.Format(time.RFC3339), time.Since(start).Round(time.Millisecond))
	}

	dc.mu.Lock()
	dc.removed += total
	dc.mu.Unlock()
	return total
}

// Removed returns the number of rows deleted since the worker was created.
func (dc *DataCleanupWorker) Removed() int64 {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.removed
}

// batchDelete runs query with (cutoff, batchSize) until no rows are
// affected. A missing table is logged once and treated as empty.
func (dc *DataCleanupWorker) batchDelete(ctx context.Context, table, query string, cutoff time.Time) int64 {
	var totalDeleted int64

	for {
		if ctx.Err() != nil {
			return totalDeleted
		}

		queryCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		res, err := dc.db.ExecContext(queryCtx, query, cutoff, dc.batchSize)
		cancel()

		if err != nil {
			if isTableNotExistsError(err) {
				if totalDeleted == 0 {
					log.Printf("[DataCleanup] Table %s does not exist, skipping", table)
				}
				return totalDeleted
			}
			log.Printf("[DataCleanup] Error deleting from %s: %v", table, err)
			return totalDeleted
		}

		affected, _ := res.RowsAffected()
		if affected == 0 {
			return totalDeleted
		}
		totalDeleted += affected
		if affected < int64(dc.batchSize) {
			return totalDeleted
		}

		select {
		case <-ctx.Done():
			return totalDeleted
		case <-time.After(dc.batchPause):
		}
	}
}

// isTableNotExistsError reports an undefined_table error (SQLSTATE 42P01).
func isTableNotExistsError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	return false
}
