package sync

import (
	"time"

	"github.com/marcus/tasksync/internal/models"
)

// backoffDelay is base·2^(retries-1) capped at limit.
func backoffDelay(retries int, base, limit time.Duration) time.Duration {
	if retries <= 0 || base <= 0 {
		return 0
	}
	delay := base
	for i := 1; i < retries; i++ {
		delay *= 2
		if delay >= limit {
			return limit
		}
	}
	return min(delay, limit)
}

// readyAt reports when a failed item may be sent again. Items that never
// failed, or that have no recorded attempt, are ready immediately.
func readyAt(item *models.SyncQueueItem, base, limit time.Duration) time.Time {
	if item.RetryCount == 0 || item.LastAttemptAt == nil {
		return time.Time{}
	}
	return item.LastAttemptAt.Add(backoffDelay(item.RetryCount, base, limit))
}
