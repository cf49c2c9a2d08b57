package jobs

import (
	"context"
	"log"
	"time"

	"printdesk/internal/session"
)

// SessionCleanupJob evicts idle sessions on a fixed interval. Expiry is
// also checked lazily on access; this job keeps the table and the persisted
// records from accumulating users who never come back.
type SessionCleanupJob struct {
	store    *session.Store
	interval time.Duration
}

// NewSessionCleanupJob runs hourly when interval is non-positive.
func NewSessionCleanupJob(store *session.Store, interval time.Duration) *SessionCleanupJob {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SessionCleanupJob{store: store, interval: interval}
}

// Run evicts every session idle past the store's timeout.
func (j *SessionCleanupJob) Run(ctx context.Context) error {
	evicted := j.store.ExpireIdle()
	if evicted > 0 {
		log.Printf("🧹 [SESSIONS] Evicted %d idle sessions", evicted)
	}
	return nil
}

// GetNextRunTime returns when the job should run next.
func (j *SessionCleanupJob) GetNextRunTime() time.Time {
	return time.Now().Add(j.interval)
}
