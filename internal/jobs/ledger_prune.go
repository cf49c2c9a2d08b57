package jobs

import (
	"context"
	"log"
	"time"

	"printdesk/internal/monitor"
)

// LedgerPruneJob rewrites the error ledger daily, dropping records older
// than the retention window.
type LedgerPruneJob struct {
	monitor       *monitor.Monitor
	retentionDays int
}

// NewLedgerPruneJob keeps retentionDays of error history (default 30).
func NewLedgerPruneJob(m *monitor.Monitor, retentionDays int) *LedgerPruneJob {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &LedgerPruneJob{monitor: m, retentionDays: retentionDays}
}

// Run prunes the ledger.
func (j *LedgerPruneJob) Run(ctx context.Context) error {
	removed, err := j.monitor.Prune(j.retentionDays)
	if err != nil {
		return err
	}
	if removed > 0 {
		log.Printf("🧹 [MONITOR] Pruned %d error records older than %d days", removed, j.retentionDays)
	}
	return nil
}

// GetNextRunTime returns when the job should run next (daily at 3 AM UTC).
func (j *LedgerPruneJob) GetNextRunTime() time.Time {
	now := time.Now().UTC()
	nextRun := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, time.UTC)
	if now.After(nextRun) {
		nextRun = nextRun.Add(24 * time.Hour)
	}
	return nextRun
}
