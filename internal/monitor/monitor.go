// Package monitor aggregates handled failures into time-windowed health
// reports. Records are append-only; the in-memory slice mirrors the durable
// JSONL ledger.
package monitor

import (
	"log"
	"sync"
	"time"
)

// Record is one immutable failure entry.
type Record struct {
	Timestamp time.Time         `json:"timestamp"`
	Kind      string            `json:"kind"`
	Message   string            `json:"message"`
	Context   map[string]string `json:"context,omitempty"`
}

// Health statuses, worst first.
const (
	StatusCritical = "critical"
	StatusWarning  = "warning"
	StatusDegraded = "degraded"
	StatusHealthy  = "healthy"
)

// Report is the aggregation over a trailing window.
type Report struct {
	WindowHours  int            `json:"window_hours"`
	Total        int            `json:"total"`
	CountsByKind map[string]int `json:"counts_by_kind"`
	HourlyTrend  map[string]int `json:"hourly_trend"` // "2006-01-02T15" buckets
}

// defaultCriticalKinds are the failure kinds that indicate the engine itself
// is in trouble, not just one flaky request.
var defaultCriticalKinds = []string{"configuration", "storage", "external_api", "catalog"}

// Monitor is the process-wide error ledger. Safe for concurrent writers;
// aggregation reads see a consistent snapshot under the same lock.
type Monitor struct {
	mu       sync.Mutex
	records  []Record
	counts   map[string]int
	critical map[string]bool
	ledger   *Ledger
	now      func() time.Time
}

// NewMonitor loads any existing ledger contents into memory. A nil ledger
// keeps the monitor purely in-memory (used in tests).
func NewMonitor(ledger *Ledger, criticalKinds []string) *Monitor {
	if len(criticalKinds) == 0 {
		criticalKinds = defaultCriticalKinds
	}
	critical := make(map[string]bool, len(criticalKinds))
	for _, k := range criticalKinds {
		critical[k] = true
	}
	m := &Monitor{
		counts:   make(map[string]int),
		critical: critical,
		ledger:   ledger,
		now:      time.Now,
	}
	if ledger != nil {
		records, err := ledger.ReadAll()
		if err != nil {
			log.Printf("⚠️  [MONITOR] Failed to load error ledger: %v", err)
		}
		m.records = records
		for _, rec := range records {
			m.counts[rec.Kind]++
		}
	}
	return m
}

// Record appends a failure entry and updates the per-kind counter. Ledger
// write failures are logged, never raised.
func (m *Monitor) Record(kind, message string, context map[string]string) {
	rec := Record{
		Timestamp: m.now(),
		Kind:      kind,
		Message:   message,
		Context:   context,
	}
	m.mu.Lock()
	m.records = append(m.records, rec)
	m.counts[kind]++
	m.mu.Unlock()

	if m.ledger != nil {
		if err := m.ledger.Append(rec); err != nil {
			log.Printf("⚠️  [MONITOR] Failed to append to error ledger: %v", err)
		}
	}
}

// Analyze aggregates records inside the trailing window.
func (m *Monitor) Analyze(windowHours int) Report {
	cutoff := m.now().Add(-time.Duration(windowHours) * time.Hour)
	report := Report{
		WindowHours:  windowHours,
		CountsByKind: make(map[string]int),
		HourlyTrend:  make(map[string]int),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.Timestamp.Before(cutoff) {
			continue
		}
		report.Total++
		report.CountsByKind[rec.Kind]++
		report.HourlyTrend[rec.Timestamp.Format("2006-01-02T15")]++
	}
	return report
}

// CriticalRecords returns the window's records whose kind is critical.
func (m *Monitor) CriticalRecords(windowHours int) []Record {
	cutoff := m.now().Add(-time.Duration(windowHours) * time.Hour)

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, rec := range m.records {
		if rec.Timestamp.Before(cutoff) || !m.critical[rec.Kind] {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Health grades the trailing window: more than 5 critical records is
// critical, more than 50 total is warning, more than 10 total is degraded.
func (m *Monitor) Health(windowHours int) string {
	if windowHours <= 0 {
		windowHours = 1
	}
	critical := len(m.CriticalRecords(windowHours))
	total := m.Analyze(windowHours).Total

	switch {
	case critical > 5:
		return StatusCritical
	case total > 50:
		return StatusWarning
	case total > 10:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

// Prune drops records older than the cutoff from memory and rewrites the
// ledger atomically. Returns the number of records removed.
func (m *Monitor) Prune(olderThanDays int) (int, error) {
	cutoff := m.now().AddDate(0, 0, -olderThanDays)

	m.mu.Lock()
	kept := m.records[:0:0]
	for _, rec := range m.records {
		if !rec.Timestamp.Before(cutoff) {
			kept = append(kept, rec)
		}
	}
	removed := len(m.records) - len(kept)
	m.records = kept
	counts := make(map[string]int)
	for _, rec := range kept {
		counts[rec.Kind]++
	}
	m.counts = counts
	m.mu.Unlock()

	if removed > 0 && m.ledger != nil {
		if err := m.ledger.Rewrite(kept); err != nil {
			return removed, err
		}
	}
	return removed, nil
}
