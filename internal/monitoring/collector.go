package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/lojaops/gerencial-vendas/internal/chunk"
	"github.com/lojaops/gerencial-vendas/internal/model"
)

// collectLimit bounds how many sync log rows one collection reads.
const collectLimit = 1000

// MetricsSnapshot holds a point-in-time view of sync health.
type MetricsSnapshot struct {
	// Sync runs started within the lookback window.
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsEmpty    int     `json:"runs_empty"`
	RunsFailed   int     `json:"runs_failed"`
	FailRate     float64 `json:"fail_rate"`
	RowsWritten  int64   `json:"rows_written"`

	// Window requests made by monthly and weekly retrievals.
	WindowsTotal   int     `json:"windows_total"`
	WindowsFailed  int     `json:"windows_failed"`
	WindowFailRate float64 `json:"window_fail_rate"`

	// LastCompleteAt is the completion time of the newest complete run, if any.
	LastCompleteAt *time.Time `json:"last_complete_at,omitempty"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister reads the sync log, newest first.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]model.SyncRun, error)
}

// Collector gathers metrics from the sync log.
type Collector struct {
	runs RunLister
	now  func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs, now: time.Now}
}

// Collect gathers a snapshot of sync metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.runs.ListRuns(ctx, collectLimit)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	for _, r := range runs {
		if r.Status == model.RunStatusComplete && r.CompletedAt != nil {
			if snap.LastCompleteAt == nil || r.CompletedAt.After(*snap.LastCompleteAt) {
				t := *r.CompletedAt
				snap.LastCompleteAt = &t
			}
		}
		if r.StartedAt.Before(cutoff) {
			continue
		}

		snap.RunsTotal++
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusEmpty:
			snap.RunsEmpty++
		case model.RunStatusFailed:
			snap.RunsFailed++
		}
		snap.RowsWritten += r.RowsWritten
		if r.Strategy == chunk.Monthly.String() || r.Strategy == chunk.Weekly.String() {
			snap.WindowsTotal += r.WindowsTotal
			snap.WindowsFailed += r.WindowsFailed
		}
	}

	if snap.RunsTotal > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(snap.RunsTotal)
	}
	if snap.WindowsTotal > 0 {
		snap.WindowFailRate = float64(snap.WindowsFailed) / float64(snap.WindowsTotal)
	}

	return snap, nil
}
