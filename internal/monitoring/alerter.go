package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lojaops/gerencial-vendas/internal/config"
	"github.com/lojaops/gerencial-vendas/internal/fetcher"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertSyncFailureRate   AlertType = "sync_failure_rate"
	AlertWindowFailureRate AlertType = "window_failure_rate"
	AlertStaleData         AlertType = "stale_data"
)

// minFinishedRuns is the fewest runs in the window before a failure rate is judged.
const minFinishedRuns = 3

// minWindows is the fewest window requests before a window failure rate is judged.
const minWindows = 4

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	poster fetcher.Poster
}

// NewAlerter creates a new Alerter. A nil poster gets a default HTTP client.
func NewAlerter(cfg config.MonitoringConfig, poster fetcher.Poster) *Alerter {
	if poster == nil {
		poster = fetcher.NewHTTPClient(fetcher.HTTPOptions{Timeout: 10 * time.Second})
	}
	return &Alerter{cfg: cfg, poster: poster}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := snap.CollectedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	// Check sync failure rate.
	if snap.RunsTotal >= minFinishedRuns && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertSyncFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Sync failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d runs in last %dh)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.RunsFailed, snap.RunsTotal, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.RunsFailed,
				"runs":         snap.RunsTotal,
			},
			Timestamp: now,
		})
	}

	// Check window failures in chunked retrievals.
	if a.cfg.WindowFailureRateThreshold > 0 && snap.WindowsTotal >= minWindows &&
		snap.WindowFailRate > a.cfg.WindowFailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertWindowFailureRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%d of %d report windows failed in last %dh (%.1f%%)",
				snap.WindowsFailed, snap.WindowsTotal, snap.LookbackHours, snap.WindowFailRate*100,
			),
			Details: map[string]any{
				"window_fail_rate": snap.WindowFailRate,
				"threshold":        a.cfg.WindowFailureRateThreshold,
				"windows_failed":   snap.WindowsFailed,
				"windows_total":    snap.WindowsTotal,
			},
			Timestamp: now,
		})
	}

	// Check data freshness.
	if a.cfg.StaleAfterHours > 0 {
		limit := time.Duration(a.cfg.StaleAfterHours) * time.Hour
		switch {
		case snap.LastCompleteAt == nil:
			alerts = append(alerts, Alert{
				Type:      AlertStaleData,
				Severity:  "high",
				Message:   "No complete sync recorded",
				Timestamp: now,
			})
		case now.Sub(*snap.LastCompleteAt) > limit:
			age := now.Sub(*snap.LastCompleteAt)
			alerts = append(alerts, Alert{
				Type:     AlertStaleData,
				Severity: "high",
				Message: fmt.Sprintf(
					"Last complete sync was %.0fh ago (limit %dh)",
					age.Hours(), a.cfg.StaleAfterHours,
				),
				Details: map[string]any{
					"last_complete_at": snap.LastCompleteAt.Format(time.RFC3339),
					"stale_after_h":    a.cfg.StaleAfterHours,
				},
				Timestamp: now,
			})
		}
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	resp, err := a.poster.PostJSON(ctx, a.cfg.WebhookURL, nil, alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
