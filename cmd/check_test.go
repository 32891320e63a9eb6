package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lojaops/gerencial-vendas/internal/monitoring"
)

func TestFormatSnapshot(t *testing.T) {
	last := time.Date(2025, 6, 15, 6, 0, 0, 0, time.UTC)
	snap := &monitoring.MetricsSnapshot{
		RunsTotal:      5,
		RunsComplete:   3,
		RunsEmpty:      1,
		RunsFailed:     1,
		WindowsTotal:   12,
		WindowsFailed:  2,
		RowsWritten:    840,
		LastCompleteAt: &last,
		LookbackHours:  168,
	}
	alerts := []monitoring.Alert{{Type: monitoring.AlertWindowFailureRate, Severity: "medium", Message: "2 of 12 report windows failed"}}

	var buf bytes.Buffer
	formatSnapshot(&buf, snap, alerts)

	out := buf.String()
	assert.Contains(t, out, "Runs (last 168h): 5 total, 3 complete, 1 empty, 1 failed")
	assert.Contains(t, out, "Windows: 12 requested, 2 failed")
	assert.Contains(t, out, "Rows written: 840")
	assert.Contains(t, out, "Last complete sync: 2025-06-15 06:00")
	assert.Contains(t, out, "ALERT [medium] window_failure_rate")
}

func TestFormatSnapshot_NeverCompleted(t *testing.T) {
	var buf bytes.Buffer
	formatSnapshot(&buf, &monitoring.MetricsSnapshot{LookbackHours: 24}, nil)
	assert.Contains(t, buf.String(), "Last complete sync: never")
	assert.NotContains(t, buf.String(), "ALERT")
}

func TestCheckCommand_Flags(t *testing.T) {
	flag := checkCmd.Flags().Lookup("watch")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}
