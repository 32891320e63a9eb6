package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lojaops/gerencial-vendas/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	done := now.Add(2 * time.Minute)
	rng, err := model.ParseDateRange("2025-01-01", "2025-06-14")
	require.NoError(t, err)

	runs := []model.SyncRun{
		{
			ID:            "abc12345-6789-0000-0000-000000000000",
			Report:        "por_consultor",
			Range:         rng,
			Strategy:      "monthly",
			WindowsTotal:  6,
			WindowsFailed: 1,
			RowsWritten:   420,
			Status:        model.RunStatusComplete,
			StartedAt:     now,
			CompletedAt:   &done,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Report:    "por_loja",
			Range:     rng,
			Status:    model.RunStatusFailed,
			Error:     "pipeline: upsert: connection lost",
			StartedAt: now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "REPORT")
	assert.Contains(t, output, "STRATEGY")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "por_consultor")
	assert.Contains(t, output, "2025-01-01..2025-06-14")
	assert.Contains(t, output, "monthly")
	assert.Contains(t, output, "5/6")
	assert.Contains(t, output, "420")
	assert.Contains(t, output, "2m0s")
	assert.Contains(t, output, "por_loja")
	assert.Contains(t, output, "failed")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
