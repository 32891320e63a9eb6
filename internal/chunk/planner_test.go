package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lojaops/gerencial-vendas/internal/model"
)

func mustRange(t *testing.T, start, end string) model.DateRange {
	t.Helper()
	r, err := model.ParseDateRange(start, end)
	require.NoError(t, err)
	return r
}

func formatWindows(ws []model.DateRange) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.String()
	}
	return out
}

func TestPlan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start string
		end   string
		lines int
		want  Strategy
	}{
		{"single shot accepted", "2025-01-01", "2025-12-31", 5, SingleShot},
		{"header only long range", "2025-01-01", "2025-03-15", 1, Monthly},
		{"failed long range", "2025-01-01", "2025-03-15", 0, Monthly},
		{"header only short range", "2025-01-01", "2025-01-10", 1, Weekly},
		{"exactly thirty days", "2025-01-01", "2025-01-31", 1, Weekly},
		{"thirty one days", "2025-01-01", "2025-02-01", 1, Monthly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Plan(mustRange(t, tt.start, tt.end), tt.lines))
		})
	}
}

func TestWindows_MonthlyThreeMonths(t *testing.T) {
	t.Parallel()

	r := mustRange(t, "2025-01-01", "2025-03-15")
	require.Equal(t, Monthly, Plan(r, 1))

	got := formatWindows(Windows(r, Monthly))
	assert.Equal(t, []string{
		"2025-01-01..2025-01-31",
		"2025-02-01..2025-02-28",
		"2025-03-01..2025-03-15",
	}, got)
}

func TestWindows_MonthlyLeapYearAndYearRollover(t *testing.T) {
	t.Parallel()

	got := formatWindows(Windows(mustRange(t, "2023-12-01", "2024-03-01"), Monthly))
	assert.Equal(t, []string{
		"2023-12-01..2023-12-31",
		"2024-01-01..2024-01-31",
		"2024-02-01..2024-02-29",
		"2024-03-01..2024-03-01",
	}, got)
}

func TestWindows_MonthlyMidMonthStartIsClamped(t *testing.T) {
	t.Parallel()

	got := formatWindows(Windows(mustRange(t, "2025-01-15", "2025-02-20"), Monthly))
	assert.Equal(t, []string{
		"2025-01-15..2025-01-31",
		"2025-02-01..2025-02-20",
	}, got)
}

func TestWindows_Weekly(t *testing.T) {
	t.Parallel()

	r := mustRange(t, "2025-01-01", "2025-01-10")
	require.Equal(t, Weekly, Plan(r, 1))

	got := formatWindows(Windows(r, Weekly))
	assert.Equal(t, []string{
		"2025-01-01..2025-01-07",
		"2025-01-08..2025-01-10",
	}, got)
}

func TestWindows_SingleDay(t *testing.T) {
	t.Parallel()

	r := mustRange(t, "2025-09-10", "2025-09-10")
	assert.Equal(t, []string{"2025-09-10..2025-09-10"}, formatWindows(Windows(r, Weekly)))
	assert.Equal(t, []string{"2025-09-10..2025-09-10"}, formatWindows(Windows(r, Monthly)))
	assert.Equal(t, []model.DateRange{r}, Windows(r, SingleShot))
}

func TestWindows_CoverRangeWithoutGapsOrOverlap(t *testing.T) {
	t.Parallel()

	r := mustRange(t, "2024-11-17", "2025-04-03")
	for _, s := range []Strategy{Monthly, Weekly} {
		ws := Windows(r, s)
		require.NotEmpty(t, ws)
		assert.Equal(t, r.Start, ws[0].Start, s.String())
		assert.Equal(t, r.End, ws[len(ws)-1].End, s.String())
		for i := 1; i < len(ws); i++ {
			assert.Equal(t, ws[i-1].End.AddDate(0, 0, 1), ws[i].Start, s.String())
			assert.False(t, ws[i].Start.After(ws[i].End))
		}
	}
}

func TestStrategy_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "single_shot", SingleShot.String())
	assert.Equal(t, "monthly", Monthly.String())
	assert.Equal(t, "weekly", Weekly.String())
	assert.Equal(t, "unknown", Strategy(9).String())
}
