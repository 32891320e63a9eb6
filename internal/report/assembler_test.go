package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lojaops/gerencial-vendas/internal/chunk"
	"github.com/lojaops/gerencial-vendas/internal/model"
	"github.com/lojaops/gerencial-vendas/internal/report/mocks"
	"github.com/lojaops/gerencial-vendas/internal/resilience"
)

const testHeader = "Listar Por Consultor;Quebrar Por Data;GMV-GMV"

// fakeBackend serves one row per consultant per day, answering any window
// consistently. When refuseWhole is set, the whole-range request only gets a header.
type fakeBackend struct {
	mu          sync.Mutex
	whole       model.DateRange
	refuseWhole bool
	fail        map[string]bool
	calls       []model.DateRange
}

func (b *fakeBackend) Fetch(_ context.Context, r model.DateRange, _, _, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, r)

	if b.fail[r.String()] {
		return "", &FetchError{Range: r, StatusCode: 502, Body: "bad gateway"}
	}
	if b.refuseWhole && r == b.whole {
		return EncodePayload(testHeader + "\n"), nil
	}
	var sb strings.Builder
	sb.WriteString(testHeader + "\n")
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		fmt.Fprintf(&sb, "10 - Ana;%s;R$ %d,00\n", d.Format("02/01/2006"), d.YearDay())
	}
	return EncodePayload(sb.String()), nil
}

func dataRows(text string) []string {
	var rows []string
	for line := range strings.SplitSeq(text, "\n") {
		if strings.TrimSpace(line) == "" || line == testHeader {
			continue
		}
		rows = append(rows, line)
	}
	return rows
}

func noPause() AssemblerOption {
	return WithPacers(resilience.FixedPacer{}, resilience.FixedPacer{})
}

func TestRetrieve_SingleShot(t *testing.T) {
	t.Parallel()

	r := mustRange(t, "2025-01-01", "2025-03-15")
	be := &fakeBackend{whole: r}
	a := NewAssembler(be, zap.NewNop(), noPause())

	doc, err := a.Retrieve(context.Background(), r, "CONSULTOR", "DATA", "tok")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, chunk.SingleShot, doc.Strategy)
	assert.Equal(t, 1, doc.WindowsTotal)
	assert.Len(t, be.calls, 1)
	assert.Len(t, dataRows(doc.Text), 74)
}

func TestRetrieve_MonthlyMatchesSingleShot(t *testing.T) {
	t.Parallel()

	r := mustRange(t, "2025-01-01", "2025-03-15")

	whole, err := NewAssembler(&fakeBackend{whole: r}, nil, noPause()).
		Retrieve(context.Background(), r, "CONSULTOR", "DATA", "tok")
	require.NoError(t, err)

	be := &fakeBackend{whole: r, refuseWhole: true}
	split, err := NewAssembler(be, nil, noPause()).
		Retrieve(context.Background(), r, "CONSULTOR", "DATA", "tok")
	require.NoError(t, err)
	require.NotNil(t, split)

	assert.Equal(t, chunk.Monthly, split.Strategy)
	assert.Equal(t, 3, split.WindowsTotal)
	assert.Equal(t, 3, split.WindowsWithData)
	assert.Equal(t, dataRows(whole.Text), dataRows(split.Text))

	// Exactly one header, on the first line.
	assert.Equal(t, 1, strings.Count(split.Text, testHeader))
	assert.True(t, strings.HasPrefix(split.Text, testHeader+"\n"))
	assert.NotContains(t, split.Text, "\n\n")

	require.Len(t, be.calls, 4)
	assert.Equal(t, "2025-01-01..2025-01-31", be.calls[1].String())
	assert.Equal(t, "2025-02-01..2025-02-28", be.calls[2].String())
	assert.Equal(t, "2025-03-01..2025-03-15", be.calls[3].String())
}

func TestRetrieve_WeeklyFallback(t *testing.T) {
	t.Parallel()

	r := mustRange(t, "2025-01-01", "2025-01-10")
	be := &fakeBackend{whole: r, refuseWhole: true}

	doc, err := NewAssembler(be, nil, noPause()).Retrieve(context.Background(), r, "CONSULTOR", "DATA", "tok")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, chunk.Weekly, doc.Strategy)
	assert.Equal(t, 2, doc.WindowsTotal)
	assert.Len(t, dataRows(doc.Text), 10)
	require.Len(t, be.calls, 3)
	assert.Equal(t, "2025-01-01..2025-01-07", be.calls[1].String())
	assert.Equal(t, "2025-01-08..2025-01-10", be.calls[2].String())
}

func TestRetrieve_SkipsFailedWindows(t *testing.T) {
	t.Parallel()

	r := mustRange(t, "2025-01-01", "2025-03-15")
	be := &fakeBackend{
		whole:       r,
		refuseWhole: true,
		fail:        map[string]bool{"2025-01-01..2025-01-31": true},
	}

	doc, err := NewAssembler(be, nil, noPause()).Retrieve(context.Background(), r, "CONSULTOR", "DATA", "tok")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, 1, doc.WindowsFailed)
	assert.Equal(t, 2, doc.WindowsWithData)
	// February carries the header now that January failed.
	assert.True(t, strings.HasPrefix(doc.Text, testHeader+"\n"))
	assert.Equal(t, 1, strings.Count(doc.Text, testHeader))
	assert.Len(t, dataRows(doc.Text), 28+15)
}

func TestRetrieve_NoData(t *testing.T) {
	t.Parallel()

	r := mustRange(t, "2025-01-01", "2025-01-10")
	src := mocks.NewMockSource(t)
	src.On("Fetch", mock.Anything, mock.Anything, "CONSULTOR", "DATA", "tok").
		Return(EncodePayload(testHeader), nil)

	doc, err := NewAssembler(src, nil, noPause()).Retrieve(context.Background(), r, "CONSULTOR", "DATA", "tok")
	require.NoError(t, err)
	assert.Nil(t, doc)
	src.AssertNumberOfCalls(t, "Fetch", 3)
}

func TestRetrieve_AllWindowsFail(t *testing.T) {
	t.Parallel()

	r := mustRange(t, "2025-01-01", "2025-01-10")
	src := mocks.NewMockSource(t)
	src.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("connection refused"))

	doc, err := NewAssembler(src, nil, noPause()).Retrieve(context.Background(), r, "CONSULTOR", "DATA", "tok")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestRetrieve_UndecodableWindowSkipped(t *testing.T) {
	t.Parallel()

	r := mustRange(t, "2025-01-01", "2025-01-10")
	first := mustRange(t, "2025-01-01", "2025-01-07")
	second := mustRange(t, "2025-01-08", "2025-01-10")

	src := mocks.NewMockSource(t)
	src.On("Fetch", mock.Anything, r, mock.Anything, mock.Anything, mock.Anything).Return("%%%", nil).Once()
	src.On("Fetch", mock.Anything, first, mock.Anything, mock.Anything, mock.Anything).Return("%%%", nil).Once()
	src.On("Fetch", mock.Anything, second, mock.Anything, mock.Anything, mock.Anything).
		Return(EncodePayload(testHeader+"\n10 - Ana;08/01/2025;R$ 1,00\n"), nil).Once()

	doc, err := NewAssembler(src, nil, noPause()).Retrieve(context.Background(), r, "CONSULTOR", "DATA", "tok")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, 1, doc.WindowsFailed)
	assert.Equal(t, testHeader+"\n10 - Ana;08/01/2025;R$ 1,00", doc.Text)
}

type recordingPacer struct {
	mu       sync.Mutex
	attempts []int
}

func (p *recordingPacer) Wait(_ context.Context, attempt int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts = append(p.attempts, attempt)
	return nil
}

func TestRetrieve_PacesBetweenWindows(t *testing.T) {
	t.Parallel()

	r := mustRange(t, "2025-01-01", "2025-03-15")
	monthly := &recordingPacer{}
	weekly := &recordingPacer{}

	_, err := NewAssembler(&fakeBackend{whole: r, refuseWhole: true}, nil, WithPacers(monthly, weekly)).
		Retrieve(context.Background(), r, "CONSULTOR", "DATA", "tok")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, monthly.attempts)
	assert.Empty(t, weekly.attempts)
}

func TestRetrieve_ContextCancelledDuringPause(t *testing.T) {
	t.Parallel()

	r := mustRange(t, "2025-01-01", "2025-01-20")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	slow := WithPacers(nil, resilience.FixedPacer{Interval: time.Hour})
	_, err := NewAssembler(&fakeBackend{whole: r, refuseWhole: true}, nil, slow).
		Retrieve(ctx, r, "CONSULTOR", "DATA", "tok")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNewAssembler_DefaultPacers(t *testing.T) {
	t.Parallel()

	a := NewAssembler(&fakeBackend{}, nil)
	assert.Equal(t, resilience.FixedPacer{Interval: time.Second}, a.monthly)
	assert.Equal(t, resilience.FixedPacer{Interval: 500 * time.Millisecond}, a.weekly)
}
