package report

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lojaops/gerencial-vendas/internal/chunk"
	"github.com/lojaops/gerencial-vendas/internal/model"
	"github.com/lojaops/gerencial-vendas/internal/resilience"
)

// Default pauses between window requests.
const (
	DefaultMonthlyPause = time.Second
	DefaultWeeklyPause  = 500 * time.Millisecond
)

// Chunk is the outcome of one window request.
type Chunk struct {
	Window model.DateRange
	Text   string
	Failed bool
}

// Document is the assembled report text with retrieval statistics.
type Document struct {
	Text            string
	Range           model.DateRange
	Strategy        chunk.Strategy
	WindowsTotal    int
	WindowsFailed   int
	WindowsWithData int
}

// Lines returns the number of non-blank lines in the document, header included.
func (d *Document) Lines() int {
	return countLines(d.Text)
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithPacers sets the pacing policy used between monthly and weekly window requests.
func WithPacers(monthly, weekly resilience.Pacer) AssemblerOption {
	return func(a *Assembler) {
		if monthly != nil {
			a.monthly = monthly
		}
		if weekly != nil {
			a.weekly = weekly
		}
	}
}

// Assembler retrieves a report for a date range, splitting the range into
// windows when the backend refuses to answer it in one request.
// It holds no per-call state and is safe for concurrent use.
type Assembler struct {
	src     Source
	monthly resilience.Pacer
	weekly  resilience.Pacer
	log     *zap.Logger
}

// NewAssembler creates an Assembler over src.
func NewAssembler(src Source, log *zap.Logger, opts ...AssemblerOption) *Assembler {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Assembler{
		src:     src,
		monthly: resilience.FixedPacer{Interval: DefaultMonthlyPause},
		weekly:  resilience.FixedPacer{Interval: DefaultWeeklyPause},
		log:     log.With(zap.String("component", "report.assembler")),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Retrieve returns the report for r. A single request over the whole range is
// tried first; if it fails or carries no more than a header, the range is
// fetched window by window and the windows are stitched with their repeated
// header lines removed. Failed windows are skipped. Retrieve returns nil, nil
// when no window produced data rows. Errors are returned only when ctx ends.
func (a *Assembler) Retrieve(ctx context.Context, r model.DateRange, listBy, breakBy, token string) (*Document, error) {
	log := a.log.With(zap.String("range", r.String()), zap.String("list_by", listBy))

	first := a.fetchChunk(ctx, log, r, listBy, breakBy, token)
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "report: retrieve")
	}

	strategy := chunk.Plan(r, countLines(first.Text))
	if strategy == chunk.SingleShot {
		log.Info("report retrieved in a single request", zap.Int("lines", countLines(first.Text)))
		return &Document{
			Text:            first.Text,
			Range:           r,
			Strategy:        chunk.SingleShot,
			WindowsTotal:    1,
			WindowsWithData: 1,
		}, nil
	}

	windows := chunk.Windows(r, strategy)
	pacer := a.weekly
	if strategy == chunk.Monthly {
		pacer = a.monthly
	}
	log.Info("single request returned no data, splitting range",
		zap.Stringer("strategy", strategy),
		zap.Int("windows", len(windows)),
	)

	doc := &Document{Range: r, Strategy: strategy, WindowsTotal: len(windows)}
	var parts []string
	for i, w := range windows {
		if i > 0 {
			if err := pacer.Wait(ctx, i); err != nil {
				return nil, eris.Wrap(err, "report: pacing")
			}
		}

		c := a.fetchChunk(ctx, log, w, listBy, breakBy, token)
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "report: retrieve")
		}
		if c.Failed {
			doc.WindowsFailed++
			continue
		}

		text := c.Text
		if len(parts) > 0 {
			text = stripHeader(text)
		}
		text = strings.TrimRight(text, "\r\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		doc.WindowsWithData++
		parts = append(parts, text)
	}

	doc.Text = strings.Join(parts, "\n")
	if countLines(doc.Text) <= 1 {
		log.Warn("no window produced data",
			zap.Int("windows", doc.WindowsTotal),
			zap.Int("failed", doc.WindowsFailed),
		)
		return nil, nil
	}

	log.Info("report assembled",
		zap.Stringer("strategy", strategy),
		zap.Int("windows", doc.WindowsTotal),
		zap.Int("failed", doc.WindowsFailed),
		zap.Int("with_data", doc.WindowsWithData),
		zap.Int("lines", doc.Lines()),
	)
	return doc, nil
}

// fetchChunk requests one window and decodes it. Failures are logged and
// reported through Chunk.Failed.
func (a *Assembler) fetchChunk(ctx context.Context, log *zap.Logger, w model.DateRange, listBy, breakBy, token string) Chunk {
	payload, err := a.src.Fetch(ctx, w, listBy, breakBy, token)
	if err != nil {
		log.Warn("window request failed, skipping", zap.String("window", w.String()), zap.Error(err))
		return Chunk{Window: w, Failed: true}
	}

	text, err := DecodePayload(payload)
	if err != nil {
		log.Warn("window payload not decodable, skipping", zap.String("window", w.String()), zap.Error(err))
		return Chunk{Window: w, Failed: true}
	}
	return Chunk{Window: w, Text: text}
}
