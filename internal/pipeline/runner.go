// Package pipeline runs one sync of the sales report: retrieval, normalization,
// optional spreadsheet export and persistence.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lojaops/gerencial-vendas/internal/model"
	"github.com/lojaops/gerencial-vendas/internal/normalize"
	"github.com/lojaops/gerencial-vendas/internal/report"
	"github.com/lojaops/gerencial-vendas/internal/store"
)

// Retriever fetches the assembled report for a date range.
type Retriever interface {
	Retrieve(ctx context.Context, r model.DateRange, listBy, breakBy, token string) (*report.Document, error)
}

// RecordNormalizer turns report text into canonical records.
type RecordNormalizer interface {
	NormalizeWithStats(ctx context.Context, doc string) ([]model.Record, *normalize.Stats, error)
}

// ExportFunc writes the normalized rows of a report to dir and returns the file path.
type ExportFunc func(dir, report string, recs []model.Record) (string, error)

// Option configures a Runner.
type Option func(*Runner)

// WithStore sets the persister. Without one the Runner is a dry run.
func WithStore(p store.Persister) Option {
	return func(r *Runner) { r.store = p }
}

// WithExport writes each report to dir with fn before persisting it.
func WithExport(dir string, fn ExportFunc) Option {
	return func(r *Runner) {
		r.exportDir = dir
		r.export = fn
	}
}

// WithClock overrides time.Now for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// Runner wires the retrieval, normalization and persistence stages.
type Runner struct {
	retriever  Retriever
	normalizer RecordNormalizer
	store      store.Persister
	exportDir  string
	export     ExportFunc
	now        func() time.Time
	log        *zap.Logger
}

// NewRunner creates a Runner.
func NewRunner(ret Retriever, norm RecordNormalizer, log *zap.Logger, opts ...Option) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Runner{
		retriever:  ret,
		normalizer: norm,
		now:        time.Now,
		log:        log.With(zap.String("component", "pipeline")),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// DryRun reports whether the Runner skips persistence.
func (r *Runner) DryRun() bool {
	return r.store == nil
}

// Sync runs one report configuration over rng. The returned SyncRun is never
// nil; its Status says how the run ended. The error is non-nil only for
// failed runs.
func (r *Runner) Sync(ctx context.Context, rep model.ReportConfig, rng model.DateRange, token string) (*model.SyncRun, error) {
	log := r.log.With(zap.String("report", rep.Name), zap.String("range", rng.String()))
	run := &model.SyncRun{
		Report:    rep.Name,
		Range:     rng,
		StartedAt: r.now().UTC(),
	}

	err := r.sync(ctx, log, rep, rng, token, run)
	completed := r.now().UTC()
	run.CompletedAt = &completed
	if err != nil {
		run.Status = model.RunStatusFailed
		run.Error = err.Error()
		log.Error("pipeline: report failed", zap.Error(err))
	}

	r.record(ctx, log, run)
	return run, err
}

func (r *Runner) sync(ctx context.Context, log *zap.Logger, rep model.ReportConfig, rng model.DateRange, token string, run *model.SyncRun) error {
	log.Info("pipeline: retrieving report")
	doc, err := r.retriever.Retrieve(ctx, rng, rep.ListBy, rep.BreakBy, token)
	if err != nil {
		return eris.Wrap(err, "pipeline: retrieve")
	}
	if doc == nil {
		run.Status = model.RunStatusEmpty
		log.Warn("pipeline: no data for range")
		return nil
	}
	run.Strategy = doc.Strategy.String()
	run.WindowsTotal = doc.WindowsTotal
	run.WindowsFailed = doc.WindowsFailed

	recs, stats, err := r.normalizer.NormalizeWithStats(ctx, doc.Text)
	if err != nil {
		return eris.Wrap(err, "pipeline: normalize")
	}
	run.RowsParsed = len(recs)
	if stats == nil {
		stats = &normalize.Stats{}
	}

	recs, dropped := dropUndated(recs)
	run.RowsDropped = dropped
	if dropped > 0 {
		log.Warn("pipeline: dropped rows without a date", zap.Int("rows", dropped))
	}
	log.Info("pipeline: report normalized",
		zap.Int("rows", len(recs)),
		zap.Int("bad_dates", stats.BadDates),
	)
	if len(recs) == 0 {
		run.Status = model.RunStatusEmpty
		return nil
	}

	if r.export != nil && r.exportDir != "" {
		path, err := r.export(r.exportDir, rep.Name, recs)
		if err != nil {
			return eris.Wrap(err, "pipeline: export")
		}
		log.Info("pipeline: report exported", zap.String("path", path))
	}

	if r.store == nil {
		run.Status = model.RunStatusComplete
		log.Info("pipeline: dry run, skipping database write")
		return nil
	}

	n, err := r.store.Upsert(ctx, recs)
	if err != nil {
		return eris.Wrap(err, "pipeline: upsert")
	}
	run.RowsWritten = n
	run.Status = model.RunStatusComplete
	log.Info("pipeline: report stored", zap.Int64("rows", n))
	return nil
}

// record appends run to the sync log. Failures are logged, not returned.
func (r *Runner) record(ctx context.Context, log *zap.Logger, run *model.SyncRun) {
	if r.store == nil {
		return
	}
	// The run outcome is logged even if ctx ended mid-run.
	if err := r.store.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		log.Warn("pipeline: failed to record run", zap.Error(err))
	}
}

// SyncAll runs every report over rng with at most concurrency reports in
// flight. Each report waits for a free slot and then for pause before it
// starts, so with concurrency 1 reports are separated by pause after the
// previous one completes. A failed report does not stop the others; the error
// lists how many failed.
func (r *Runner) SyncAll(ctx context.Context, reports []model.ReportConfig, rng model.DateRange, token string, concurrency int, pause time.Duration) ([]*model.SyncRun, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	runs := make([]*model.SyncRun, len(reports))
	var (
		mu     sync.Mutex
		failed []string
	)

	slots := make(chan struct{}, concurrency)
	g, gctx := errgroup.WithContext(ctx)

	for i, rep := range reports {
		if gctx.Err() != nil {
			break
		}
		select {
		case slots <- struct{}{}:
		case <-gctx.Done():
		}
		if gctx.Err() != nil {
			break
		}
		if i > 0 && pause > 0 {
			if err := wait(gctx, pause); err != nil {
				<-slots
				break
			}
		}
		g.Go(func() error {
			defer func() { <-slots }()
			run, err := r.Sync(gctx, rep, rng, token)
			runs[i] = run
			if err != nil {
				mu.Lock()
				failed = append(failed, rep.Name)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return runs, eris.Wrap(err, "pipeline: sync interrupted")
	}
	if len(failed) > 0 {
		return runs, eris.Errorf("pipeline: %d of %d reports failed: %v", len(failed), len(reports), failed)
	}
	return runs, nil
}

// dropUndated removes records without a date.
func dropUndated(recs []model.Record) ([]model.Record, int) {
	kept := make([]model.Record, 0, len(recs))
	for _, rec := range recs {
		if rec.Date == nil {
			continue
		}
		kept = append(kept, rec)
	}
	return kept, len(recs) - len(kept)
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Summary renders a one-line description of a run.
func Summary(run *model.SyncRun) string {
	if run == nil {
		return ""
	}
	s := fmt.Sprintf("%s %s: %s", run.Report, run.Range, run.Status)
	if run.Strategy != "" {
		s += fmt.Sprintf(" (%s, %d windows, %d failed)", run.Strategy, run.WindowsTotal, run.WindowsFailed)
	}
	s += fmt.Sprintf(" parsed=%d dropped=%d written=%d", run.RowsParsed, run.RowsDropped, run.RowsWritten)
	if run.Error != "" {
		s += ": " + run.Error
	}
	return s
}
