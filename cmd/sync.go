package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lojaops/gerencial-vendas/internal/auth"
	"github.com/lojaops/gerencial-vendas/internal/config"
	"github.com/lojaops/gerencial-vendas/internal/export"
	"github.com/lojaops/gerencial-vendas/internal/fetcher"
	"github.com/lojaops/gerencial-vendas/internal/model"
	"github.com/lojaops/gerencial-vendas/internal/normalize"
	"github.com/lojaops/gerencial-vendas/internal/pipeline"
	"github.com/lojaops/gerencial-vendas/internal/report"
	"github.com/lojaops/gerencial-vendas/internal/resilience"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Retrieve the sales report and upsert it",
	Long: `Retrieves the gerencial-vendas report for each configured report shape and
upserts the rows into gerencial_vendas.

The whole range is requested first. If that returns no data the range is
split into monthly (more than 30 days) or weekly windows.
Without --start/--end the range is today minus sync.lookback_days to today.
Use --dry-run to retrieve, normalize and export without writing to the database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		log := zap.L().With(zap.String("command", "sync"))

		opts, err := parseSyncOpts(cmd, cfg, time.Now())
		if err != nil {
			return err
		}

		mode := "sync"
		if opts.DryRun {
			mode = "dry-run"
		}
		if err := cfg.Validate(mode); err != nil {
			return err
		}

		var runnerOpts []pipeline.Option
		if !opts.DryRun {
			st, err := initStore(ctx)
			if err != nil {
				return eris.Wrap(err, "sync")
			}
			defer st.Close() //nolint:errcheck
			runnerOpts = append(runnerOpts, pipeline.WithStore(st))
		}
		if opts.ExportDir != "" {
			runnerOpts = append(runnerOpts, pipeline.WithExport(opts.ExportDir, export.WriteXLSX))
		}

		authPoster := fetcher.NewHTTPClient(fetcher.HTTPOptions{
			Timeout:   cfg.API.AuthTimeout(),
			RateLimit: rate.Limit(cfg.API.RateLimit),
			Logger:    log,
		})
		reportPoster := fetcher.NewHTTPClient(fetcher.HTTPOptions{
			Timeout:   cfg.API.ReportTimeout(),
			RateLimit: rate.Limit(cfg.API.RateLimit),
			Logger:    log,
		})

		authClient := auth.NewClient(authPoster, cfg.API.BaseURL, cfg.API.Username, cfg.API.Password,
			auth.WithRetry(cfg.Auth.Retry()),
			auth.WithLogger(log),
		)
		token, err := authClient.Login(ctx)
		if err != nil {
			return eris.Wrap(err, "sync: login")
		}

		monthly, err := resilience.NewPacer(cfg.Pacing.Monthly)
		if err != nil {
			return eris.Wrap(err, "sync: monthly pacer")
		}
		weekly, err := resilience.NewPacer(cfg.Pacing.Weekly)
		if err != nil {
			return eris.Wrap(err, "sync: weekly pacer")
		}
		assembler := report.NewAssembler(report.NewHTTPSource(reportPoster, cfg.API.BaseURL, log), log,
			report.WithPacers(monthly, weekly),
		)

		cols := normalize.DefaultColumnMap()
		if cfg.Sync.ColumnMapFile != "" {
			cols, err = normalize.LoadColumnMap(cfg.Sync.ColumnMapFile)
			if err != nil {
				return eris.Wrap(err, "sync")
			}
		}

		runner := pipeline.NewRunner(assembler, normalize.New(cols, log), log, runnerOpts...)

		log.Info("starting sync",
			zap.String("range", opts.Range.String()),
			zap.Int("reports", len(opts.Reports)),
			zap.Int("concurrency", opts.Concurrency),
			zap.Bool("dry_run", opts.DryRun),
		)

		runs, err := runner.SyncAll(ctx, opts.Reports, opts.Range, token.AccessToken, opts.Concurrency, cfg.Sync.ReportPause())
		for _, run := range runs {
			if run != nil {
				fmt.Fprintln(os.Stdout, pipeline.Summary(run))
			}
		}
		if err != nil {
			return eris.Wrap(err, "sync")
		}

		fmt.Println("Sync complete")
		return nil
	},
}

func init() {
	syncCmd.Flags().String("start", "", "first day of the range (YYYY-MM-DD)")
	syncCmd.Flags().String("end", "", "last day of the range (YYYY-MM-DD)")
	syncCmd.Flags().String("reports", "", "comma-separated report names (default: all configured)")
	syncCmd.Flags().String("export-dir", "", "write relatorio_<name>.xlsx files to this directory")
	syncCmd.Flags().Int("concurrency", 0, "reports retrieved in parallel (default: sync.concurrency)")
	syncCmd.Flags().Bool("dry-run", false, "skip the database write")
	rootCmd.AddCommand(syncCmd)
}

// syncOpts holds the resolved sync command options.
type syncOpts struct {
	Range       model.DateRange
	Reports     []model.ReportConfig
	ExportDir   string
	Concurrency int
	DryRun      bool
}

// parseSyncOpts resolves the sync flags against the configuration. now anchors
// the default range.
func parseSyncOpts(cmd *cobra.Command, c *config.Config, now time.Time) (syncOpts, error) {
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	reportsStr, _ := cmd.Flags().GetString("reports")
	exportDir, _ := cmd.Flags().GetString("export-dir")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	rng, err := resolveRange(startStr, endStr, c.Sync.LookbackDays, now)
	if err != nil {
		return syncOpts{}, err
	}

	reports, err := selectReports(c.Reports, reportsStr)
	if err != nil {
		return syncOpts{}, err
	}

	if exportDir == "" {
		exportDir = c.Sync.ExportDir
	}
	if concurrency > 0 {
		c.Sync.Concurrency = concurrency
	}

	return syncOpts{
		Range:       rng,
		Reports:     reports,
		ExportDir:   exportDir,
		Concurrency: c.Sync.Concurrency,
		DryRun:      dryRun,
	}, nil
}

// resolveRange builds the sync range. A missing end defaults to today and a
// missing start to end minus lookback days.
func resolveRange(start, end string, lookbackDays int, now time.Time) (model.DateRange, error) {
	endDate := model.Date(now)
	if end != "" {
		t, err := time.Parse(model.DateLayout, end)
		if err != nil {
			return model.DateRange{}, eris.Wrapf(err, "invalid --end %q", end)
		}
		endDate = t
	}

	startDate := endDate.AddDate(0, 0, -lookbackDays)
	if start != "" {
		t, err := time.Parse(model.DateLayout, start)
		if err != nil {
			return model.DateRange{}, eris.Wrapf(err, "invalid --start %q", start)
		}
		startDate = t
	}

	return model.NewDateRange(startDate, endDate)
}

// selectReports filters the configured reports by a comma-separated name list.
// An empty list selects every report.
func selectReports(all []model.ReportConfig, names string) ([]model.ReportConfig, error) {
	if strings.TrimSpace(names) == "" {
		return all, nil
	}

	byName := make(map[string]model.ReportConfig, len(all))
	for _, r := range all {
		byName[r.Name] = r
	}

	var out []model.ReportConfig
	for name := range strings.SplitSeq(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		r, ok := byName[name]
		if !ok {
			return nil, eris.Errorf("unknown report %q", name)
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, eris.New("no reports selected")
	}
	return out, nil
}
