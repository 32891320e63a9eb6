package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lojaops/gerencial-vendas/internal/fetcher"
	"github.com/lojaops/gerencial-vendas/internal/monitoring"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check sync health from the sync log",
	Long: `Evaluates recent sync runs against the monitoring thresholds (failure rate,
failed report windows, data freshness) and posts alerts to monitoring.webhook_url.
Exits non-zero when any alert fires. Use --watch to keep checking periodically.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("check"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		poster := fetcher.NewHTTPClient(fetcher.HTTPOptions{Logger: zap.L()})
		checker := monitoring.NewChecker(
			monitoring.NewCollector(st),
			monitoring.NewAlerter(cfg.Monitoring, poster),
			cfg.Monitoring,
		)

		watch, _ := cmd.Flags().GetBool("watch")
		if watch {
			checker.Run(ctx)
			return nil
		}

		snap, alerts, err := checker.Check(ctx)
		if err != nil {
			return eris.Wrap(err, "check")
		}
		formatSnapshot(os.Stdout, snap, alerts)
		if len(alerts) > 0 {
			return eris.Errorf("check: %d alert(s) triggered", len(alerts))
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().Bool("watch", false, "run checks every monitoring.check_interval_secs until interrupted")
	rootCmd.AddCommand(checkCmd)
}

// formatSnapshot writes a health summary and the triggered alerts to out.
func formatSnapshot(out io.Writer, snap *monitoring.MetricsSnapshot, alerts []monitoring.Alert) {
	_, _ = fmt.Fprintf(out, "Runs (last %dh): %d total, %d complete, %d empty, %d failed\n",
		snap.LookbackHours, snap.RunsTotal, snap.RunsComplete, snap.RunsEmpty, snap.RunsFailed)
	_, _ = fmt.Fprintf(out, "Windows: %d requested, %d failed\n", snap.WindowsTotal, snap.WindowsFailed)
	_, _ = fmt.Fprintf(out, "Rows written: %d\n", snap.RowsWritten)
	if snap.LastCompleteAt != nil {
		_, _ = fmt.Fprintf(out, "Last complete sync: %s\n", snap.LastCompleteAt.Format("2006-01-02 15:04"))
	} else {
		_, _ = fmt.Fprintln(out, "Last complete sync: never")
	}
	for _, a := range alerts {
		_, _ = fmt.Fprintf(out, "ALERT [%s] %s: %s\n", a.Severity, a.Type, a.Message)
	}
}
