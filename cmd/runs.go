package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/enrich-cli/internal/monitoring"
	"github.com/sells-group/enrich-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect enrichment run history",
	Long:  "Commands for listing and summarizing enrichment runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrichment runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		domain, _ := cmd.Flags().GetString("domain")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: store.RunStatus(status),
			Domain: domain,
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		since, _ := cmd.Flags().GetDuration("since")
		runs, err := st.ListRuns(ctx, store.RunFilter{Limit: 10000})
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		var cutoff time.Time
		if since > 0 {
			cutoff = time.Now().Add(-since)
		}
		formatRunStats(os.Stdout, computeRunStats(runs, cutoff))
		return nil
	},
}

// -- runs check --

var runsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate run health against alert thresholds once",
	Long:  "Collects run metrics over the monitoring lookback window, prints any triggered alerts and posts them to monitoring.webhook_url when set.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		checker := monitoring.NewChecker(
			monitoring.NewCollector(st),
			monitoring.NewAlerter(cfg.Monitoring),
			cfg.Monitoring,
		)
		formatAlerts(os.Stdout, checker.Check(ctx))
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (complete, cached, failed)")
	runsListCmd.Flags().String("domain", "", "filter by domain")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 72h, 168h; 0 = all)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsStatsCmd)
	runsCmd.AddCommand(runsCheckCmd)
	rootCmd.AddCommand(runsCmd)
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total     int
	Complete  int
	Cached    int
	Failed    int
	CostUSD   float64
	AvgDurSec float64
}

// computeRunStats aggregates runs created at or after cutoff. Average
// duration covers complete runs only; cached runs cost nothing.
func computeRunStats(runs []store.Run, cutoff time.Time) runStats {
	var s runStats
	var totalDur time.Duration

	for _, r := range runs {
		if r.CreatedAt.Before(cutoff) {
			continue
		}
		s.Total++
		s.CostUSD += r.CostUSD
		switch r.Status {
		case store.RunStatusComplete:
			s.Complete++
			totalDur += time.Duration(r.DurationMs) * time.Millisecond
		case store.RunStatusCached:
			s.Cached++
		case store.RunStatusFailed:
			s.Failed++
		}
	}

	if s.Complete > 0 {
		s.AvgDurSec = totalDur.Seconds() / float64(s.Complete)
	}
	return s
}

// formatRunsList writes a tabular list of runs to out.
func formatRunsList(out io.Writer, runs []store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tDOMAIN\tSTATUS\tCOST\tCREATED\tDURATION\tERROR")
	_, _ = fmt.Fprintln(w, "--\t------\t------\t----\t-------\t--------\t-----")

	for _, r := range runs {
		dur := (time.Duration(r.DurationMs) * time.Millisecond).Round(time.Millisecond).String()

		domain := r.Domain
		if len(domain) > 30 {
			domain = domain[:27] + "..."
		}
		errMsg := r.Error
		if len(errMsg) > 60 {
			errMsg = errMsg[:57] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t$%.4f\t%s\t%s\t%s\n",
			truncateID(r.ID),
			domain,
			r.Status,
			r.CostUSD,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
			errMsg,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to out.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "Cached:\t%d\n", s.Cached)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Total cost:\t$%.4f\n", s.CostUSD)
	if s.AvgDurSec > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSec)
	}
	_ = w.Flush()
}

// formatAlerts writes triggered alerts to out, or a healthy notice.
func formatAlerts(out io.Writer, alerts []monitoring.Alert) {
	if len(alerts) == 0 {
		_, _ = fmt.Fprintln(out, "OK: no alerts triggered.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SEVERITY\tTYPE\tMESSAGE")
	for _, a := range alerts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", a.Severity, a.Type, a.Message)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
