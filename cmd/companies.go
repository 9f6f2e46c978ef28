package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/enrich-cli/internal/pipeline"
	"github.com/sells-group/enrich-cli/internal/store"
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Inspect stored enrichment results",
}

var companiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored results, newest first",
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

		icpOnly, _ := cmd.Flags().GetBool("icp-only")
		limit, _ := cmd.Flags().GetInt("limit")

		summaries, err := st.ListResults(ctx, store.ResultFilter{ICPOnly: icpOnly, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "companies list")
		}
		if len(summaries) == 0 {
			fmt.Fprintln(os.Stderr, "No stored results.")
			return nil
		}
		formatSummaries(os.Stdout, summaries)
		return nil
	},
}

var companiesShowCmd = &cobra.Command{
	Use:   "show <domain>",
	Short: "Print the stored result for a domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		domain, err := pipeline.NormalizeDomain(args[0])
		if err != nil {
			return err
		}

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		res, err := st.GetResult(ctx, domain)
		if err != nil {
			return eris.Wrap(err, "companies show")
		}
		if res == nil {
			return eris.Errorf("no stored result for %s", domain)
		}
		return writeResult(os.Stdout, res)
	},
}

func init() {
	companiesListCmd.Flags().Bool("icp-only", false, "only list ICP matches")
	companiesListCmd.Flags().Int("limit", 50, "max number of results to display")

	companiesCmd.AddCommand(companiesListCmd)
	companiesCmd.AddCommand(companiesShowCmd)
	rootCmd.AddCommand(companiesCmd)
}

// formatSummaries writes a tabular list of stored results to out.
func formatSummaries(out io.Writer, summaries []store.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DOMAIN\tCOMPANY\tREVENUE\tSIZE\tICP\tCOST\tENRICHED")
	_, _ = fmt.Fprintln(w, "------\t-------\t-------\t----\t---\t----\t--------")
	for _, s := range summaries {
		revenue := s.RevenueBand
		if revenue == "" {
			revenue = "-"
		}
		icp := "no"
		if s.ICPMatch {
			icp = "yes"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t$%.4f\t%s\n",
			s.Domain,
			s.CompanyName,
			revenue,
			s.SizeBand,
			icp,
			s.CostUSD,
			s.EnrichedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}
