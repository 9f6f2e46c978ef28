package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/progress"
)

var runReq model.Request

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run enrichment for a single company",
	Example: `  enrich-cli run --domain acme.com
  enrich-cli run --domain jane@gmail.com --name "Acme Tools" --state TX --country US
  enrich-cli run --domain acme.com --deep --refresh`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.Run(ctx, runReq, progress.NewLogSink(nil))
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("enrichment complete",
			zap.String("domain", result.Record.Domain),
			zap.String("revenue_band", result.Record.Revenue()),
			zap.String("company_size", result.Record.SizeBand),
			zap.Bool("icp_match", result.Record.ICPMatch),
			zap.Bool("from_cache", result.FromCache),
			zap.Float64("total_cost_usd", result.TotalCost),
		)

		return writeResult(os.Stdout, result)
	},
}

// writeResult prints the result as indented JSON.
func writeResult(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func init() {
	runCmd.Flags().StringVar(&runReq.Domain, "domain", "", "company domain, URL or email address (required)")
	runCmd.Flags().StringVar(&runReq.CompanyName, "name", "", "company name (required for free email domains)")
	runCmd.Flags().StringVar(&runReq.State, "state", "", "state or region hint")
	runCmd.Flags().StringVar(&runReq.Country, "country", "", "country hint")
	runCmd.Flags().BoolVar(&runReq.DeepResearch, "deep", false, "always run deep research")
	runCmd.Flags().BoolVar(&runReq.Refresh, "refresh", false, "ignore a cached result")
	_ = runCmd.MarkFlagRequired("domain")
	rootCmd.AddCommand(runCmd)
}
