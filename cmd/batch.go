package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/progress"
	"github.com/sells-group/enrich-cli/internal/sheet"
)

var (
	batchFile   string
	batchLimit  int
	batchOutput string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Enrich every domain in a CSV or XLSX file",
	Long: `Reads domains from a CSV file (first column, or a "domain" header column) or the
first sheet of an XLSX file and enriches them with bounded concurrency. Optional
company_name, state and country columns are passed through. A failed domain is
logged and does not stop the batch.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if batchOutput != "" {
			if _, err := sheet.FormatOf(batchOutput); err != nil {
				return err
			}
		}

		rows, err := sheet.ReadFile(ctx, batchFile)
		if err != nil {
			return eris.Wrap(err, "batch: read input")
		}
		reqs := sheet.Requests(rows)

		env, err := initPipeline(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		sum := processBatch(ctx, reqs, batchLimit, cfg.Batch.MaxConcurrent, func(ctx context.Context, req model.Request) (*model.Result, error) {
			return env.Pipeline.Run(ctx, req, progress.NewLogSink(nil))
		})

		if batchOutput != "" {
			if err := sheet.WriteFile(batchOutput, sum.Outcomes); err != nil {
				return eris.Wrap(err, "batch: write output")
			}
			zap.L().Info("batch output written", zap.String("path", batchOutput))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "input file (.csv or .xlsx, required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 100, "max number of domains to process (0 = all)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "write per-domain outcomes to this .csv or .xlsx file")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

// enrichFunc is the callback signature for enriching one request.
type enrichFunc func(ctx context.Context, req model.Request) (*model.Result, error)

// batchSummary is the outcome of a batch.
type batchSummary struct {
	Succeeded int
	Failed    int
	CostUSD   float64
	// Outcomes are in input order.
	Outcomes []sheet.Outcome
}

// processBatch applies limit, then enriches requests concurrently. A failed
// request is recorded and never aborts the others.
func processBatch(ctx context.Context, reqs []model.Request, limit, concurrency int, enrich enrichFunc) batchSummary {
	if len(reqs) == 0 {
		zap.L().Info("no domains found")
		return batchSummary{}
	}

	if limit > 0 && len(reqs) > limit {
		reqs = reqs[:limit]
	}
	concurrency = max(concurrency, 1)

	zap.L().Info("processing batch",
		zap.Int("domains", len(reqs)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	sum := batchSummary{Outcomes: make([]sheet.Outcome, len(reqs))}

	for i, req := range reqs {
		g.Go(func() error {
			log := zap.L().With(zap.String("domain", req.Domain))

			result, err := enrich(gctx, req)
			outcome := sheet.OutcomeOf(req.Domain, result, err)

			mu.Lock()
			sum.Outcomes[i] = outcome
			if err != nil {
				sum.Failed++
			} else {
				sum.Succeeded++
				if !result.FromCache {
					sum.CostUSD += result.TotalCost
				}
			}
			mu.Unlock()

			if err != nil {
				log.Error("enrichment failed", zap.Error(err))
				return nil
			}
			log.Info("enrichment complete",
				zap.String("revenue_band", outcome.RevenueBand),
				zap.String("company_size", outcome.SizeBand),
				zap.Bool("icp_match", outcome.ICPMatch),
				zap.Bool("from_cache", outcome.FromCache),
			)
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("batch complete",
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Int("total", len(reqs)),
		zap.Float64("total_cost_usd", sum.CostUSD),
	)
	return sum
}
