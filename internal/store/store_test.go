package store

import (
	"time"

	"github.com/sells-group/enrich-cli/internal/model"
)

func sampleResult(domain string, icp bool) *model.Result {
	rec := model.EnrichmentRecord{
		CompanyName: "Acme Corp",
		Domain:      domain,
		Website:     "https://" + domain,
		SizeBand:    "51-200 Employees",
		ICPMatch:    icp,
		ICPMatches:  []string{},
	}
	rec.SetRevenue("25M-75M")
	var res model.Result
	res.RequestID = "req-" + domain
	res.Record = rec
	res.Cost.Add("search", model.StageCost{Calls: 1, USD: 0.01})
	res.TotalCost = res.Cost.Total()
	res.EnrichedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &res
}
