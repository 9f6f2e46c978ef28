package sheet

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/enrich-cli/internal/model"
)

// Outcome is one batch row: the enriched summary or the failure.
type Outcome struct {
	Domain      string
	CompanyName string
	RevenueBand string
	SizeBand    string
	ICPMatch    bool
	CostUSD     float64
	FromCache   bool
	Error       string
}

// OutcomeOf summarizes a pipeline result or error for domain.
func OutcomeOf(domain string, res *model.Result, err error) Outcome {
	if err != nil {
		return Outcome{Domain: domain, Error: err.Error()}
	}
	return Outcome{
		Domain:      res.Record.Domain,
		CompanyName: res.Record.CompanyName,
		RevenueBand: res.Record.Revenue(),
		SizeBand:    res.Record.SizeBand,
		ICPMatch:    res.Record.ICPMatch,
		CostUSD:     res.TotalCost,
		FromCache:   res.FromCache,
	}
}

var outcomeHeader = []string{"domain", "company_name", "revenue_band", "company_size", "icp_match", "total_cost_usd", "from_cache", "error"}

func (o Outcome) row() []string {
	return []string{
		o.Domain,
		o.CompanyName,
		o.RevenueBand,
		o.SizeBand,
		strconv.FormatBool(o.ICPMatch),
		strconv.FormatFloat(o.CostUSD, 'f', 4, 64),
		strconv.FormatBool(o.FromCache),
		o.Error,
	}
}

// WriteFile writes outcomes with a header row, as CSV or XLSX by extension.
func WriteFile(path string, outcomes []Outcome) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	if format == FormatXLSX {
		return writeXLSX(path, outcomes)
	}
	return writeCSV(path, outcomes)
}

func writeCSV(path string, outcomes []Outcome) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "sheet: create csv")
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(outcomeHeader); err != nil {
		return eris.Wrap(err, "sheet: write csv header")
	}
	for _, o := range outcomes {
		if err := w.Write(o.row()); err != nil {
			return eris.Wrapf(err, "sheet: write csv row %s", o.Domain)
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "sheet: flush csv")
}

func writeXLSX(path string, outcomes []Outcome) error {
	f := xlsx.NewFile()
	sh, err := f.AddSheet("enrichment")
	if err != nil {
		return eris.Wrap(err, "sheet: add xlsx sheet")
	}
	addRow(sh, outcomeHeader)
	for _, o := range outcomes {
		addRow(sh, o.row())
	}
	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "sheet: save xlsx")
	}
	return nil
}

func addRow(sh *xlsx.Sheet, cells []string) {
	row := sh.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}
