package sheet

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/enrich-cli/internal/model"
)

func createTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sh, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, r := range rows {
		addRow(sh, r)
	}
	path := filepath.Join(t.TempDir(), "domains.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestFormatOf(t *testing.T) {
	f, err := FormatOf("domains.CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = FormatOf("/tmp/in.xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = FormatOf("domains.json")
	assert.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	in := "domain,company_name\n# comment\n acme.com , Acme Tools\nwidgets.io\n"

	rows, err := ReadCSV(context.Background(), strings.NewReader(in))

	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"domain", "company_name"},
		{"acme.com", "Acme Tools"},
		{"widgets.io"},
	}, rows)
}

func TestReadCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadCSV(ctx, strings.NewReader("acme.com\n"))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestReadFile_XLSX(t *testing.T) {
	path := createTestXLSX(t, [][]string{{"Website", "State"}, {"acme.com", "TX"}})

	rows, err := ReadFile(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Website", "State"}, {"acme.com", "TX"}}, rows)
}

func TestReadFile_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domains.csv")
	require.NoError(t, os.WriteFile(path, []byte("acme.com\nwidgets.io\n"), 0o644))

	rows, err := ReadFile(context.Background(), path)

	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestRequests_Header(t *testing.T) {
	rows := [][]string{
		{"Company", "Domain", "State", "Country"},
		{"Acme Tools", "acme.com", "TX", "US"},
		{"Acme again", "ACME.com", "", ""},
		{"No site", "", "", ""},
		{"Jane", "jane@gmail.com", "", "US"},
	}

	got := Requests(rows)

	assert.Equal(t, []model.Request{
		{Domain: "acme.com", CompanyName: "Acme Tools", State: "TX", Country: "US"},
		{Domain: "jane@gmail.com", CompanyName: "Jane", Country: "US"},
	}, got)
}

func TestRequests_NoHeader(t *testing.T) {
	got := Requests([][]string{{"acme.com", "ignored"}, {"widgets.io"}, {}})

	assert.Equal(t, []model.Request{{Domain: "acme.com"}, {Domain: "widgets.io"}}, got)
	assert.Nil(t, Requests(nil))
}

func TestOutcomeOf(t *testing.T) {
	rec := model.EnrichmentRecord{Domain: "acme.com", CompanyName: "Acme Tools", SizeBand: "201-500 Employees", ICPMatch: true}
	rec.SetRevenue("25M-75M")

	o := OutcomeOf("acme.com", &model.Result{Record: rec, TotalCost: 0.12, FromCache: true}, nil)
	assert.Equal(t, Outcome{
		Domain: "acme.com", CompanyName: "Acme Tools", RevenueBand: "25M-75M",
		SizeBand: "201-500 Employees", ICPMatch: true, CostUSD: 0.12, FromCache: true,
	}, o)

	failed := OutcomeOf("bad", nil, errors.New("pipeline: invalid domain"))
	assert.Equal(t, Outcome{Domain: "bad", Error: "pipeline: invalid domain"}, failed)
}

func TestWriteFile_RoundTrip(t *testing.T) {
	outcomes := []Outcome{
		{Domain: "acme.com", CompanyName: "Acme Tools", RevenueBand: "25M-75M", SizeBand: "201-500 Employees", ICPMatch: true, CostUSD: 0.1234},
		{Domain: "bad", Error: "invalid domain"},
	}

	for _, name := range []string{"out.csv", "out.xlsx"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, WriteFile(path, outcomes))

			rows, err := ReadFile(context.Background(), path)
			require.NoError(t, err)
			require.Len(t, rows, 3)
			assert.Equal(t, outcomeHeader, rows[0])
			require.GreaterOrEqual(t, len(rows[1]), 7)
			assert.Equal(t, []string{"acme.com", "Acme Tools", "25M-75M", "201-500 Employees", "true", "0.1234", "false"}, rows[1][:7])
			assert.Equal(t, "invalid domain", rows[2][7])
		})
	}
}
