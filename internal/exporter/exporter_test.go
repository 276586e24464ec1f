package exporter

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chinaecon/internal/dataset"
	"chinaecon/internal/forecast"
	"chinaecon/pkg/contracts/domain"
)

func sampleTable(t *testing.T) *dataset.Table {
	t.Helper()
	table, err := dataset.New([]int{2020, 2021, 2022})
	require.NoError(t, err)
	table.SetColumn(domain.ColGDP, []float64{14688, 17820, dataset.Missing()})
	table.SetColumn(domain.ColCapital, []float64{44064, 53460, dataset.Missing()})
	table.SetColumn(domain.ColExports, []float64{2700, 3550, 3590})
	return table
}

func TestWriteTableCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTableCSV(&buf, sampleTable(t)))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "year,gdp,capital,exports", lines[0])
	assert.Equal(t, "2020,14688,44064,2700", lines[1])
	assert.Equal(t, "2022,,,3590", lines[3], "missing cells stay empty")
}

func TestCSVWriterCreatesFileWithBOM(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, nil)

	path, err := w.WriteTable("out/dataset.csv", sampleTable(t))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "dataset.csv"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, string(raw), "year,gdp")
}

func TestRenderMarkdown(t *testing.T) {
	meta := ReportMeta{
		Alpha:               1.0 / 3.0,
		CapitalOutputRatio:  3.0,
		BaselineYear:        2019,
		BaselineSubstituted: true,
		EndYear:             2022,
		GeneratedAt:         time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Records: []forecast.Record{
			{
				Variable:      domain.ColGDP,
				Preferred:     forecast.MethodARIMA,
				Used:          forecast.MethodAverageGrowthRate,
				FirstObserved: 2020,
				LastObserved:  2021,
				Synthesized:   []int{2022},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, sampleTable(t), meta))
	got := buf.String()

	assert.Contains(t, got, "# China Macroeconomic Dataset")
	assert.Contains(t, got, "| Capital share (alpha) | 0.3333 |")
	assert.Contains(t, got, "2019 (substituted")
	assert.Contains(t, got, "| gdp | arima | average_growth_rate | 2020-2021 | 2022 |")
	assert.Contains(t, got, "| year | gdp | capital |", "preview lists only present columns")
	assert.NotContains(t, got, "tfp", "absent columns stay out of the preview")
}

func TestRenderMarkdownNoRecords(t *testing.T) {
	var buf bytes.Buffer
	meta := ReportMeta{GeneratedAt: time.Now()}
	require.NoError(t, RenderMarkdown(&buf, sampleTable(t), meta))
	assert.Contains(t, buf.String(), "No series required extrapolation.")
}

func TestChartWriterRendersHeadlineSeries(t *testing.T) {
	dir := t.TempDir()
	w := NewChartWriter(dir, nil)

	path, err := w.WriteCharts("charts.html", sampleTable(t))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(raw)
	assert.Contains(t, html, "Output and capital")
	assert.Contains(t, html, "Trade (bn USD)")
	assert.NotContains(t, html, "Total factor productivity", "chart without data is skipped")
}

func TestChartWriterFailsWithNoChartableColumns(t *testing.T) {
	table, err := dataset.New([]int{2020})
	require.NoError(t, err)
	table.SetColumn("unrelated", []float64{1})

	_, err = NewChartWriter(t.TempDir(), nil).WriteCharts("charts.html", table)
	assert.Error(t, err)
}
