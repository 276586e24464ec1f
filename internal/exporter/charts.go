package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"chinaecon/internal/dataset"
	"chinaecon/pkg/contracts/domain"
)

// chartSpec describes one chart on the report page.
type chartSpec struct {
	title   string
	columns []string
}

var chartSpecs = []chartSpec{
	{title: "Output and capital (bn USD)", columns: []string{domain.ColGDP, domain.ColCapital}},
	{title: "Trade (bn USD)", columns: []string{domain.ColExports, domain.ColImports, domain.ColNetExports}},
	{title: "Total factor productivity", columns: []string{domain.ColTFP}},
	{title: "Saving rate and openness", columns: []string{domain.ColSavingRate, domain.ColOpenness}},
}

// ChartWriter renders an HTML page of line charts for the headline series.
type ChartWriter struct {
	dir    string
	logger *slog.Logger
}

// NewChartWriter creates a writer rooted at dir.
func NewChartWriter(dir string, logger *slog.Logger) *ChartWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChartWriter{dir: dir, logger: logger}
}

// WriteCharts renders the chart page to name under the base directory.
// Charts whose columns are entirely absent are skipped.
func (w *ChartWriter) WriteCharts(name string, t *dataset.Table) (string, error) {
	fullPath := filepath.Join(w.dir, name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	page := components.NewPage()

	rendered := 0
	for _, spec := range chartSpecs {
		line := w.buildLine(t, spec)
		if line == nil {
			continue
		}
		page.AddCharts(line)
		rendered++
	}
	if rendered == 0 {
		return "", fmt.Errorf("no chartable columns in dataset")
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := page.Render(file); err != nil {
		return "", fmt.Errorf("failed to render charts: %w", err)
	}

	w.logger.Info("chart report written",
		slog.String("path", fullPath),
		slog.Int("charts", rendered))
	return fullPath, nil
}

func (w *ChartWriter) buildLine(t *dataset.Table, spec chartSpec) *charts.Line {
	years := t.Years()
	axis := make([]string, len(years))
	for i, y := range years {
		axis[i] = strconv.Itoa(y)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "China Macro Series", Width: "900px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: spec.title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(axis)

	added := 0
	for _, name := range spec.columns {
		if !t.HasColumn(name) {
			continue
		}
		data := make([]opts.LineData, len(years))
		for i, year := range years {
			v := t.Value(name, year)
			if dataset.IsMissing(v) {
				data[i] = opts.LineData{Value: nil}
				continue
			}
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(name, data)
		added++
	}
	if added == 0 {
		return nil
	}
	return line
}
