package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chinaecon/internal/dataset"
	"chinaecon/internal/forecast"
	"chinaecon/pkg/contracts/domain"
)

// ReportMeta carries the run parameters and audit trail into the report.
type ReportMeta struct {
	Alpha               float64
	CapitalOutputRatio  float64
	BaselineYear        int
	BaselineSubstituted bool
	EndYear             int
	Records             []forecast.Record
	GeneratedAt         time.Time
}

// reportColumns are the series shown in the data preview, in display order.
var reportColumns = []string{
	domain.ColGDP,
	domain.ColCapital,
	domain.ColLaborForce,
	domain.ColHumanCapital,
	domain.ColTFP,
	domain.ColNetExports,
	domain.ColOpenness,
	domain.ColSaving,
	domain.ColSavingRate,
}

// MarkdownWriter renders the run report.
type MarkdownWriter struct {
	dir    string
	logger *slog.Logger
}

// NewMarkdownWriter creates a writer rooted at dir.
func NewMarkdownWriter(dir string, logger *slog.Logger) *MarkdownWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarkdownWriter{dir: dir, logger: logger}
}

// WriteReport renders the Markdown report to name under the base directory.
func (w *MarkdownWriter) WriteReport(name string, t *dataset.Table, meta ReportMeta) (string, error) {
	fullPath := filepath.Join(w.dir, name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := RenderMarkdown(file, t, meta); err != nil {
		return "", err
	}
	w.logger.Info("markdown report written", slog.String("path", fullPath))
	return fullPath, nil
}

// RenderMarkdown writes the report body to an arbitrary writer.
func RenderMarkdown(out io.Writer, t *dataset.Table, meta ReportMeta) error {
	var b strings.Builder

	b.WriteString("# China Macroeconomic Dataset\n\n")
	fmt.Fprintf(&b, "Generated %s. Series cover %d-%d; years after the last\n",
		meta.GeneratedAt.Format("2006-01-02"), t.FirstYear(), t.LastYear())
	b.WriteString("observation of each variable are statistical projections.\n\n")

	b.WriteString("## Parameters\n\n")
	b.WriteString("| Parameter | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Capital share (alpha) | %.4f |\n", meta.Alpha)
	fmt.Fprintf(&b, "| Capital-output ratio (kappa) | %.2f |\n", meta.CapitalOutputRatio)
	baseline := fmt.Sprintf("%d", meta.BaselineYear)
	if meta.BaselineSubstituted {
		baseline += " (substituted: preferred year lacked capital index data)"
	}
	fmt.Fprintf(&b, "| Capital baseline year | %s |\n", baseline)
	fmt.Fprintf(&b, "| Projection end year | %d |\n\n", meta.EndYear)

	b.WriteString("## Extrapolation methods\n\n")
	if len(meta.Records) == 0 {
		b.WriteString("No series required extrapolation.\n\n")
	} else {
		b.WriteString("| Variable | Preferred | Used | Observed | Synthesized years |\n|---|---|---|---|---|\n")
		for _, rec := range meta.Records {
			observed := "-"
			if rec.Used != forecast.MethodNone || rec.FirstObserved != 0 {
				observed = fmt.Sprintf("%d-%d", rec.FirstObserved, rec.LastObserved)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				rec.Variable, rec.Preferred, rec.Used, observed, formatYears(rec.Synthesized))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Data preview\n\n")
	columns := presentColumns(t)
	b.WriteString("| year |")
	for _, name := range columns {
		fmt.Fprintf(&b, " %s |", name)
	}
	b.WriteString("\n|---|")
	for range columns {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for _, year := range t.Years() {
		fmt.Fprintf(&b, "| %d |", year)
		for _, name := range columns {
			v := t.Value(name, year)
			if dataset.IsMissing(v) {
				b.WriteString(" - |")
				continue
			}
			fmt.Fprintf(&b, " %.2f |", v)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(out, b.String())
	return err
}

func presentColumns(t *dataset.Table) []string {
	var out []string
	for _, name := range reportColumns {
		if t.HasColumn(name) {
			out = append(out, name)
		}
	}
	return out
}

func formatYears(years []int) string {
	if len(years) == 0 {
		return "-"
	}
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = fmt.Sprintf("%d", y)
	}
	return strings.Join(parts, ", ")
}
