package sources

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"chinaecon/pkg/contracts/domain"
)

// imfIndicator is the Fiscal Monitor series carrying general government
// revenue as percent of GDP.
const imfIndicator = "rev"

// imfCountry is the country label used in the Fiscal Monitor export.
const imfCountry = "China"

// IMFLoader reads the IMF Fiscal Monitor CSV export from disk. Layout: one
// row per (country, indicator), year columns after the two key columns.
type IMFLoader struct {
	path   string
	logger *slog.Logger
}

// NewIMFLoader creates a loader for the export at path.
func NewIMFLoader(path string, logger *slog.Logger) *IMFLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &IMFLoader{path: path, logger: logger}
}

// Name implements Loader.
func (l *IMFLoader) Name() string { return "imf-fiscal-monitor" }

// Load extracts the revenue rate series. Blank or non-numeric year cells
// ("n/a", "--") are omitted.
func (l *IMFLoader) Load(ctx context.Context) (map[int]map[string]float64, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open imf export %s: %w", l.path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse imf export %s: %w", l.path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("imf export %s has no data rows", l.path)
	}

	header := records[0]
	years := make(map[int]int) // column index -> year
	for i := 2; i < len(header); i++ {
		if year, err := strconv.Atoi(strings.TrimSpace(header[i])); err == nil {
			years[i] = year
		}
	}
	if len(years) == 0 {
		return nil, fmt.Errorf("imf export %s header carries no year columns", l.path)
	}

	rows := make(map[int]map[string]float64)
	for _, record := range records[1:] {
		if len(record) < 3 {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(record[0]), imfCountry) {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(record[1]), imfIndicator) {
			continue
		}
		for i, year := range years {
			if i >= len(record) {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err != nil {
				continue
			}
			rows[year] = map[string]float64{domain.ColTaxRate: v}
		}
	}

	l.logger.InfoContext(ctx, "imf export loaded",
		slog.String("path", l.path),
		slog.Int("years", len(rows)))
	return rows, nil
}
