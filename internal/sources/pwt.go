package sources

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"chinaecon/pkg/contracts/domain"
)

// pwtSheet is the data sheet name in the published PWT workbook.
const pwtSheet = "Data"

// pwtColumns maps PWT workbook column headers onto raw column names.
var pwtColumns = map[string]string{
	"hc":      domain.ColHumanCapital,
	"rkna":    domain.ColRKNA,
	"pl_gdpo": domain.ColPriceGDP,
}

// PWTLoader reads the Penn World Table workbook from disk. The workbook is
// distributed as a large xlsx; downloading it is a one-time manual or
// scripted step, so the loader works off the cache directory.
type PWTLoader struct {
	path    string
	country string
	logger  *slog.Logger
}

// NewPWTLoader creates a loader for the workbook at path.
func NewPWTLoader(path string, logger *slog.Logger) *PWTLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &PWTLoader{path: path, country: domain.CountryCode, logger: logger}
}

// Name implements Loader.
func (l *PWTLoader) Name() string { return "penn-world-table" }

// Load extracts hc, rkna and pl_gdpo for the configured country. Empty cells
// are omitted and surface downstream as missing.
func (l *PWTLoader) Load(ctx context.Context) (map[int]map[string]float64, error) {
	f, err := excelize.OpenFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("open pwt workbook %s: %w", l.path, err)
	}
	defer f.Close()

	rawRows, err := f.GetRows(pwtSheet)
	if err != nil {
		return nil, fmt.Errorf("read pwt sheet %q: %w", pwtSheet, err)
	}
	if len(rawRows) < 2 {
		return nil, fmt.Errorf("pwt sheet %q has no data rows", pwtSheet)
	}

	header := rawRows[0]
	countryIdx, yearIdx := -1, -1
	wanted := make(map[int]string) // column index -> raw column name
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "countrycode":
			countryIdx = i
		case "year":
			yearIdx = i
		default:
			if col, ok := pwtColumns[strings.ToLower(strings.TrimSpace(name))]; ok {
				wanted[i] = col
			}
		}
	}
	if countryIdx < 0 || yearIdx < 0 {
		return nil, fmt.Errorf("pwt sheet %q missing countrycode/year headers", pwtSheet)
	}
	if len(wanted) == 0 {
		return nil, fmt.Errorf("pwt sheet %q has none of the expected variable columns", pwtSheet)
	}

	rows := make(map[int]map[string]float64)
	for _, raw := range rawRows[1:] {
		if countryIdx >= len(raw) || raw[countryIdx] != l.country {
			continue
		}
		if yearIdx >= len(raw) {
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(raw[yearIdx]))
		if err != nil {
			continue
		}
		for i, column := range wanted {
			if i >= len(raw) {
				continue
			}
			cell := strings.TrimSpace(raw[i])
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				continue
			}
			row, ok := rows[year]
			if !ok {
				row = make(map[string]float64)
				rows[year] = row
			}
			row[column] = v
		}
	}

	l.logger.InfoContext(ctx, "pwt workbook loaded",
		slog.String("path", l.path),
		slog.Int("years", len(rows)))
	return rows, nil
}
