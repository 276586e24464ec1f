package sources

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"chinaecon/internal/dataset"
)

// LoadCSV reads a previously exported dataset back into a table for offline
// runs: first column "year", remaining columns numeric, empty cells missing.
func LoadCSV(path string) (*dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset csv %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses CSV dataset content from a reader.
func ReadCSV(r io.Reader) (*dataset.Table, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse dataset csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("dataset csv has no data rows")
	}

	header := records[0]
	// Tolerate a UTF-8 BOM on the first header cell.
	header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	if len(header) < 2 || !strings.EqualFold(header[0], "year") {
		return nil, fmt.Errorf("dataset csv must start with a year column, got %q", header[0])
	}

	b := dataset.NewBuilder()
	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("dataset csv row %d has %d fields, want %d", i+2, len(record), len(header))
		}
		year, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("dataset csv row %d: bad year %q", i+2, record[0])
		}
		for j := 1; j < len(record); j++ {
			cell := strings.TrimSpace(record[j])
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				continue
			}
			b.Set(year, header[j], v)
		}
	}
	return b.Build()
}
