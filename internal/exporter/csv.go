package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"chinaecon/internal/dataset"
)

// CSVWriter exports tables as CSV files under a base directory.
type CSVWriter struct {
	dir    string
	logger *slog.Logger
}

// NewCSVWriter creates a writer rooted at dir.
func NewCSVWriter(dir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{dir: dir, logger: logger}
}

// WriteTable writes the table to name under the base directory: one row per
// year, one column per series, missing cells empty. Returns the full path.
func (w *CSVWriter) WriteTable(name string, t *dataset.Table) (string, error) {
	fullPath := filepath.Join(w.dir, name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	// UTF-8 BOM helps spreadsheet tools pick the right encoding.
	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return "", fmt.Errorf("failed to write BOM: %w", err)
	}

	if err := WriteTableCSV(file, t); err != nil {
		return "", err
	}

	w.logger.Info("dataset exported",
		slog.String("path", fullPath),
		slog.Int("rows", t.Len()),
		slog.Int("columns", len(t.Columns())))
	return fullPath, nil
}

// WriteTableCSV streams the table as CSV to an arbitrary writer.
func WriteTableCSV(out io.Writer, t *dataset.Table) error {
	writer := csv.NewWriter(out)
	defer writer.Flush()

	columns := t.Columns()
	header := append([]string{"year"}, columns...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for _, year := range t.Years() {
		record := make([]string, 0, len(header))
		record = append(record, strconv.Itoa(year))
		for _, name := range columns {
			v := t.Value(name, year)
			if dataset.IsMissing(v) {
				record = append(record, "")
				continue
			}
			record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record for %d: %w", year, err)
		}
	}
	return writer.Error()
}
