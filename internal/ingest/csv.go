// Package ingest reads the tabular stop dataset and drives the one-time bulk
// load: read, normalize, ensure schema, append.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"

	"securecheck/internal/stops/models"
	"securecheck/internal/stops/normalize"
)

// Loader is the slice of the store the ingestion pipeline needs.
type Loader interface {
	EnsureSchema(ctx context.Context) error
	BulkLoad(ctx context.Context, records []models.StopRecord) (int, error)
}

// ReadCSV parses a header-rowed CSV stream into raw rows keyed by the header
// column names. Values stay untyped text; normalization owns coercion.
func ReadCSV(r io.Reader) ([]normalize.Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("dataset is empty: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header row: %w", err)
	}

	var rows []normalize.Row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		row := make(normalize.Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadFile reads the dataset at path.
func ReadFile(path string) ([]normalize.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// Run executes the full ingestion pipeline. A single unparseable row aborts
// the whole batch before anything is written, so a partial load never
// corrupts downstream analytics. Returns the number of rows loaded.
func Run(ctx context.Context, loader Loader, path string, logger *slog.Logger) (int, error) {
	rows, err := ReadFile(path)
	if err != nil {
		return 0, err
	}
	logger.InfoContext(ctx, "dataset read", "path", path, "rows", len(rows))

	records, err := normalize.Records(rows)
	if err != nil {
		return 0, fmt.Errorf("normalize dataset: %w", err)
	}

	if err := loader.EnsureSchema(ctx); err != nil {
		return 0, err
	}

	n, err := loader.BulkLoad(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("bulk load: %w", err)
	}
	logger.InfoContext(ctx, "dataset loaded", "rows", n)
	return n, nil
}
