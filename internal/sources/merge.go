package sources

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"chinaecon/internal/dataset"
)

// Loader is one data source producing year-keyed raw observations.
type Loader interface {
	Name() string
	Load(ctx context.Context) (map[int]map[string]float64, error)
}

// FetchAll runs every loader concurrently and merges the results into one
// table. Merge order follows the loaders slice, so a later loader wins on
// column collisions regardless of which download finished first. Any loader
// failure fails the fetch: an unreachable source is an operational error,
// not a missing data point.
func FetchAll(ctx context.Context, loaders []Loader, logger *slog.Logger) (*dataset.Table, error) {
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]map[int]map[string]float64, len(loaders))
	g, ctx := errgroup.WithContext(ctx)
	for i, loader := range loaders {
		g.Go(func() error {
			rows, err := loader.Load(ctx)
			if err != nil {
				return fmt.Errorf("source %s: %w", loader.Name(), err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := dataset.NewBuilder()
	for _, rows := range results {
		b.Merge(rows)
	}
	table, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("merge sources: %w", err)
	}

	logger.InfoContext(ctx, "sources merged",
		slog.Int("sources", len(loaders)),
		slog.Int("years", table.Len()),
		slog.Int("columns", len(table.Columns())))
	return table, nil
}
