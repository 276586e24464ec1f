// Package capital estimates a capital stock series from the PWT capital
// index columns, anchored to a baseline year via the capital-output identity
// K_base = GDP_base * kappa.
package capital

import (
	"log/slog"

	"chinaecon/internal/dataset"
	"chinaecon/pkg/contracts/domain"
)

// Params configures the estimator. CapitalOutputRatio is kappa in the
// baseline identity; BaselineYear is the preferred anchor year.
type Params struct {
	CapitalOutputRatio float64
	BaselineYear       int
}

// Baseline describes the anchor year the estimator settled on.
type Baseline struct {
	Year        int
	Substituted bool // true when the preferred year was unusable
}

// SelectBaseline returns the effective baseline year: the preferred year if
// it has rkna, pl_gdpo and GDP all present (and rkna non-zero), otherwise
// the most recent year that does. ok is false when no year qualifies, in
// which case no capital series can be produced.
//
// The scan is a deterministic walk over the table's years, so repeated runs
// on the same data always pick the same fallback.
func SelectBaseline(t *dataset.Table, preferred int) (Baseline, bool) {
	if usableBaseline(t, preferred) {
		return Baseline{Year: preferred}, true
	}

	years := t.Years()
	for i := len(years) - 1; i >= 0; i-- {
		if usableBaseline(t, years[i]) {
			return Baseline{Year: years[i], Substituted: true}, true
		}
	}
	return Baseline{}, false
}

func usableBaseline(t *dataset.Table, year int) bool {
	rkna := t.Value(domain.ColRKNA, year)
	pl := t.Value(domain.ColPriceGDP, year)
	gdp := t.Value(domain.ColGDP, year)
	if dataset.IsMissing(rkna) || dataset.IsMissing(pl) || dataset.IsMissing(gdp) {
		return false
	}
	// A zero index cannot be rebased against; treat like a missing baseline.
	return rkna != 0 && pl != 0
}

// Compute writes the capital column for every year with rkna and pl_gdpo
// present, rebased against the given baseline:
//
//	K_t = (rkna_t / rkna_base) * K_base * (pl_gdpo_t / pl_gdpo_base)
//
// Years lacking index data keep a missing cell. Returns the number of years
// filled. Compute is re-invoked after extrapolation with the same baseline so
// projected index values yield a consistent projected capital series.
func Compute(t *dataset.Table, p Params, base Baseline, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}

	rknaBase := t.Value(domain.ColRKNA, base.Year)
	plBase := t.Value(domain.ColPriceGDP, base.Year)
	gdpBase := t.Value(domain.ColGDP, base.Year)
	kBase := gdpBase * p.CapitalOutputRatio

	t.AddColumn(domain.ColCapital)
	filled := 0
	for _, year := range t.Years() {
		rkna := t.Value(domain.ColRKNA, year)
		pl := t.Value(domain.ColPriceGDP, year)
		if dataset.IsMissing(rkna) || dataset.IsMissing(pl) {
			continue
		}
		k := (rkna / rknaBase) * kBase * (pl / plBase)
		// Cannot fail: the year comes from the table itself.
		_ = t.SetValue(domain.ColCapital, year, k)
		filled++
	}

	logger.Info("capital stock computed",
		slog.Int("baseline_year", base.Year),
		slog.Bool("baseline_substituted", base.Substituted),
		slog.Float64("baseline_capital_bn", kBase),
		slog.Int("years_filled", filled))
	return filled
}

// Estimate selects a baseline and computes the capital series in one call.
// ok is false when no baseline qualifies; the table is left without a
// capital column and downstream TFP degrades to missing.
func Estimate(t *dataset.Table, p Params, logger *slog.Logger) (Baseline, bool) {
	if logger == nil {
		logger = slog.Default()
	}
	base, ok := SelectBaseline(t, p.BaselineYear)
	if !ok {
		logger.Warn("no usable capital baseline year, capital series unavailable",
			slog.Int("preferred_year", p.BaselineYear))
		return Baseline{}, false
	}
	Compute(t, p, base, logger)
	return base, true
}
