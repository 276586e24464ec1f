// Package normalize converts raw source units into the standardized units
// used by every downstream stage: monetary series in billions of USD,
// demographic series in millions of people.
package normalize

import (
	"log/slog"

	"chinaecon/internal/dataset"
	"chinaecon/pkg/contracts/domain"
)

// Unit divisors for the two raw unit families.
const (
	MonetaryDivisor    = 1e9
	DemographicDivisor = 1e6
)

// Rule maps one raw column onto its normalized name and divisor.
type Rule struct {
	Source  string
	Target  string
	Divisor float64
}

// DefaultRules covers every raw series the loaders produce. PWT index
// columns and the IMF tax rate are already unitless or percentages and
// carry no rule.
func DefaultRules() []Rule {
	return []Rule{
		{Source: domain.RawGDP, Target: domain.ColGDP, Divisor: MonetaryDivisor},
		{Source: domain.RawConsumption, Target: domain.ColConsumption, Divisor: MonetaryDivisor},
		{Source: domain.RawGovernment, Target: domain.ColGovernment, Divisor: MonetaryDivisor},
		{Source: domain.RawInvestment, Target: domain.ColInvestment, Divisor: MonetaryDivisor},
		{Source: domain.RawExports, Target: domain.ColExports, Divisor: MonetaryDivisor},
		{Source: domain.RawImports, Target: domain.ColImports, Divisor: MonetaryDivisor},
		{Source: domain.RawPopulation, Target: domain.ColPopulation, Divisor: DemographicDivisor},
		{Source: domain.RawLaborForce, Target: domain.ColLaborForce, Divisor: DemographicDivisor},
	}
}

// Apply rewrites the table with normalized columns. A missing source column
// leaves the target column absent entirely; downstream stages treat absence
// as "not computable". Missing cells stay missing; the division never
// manufactures values.
func Apply(t *dataset.Table, rules []Rule, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	applied := 0
	for _, rule := range rules {
		col, ok := t.Column(rule.Source)
		if !ok {
			logger.Debug("normalize: source column absent, skipping",
				slog.String("column", rule.Source))
			continue
		}
		normalized := make([]float64, len(col))
		for i, v := range col {
			if dataset.IsMissing(v) {
				normalized[i] = dataset.Missing()
				continue
			}
			normalized[i] = v / rule.Divisor
		}
		// Length always matches the table, so this cannot fail.
		_ = t.SetColumn(rule.Target, normalized)
		applied++
	}

	logger.Info("unit normalization complete",
		slog.Int("rules_applied", applied),
		slog.Int("rules_total", len(rules)))
}
