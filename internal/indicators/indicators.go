// Package indicators derives economic indicators from the fully-extrapolated
// base series: the Cobb-Douglas TFP residual, trade aggregates and the
// savings block. Every formula is a pure per-row function of its inputs and
// degrades to a missing cell whenever an input is missing or numerically
// invalid; an Inf or silent zero never reaches the output.
package indicators

import (
	"log/slog"
	"math"

	"chinaecon/internal/dataset"
	"chinaecon/pkg/contracts/domain"
)

// Params carries the production-function parameters.
type Params struct {
	// Alpha is the capital share of output, in (0,1).
	Alpha float64
}

// Compute adds every derived indicator column to the table. Base variables
// are read, never written; indicators for a year are missing whenever any
// required input for that year is missing or invalid.
func Compute(t *dataset.Table, p Params, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	for _, year := range t.Years() {
		gdp := t.Value(domain.ColGDP, year)
		consumption := t.Value(domain.ColConsumption, year)
		government := t.Value(domain.ColGovernment, year)
		investment := t.Value(domain.ColInvestment, year)
		exports := t.Value(domain.ColExports, year)
		imports := t.Value(domain.ColImports, year)
		capital := t.Value(domain.ColCapital, year)
		labor := t.Value(domain.ColLaborForce, year)
		hc := t.Value(domain.ColHumanCapital, year)
		taxRate := t.Value(domain.ColTaxRate, year)

		set := func(name string, v float64) {
			// Years come from the table, so SetValue cannot fail.
			_ = t.SetValue(name, year, v)
		}

		netExports := sub(exports, imports)
		set(domain.ColNetExports, netExports)
		set(domain.ColOpenness, ratio(add(exports, imports), gdp))
		set(domain.ColCapitalOutput, ratio(capital, gdp))

		taxRevenue := scale(taxRate, gdp)
		set(domain.ColTaxRevenue, taxRevenue)

		saving := add(investment, netExports)
		set(domain.ColSaving, saving)
		set(domain.ColPrivateSaving, sub(sub(gdp, taxRevenue), consumption))
		set(domain.ColPublicSaving, sub(taxRevenue, government))
		set(domain.ColSavingRate, ratio(saving, gdp))

		set(domain.ColTFP, tfp(gdp, capital, labor, hc, p.Alpha))
	}

	logger.Info("indicator calculation complete",
		slog.Float64("alpha", p.Alpha),
		slog.Int("years", t.Len()))
}

// tfp computes the Cobb-Douglas residual Y / (K^a * (L*H)^(1-a)), rounded to
// four decimals for output stability. Non-positive bases for the fractional
// exponents yield a missing value, never a NaN from math.Pow leaking out.
func tfp(gdp, capital, labor, hc, alpha float64) float64 {
	if anyMissing(gdp, capital, labor, hc) {
		return dataset.Missing()
	}
	laborInput := labor * hc
	if capital <= 0 || laborInput <= 0 {
		return dataset.Missing()
	}
	v := gdp / (math.Pow(capital, alpha) * math.Pow(laborInput, 1-alpha))
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return dataset.Missing()
	}
	return math.Round(v*1e4) / 1e4
}

func add(a, b float64) float64 {
	if anyMissing(a, b) {
		return dataset.Missing()
	}
	return a + b
}

func sub(a, b float64) float64 {
	if anyMissing(a, b) {
		return dataset.Missing()
	}
	return a - b
}

// ratio guards the zero-denominator case: X/0 is missing, not Inf.
func ratio(num, den float64) float64 {
	if anyMissing(num, den) || den == 0 {
		return dataset.Missing()
	}
	return num / den
}

// scale converts a percent-of-GDP rate into a level in billions.
func scale(ratePct, gdp float64) float64 {
	if anyMissing(ratePct, gdp) {
		return dataset.Missing()
	}
	return ratePct * gdp / 100
}

func anyMissing(values ...float64) bool {
	for _, v := range values {
		if dataset.IsMissing(v) {
			return true
		}
	}
	return false
}
