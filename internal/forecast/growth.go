package forecast

import (
	"math"

	"chinaecon/internal/dataset"
)

// growthForecast compounds the mean year-over-year growth rate of the
// observed window forward from its last value. Pairs with a zero or missing
// predecessor are excluded from the mean; if no usable pair remains (or the
// mean is not finite) the method is infeasible and ok is false.
func growthForecast(values []float64, steps int) ([]float64, bool) {
	var sum float64
	var n int
	for i := 1; i < len(values); i++ {
		prev, cur := values[i-1], values[i]
		if dataset.IsMissing(prev) || dataset.IsMissing(cur) || prev == 0 {
			continue
		}
		sum += cur/prev - 1
		n++
	}
	if n == 0 {
		return nil, false
	}

	rate := sum / float64(n)
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, false
	}

	out := make([]float64, steps)
	last := values[len(values)-1]
	for i := range out {
		last *= 1 + rate
		out[i] = last
	}
	return out, true
}
