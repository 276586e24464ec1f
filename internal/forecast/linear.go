package forecast

import (
	"gonum.org/v1/gonum/stat"
)

// linearForecast fits value = alpha + beta*year by ordinary least squares on
// the observed window and evaluates the line for the years after it. The
// last element of years is the final observed year; forecasts cover
// years[last]+1 .. years[last]+steps.
func linearForecast(years, values []float64, steps int) []float64 {
	alpha, beta := stat.LinearRegression(years, values, nil, false)

	lastYear := years[len(years)-1]
	out := make([]float64, steps)
	for i := range out {
		out[i] = alpha + beta*(lastYear+float64(i+1))
	}
	return out
}
