package forecast

import (
	"fmt"

	"github.com/sartorproj/goarima/arima"
	"github.com/sartorproj/goarima/timeseries"
)

// Fixed ARIMA order. Auto-selection would trade reproducibility for fit
// quality; the order stays pinned so identical inputs always yield identical
// projections.
const (
	arimaP = 1
	arimaD = 1
	arimaQ = 1
)

// arimaForecast fits an ARIMA(1,1,1) model to the observed window and
// forecasts the requested number of steps.
func arimaForecast(values []float64, steps int) (out []float64, err error) {
	// goarima panics on some degenerate series (e.g. constant after
	// differencing); the caller treats any failure as a fallback signal, so
	// convert panics into errors here.
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("arima fit panic: %v", r)
		}
	}()

	series := timeseries.New(values)
	model := arima.New(arimaP, arimaD, arimaQ)
	if err := model.Fit(series); err != nil {
		return nil, fmt.Errorf("arima fit: %w", err)
	}

	forecasts, err := model.Predict(steps)
	if err != nil {
		return nil, fmt.Errorf("arima predict: %w", err)
	}
	if len(forecasts) != steps {
		return nil, fmt.Errorf("arima predict returned %d values, want %d", len(forecasts), steps)
	}
	return forecasts, nil
}
