// Package forecast extends incomplete series through the target end year.
//
// Each variable carries a VariableSpec naming its preferred method: ARIMA
// with fixed order (1,1,1), a simple linear trend, or mean year-over-year
// growth compounded forward. The Dispatcher applies exactly one method per
// variable, falling back to average growth when the observed history is too
// short for the preferred method, and leaving the variable missing when
// fewer than two observations exist.
//
// Observed values are never overwritten. Interior gaps inside the observed
// window are linearly interpolated before any model is fit, so the methods
// only ever see contiguous data. Every method is deterministic: identical
// input series produce identical projections.
//
//   - ARIMA(1,1,1): github.com/sartorproj/goarima, for irregular or noisy
//     trends.
//   - Linear regression: gonum stat.LinearRegression, for near-linear
//     trends such as the human capital index.
//   - Average growth rate: mean YoY growth compounded from the last
//     observation, for roughly constant percentage growth.
package forecast
