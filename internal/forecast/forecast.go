package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"chinaecon/internal/dataset"
)

// Method identifies an extrapolation strategy.
type Method string

const (
	MethodARIMA             Method = "arima"
	MethodLinearRegression  Method = "linear_regression"
	MethodAverageGrowthRate Method = "average_growth_rate"

	// MethodNone records that a variable could not be extrapolated at all
	// (fewer than two observations).
	MethodNone Method = "none"
)

// VariableSpec parametrizes the extrapolation of one column.
type VariableSpec struct {
	Name   string
	Method Method

	// MinObservations overrides the dispatcher threshold for the preferred
	// method when positive.
	MinObservations int
}

// Thresholds holds the minimum observed history each method needs to be
// considered reliable. The exact values are calibration choices, so they are
// configuration rather than constants.
type Thresholds struct {
	ARIMA  int
	Linear int
	Growth int
}

// DefaultThresholds returns the standard minimums: ARIMA(1,1,1) matches the
// fitting library's floor of p+d+q+10 observations so the method is only
// selected when the fit can actually run, a line needs three, a growth rate
// needs two.
func DefaultThresholds() Thresholds {
	return Thresholds{ARIMA: 13, Linear: 3, Growth: 2}
}

func (th Thresholds) forMethod(m Method) int {
	switch m {
	case MethodARIMA:
		return th.ARIMA
	case MethodLinearRegression:
		return th.Linear
	default:
		return th.Growth
	}
}

// Record is the audit trail for one variable: which method actually ran and
// which years were synthesized. It feeds the report, never the numbers.
type Record struct {
	Variable      string `json:"variable"`
	Preferred     Method `json:"preferred_method"`
	Used          Method `json:"method_used"`
	FirstObserved int    `json:"first_observed,omitempty"`
	LastObserved  int    `json:"last_observed,omitempty"`
	Synthesized   []int  `json:"synthesized_years,omitempty"`
}

// Dispatcher extends table columns to the configured end year.
type Dispatcher struct {
	endYear    int
	thresholds Thresholds
	logger     *slog.Logger
}

// NewDispatcher creates a dispatcher targeting endYear.
func NewDispatcher(endYear int, th Thresholds, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if th.Growth < 2 {
		th.Growth = 2
	}
	return &Dispatcher{endYear: endYear, thresholds: th, logger: logger}
}

// Extend fills the named column through the end year using the spec's
// preferred method, falling back per policy. Observed cells are never
// touched; interior gaps are interpolated; years beyond the last observation
// are projected. Infeasibility is not an error: the record's Used field says
// what happened.
func (d *Dispatcher) Extend(t *dataset.Table, spec VariableSpec) Record {
	t.ExtendTo(d.endYear)
	return d.extendColumn(t, spec)
}

// ExtendAll extends every spec'd column. Columns are mutually independent, so
// the per-variable work fans out across goroutines; the table is grown once
// up front so no rows are added concurrently. Output is deterministic
// regardless of scheduling.
func (d *Dispatcher) ExtendAll(ctx context.Context, t *dataset.Table, specs []VariableSpec) ([]Record, error) {
	t.ExtendTo(d.endYear)

	records := make([]Record, len(specs))
	g, ctx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for i, spec := range specs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec := d.extendColumn(t, spec)
			mu.Lock()
			records[i] = rec
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extrapolation cancelled: %w", err)
	}
	return records, nil
}

func (d *Dispatcher) extendColumn(t *dataset.Table, spec VariableSpec) Record {
	rec := Record{Variable: spec.Name, Preferred: spec.Method, Used: MethodNone}

	col, ok := t.Column(spec.Name)
	if !ok {
		d.logger.Debug("extrapolation skipped, column absent", slog.String("variable", spec.Name))
		return rec
	}

	first, last, observed := t.ObservedSpan(spec.Name)
	count := t.ObservedCount(spec.Name)
	if !observed || count < d.thresholds.Growth {
		d.logger.Warn("extrapolation infeasible, leaving series missing",
			slog.String("variable", spec.Name),
			slog.Int("observations", count))
		return rec
	}
	rec.FirstObserved = first
	rec.LastObserved = last

	firstIdx, _ := t.RowIndex(first)
	lastIdx, _ := t.RowIndex(last)

	// Interpolate interior gaps in place so the fitted window is contiguous.
	// These cells count as synthesized even though they sit inside the
	// observed span.
	years := t.Years()
	for _, idx := range interpolateInterior(col, firstIdx, lastIdx) {
		rec.Synthesized = append(rec.Synthesized, years[idx])
	}

	method := spec.Method
	min := spec.MinObservations
	if min <= 0 {
		min = d.thresholds.forMethod(method)
	}
	if count < min && method != MethodAverageGrowthRate {
		d.logger.Info("history too short for preferred method, falling back",
			slog.String("variable", spec.Name),
			slog.String("preferred", string(method)),
			slog.Int("observations", count),
			slog.Int("required", min))
		method = MethodAverageGrowthRate
	}

	steps := d.endYear - last
	if steps <= 0 {
		// Nothing beyond the observed window to project.
		rec.Used = method
		return rec
	}

	window := col[firstIdx : lastIdx+1]
	windowYears := make([]float64, len(window))
	for i := range window {
		windowYears[i] = float64(years[firstIdx+i])
	}

	values, used := d.project(spec.Name, method, windowYears, window, steps)
	if used == MethodNone {
		rec.Used = MethodNone
		return rec
	}
	rec.Used = used

	for i, v := range values {
		idx := lastIdx + 1 + i
		col[idx] = v
		rec.Synthesized = append(rec.Synthesized, years[idx])
	}

	d.logger.Info("series extrapolated",
		slog.String("variable", spec.Name),
		slog.String("method", string(used)),
		slog.Int("last_observed", last),
		slog.Int("steps", steps))
	return rec
}

// project runs one method and degrades ARIMA/linear failures to the growth
// rate, and a failed growth rate to none. A "failure" is a fit error or any
// non-finite forecast value.
func (d *Dispatcher) project(name string, method Method, years, values []float64, steps int) ([]float64, Method) {
	switch method {
	case MethodARIMA:
		out, err := arimaForecast(values, steps)
		if err == nil && allFinite(out) {
			return out, MethodARIMA
		}
		d.logger.Warn("arima fit failed, falling back to growth rate",
			slog.String("variable", name),
			slog.Any("error", err))
	case MethodLinearRegression:
		out := linearForecast(years, values, steps)
		if allFinite(out) {
			return out, MethodLinearRegression
		}
		d.logger.Warn("linear fit degenerate, falling back to growth rate",
			slog.String("variable", name))
	}

	out, ok := growthForecast(values, steps)
	if !ok || !allFinite(out) {
		d.logger.Warn("growth-rate extrapolation infeasible",
			slog.String("variable", name))
		return nil, MethodNone
	}
	return out, MethodAverageGrowthRate
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// interpolateInterior linearly fills missing cells strictly between firstIdx
// and lastIdx, returning the indices it wrote. Endpoints are known to be
// observed.
func interpolateInterior(col []float64, firstIdx, lastIdx int) []int {
	var filled []int
	prev := firstIdx
	for i := firstIdx + 1; i <= lastIdx; i++ {
		if dataset.IsMissing(col[i]) {
			continue
		}
		if i > prev+1 {
			span := float64(i - prev)
			for j := prev + 1; j < i; j++ {
				frac := float64(j-prev) / span
				col[j] = col[prev] + frac*(col[i]-col[prev])
				filled = append(filled, j)
			}
		}
		prev = i
	}
	return filled
}
