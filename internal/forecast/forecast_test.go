package forecast

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chinaecon/internal/dataset"
)

func newTable(t *testing.T, years []int) *dataset.Table {
	t.Helper()
	table, err := dataset.New(years)
	require.NoError(t, err)
	return table
}

func TestLinearTrendScenario(t *testing.T) {
	// Observed H = [1.0, 1.1, 1.2] over 2020-2022; the fitted slope of
	// 0.1/year must carry forward to 2023 and 2024.
	table := newTable(t, []int{2020, 2021, 2022})
	require.NoError(t, table.SetValue("hc", 2020, 1.0))
	require.NoError(t, table.SetValue("hc", 2021, 1.1))
	require.NoError(t, table.SetValue("hc", 2022, 1.2))

	d := NewDispatcher(2024, DefaultThresholds(), nil)
	rec := d.Extend(table, VariableSpec{Name: "hc", Method: MethodLinearRegression})

	assert.Equal(t, MethodLinearRegression, rec.Used)
	assert.InDelta(t, 1.3, table.Value("hc", 2023), 1e-9)
	assert.InDelta(t, 1.4, table.Value("hc", 2024), 1e-9)
	assert.Equal(t, []int{2023, 2024}, rec.Synthesized)
}

func TestGrowthRateScenario(t *testing.T) {
	// Constant 10% growth: 100, 110, 121 compounds to 133.1 and 146.41.
	table := newTable(t, []int{2020, 2021, 2022})
	require.NoError(t, table.SetValue("gdp", 2020, 100))
	require.NoError(t, table.SetValue("gdp", 2021, 110))
	require.NoError(t, table.SetValue("gdp", 2022, 121))

	d := NewDispatcher(2024, DefaultThresholds(), nil)
	rec := d.Extend(table, VariableSpec{Name: "gdp", Method: MethodAverageGrowthRate})

	assert.Equal(t, MethodAverageGrowthRate, rec.Used)
	assert.InDelta(t, 133.1, table.Value("gdp", 2023), 1e-9)
	assert.InDelta(t, 146.41, table.Value("gdp", 2024), 1e-9)
}

func TestObservedYearsNeverOverwritten(t *testing.T) {
	table := newTable(t, []int{2020, 2021, 2022})
	observed := map[int]float64{2020: 3.5, 2021: 2.9, 2022: 4.1}
	for y, v := range observed {
		require.NoError(t, table.SetValue("x", y, v))
	}

	d := NewDispatcher(2025, DefaultThresholds(), nil)
	d.Extend(table, VariableSpec{Name: "x", Method: MethodAverageGrowthRate})

	for y, v := range observed {
		assert.Equal(t, v, table.Value("x", y), "observed value for %d must be untouched", y)
	}
}

func TestShortHistoryFallsBackToGrowth(t *testing.T) {
	// Three points are below the ARIMA minimum; the dispatcher must record
	// the growth-rate fallback, not the preferred method.
	table := newTable(t, []int{2020, 2021, 2022})
	require.NoError(t, table.SetValue("tfp", 2020, 1.00))
	require.NoError(t, table.SetValue("tfp", 2021, 1.02))
	require.NoError(t, table.SetValue("tfp", 2022, 1.04))

	d := NewDispatcher(2024, DefaultThresholds(), nil)
	rec := d.Extend(table, VariableSpec{Name: "tfp", Method: MethodARIMA})

	assert.Equal(t, MethodARIMA, rec.Preferred)
	assert.Equal(t, MethodAverageGrowthRate, rec.Used)
	assert.False(t, dataset.IsMissing(table.Value("tfp", 2024)))
}

func TestARIMAProjectionIsDeterministic(t *testing.T) {
	// 20 observations clear the fit floor, so the preferred method must
	// actually run, and with the fixed (1,1,1) order two independent fits of
	// the same series must produce bit-identical projections.
	years := make([]int, 20)
	for i := range years {
		years[i] = 2000 + i
	}
	build := func() *dataset.Table {
		table := newTable(t, years)
		for i, y := range years {
			require.NoError(t, table.SetValue("gdp", y, 100.0+12.0*float64(i)+3.0*float64(i%3)))
		}
		return table
	}

	first := build()
	rec := NewDispatcher(2024, DefaultThresholds(), nil).
		Extend(first, VariableSpec{Name: "gdp", Method: MethodARIMA})

	assert.Equal(t, MethodARIMA, rec.Preferred)
	assert.Equal(t, MethodARIMA, rec.Used)
	assert.Equal(t, []int{2020, 2021, 2022, 2023, 2024}, rec.Synthesized)
	for y := 2020; y <= 2024; y++ {
		assert.False(t, dataset.IsMissing(first.Value("gdp", y)), "projection for %d", y)
	}

	second := build()
	NewDispatcher(2024, DefaultThresholds(), nil).
		Extend(second, VariableSpec{Name: "gdp", Method: MethodARIMA})
	for y := 2020; y <= 2024; y++ {
		assert.Equal(t, first.Value("gdp", y), second.Value("gdp", y),
			"repeated fits must agree for %d", y)
	}
}

func TestARIMAFitErrorIsSurfaced(t *testing.T) {
	// Below the library's observation floor the fit itself fails; that error
	// must come back wrapped, not a misleading predict-before-fit message.
	_, err := arimaForecast([]float64{1, 2, 3, 4, 5, 6, 7}, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arima fit")
}

func TestFewerThanTwoObservationsStaysMissing(t *testing.T) {
	table := newTable(t, []int{2020, 2021, 2022})
	require.NoError(t, table.SetValue("y", 2021, 5.0))

	d := NewDispatcher(2024, DefaultThresholds(), nil)
	rec := d.Extend(table, VariableSpec{Name: "y", Method: MethodLinearRegression})

	assert.Equal(t, MethodNone, rec.Used)
	for _, year := range []int{2022, 2023, 2024} {
		assert.True(t, dataset.IsMissing(table.Value("y", year)))
	}
}

func TestAbsentColumnIsTolerated(t *testing.T) {
	table := newTable(t, []int{2020, 2021})

	d := NewDispatcher(2023, DefaultThresholds(), nil)
	rec := d.Extend(table, VariableSpec{Name: "nope", Method: MethodLinearRegression})

	assert.Equal(t, MethodNone, rec.Used)
	assert.Empty(t, rec.Synthesized)
}

func TestInteriorGapInterpolatedBeforeFitting(t *testing.T) {
	table := newTable(t, []int{2018, 2019, 2020, 2021, 2022})
	require.NoError(t, table.SetValue("hc", 2018, 1.0))
	require.NoError(t, table.SetValue("hc", 2020, 1.2))
	require.NoError(t, table.SetValue("hc", 2021, 1.3))
	require.NoError(t, table.SetValue("hc", 2022, 1.4))
	// 2019 is an interior gap.

	d := NewDispatcher(2023, DefaultThresholds(), nil)
	rec := d.Extend(table, VariableSpec{Name: "hc", Method: MethodLinearRegression})

	assert.InDelta(t, 1.1, table.Value("hc", 2019), 1e-9, "interior gap must be linearly interpolated")
	assert.Contains(t, rec.Synthesized, 2019)
	assert.InDelta(t, 1.5, table.Value("hc", 2023), 1e-9)
}

func TestMonotonicCoverageAfterExtend(t *testing.T) {
	table := newTable(t, []int{2017, 2018, 2019, 2020, 2021})
	require.NoError(t, table.SetValue("v", 2018, 10))
	require.NoError(t, table.SetValue("v", 2021, 13))

	d := NewDispatcher(2025, DefaultThresholds(), nil)
	rec := d.Extend(table, VariableSpec{Name: "v", Method: MethodLinearRegression})

	require.NotEqual(t, MethodNone, rec.Used)
	for year := rec.FirstObserved; year <= 2025; year++ {
		assert.False(t, dataset.IsMissing(table.Value("v", year)),
			"year %d must be populated from first observation through end year", year)
	}
	// Years before the first observation stay missing.
	assert.True(t, dataset.IsMissing(table.Value("v", 2017)))
}

func TestGrowthInfeasibleOnZeroHistory(t *testing.T) {
	// Every predecessor is zero, so no growth pair is usable.
	table := newTable(t, []int{2020, 2021, 2022})
	require.NoError(t, table.SetValue("z", 2020, 0))
	require.NoError(t, table.SetValue("z", 2021, 0))
	require.NoError(t, table.SetValue("z", 2022, 0))

	d := NewDispatcher(2024, DefaultThresholds(), nil)
	rec := d.Extend(table, VariableSpec{Name: "z", Method: MethodAverageGrowthRate})

	assert.Equal(t, MethodNone, rec.Used)
	assert.True(t, dataset.IsMissing(table.Value("z", 2023)))
}

func TestExtendAllDeterministicAcrossRuns(t *testing.T) {
	build := func() *dataset.Table {
		table := newTable(t, []int{2019, 2020, 2021, 2022})
		require.NoError(t, table.SetValue("a", 2019, 1.0))
		require.NoError(t, table.SetValue("a", 2020, 1.1))
		require.NoError(t, table.SetValue("a", 2021, 1.2))
		require.NoError(t, table.SetValue("a", 2022, 1.3))
		require.NoError(t, table.SetValue("b", 2020, 200))
		require.NoError(t, table.SetValue("b", 2021, 220))
		require.NoError(t, table.SetValue("b", 2022, 242))
		return table
	}
	specs := []VariableSpec{
		{Name: "a", Method: MethodLinearRegression},
		{Name: "b", Method: MethodAverageGrowthRate},
	}

	first := build()
	second := build()
	d := NewDispatcher(2026, DefaultThresholds(), nil)

	recsFirst, err := d.ExtendAll(context.Background(), first, specs)
	require.NoError(t, err)
	recsSecond, err := d.ExtendAll(context.Background(), second, specs)
	require.NoError(t, err)

	assert.Equal(t, recsFirst, recsSecond)
	for _, name := range []string{"a", "b"} {
		for _, year := range first.Years() {
			got := first.Value(name, year)
			want := second.Value(name, year)
			if dataset.IsMissing(want) {
				assert.True(t, dataset.IsMissing(got))
				continue
			}
			assert.Equal(t, want, got, "column %s year %d", name, year)
		}
	}
}

func TestLinearForecastSlope(t *testing.T) {
	out := linearForecast([]float64{2020, 2021, 2022}, []float64{1.0, 1.1, 1.2}, 2)
	require.Len(t, out, 2)
	assert.InDelta(t, 1.3, out[0], 1e-9)
	assert.InDelta(t, 1.4, out[1], 1e-9)
}

func TestGrowthForecastCompounds(t *testing.T) {
	out, ok := growthForecast([]float64{100, 110, 121}, 2)
	require.True(t, ok)
	assert.InDelta(t, 133.1, out[0], 1e-9)
	assert.InDelta(t, 146.41, out[1], 1e-9)
}
