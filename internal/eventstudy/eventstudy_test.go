package eventstudy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breachstudy/internal/ingest"
)

func day(offset int) time.Time {
	return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

// makeSeries builds a date-sorted market series with one row per calendar day
func makeSeries(org string, returns, indexReturns []float64) []ingest.MarketDay {
	series := make([]ingest.MarketDay, len(returns))
	for i := range returns {
		series[i] = ingest.MarketDay{
			Org:         org,
			Date:        day(i),
			Return:      returns[i],
			IndexReturn: indexReturns[i],
		}
	}
	return series
}

func flatSeries(org string, n int, ret float64) []ingest.MarketDay {
	returns := make([]float64, n)
	index := make([]float64, n)
	for i := range returns {
		returns[i] = ret
	}
	return makeSeries(org, returns, index)
}

func testParams() Params {
	return Params{
		EstimationDays:      6,
		GapDays:             1,
		EventLengths:        []int{3, 5},
		MinHistory:          4,
		MissingDayTolerance: 1,
		VolPreDays:          4,
		VolPostDays:         4,
		Benchmark:           "mean",
	}
}

func TestBuildWindow(t *testing.T) {
	params := testParams()

	t.Run("aligned window", func(t *testing.T) {
		series := flatSeries("ACME", 15, 0.001)
		event := ingest.BreachEvent{EventID: "EV001", Org: "ACME", DiscoveryDate: day(0), DisclosureDate: day(8)}

		w := BuildWindow(event, series, params)
		require.Equal(t, StatusOK, w.Status)
		assert.Equal(t, 8, w.Anchor)
		assert.Equal(t, 6, w.EstEnd)
		assert.Equal(t, 1, w.EstStart)
		assert.Equal(t, 6, w.EstimationLength())
	})

	t.Run("disclosure on non-trading day rolls forward", func(t *testing.T) {
		series := flatSeries("ACME", 15, 0.001)
		event := ingest.BreachEvent{EventID: "EV002", Org: "ACME", DiscoveryDate: day(0),
			DisclosureDate: day(8).Add(6 * time.Hour)}

		w := BuildWindow(event, series, params)
		require.Equal(t, StatusOK, w.Status)
		assert.Equal(t, 9, w.Anchor)
	})

	t.Run("no market data", func(t *testing.T) {
		event := ingest.BreachEvent{EventID: "EV003", Org: "GHOST", DisclosureDate: day(8)}
		w := BuildWindow(event, nil, params)
		assert.Equal(t, StatusNoMarketData, w.Status)
	})

	t.Run("insufficient history", func(t *testing.T) {
		series := flatSeries("ACME", 15, 0.001)
		event := ingest.BreachEvent{EventID: "EV004", Org: "ACME", DisclosureDate: day(3)}
		w := BuildWindow(event, series, params)
		assert.Equal(t, StatusInsufficientHistory, w.Status)
	})

	t.Run("disclosure after series end", func(t *testing.T) {
		series := flatSeries("ACME", 15, 0.001)
		event := ingest.BreachEvent{EventID: "EV005", Org: "ACME", DisclosureDate: day(30)}
		w := BuildWindow(event, series, params)
		assert.Equal(t, StatusInsufficientHistory, w.Status)
	})

	t.Run("short history capped at available days", func(t *testing.T) {
		// only 5 days before the gap: fewer than EstimationDays but
		// at least MinHistory, so the window shrinks instead of failing
		series := flatSeries("ACME", 12, 0.001)
		event := ingest.BreachEvent{EventID: "EV006", Org: "ACME", DisclosureDate: day(6)}
		w := BuildWindow(event, series, params)
		require.Equal(t, StatusOK, w.Status)
		assert.Equal(t, 5, w.EstimationLength())
		assert.Equal(t, 0, w.EstStart)
	})
}

// TestGoldenMarketModelCAR fits the market model on exactly linear data so
// the expected abnormal returns are known in closed form
func TestGoldenMarketModelCAR(t *testing.T) {
	const alpha, beta = 0.001, 0.5

	index := []float64{0.01, -0.02, 0.005, 0.015, -0.01, 0.02, 0.0, 0.01, -0.01, 0.0, 0.005, 0.002}
	returns := make([]float64, len(index))
	// estimation days 0..5 lie exactly on the model line
	for i := 0; i <= 6; i++ {
		returns[i] = alpha + beta*index[i]
	}
	// event days 7..9 carry known abnormal components
	abnormal := []float64{0.002, -0.001, 0.0005}
	for i, a := range abnormal {
		returns[7+i] = alpha + beta*index[7+i] + a
	}
	returns[10] = alpha + beta*index[10]
	returns[11] = alpha + beta*index[11]

	series := makeSeries("ACME", returns, index)
	params := testParams()
	params.Benchmark = "market"

	event := ingest.BreachEvent{EventID: "EV001", Org: "ACME", DiscoveryDate: day(0), DisclosureDate: day(7)}
	w := BuildWindow(event, series, params)
	require.Equal(t, StatusOK, w.Status)

	model := fitBenchmark(w, params.Benchmark)
	assert.InDelta(t, alpha, model.alpha, 1e-12)
	assert.InDelta(t, beta, model.beta, 1e-12)

	car, status, missing := computeCAR(w, model, 3, params.MissingDayTolerance)
	require.Equal(t, StatusOK, status)
	assert.Equal(t, 0, missing)
	require.True(t, car.Valid)
	assert.InDelta(t, 0.002-0.001+0.0005, car.Value, 1e-10)
}

func TestCARZeroAbnormalReturns(t *testing.T) {
	// every return equals the estimation-window mean, so abnormal returns
	// are identically zero and CAR must be exactly zero for any length
	series := flatSeries("ACME", 60, 0.0025)
	params := testParams()
	params.EventLengths = []int{3, 5, 10}

	event := ingest.BreachEvent{EventID: "EV001", Org: "ACME", DiscoveryDate: day(0), DisclosureDate: day(20)}
	w := BuildWindow(event, series, params)
	require.Equal(t, StatusOK, w.Status)

	model := fitBenchmark(w, "mean")
	for _, length := range params.EventLengths {
		car, status, _ := computeCAR(w, model, length, params.MissingDayTolerance)
		require.Equal(t, StatusOK, status, "length %d", length)
		require.True(t, car.Valid)
		assert.InDelta(t, 0.0, car.Value, 1e-12, "length %d", length)
	}
}

func TestCARMissingDayTolerance(t *testing.T) {
	params := testParams()
	series := flatSeries("ACME", 12, 0.001)
	event := ingest.BreachEvent{EventID: "EV001", Org: "ACME", DiscoveryDate: day(0), DisclosureDate: day(8)}

	w := BuildWindow(event, series, params)
	require.Equal(t, StatusOK, w.Status)
	model := fitBenchmark(w, "mean")

	t.Run("within tolerance yields partial but non-null CAR", func(t *testing.T) {
		// 4 days available from the anchor, window of 5 misses 1 day
		car, status, missing := computeCAR(w, model, 5, params.MissingDayTolerance)
		assert.Equal(t, StatusOK, status)
		assert.Equal(t, 1, missing)
		assert.True(t, car.Valid)
	})

	t.Run("beyond tolerance nulls the CAR", func(t *testing.T) {
		car, status, missing := computeCAR(w, model, 8, params.MissingDayTolerance)
		assert.Equal(t, StatusPartialWindow, status)
		assert.Equal(t, 4, missing)
		assert.False(t, car.Valid)
	})
}

func TestComputeVolatility(t *testing.T) {
	params := testParams()

	t.Run("golden pre and post standard deviations", func(t *testing.T) {
		returns := make([]float64, 12)
		// pre window indices 1..4 with gap at 5, anchor at 6
		pre := []float64{0.01, -0.01, 0.01, -0.01}
		post := []float64{0.02, -0.02, 0.02, -0.02}
		copy(returns[1:], pre)
		copy(returns[6:], post)
		index := make([]float64, len(returns))
		series := makeSeries("ACME", returns, index)

		w := EventWindow{EventID: "EV001", Org: "ACME", Status: StatusOK, Series: series, Anchor: 6, EstStart: 0, EstEnd: 4}

		preSD, postSD, change, status := computeVolatility(w, params)
		require.Equal(t, StatusOK, status)
		require.True(t, preSD.Valid)
		require.True(t, postSD.Valid)
		// sample standard deviation of +-0.01 alternating over 4 obs
		assert.InDelta(t, 0.0115470, preSD.Value, 1e-6)
		assert.InDelta(t, 0.0230940, postSD.Value, 1e-6)
		assert.InDelta(t, postSD.Value-preSD.Value, change.Value, 1e-12)
	})

	t.Run("short pre window is insufficient history", func(t *testing.T) {
		series := flatSeries("ACME", 12, 0.001)
		w := EventWindow{Status: StatusOK, Series: series, Anchor: 4, EstStart: 0, EstEnd: 2}
		_, _, change, status := computeVolatility(w, params)
		assert.Equal(t, StatusInsufficientHistory, status)
		assert.False(t, change.Valid)
	})

	t.Run("truncated post window beyond tolerance is partial", func(t *testing.T) {
		series := flatSeries("ACME", 10, 0.001)
		w := EventWindow{Status: StatusOK, Series: series, Anchor: 8, EstStart: 0, EstEnd: 6}
		_, _, change, status := computeVolatility(w, params)
		assert.Equal(t, StatusPartialWindow, status)
		assert.False(t, change.Valid)
	})
}

func TestEstimatorCompute(t *testing.T) {
	params := testParams()
	estimator := NewEstimator(params, nil)
	ctx := context.Background()

	t.Run("non-computable event yields nulls never zeros", func(t *testing.T) {
		event := ingest.BreachEvent{EventID: "EV001", Org: "GHOST", DisclosureDate: day(8)}
		metric := estimator.Compute(ctx, event, nil)

		assert.Equal(t, StatusNoMarketData, metric.Status)
		for _, length := range params.EventLengths {
			assert.False(t, metric.CAR[length].Valid)
			assert.Equal(t, StatusNoMarketData, metric.CARStatus[length])
		}
		assert.False(t, metric.VolChange.Valid)
		assert.False(t, metric.Computable())
	})

	t.Run("computable event fills every metric", func(t *testing.T) {
		series := flatSeries("ACME", 30, 0.001)
		event := ingest.BreachEvent{EventID: "EV002", Org: "ACME", DiscoveryDate: day(0), DisclosureDate: day(10)}
		metric := estimator.Compute(ctx, event, series)

		assert.Equal(t, StatusOK, metric.Status)
		for _, length := range params.EventLengths {
			assert.True(t, metric.CAR[length].Valid, "length %d", length)
		}
		assert.True(t, metric.VolChange.Valid)
		assert.True(t, metric.Computable())
	})
}

func TestEstimatorDeterminism(t *testing.T) {
	params := testParams()
	params.Benchmark = "market"
	estimator := NewEstimator(params, nil)
	ctx := context.Background()

	index := make([]float64, 40)
	returns := make([]float64, 40)
	for i := range index {
		index[i] = 0.001 * float64(i%7-3)
		returns[i] = 0.0005 + 0.8*index[i] + 0.0001*float64(i%5-2)
	}
	series := makeSeries("ACME", returns, index)
	event := ingest.BreachEvent{EventID: "EV001", Org: "ACME", DiscoveryDate: day(0), DisclosureDate: day(20)}

	first := estimator.Compute(ctx, event, series)
	second := estimator.Compute(ctx, event, series)
	assert.Equal(t, first, second)
}

func TestSaveToCSV(t *testing.T) {
	params := testParams()
	estimator := NewEstimator(params, nil)
	series := flatSeries("ACME", 30, 0.001)
	event := ingest.BreachEvent{EventID: "EV001", Org: "ACME", DiscoveryDate: day(0), DisclosureDate: day(10)}
	metric := estimator.Compute(context.Background(), event, series)

	path := t.TempDir() + "/outcome_metrics.csv"
	require.NoError(t, SaveToCSV([]OutcomeMetric{metric}, params.EventLengths, path))

	data, err := readCSVFile(t, path)
	require.NoError(t, err)
	require.Len(t, data, 2)
	assert.Equal(t, "event_id", data[0][0])
	assert.Equal(t, "EV001", data[1][0])
}
