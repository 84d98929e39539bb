package eventstudy

import (
	"gonum.org/v1/gonum/stat"
)

// benchmarkModel predicts an expected daily return from the index return
type benchmarkModel struct {
	alpha float64
	beta  float64 // zero for the mean-adjusted model
}

func (m benchmarkModel) expected(indexReturn float64) float64 {
	return m.alpha + m.beta*indexReturn
}

// fitBenchmark fits the configured benchmark model on the estimation window.
// "market" regresses the firm's daily return on the index return; "mean"
// uses the estimation-window mean as a constant expectation.
func fitBenchmark(w EventWindow, benchmark string) benchmarkModel {
	n := w.EstimationLength()
	firm := make([]float64, 0, n)
	index := make([]float64, 0, n)
	for i := w.EstStart; i <= w.EstEnd; i++ {
		firm = append(firm, w.Series[i].Return)
		index = append(index, w.Series[i].IndexReturn)
	}

	if benchmark == "mean" {
		return benchmarkModel{alpha: stat.Mean(firm, nil)}
	}

	alpha, beta := stat.LinearRegression(index, firm, nil, false)
	return benchmarkModel{alpha: alpha, beta: beta}
}

// computeCAR sums daily abnormal returns over the first length trading days
// from the anchor. Days beyond the end of the series are missing: each
// contributes zero to the sum and is counted, and when the count exceeds the
// tolerance the CAR is nulled with StatusPartialWindow rather than reported
// with a silent downward bias.
func computeCAR(w EventWindow, model benchmarkModel, length, tolerance int) (NullFloat, Status, int) {
	available := len(w.Series) - w.Anchor
	if available > length {
		available = length
	}
	missing := length - available
	if missing > tolerance {
		return Null(), StatusPartialWindow, missing
	}

	car := 0.0
	for i := w.Anchor; i < w.Anchor+available; i++ {
		car += w.Series[i].Return - model.expected(w.Series[i].IndexReturn)
	}
	return Float(car), StatusOK, missing
}
