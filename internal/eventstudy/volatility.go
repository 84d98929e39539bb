package eventstudy

import (
	"gonum.org/v1/gonum/stat"
)

// computeVolatility computes the pre- and post-event return standard
// deviations and their difference.
//
// The pre window is the span of VolPreDays trading days ending GapDays before
// the anchor; the post window starts at the anchor. The two never overlap by
// construction. A short pre window is an insufficient-history condition; a
// post window missing more days than the tolerance is a partial window. Both
// null the volatility triple.
func computeVolatility(w EventWindow, params Params) (pre, post, change NullFloat, status Status) {
	preEnd := w.Anchor - params.GapDays // exclusive
	preStart := preEnd - params.VolPreDays
	if preStart < 0 {
		return Null(), Null(), Null(), StatusInsufficientHistory
	}

	postEnd := w.Anchor + params.VolPostDays
	if postEnd > len(w.Series) {
		missing := postEnd - len(w.Series)
		if missing > params.MissingDayTolerance {
			return Null(), Null(), Null(), StatusPartialWindow
		}
		postEnd = len(w.Series)
	}
	// Standard deviation needs at least two observations
	if postEnd-w.Anchor < 2 {
		return Null(), Null(), Null(), StatusPartialWindow
	}

	preReturns := make([]float64, 0, params.VolPreDays)
	for i := preStart; i < preEnd; i++ {
		preReturns = append(preReturns, w.Series[i].Return)
	}
	postReturns := make([]float64, 0, postEnd-w.Anchor)
	for i := w.Anchor; i < postEnd; i++ {
		postReturns = append(postReturns, w.Series[i].Return)
	}

	preSD := stat.StdDev(preReturns, nil)
	postSD := stat.StdDev(postReturns, nil)
	return Float(preSD), Float(postSD), Float(postSD - preSD), StatusOK
}
