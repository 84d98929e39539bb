package eventstudy

import (
	"breachstudy/internal/ingest"
)

// Status describes whether a per-event computation succeeded, and if not, why.
// These are data conditions, not errors: the pipeline records them and continues.
type Status string

const (
	StatusOK                  Status = "ok"
	StatusNoMarketData        Status = "no_market_data"
	StatusInsufficientHistory Status = "insufficient_history"
	StatusPartialWindow       Status = "partial_window"
)

// NullFloat is a float64 that distinguishes "absent" from zero. Outcome
// metrics are never defaulted to zero: a non-computable metric is Valid=false.
type NullFloat struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// Float returns a valid NullFloat
func Float(v float64) NullFloat {
	return NullFloat{Value: v, Valid: true}
}

// Null returns an invalid NullFloat
func Null() NullFloat {
	return NullFloat{}
}

// Params contains the trading-day window parameters for the event-study
// computations. All values come from configuration; there are no hidden
// defaults inside the estimators.
type Params struct {
	EstimationDays      int
	GapDays             int
	EventLengths        []int // ascending
	MinHistory          int
	MissingDayTolerance int
	VolPreDays          int
	VolPostDays         int
	// Benchmark is "market" (single-factor market model) or "mean"
	// (mean-adjusted fallback)
	Benchmark string
}

// EventWindow aligns one breach event to its organization's trading calendar.
// Index fields point into the org's date-sorted market series.
//
// Layout on the series, left to right:
//
//	[EstStart .. EstEnd]  gap  [Anchor .. Anchor+L-1]
//
// The estimation window ends strictly before the anchor so event-period
// returns never contaminate the benchmark fit.
type EventWindow struct {
	EventID string
	Org     string
	Status  Status

	Series   []ingest.MarketDay
	Anchor   int // first trading day >= disclosure date
	EstStart int // inclusive
	EstEnd   int // inclusive
}

// EstimationLength returns the number of trading days in the estimation window
func (w EventWindow) EstimationLength() int {
	if w.Status != StatusOK {
		return 0
	}
	return w.EstEnd - w.EstStart + 1
}

// OutcomeMetric is the per-event output of the estimators: one CAR per
// configured event-window length plus the volatility triple. Each metric is
// independently nullable with its own status.
type OutcomeMetric struct {
	EventID string
	Org     string

	// Status is the window-level outcome; when it is not OK every metric
	// below is null and shares the same reason
	Status Status

	CAR        map[int]NullFloat // keyed by event-window length
	CARStatus  map[int]Status
	CARMissing map[int]int // missing trading days inside each window

	VolPre    NullFloat
	VolPost   NullFloat
	VolChange NullFloat
	VolStatus Status
}

// Computable reports whether at least one metric on this row is non-null
func (m OutcomeMetric) Computable() bool {
	for _, c := range m.CAR {
		if c.Valid {
			return true
		}
	}
	return m.VolChange.Valid
}
