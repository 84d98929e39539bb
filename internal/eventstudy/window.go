package eventstudy

import (
	"sort"

	"breachstudy/internal/ingest"
)

// BuildWindow aligns a breach event to the organization's trading calendar.
//
// The disclosure date is rolled forward to the next trading day when it falls
// on a non-trading day. The estimation window is the span of up to
// EstimationDays trading days ending GapDays before the anchor; when fewer
// than MinHistory days are available the event is marked non-computable with
// StatusInsufficientHistory. An organization with no market series at all
// yields StatusNoMarketData.
func BuildWindow(event ingest.BreachEvent, series []ingest.MarketDay, params Params) EventWindow {
	w := EventWindow{EventID: event.EventID, Org: event.Org, Series: series}

	if len(series) == 0 {
		w.Status = StatusNoMarketData
		return w
	}

	// First trading day on or after the disclosure date
	anchor := sort.Search(len(series), func(i int) bool {
		return !series[i].Date.Before(event.DisclosureDate)
	})
	if anchor == len(series) {
		// Disclosure falls after the end of the series; no event window exists
		w.Status = StatusInsufficientHistory
		return w
	}
	w.Anchor = anchor

	estEnd := anchor - params.GapDays - 1
	if estEnd < 0 {
		w.Status = StatusInsufficientHistory
		return w
	}
	estStart := estEnd - params.EstimationDays + 1
	if estStart < 0 {
		estStart = 0
	}
	if estEnd-estStart+1 < params.MinHistory {
		w.Status = StatusInsufficientHistory
		return w
	}

	w.EstStart = estStart
	w.EstEnd = estEnd
	w.Status = StatusOK
	return w
}
