package eventstudy

import (
	"context"
	"log/slog"

	"breachstudy/internal/ingest"
)

// Estimator computes per-event outcome metrics: one CAR per configured
// event-window length and the pre/post volatility change
type Estimator struct {
	params Params
	logger *slog.Logger
}

// NewEstimator creates an estimator with the given window parameters
func NewEstimator(params Params, logger *slog.Logger) *Estimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Estimator{params: params, logger: logger}
}

// Compute derives the OutcomeMetric for one breach event. Non-computable
// windows yield fully null metrics tagged with the failure reason; Compute
// never returns an error because per-event conditions are data, not failures.
func (e *Estimator) Compute(ctx context.Context, event ingest.BreachEvent, series []ingest.MarketDay) OutcomeMetric {
	metric := OutcomeMetric{
		EventID:    event.EventID,
		Org:        event.Org,
		CAR:        make(map[int]NullFloat, len(e.params.EventLengths)),
		CARStatus:  make(map[int]Status, len(e.params.EventLengths)),
		CARMissing: make(map[int]int, len(e.params.EventLengths)),
	}

	w := BuildWindow(event, series, e.params)
	metric.Status = w.Status
	if w.Status != StatusOK {
		for _, length := range e.params.EventLengths {
			metric.CAR[length] = Null()
			metric.CARStatus[length] = w.Status
		}
		metric.VolPre, metric.VolPost, metric.VolChange = Null(), Null(), Null()
		metric.VolStatus = w.Status
		e.logger.DebugContext(ctx, "event window not computable",
			"event_id", event.EventID,
			"org", event.Org,
			"reason", string(w.Status),
		)
		return metric
	}

	model := fitBenchmark(w, e.params.Benchmark)
	for _, length := range e.params.EventLengths {
		car, status, missing := computeCAR(w, model, length, e.params.MissingDayTolerance)
		metric.CAR[length] = car
		metric.CARStatus[length] = status
		metric.CARMissing[length] = missing
	}

	metric.VolPre, metric.VolPost, metric.VolChange, metric.VolStatus = computeVolatility(w, e.params)

	return metric
}
