package sample

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"breachstudy/internal/eventstudy"
	"breachstudy/internal/ingest"
)

// Builder constructs the per-analysis sample from the raw registry, the
// computed outcome metrics, and the fundamentals snapshots
type Builder struct {
	effectWindow int
	logger       *slog.Logger
}

// NewBuilder creates a sample builder. effectWindow is the CAR window length
// used as the outcome of the returns analysis.
func NewBuilder(effectWindow int, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{effectWindow: effectWindow, logger: logger}
}

// Build joins events, metrics and fundamentals into the sample for one
// analysis and derives its attrition report. Rows are ordered by event ID so
// the output table is deterministic.
func (b *Builder) Build(
	ctx context.Context,
	analysis Analysis,
	events []ingest.BreachEvent,
	metrics map[string]eventstudy.OutcomeMetric,
	data ingest.Reader,
) (*Result, error) {
	records := make([]Record, 0, len(events))
	excluded := make(map[ReasonCode]int)
	includedCount := 0

	for _, event := range events {
		rec := Record{
			Analysis:          analysis,
			EventID:           event.EventID,
			Org:               event.Org,
			Treated:           event.Treated,
			PostRule:          event.PostRule,
			BreachType:        event.BreachType,
			DelayDays:         event.DelayDays,
			LogRecords:        math.Log1p(float64(event.RecordsAffected)),
			PriorBreaches:     event.PriorBreaches,
			HealthData:        event.HealthData,
			ExecTurnover:      event.ExecTurnover,
			EnforcementAction: event.EnforcementAction,
		}

		// Fundamentals are attached even to excluded rows when available,
		// so the bias diagnostics can compare them across groups
		if f, ok := nearestPriorFundamentals(data.FundamentalsFor(event.Org), event.DisclosureDate); ok {
			rec.FirmSize = eventstudy.Float(f.FirmSize)
			rec.Leverage = eventstudy.Float(f.Leverage)
			rec.ROA = eventstudy.Float(f.ROA)
		}

		// Exclusion checks in fixed order; the first failure wins so each
		// excluded row is counted under exactly one reason
		outcome, reason := b.classify(analysis, event, metrics)
		if reason == ReasonNone && !rec.FirmSize.Valid {
			reason = ReasonNoFundamentals
		}

		if reason != ReasonNone {
			rec.Reason = reason
			excluded[reason]++
		} else {
			rec.Included = true
			rec.Outcome = outcome
			includedCount++
		}

		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].EventID < records[j].EventID })
	assignSizeTerciles(records)

	attrition := AttritionReport{
		Analysis: analysis,
		Total:    len(events),
		Included: includedCount,
		Excluded: excluded,
	}
	if err := attrition.Validate(); err != nil {
		return nil, err
	}

	b.logger.InfoContext(ctx, "sample constructed",
		"analysis", string(analysis),
		"total", attrition.Total,
		"included", attrition.Included,
		"excluded", attrition.Total-attrition.Included,
	)

	return &Result{Analysis: analysis, Records: records, Attrition: attrition}, nil
}

// classify applies the outcome-side exclusion checks and returns the analysis
// outcome for rows that pass them
func (b *Builder) classify(
	analysis Analysis,
	event ingest.BreachEvent,
	metrics map[string]eventstudy.OutcomeMetric,
) (eventstudy.NullFloat, ReasonCode) {
	if event.ManualExclusion {
		return eventstudy.Null(), ReasonManualExclusion
	}

	metric, ok := metrics[event.EventID]
	if !ok || metric.Status == eventstudy.StatusNoMarketData {
		return eventstudy.Null(), ReasonNoMarketData
	}

	var outcome eventstudy.NullFloat
	var status eventstudy.Status
	switch analysis {
	case AnalysisVolatility:
		outcome = metric.VolChange
		status = metric.VolStatus
	default:
		outcome = metric.CAR[b.effectWindow]
		status = metric.CARStatus[b.effectWindow]
	}
	if !outcome.Valid || status != eventstudy.StatusOK {
		return eventstudy.Null(), ReasonInsufficientWindow
	}

	return outcome, ReasonNone
}

// nearestPriorFundamentals returns the snapshot with the latest period end on
// or before the given date. Snapshots are sorted ascending by period end, so
// the scan from the back can never pick a future period.
func nearestPriorFundamentals(snaps []ingest.Fundamentals, date time.Time) (ingest.Fundamentals, bool) {
	for i := len(snaps) - 1; i >= 0; i-- {
		if !snaps[i].PeriodEnd.After(date) {
			return snaps[i], true
		}
	}
	return ingest.Fundamentals{}, false
}

// assignSizeTerciles splits the included rows with known firm size into
// thirds by size and stamps tercile 1 (smallest) to 3 (largest). Excluded
// rows and rows without fundamentals keep tercile 0.
func assignSizeTerciles(records []Record) {
	type sized struct {
		index int
		size  float64
	}
	var pool []sized
	for i, rec := range records {
		if rec.Included && rec.FirmSize.Valid {
			pool = append(pool, sized{index: i, size: rec.FirmSize.Value})
		}
	}
	if len(pool) == 0 {
		return
	}

	// Ties broken by event ID via the pre-sorted record order, keeping the
	// assignment reproducible run to run
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].size < pool[j].size })

	n := len(pool)
	for rank, s := range pool {
		tercile := 1 + (rank*3)/n
		if tercile > 3 {
			tercile = 3
		}
		records[s.index].SizeTercile = tercile
	}
}
