package sample

import (
	apperrors "breachstudy/internal/errors"
	"breachstudy/internal/eventstudy"
)

// Analysis identifies one of the built-in analyses ("essays"). Each analysis
// derives its own sample and attrition from the same raw registry; a row can
// be included in one analysis and excluded from another independently.
type Analysis string

const (
	// AnalysisReturns studies cumulative abnormal returns
	AnalysisReturns Analysis = "returns"
	// AnalysisVolatility studies the pre/post volatility change
	AnalysisVolatility Analysis = "volatility"
)

// ReasonCode explains why a row was excluded from an analysis. The set is
// closed: every excluded row carries exactly one of these.
type ReasonCode string

const (
	ReasonNone               ReasonCode = ""
	ReasonManualExclusion    ReasonCode = "manual-exclusion"
	ReasonNoMarketData       ReasonCode = "no-market-data"
	ReasonInsufficientWindow ReasonCode = "insufficient-estimation-window"
	ReasonNoFundamentals     ReasonCode = "no-fundamentals"
)

// AllReasons lists the exclusion reasons in their fixed evaluation order.
// The first failing check wins, so a row excluded for several reasons is
// still counted exactly once.
var AllReasons = []ReasonCode{
	ReasonManualExclusion,
	ReasonNoMarketData,
	ReasonInsufficientWindow,
	ReasonNoFundamentals,
}

// Record is the row-level join of a breach event with its outcome metric and
// fundamentals for one analysis. Built once per run; re-derivation replaces
// the whole table, records are never mutated in place.
type Record struct {
	Analysis Analysis
	EventID  string
	Org      string

	Included bool
	Reason   ReasonCode

	// Outcome is the analysis outcome (CAR at the effect window for the
	// returns analysis, volatility change for the volatility analysis);
	// null whenever the row is excluded
	Outcome eventstudy.NullFloat

	// Registry covariates, present for every row
	Treated           bool
	PostRule          bool
	BreachType        string
	DelayDays         int
	LogRecords        float64
	PriorBreaches     int
	HealthData        bool
	ExecTurnover      bool
	EnforcementAction bool

	// Fundamentals covariates, null when the join failed
	FirmSize eventstudy.NullFloat
	Leverage eventstudy.NullFloat
	ROA      eventstudy.NullFloat

	// SizeTercile is 1..3 over the included rows of this analysis,
	// 0 when the row is excluded or firm size is missing
	SizeTercile int
}

// AttritionReport aggregates sample loss for one analysis
type AttritionReport struct {
	Analysis Analysis
	Total    int
	Included int
	Excluded map[ReasonCode]int
}

// Validate enforces the accounting invariant: every raw event is either
// included or excluded under exactly one reason
func (a AttritionReport) Validate() error {
	sum := a.Included
	for _, count := range a.Excluded {
		sum += count
	}
	if sum != a.Total {
		return apperrors.NewValidationError("attrition counts do not sum to raw event count", nil).
			WithContext("analysis", string(a.Analysis)).
			WithContext("total", a.Total).
			WithContext("sum", sum)
	}
	return nil
}

// Result is the complete output of sample construction for one analysis
type Result struct {
	Analysis  Analysis
	Records   []Record
	Attrition AttritionReport
}

// IncludedRecords returns only the rows that survived attrition
func (r *Result) IncludedRecords() []Record {
	included := make([]Record, 0, r.Attrition.Included)
	for _, rec := range r.Records {
		if rec.Included {
			included = append(included, rec)
		}
	}
	return included
}
