package ingest

import (
	"time"
)

// BreachEvent is one disclosure incident from the raw breach registry.
// Immutable once ingested; the engine never mutates it after the join.
type BreachEvent struct {
	EventID           string    `json:"event_id"`
	Org               string    `json:"org"`
	DiscoveryDate     time.Time `json:"discovery_date"`
	DisclosureDate    time.Time `json:"disclosure_date"`
	DelayDays         int       `json:"delay_days"`
	Treated           bool      `json:"treated"`
	BreachType        string    `json:"breach_type"`
	RecordsAffected   int64     `json:"records_affected"`
	PriorBreaches     int       `json:"prior_breaches"`
	PostRule          bool      `json:"post_rule"`
	HealthData        bool      `json:"health_data"`
	ExecTurnover      bool      `json:"exec_turnover"`
	EnforcementAction bool      `json:"enforcement_action"`
	ManualExclusion   bool      `json:"manual_exclusion"`
}

// IsValid checks the row-level invariants of a registry record
func (e BreachEvent) IsValid() bool {
	return e.EventID != "" && e.Org != "" &&
		!e.DiscoveryDate.IsZero() && !e.DisclosureDate.IsZero() &&
		!e.DisclosureDate.Before(e.DiscoveryDate) &&
		e.DelayDays >= 0 && e.RecordsAffected >= 0 && e.PriorBreaches >= 0
}

// MarketDay is one daily observation of an organization's security return,
// paired with the broad market index return for the same date
type MarketDay struct {
	Org         string    `json:"org"`
	Date        time.Time `json:"date"`
	Return      float64   `json:"return"`
	IndexReturn float64   `json:"index_return"`
}

// Fundamentals is a point-in-time snapshot of firm financials
type Fundamentals struct {
	Org       string    `json:"org"`
	PeriodEnd time.Time `json:"period_end"`
	FirmSize  float64   `json:"firm_size"` // log total assets
	Leverage  float64   `json:"leverage"`
	ROA       float64   `json:"roa"`
}

// Reader provides read-only access to the raw tables for one pipeline run.
// Implementations load everything up front; the engine holds a Reader for
// the duration of a run and discards it after outputs are written. There is
// no process-wide cache behind this interface.
type Reader interface {
	// Events returns all registry rows in ingestion order
	Events() []BreachEvent
	// MarketSeries returns the org's daily series sorted by date,
	// or nil when the org has no market data at all
	MarketSeries(org string) []MarketDay
	// FundamentalsFor returns the org's snapshots sorted by period end,
	// or nil when the org has no fundamentals
	FundamentalsFor(org string) []Fundamentals
}
