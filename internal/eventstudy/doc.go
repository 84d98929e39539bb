// Package eventstudy implements the per-event core of the breach-disclosure
// event study: trading-calendar alignment, benchmark return models, cumulative
// abnormal returns, and pre/post volatility change.
//
// # Components
//
//   - window.go: aligns a disclosure event to the organization's trading
//     calendar and carves out the estimation window
//   - car.go: benchmark model fit (market model or mean-adjusted) and CAR
//     computation per event-window length
//   - volatility.go: pre/post return standard deviation and their difference
//   - estimator.go: per-event orchestration producing OutcomeMetric rows
//   - persist.go: flat CSV output for the presentation layer
//
// # Failure semantics
//
// Per-event conditions (no market series, short history, too many missing
// event days) are statuses on the OutcomeMetric, not errors: the affected
// metrics are null, the reason is recorded, and the pipeline continues. A
// metric is never silently defaulted to zero.
//
// Every computation is deterministic: identical inputs and parameters yield
// identical outputs, with all output orderings fixed by sorting.
package eventstudy
