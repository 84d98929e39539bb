package ingest

import (
	"context"
	"log/slog"
)

// Tables holds all raw inputs for one pipeline run and implements Reader.
// Load it once at the start of a run and discard it after outputs are
// written; nothing in the engine caches loaded data beyond this value.
type Tables struct {
	events       []BreachEvent
	market       map[string][]MarketDay
	fundamentals map[string][]Fundamentals
}

// Sources names the three raw input files
type Sources struct {
	RegistryFile     string
	MarketFile       string
	FundamentalsFile string
}

// Load reads all three raw tables
func Load(ctx context.Context, src Sources, logger *slog.Logger) (*Tables, error) {
	if logger == nil {
		logger = slog.Default()
	}

	events, err := LoadRegistry(src.RegistryFile)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "loaded breach registry",
		"path", src.RegistryFile,
		"events", len(events),
	)

	market, err := LoadMarket(src.MarketFile)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "loaded market series",
		"path", src.MarketFile,
		"organizations", len(market),
	)

	fundamentals, err := LoadFundamentals(src.FundamentalsFile)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "loaded fundamentals",
		"path", src.FundamentalsFile,
		"organizations", len(fundamentals),
	)

	return &Tables{events: events, market: market, fundamentals: fundamentals}, nil
}

// NewTables builds a Reader directly from in-memory slices, used by tests
// and by callers that assemble fixtures programmatically
func NewTables(events []BreachEvent, market map[string][]MarketDay, fundamentals map[string][]Fundamentals) *Tables {
	return &Tables{events: events, market: market, fundamentals: fundamentals}
}

// Events returns all registry rows in ingestion order
func (t *Tables) Events() []BreachEvent {
	return t.events
}

// MarketSeries returns the org's daily series sorted by date
func (t *Tables) MarketSeries(org string) []MarketDay {
	return t.market[org]
}

// FundamentalsFor returns the org's snapshots sorted by period end
func (t *Tables) FundamentalsFor(org string) []Fundamentals {
	return t.fundamentals[org]
}
