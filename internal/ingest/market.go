package ingest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	apperrors "breachstudy/internal/errors"
)

var marketColumns = []string{"org", "date", "return", "index_return"}

// LoadMarket reads the daily market-return series and groups it by
// organization, sorted by date. A duplicate (org, date) pair is a hard
// ingest error: the trading calendar must be unambiguous.
func LoadMarket(path string) (map[string][]MarketDay, error) {
	rows, err := readCSVRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewIngestError("market file is empty", nil).WithContext("path", path)
	}
	if err := checkHeader(rows[0], marketColumns); err != nil {
		return nil, apperrors.NewIngestError("market header mismatch", err).WithContext("path", path)
	}

	series := make(map[string][]MarketDay)
	for i, row := range rows[1:] {
		day, err := parseMarketRow(row)
		if err != nil {
			return nil, apperrors.NewIngestError("invalid market row", err).
				WithContext("path", path).
				WithContext("row", i+2)
		}
		series[day.Org] = append(series[day.Org], day)
	}

	for org, days := range series {
		sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
		for i := 1; i < len(days); i++ {
			if days[i].Date.Equal(days[i-1].Date) {
				return nil, apperrors.NewIngestError("duplicate trading date for organization", nil).
					WithContext("org", org).
					WithContext("date", days[i].Date.Format("2006-01-02"))
			}
		}
		series[org] = days
	}

	return series, nil
}

func parseMarketRow(row []string) (MarketDay, error) {
	if len(row) != len(marketColumns) {
		return MarketDay{}, fmt.Errorf("expected %d columns, got %d", len(marketColumns), len(row))
	}
	date, err := parseDate(row[1])
	if err != nil {
		return MarketDay{}, fmt.Errorf("date: %w", err)
	}
	ret, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		return MarketDay{}, fmt.Errorf("return: %w", err)
	}
	idx, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil {
		return MarketDay{}, fmt.Errorf("index_return: %w", err)
	}
	org := strings.TrimSpace(row[0])
	if org == "" {
		return MarketDay{}, fmt.Errorf("empty org")
	}
	return MarketDay{Org: org, Date: date, Return: ret, IndexReturn: idx}, nil
}
