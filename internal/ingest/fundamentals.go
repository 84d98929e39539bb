package ingest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	apperrors "breachstudy/internal/errors"
)

var fundamentalsColumns = []string{"org", "period_end", "firm_size", "leverage", "roa"}

// LoadFundamentals reads the point-in-time fundamentals snapshots and groups
// them by organization, sorted by fiscal period end
func LoadFundamentals(path string) (map[string][]Fundamentals, error) {
	rows, err := readCSVRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewIngestError("fundamentals file is empty", nil).WithContext("path", path)
	}
	if err := checkHeader(rows[0], fundamentalsColumns); err != nil {
		return nil, apperrors.NewIngestError("fundamentals header mismatch", err).WithContext("path", path)
	}

	snapshots := make(map[string][]Fundamentals)
	for i, row := range rows[1:] {
		f, err := parseFundamentalsRow(row)
		if err != nil {
			return nil, apperrors.NewIngestError("invalid fundamentals row", err).
				WithContext("path", path).
				WithContext("row", i+2)
		}
		snapshots[f.Org] = append(snapshots[f.Org], f)
	}

	for org, snaps := range snapshots {
		sort.Slice(snaps, func(i, j int) bool { return snaps[i].PeriodEnd.Before(snaps[j].PeriodEnd) })
		snapshots[org] = snaps
	}

	return snapshots, nil
}

func parseFundamentalsRow(row []string) (Fundamentals, error) {
	if len(row) != len(fundamentalsColumns) {
		return Fundamentals{}, fmt.Errorf("expected %d columns, got %d", len(fundamentalsColumns), len(row))
	}
	period, err := parseDate(row[1])
	if err != nil {
		return Fundamentals{}, fmt.Errorf("period_end: %w", err)
	}
	size, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		return Fundamentals{}, fmt.Errorf("firm_size: %w", err)
	}
	leverage, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil {
		return Fundamentals{}, fmt.Errorf("leverage: %w", err)
	}
	roa, err := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
	if err != nil {
		return Fundamentals{}, fmt.Errorf("roa: %w", err)
	}
	org := strings.TrimSpace(row[0])
	if org == "" {
		return Fundamentals{}, fmt.Errorf("empty org")
	}
	return Fundamentals{Org: org, PeriodEnd: period, FirmSize: size, Leverage: leverage, ROA: roa}, nil
}
