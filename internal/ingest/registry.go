package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "breachstudy/internal/errors"
)

// registryColumns is the closed registry schema, in column order.
// Ingestion validates the header exactly so column drift between pipeline
// stages is impossible.
var registryColumns = []string{
	"event_id", "org", "discovery_date", "disclosure_date", "delay_days",
	"treated", "breach_type", "records_affected", "prior_breaches",
	"post_rule", "health_data", "exec_turnover", "enforcement_action",
	"manual_exclusion",
}

// LoadRegistry reads the raw breach registry from a CSV or XLSX file.
// Malformed rows are ingest errors carrying the row number, never silent skips.
func LoadRegistry(path string) ([]BreachEvent, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSXRows(path)
	default:
		rows, err = readCSVRows(path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewIngestError("registry file is empty", nil).WithContext("path", path)
	}

	if err := checkHeader(rows[0], registryColumns); err != nil {
		return nil, apperrors.NewIngestError("registry header mismatch", err).WithContext("path", path)
	}

	events := make([]BreachEvent, 0, len(rows)-1)
	seen := make(map[string]bool, len(rows)-1)
	for i, row := range rows[1:] {
		ev, err := parseRegistryRow(row)
		if err != nil {
			return nil, apperrors.NewIngestError("invalid registry row", err).
				WithContext("path", path).
				WithContext("row", i+2)
		}
		if seen[ev.EventID] {
			return nil, apperrors.NewIngestError("duplicate event_id in registry", nil).
				WithContext("event_id", ev.EventID).
				WithContext("row", i+2)
		}
		seen[ev.EventID] = true
		events = append(events, ev)
	}

	return events, nil
}

func parseRegistryRow(row []string) (BreachEvent, error) {
	if len(row) != len(registryColumns) {
		return BreachEvent{}, fmt.Errorf("expected %d columns, got %d", len(registryColumns), len(row))
	}

	discovery, err := parseDate(row[2])
	if err != nil {
		return BreachEvent{}, fmt.Errorf("discovery_date: %w", err)
	}
	disclosure, err := parseDate(row[3])
	if err != nil {
		return BreachEvent{}, fmt.Errorf("disclosure_date: %w", err)
	}
	delay, err := strconv.Atoi(strings.TrimSpace(row[4]))
	if err != nil {
		return BreachEvent{}, fmt.Errorf("delay_days: %w", err)
	}
	treated, err := parseBool(row[5])
	if err != nil {
		return BreachEvent{}, fmt.Errorf("treated: %w", err)
	}
	records, err := strconv.ParseInt(strings.TrimSpace(row[7]), 10, 64)
	if err != nil {
		return BreachEvent{}, fmt.Errorf("records_affected: %w", err)
	}
	prior, err := strconv.Atoi(strings.TrimSpace(row[8]))
	if err != nil {
		return BreachEvent{}, fmt.Errorf("prior_breaches: %w", err)
	}
	postRule, err := parseBool(row[9])
	if err != nil {
		return BreachEvent{}, fmt.Errorf("post_rule: %w", err)
	}
	healthData, err := parseBool(row[10])
	if err != nil {
		return BreachEvent{}, fmt.Errorf("health_data: %w", err)
	}
	execTurnover, err := parseBool(row[11])
	if err != nil {
		return BreachEvent{}, fmt.Errorf("exec_turnover: %w", err)
	}
	enforcement, err := parseBool(row[12])
	if err != nil {
		return BreachEvent{}, fmt.Errorf("enforcement_action: %w", err)
	}
	manual, err := parseBool(row[13])
	if err != nil {
		return BreachEvent{}, fmt.Errorf("manual_exclusion: %w", err)
	}

	ev := BreachEvent{
		EventID:           strings.TrimSpace(row[0]),
		Org:               strings.TrimSpace(row[1]),
		DiscoveryDate:     discovery,
		DisclosureDate:    disclosure,
		DelayDays:         delay,
		Treated:           treated,
		BreachType:        strings.TrimSpace(row[6]),
		RecordsAffected:   records,
		PriorBreaches:     prior,
		PostRule:          postRule,
		HealthData:        healthData,
		ExecTurnover:      execTurnover,
		EnforcementAction: enforcement,
		ManualExclusion:   manual,
	}
	if !ev.IsValid() {
		return BreachEvent{}, fmt.Errorf("event %q fails row invariants", ev.EventID)
	}
	return ev, nil
}

func readCSVRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewIngestError("open file", err).WithContext("path", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewIngestError("read CSV", err).WithContext("path", path)
	}
	return rows, nil
}

func readXLSXRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewIngestError("open XLSX file", err).WithContext("path", path)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewIngestError("XLSX file has no sheets", nil).WithContext("path", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.NewIngestError("read XLSX rows", err).WithContext("path", path)
	}
	// excelize trims trailing empty cells per row; pad back to the header width
	if len(rows) > 0 {
		width := len(rows[0])
		for i := range rows {
			for len(rows[i]) < width {
				rows[i] = append(rows[i], "")
			}
		}
	}
	return rows, nil
}

func checkHeader(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("expected %d columns, got %d", len(want), len(got))
	}
	for i := range want {
		if strings.TrimSpace(strings.ToLower(got[i])) != want[i] {
			return fmt.Errorf("column %d: expected %q, got %q", i, want[i], got[i])
		}
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(s))
}

func parseBool(s string) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value %q", s)
	}
}
