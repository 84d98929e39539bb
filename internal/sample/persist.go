package sample

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	apperrors "breachstudy/internal/errors"
	"breachstudy/internal/eventstudy"
)

// SaveRecordsCSV writes the per-analysis sample table. Rows arrive sorted by
// event ID from the builder and are written as-is.
func SaveRecordsCSV(result *Result, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return apperrors.NewStorageError("create output directory", err)
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return apperrors.NewStorageError("create CSV file", err).WithContext("path", outputPath)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"analysis", "event_id", "org", "included", "reason", "outcome",
		"treated", "post_rule", "breach_type", "delay_days", "log_records",
		"prior_breaches", "health_data", "exec_turnover", "enforcement_action",
		"firm_size", "leverage", "roa", "size_tercile",
	}
	if err := writer.Write(header); err != nil {
		return apperrors.NewStorageError("write CSV header", err)
	}

	for _, rec := range result.Records {
		row := []string{
			string(rec.Analysis),
			rec.EventID,
			rec.Org,
			strconv.FormatBool(rec.Included),
			string(rec.Reason),
			formatNull(rec.Outcome),
			strconv.FormatBool(rec.Treated),
			strconv.FormatBool(rec.PostRule),
			rec.BreachType,
			strconv.Itoa(rec.DelayDays),
			strconv.FormatFloat(rec.LogRecords, 'f', 6, 64),
			strconv.Itoa(rec.PriorBreaches),
			strconv.FormatBool(rec.HealthData),
			strconv.FormatBool(rec.ExecTurnover),
			strconv.FormatBool(rec.EnforcementAction),
			formatNull(rec.FirmSize),
			formatNull(rec.Leverage),
			formatNull(rec.ROA),
			strconv.Itoa(rec.SizeTercile),
		}
		if err := writer.Write(row); err != nil {
			return apperrors.NewStorageError("write CSV record", err).WithContext("event_id", rec.EventID)
		}
	}

	return nil
}

// SaveAttritionCSV writes the attrition table for one or more analyses, one
// row per (analysis, disposition) pair with counts and percentages
func SaveAttritionCSV(reports []AttritionReport, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return apperrors.NewStorageError("create output directory", err)
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return apperrors.NewStorageError("create CSV file", err).WithContext("path", outputPath)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"analysis", "disposition", "count", "pct_of_total"}
	if err := writer.Write(header); err != nil {
		return apperrors.NewStorageError("write CSV header", err)
	}

	for _, report := range reports {
		rows := [][]string{
			{string(report.Analysis), "included", strconv.Itoa(report.Included), formatPct(report.Included, report.Total)},
		}
		for _, reason := range AllReasons {
			count := report.Excluded[reason]
			rows = append(rows, []string{
				string(report.Analysis),
				fmt.Sprintf("excluded:%s", reason),
				strconv.Itoa(count),
				formatPct(count, report.Total),
			})
		}
		for _, row := range rows {
			if err := writer.Write(row); err != nil {
				return apperrors.NewStorageError("write CSV record", err)
			}
		}
	}

	return nil
}

func formatNull(v eventstudy.NullFloat) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Value, 'f', 8, 64)
}

func formatPct(count, total int) string {
	if total == 0 {
		return "0.00"
	}
	return strconv.FormatFloat(100*float64(count)/float64(total), 'f', 2, 64)
}
