package eventstudy

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	apperrors "breachstudy/internal/errors"
)

// SaveToCSV writes the outcome-metric table as a flat CSV the presentation
// layer can load without re-running the pipeline. Rows are sorted by event ID
// and null metrics are written as empty cells, never as zeros.
func SaveToCSV(metrics []OutcomeMetric, lengths []int, outputPath string) error {
	if len(metrics) == 0 {
		return apperrors.NewStorageError("no outcome metrics to save", nil)
	}

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

	sortedLengths := append([]int(nil), lengths...)
	sort.Ints(sortedLengths)

	header := []string{"event_id", "org", "status"}
	for _, l := range sortedLengths {
		header = append(header,
			fmt.Sprintf("car_%dd", l),
			fmt.Sprintf("car_%dd_status", l),
			fmt.Sprintf("car_%dd_missing", l),
		)
	}
	header = append(header, "vol_pre", "vol_post", "vol_change", "vol_status")
	if err := writer.Write(header); err != nil {
		return apperrors.NewStorageError("write CSV header", err)
	}

	sorted := append([]OutcomeMetric(nil), metrics...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].EventID < sorted[j].EventID })

	for _, m := range sorted {
		record := []string{m.EventID, m.Org, string(m.Status)}
		for _, l := range sortedLengths {
			record = append(record,
				formatNullFloat(m.CAR[l]),
				string(m.CARStatus[l]),
				strconv.Itoa(m.CARMissing[l]),
			)
		}
		record = append(record,
			formatNullFloat(m.VolPre),
			formatNullFloat(m.VolPost),
			formatNullFloat(m.VolChange),
			string(m.VolStatus),
		)
		if err := writer.Write(record); err != nil {
			return apperrors.NewStorageError("write CSV record", err).WithContext("event_id", m.EventID)
		}
	}

	return nil
}

func formatNullFloat(v NullFloat) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Value, 'f', 8, 64)
}
