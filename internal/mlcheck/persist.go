package mlcheck

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	apperrors "breachstudy/internal/errors"
)

// SaveToCSV writes the validation summary as a flat table: one summary row
// per analysis followed by its ranked feature importances
func SaveToCSV(results []*Result, outputPath string) error {
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

	header := []string{"analysis", "row_type", "rank", "feature", "importance", "oos_r2", "n", "trees", "max_depth", "folds", "seed"}
	if err := writer.Write(header); err != nil {
		return apperrors.NewStorageError("write CSV header", err)
	}

	for _, r := range results {
		summary := []string{
			string(r.Analysis), "summary", "", "", "",
			strconv.FormatFloat(r.OutOfSampleR2, 'f', 6, 64),
			strconv.Itoa(r.N),
			strconv.Itoa(r.Params.Trees),
			strconv.Itoa(r.Params.MaxDepth),
			strconv.Itoa(r.Params.Folds),
			strconv.FormatInt(r.Params.Seed, 10),
		}
		if err := writer.Write(summary); err != nil {
			return apperrors.NewStorageError("write CSV record", err)
		}

		for rank, imp := range r.Importances {
			row := []string{
				string(r.Analysis), "importance",
				strconv.Itoa(rank + 1),
				imp.Feature,
				strconv.FormatFloat(imp.Importance, 'f', 6, 64),
				"", "", "", "", "", "",
			}
			if err := writer.Write(row); err != nil {
				return apperrors.NewStorageError("write CSV record", err)
			}
		}
	}

	return nil
}
