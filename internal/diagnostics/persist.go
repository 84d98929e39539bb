package diagnostics

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	apperrors "breachstudy/internal/errors"
)

// SaveToCSV writes the comparison table, one row per (analysis, grouping,
// covariate) in the order the runner produced them
func SaveToCSV(comparisons []Comparison, outputPath string) error {
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
		"analysis", "grouping", "covariate", "test",
		"mean_a", "mean_b", "n_a", "n_b",
		"statistic", "df", "p_value",
	}
	if err := writer.Write(header); err != nil {
		return apperrors.NewStorageError("write CSV header", err)
	}

	for _, c := range comparisons {
		row := []string{
			string(c.Analysis),
			string(c.Grouping),
			c.Covariate,
			string(c.Kind),
			strconv.FormatFloat(c.MeanA, 'f', 6, 64),
			strconv.FormatFloat(c.MeanB, 'f', 6, 64),
			strconv.Itoa(c.NA),
			strconv.Itoa(c.NB),
			strconv.FormatFloat(c.Statistic, 'f', 6, 64),
			strconv.FormatFloat(c.DF, 'f', 2, 64),
			strconv.FormatFloat(c.PValue, 'f', 6, 64),
		}
		if err := writer.Write(row); err != nil {
			return apperrors.NewStorageError("write CSV record", err).WithContext("covariate", c.Covariate)
		}
	}

	return nil
}
