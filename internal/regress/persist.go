package regress

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	apperrors "breachstudy/internal/errors"
)

// SaveToCSV writes the regression results as a flat coefficient table, one
// row per (analysis, specification, term), with the fit statistics repeated
// on every row so the presentation layer can render each table standalone
func SaveToCSV(results []Result, outputPath string) error {
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
		"analysis", "specification", "term",
		"estimate", "std_err", "t_stat", "p_value",
		"n", "r2", "adj_r2",
	}
	if err := writer.Write(header); err != nil {
		return apperrors.NewStorageError("write CSV header", err)
	}

	for _, result := range results {
		for _, c := range result.Coefficients {
			row := []string{
				string(result.Analysis),
				result.SpecName,
				c.Term,
				strconv.FormatFloat(c.Estimate, 'f', 8, 64),
				strconv.FormatFloat(c.StdErr, 'f', 8, 64),
				strconv.FormatFloat(c.TStat, 'f', 6, 64),
				strconv.FormatFloat(c.PValue, 'f', 6, 64),
				strconv.Itoa(result.N),
				strconv.FormatFloat(result.R2, 'f', 6, 64),
				strconv.FormatFloat(result.AdjR2, 'f', 6, 64),
			}
			if err := writer.Write(row); err != nil {
				return apperrors.NewStorageError("write CSV record", err).
					WithContext("specification", result.SpecName)
			}
		}
	}

	return nil
}
