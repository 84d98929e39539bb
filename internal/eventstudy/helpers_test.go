package eventstudy

import (
	"encoding/csv"
	"os"
	"testing"
)

func readCSVFile(t *testing.T, path string) ([][]string, error) {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return csv.NewReader(file).ReadAll()
}
