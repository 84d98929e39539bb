package mlcheck

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "breachstudy/internal/errors"
	"breachstudy/internal/eventstudy"
	"breachstudy/internal/sample"
)

func testParams() ForestParams {
	return ForestParams{Trees: 50, MaxDepth: 5, MinLeaf: 3, Folds: 5, Seed: 42}
}

// signalRecords builds a sample whose outcome depends strongly on firm size
// and treatment, with deterministic pseudo-noise
func signalRecords(n int) []sample.Record {
	records := make([]sample.Record, n)
	for i := 0; i < n; i++ {
		treated := i%2 == 1
		size := 6.0 + 0.05*float64(i%40)
		noise := 0.002 * float64((i*17)%9-4)
		outcome := 0.1*size + 0.3*b2f(treated) + noise
		records[i] = sample.Record{
			Analysis:      sample.AnalysisReturns,
			EventID:       fmt.Sprintf("EV%04d", i),
			Included:      true,
			Treated:       treated,
			Outcome:       eventstudy.Float(outcome),
			DelayDays:     10 + (i*7)%60,
			LogRecords:    8 + 0.2*float64((i*3)%13),
			PriorBreaches: i % 5,
			FirmSize:      eventstudy.Float(size),
			Leverage:      eventstudy.Float(0.3 + 0.01*float64((i*11)%9)),
			ROA:           eventstudy.Float(0.02 + 0.004*float64((i*5)%7)),
		}
	}
	return records
}

func resultFrom(records []sample.Record) *sample.Result {
	return &sample.Result{
		Analysis: sample.AnalysisReturns,
		Records:  records,
		Attrition: sample.AttritionReport{
			Analysis: sample.AnalysisReturns,
			Total:    len(records),
			Included: len(records),
			Excluded: map[sample.ReasonCode]int{},
		},
	}
}

func TestRunRecoversSignal(t *testing.T) {
	result := resultFrom(signalRecords(300))

	fitted, err := NewValidator(testParams(), nil).Run(context.Background(), result)
	require.NoError(t, err)

	assert.Equal(t, 300, fitted.N)
	// strong signal, small noise: out-of-sample fit must be clearly positive
	assert.Greater(t, fitted.OutOfSampleR2, 0.5)

	// the two signal features dominate the importance ranking
	top := map[string]bool{}
	for _, imp := range fitted.Importances[:3] {
		top[imp.Feature] = true
	}
	assert.True(t, top["firm_size"], "firm_size should rank in the top three, got %v", fitted.Importances[:3])
	assert.True(t, top["treated"], "treated should rank in the top three, got %v", fitted.Importances[:3])
}

func TestRunDeterminism(t *testing.T) {
	result := resultFrom(signalRecords(150))
	validator := NewValidator(testParams(), nil)

	first, err := validator.Run(context.Background(), result)
	require.NoError(t, err)
	second, err := validator.Run(context.Background(), result)
	require.NoError(t, err)

	assert.Equal(t, first.OutOfSampleR2, second.OutOfSampleR2)
	assert.Equal(t, first.Importances, second.Importances)
}

func TestSeedChangesResult(t *testing.T) {
	result := resultFrom(signalRecords(150))
	ctx := context.Background()

	params := testParams()
	first, err := NewValidator(params, nil).Run(ctx, result)
	require.NoError(t, err)

	params.Seed = 99
	second, err := NewValidator(params, nil).Run(ctx, result)
	require.NoError(t, err)

	assert.NotEqual(t, first.OutOfSampleR2, second.OutOfSampleR2)
}

func TestRunSkipsIncompleteRows(t *testing.T) {
	records := signalRecords(120)
	for i := 0; i < 10; i++ {
		records[i*3].FirmSize = eventstudy.Null()
	}
	result := resultFrom(records)

	fitted, err := NewValidator(testParams(), nil).Run(context.Background(), result)
	require.NoError(t, err)
	assert.Equal(t, 110, fitted.N)
}

func TestRunTooSmallSample(t *testing.T) {
	result := resultFrom(signalRecords(6))
	_, err := NewValidator(testParams(), nil).Run(context.Background(), result)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSpecification))
}

func TestImportancesSumToOne(t *testing.T) {
	result := resultFrom(signalRecords(200))
	fitted, err := NewValidator(testParams(), nil).Run(context.Background(), result)
	require.NoError(t, err)

	sum := 0.0
	for _, imp := range fitted.Importances {
		sum += imp.Importance
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestSaveToCSV(t *testing.T) {
	result := resultFrom(signalRecords(100))
	fitted, err := NewValidator(testParams(), nil).Run(context.Background(), result)
	require.NoError(t, err)

	path := t.TempDir() + "/ml_validation.csv"
	require.NoError(t, SaveToCSV([]*Result{fitted}, path))
}
