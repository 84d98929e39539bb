package mlcheck

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"

	apperrors "breachstudy/internal/errors"
	"breachstudy/internal/sample"
)

// featureNames is the closed feature whitelist for the validation model.
// Nothing here is a deterministic function of the outcome: in particular no
// CAR components, no pre/post volatilities, and nothing dated after the
// event window enters the feature matrix.
var featureNames = []string{
	"treated",
	"post_rule",
	"health_data",
	"exec_turnover",
	"enforcement_action",
	"delay_days",
	"log_records",
	"prior_breaches",
	"firm_size",
	"leverage",
	"roa",
}

func featureValue(name string, r sample.Record) (float64, bool) {
	switch name {
	case "treated":
		return b2f(r.Treated), true
	case "post_rule":
		return b2f(r.PostRule), true
	case "health_data":
		return b2f(r.HealthData), true
	case "exec_turnover":
		return b2f(r.ExecTurnover), true
	case "enforcement_action":
		return b2f(r.EnforcementAction), true
	case "delay_days":
		return float64(r.DelayDays), true
	case "log_records":
		return r.LogRecords, true
	case "prior_breaches":
		return float64(r.PriorBreaches), true
	case "firm_size":
		return r.FirmSize.Value, r.FirmSize.Valid
	case "leverage":
		return r.Leverage.Value, r.Leverage.Valid
	case "roa":
		return r.ROA.Value, r.ROA.Valid
	}
	return 0, false
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// FeatureImportance is one entry of the ranked importance list
type FeatureImportance struct {
	Feature    string
	Importance float64
}

// Result summarizes the fitted validation model. It sits next to the linear
// results as an independent cross-check; disagreement between the two is a
// reportable finding for the caller, not an error.
type Result struct {
	Analysis      sample.Analysis
	OutOfSampleR2 float64
	Importances   []FeatureImportance
	N             int
	Params        ForestParams
}

// Validator runs the tree-ensemble robustness check for one analysis
type Validator struct {
	params ForestParams
	logger *slog.Logger
}

// NewValidator creates a validator with the given hyperparameters
func NewValidator(params ForestParams, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{params: params, logger: logger}
}

// Run trains the seeded random forest on the analysis sample and reports
// K-fold out-of-sample R-squared plus the impurity-based feature ranking.
// The rows used are exactly the included records with a non-null outcome and
// all features observed, mirroring how the regression layer fixes its sample.
func (v *Validator) Run(ctx context.Context, result *sample.Result) (*Result, error) {
	var X [][]float64
	var y []float64
	for _, rec := range result.Records {
		if !rec.Included || !rec.Outcome.Valid {
			continue
		}
		row := make([]float64, len(featureNames))
		observed := true
		for j, name := range featureNames {
			val, ok := featureValue(name, rec)
			if !ok {
				observed = false
				break
			}
			row[j] = val
		}
		if !observed {
			continue
		}
		X = append(X, row)
		y = append(y, rec.Outcome.Value)
	}

	if len(y) < 2*v.params.Folds {
		return nil, apperrors.NewSpecificationError("sample too small for cross-validation", nil).
			WithContext("analysis", string(result.Analysis)).
			WithContext("n", len(y)).
			WithContext("folds", v.params.Folds)
	}

	oosR2 := v.crossValidate(X, y)

	full := fitForest(X, y, len(featureNames), v.params)
	importances := rankImportances(full.importance)

	v.logger.InfoContext(ctx, "ml validation complete",
		"analysis", string(result.Analysis),
		"n", len(y),
		"oos_r2", oosR2,
		"top_feature", importances[0].Feature,
	)

	return &Result{
		Analysis:      result.Analysis,
		OutOfSampleR2: oosR2,
		Importances:   importances,
		N:             len(y),
		Params:        v.params,
	}, nil
}

// crossValidate computes pooled out-of-sample R-squared over K folds with a
// seeded shuffle
func (v *Validator) crossValidate(X [][]float64, y []float64) float64 {
	n := len(y)
	rng := rand.New(rand.NewSource(v.params.Seed))
	order := rng.Perm(n)

	press := 0.0
	for fold := 0; fold < v.params.Folds; fold++ {
		var trainIdx, testIdx []int
		for pos, i := range order {
			if pos%v.params.Folds == fold {
				testIdx = append(testIdx, i)
			} else {
				trainIdx = append(trainIdx, i)
			}
		}

		trainX := make([][]float64, len(trainIdx))
		trainY := make([]float64, len(trainIdx))
		for k, i := range trainIdx {
			trainX[k] = X[i]
			trainY[k] = y[i]
		}

		f := fitForest(trainX, trainY, len(featureNames), v.params)
		for _, i := range testIdx {
			d := y[i] - f.predict(X[i])
			press += d * d
		}
	}

	mean := 0.0
	for _, val := range y {
		mean += val
	}
	mean /= float64(n)
	tss := 0.0
	for _, val := range y {
		d := val - mean
		tss += d * d
	}
	if tss == 0 {
		return 0
	}
	return 1 - press/tss
}

// rankImportances normalizes the raw SSE reductions to sum to one and sorts
// descending, with name order breaking ties deterministically
func rankImportances(raw []float64) []FeatureImportance {
	total := 0.0
	for _, v := range raw {
		total += v
	}

	out := make([]FeatureImportance, len(featureNames))
	for i, name := range featureNames {
		score := 0.0
		if total > 0 {
			score = raw[i] / total
		}
		out[i] = FeatureImportance{Feature: name, Importance: score}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Importance != out[j].Importance {
			return out[i].Importance > out[j].Importance
		}
		return out[i].Feature < out[j].Feature
	})
	return out
}
