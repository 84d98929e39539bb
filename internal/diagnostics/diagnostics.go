package diagnostics

import (
	"context"
	"log/slog"

	"breachstudy/internal/sample"

	"gonum.org/v1/gonum/stat"
)

// Grouping names the two-sample split a comparison was run over
type Grouping string

const (
	// GroupingAttrition compares included against excluded rows
	GroupingAttrition Grouping = "included-vs-excluded"
	// GroupingBalance compares treated against control rows restricted to
	// the pre-rule period
	GroupingBalance Grouping = "treated-vs-control-prerule"
)

// Comparison is one two-sample test result for one covariate. The component
// never decides inclusion or exclusion; it only characterizes the sample the
// builder already produced.
type Comparison struct {
	Analysis  sample.Analysis
	Grouping  Grouping
	Covariate string
	Kind      TestKind

	MeanA float64 // included / treated group
	MeanB float64 // excluded / control group
	NA    int
	NB    int

	Statistic float64
	DF        float64
	PValue    float64
}

// continuousCovariates are extracted per record; the ok flag skips rows
// where the value is unobserved so missing fundamentals never enter a test
// as zeros
var continuousCovariates = []struct {
	name  string
	value func(r sample.Record) (float64, bool)
}{
	{"delay_days", func(r sample.Record) (float64, bool) { return float64(r.DelayDays), true }},
	{"log_records", func(r sample.Record) (float64, bool) { return r.LogRecords, true }},
	{"prior_breaches", func(r sample.Record) (float64, bool) { return float64(r.PriorBreaches), true }},
	{"firm_size", func(r sample.Record) (float64, bool) { return r.FirmSize.Value, r.FirmSize.Valid }},
	{"leverage", func(r sample.Record) (float64, bool) { return r.Leverage.Value, r.Leverage.Valid }},
	{"roa", func(r sample.Record) (float64, bool) { return r.ROA.Value, r.ROA.Valid }},
}

var binaryCovariates = []struct {
	name  string
	value func(r sample.Record) bool
}{
	{"treated", func(r sample.Record) bool { return r.Treated }},
	{"post_rule", func(r sample.Record) bool { return r.PostRule }},
	{"health_data", func(r sample.Record) bool { return r.HealthData }},
	{"exec_turnover", func(r sample.Record) bool { return r.ExecTurnover }},
	{"enforcement_action", func(r sample.Record) bool { return r.EnforcementAction }},
}

// Runner executes the bias diagnostics for one analysis
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a diagnostics runner
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger}
}

// Run produces the full set of comparisons for one analysis: every covariate
// across the attrition split, and every covariate across the pre-rule
// treatment balance split. Output order is fixed by the covariate tables.
func (r *Runner) Run(ctx context.Context, result *sample.Result) []Comparison {
	var included, excluded []sample.Record
	for _, rec := range result.Records {
		if rec.Included {
			included = append(included, rec)
		} else {
			excluded = append(excluded, rec)
		}
	}

	var treatedPre, controlPre []sample.Record
	for _, rec := range included {
		if rec.PostRule {
			continue
		}
		if rec.Treated {
			treatedPre = append(treatedPre, rec)
		} else {
			controlPre = append(controlPre, rec)
		}
	}

	comparisons := make([]Comparison, 0, 2*(len(continuousCovariates)+len(binaryCovariates)))
	comparisons = append(comparisons, compareGroups(result.Analysis, GroupingAttrition, included, excluded)...)
	comparisons = append(comparisons, compareGroups(result.Analysis, GroupingBalance, treatedPre, controlPre)...)

	r.logger.InfoContext(ctx, "bias diagnostics complete",
		"analysis", string(result.Analysis),
		"comparisons", len(comparisons),
		"included", len(included),
		"excluded", len(excluded),
	)

	return comparisons
}

func compareGroups(analysis sample.Analysis, grouping Grouping, groupA, groupB []sample.Record) []Comparison {
	var out []Comparison

	for _, cov := range continuousCovariates {
		valuesA := collect(groupA, cov.value)
		valuesB := collect(groupB, cov.value)
		t, df, p := welchT(valuesA, valuesB)
		out = append(out, Comparison{
			Analysis:  analysis,
			Grouping:  grouping,
			Covariate: cov.name,
			Kind:      KindWelchT,
			MeanA:     meanOrZero(valuesA),
			MeanB:     meanOrZero(valuesB),
			NA:        len(valuesA),
			NB:        len(valuesB),
			Statistic: t,
			DF:        df,
			PValue:    p,
		})
	}

	for _, cov := range binaryCovariates {
		successA, failureA := countBinary(groupA, cov.value)
		successB, failureB := countBinary(groupB, cov.value)
		statistic, df, p := chiSquare2x2(successA, failureA, successB, failureB)
		out = append(out, Comparison{
			Analysis:  analysis,
			Grouping:  grouping,
			Covariate: cov.name,
			Kind:      KindChiSquare,
			MeanA:     proportion(successA, failureA),
			MeanB:     proportion(successB, failureB),
			NA:        int(successA + failureA),
			NB:        int(successB + failureB),
			Statistic: statistic,
			DF:        df,
			PValue:    p,
		})
	}

	return out
}

func collect(records []sample.Record, value func(sample.Record) (float64, bool)) []float64 {
	out := make([]float64, 0, len(records))
	for _, rec := range records {
		if v, ok := value(rec); ok {
			out = append(out, v)
		}
	}
	return out
}

func countBinary(records []sample.Record, value func(sample.Record) bool) (success, failure float64) {
	for _, rec := range records {
		if value(rec) {
			success++
		} else {
			failure++
		}
	}
	return success, failure
}

func meanOrZero(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

func proportion(success, failure float64) float64 {
	if success+failure == 0 {
		return 0
	}
	return success / (success + failure)
}
