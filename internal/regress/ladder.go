package regress

import (
	"context"
	"errors"
	"log/slog"

	"breachstudy/internal/sample"
)

// Fitter runs an ordered specification ladder against one analysis sample
type Fitter struct {
	logger *slog.Logger
}

// NewFitter creates a regression fitter
func NewFitter(logger *slog.Logger) *Fitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fitter{logger: logger}
}

// FitAll fits every specification on a sample fixed once up front: included
// rows with a non-null outcome and every covariate any specification in the
// ladder needs. Adding a covariate to a later specification therefore never
// changes the sample size; only the design matrix grows.
//
// A specification that cannot be fit is skipped and reported; the remaining
// specifications still run. The returned error joins the per-specification
// failures and is nil when everything fit.
func (f *Fitter) FitAll(ctx context.Context, result *sample.Result, specs []Spec) ([]Result, error) {
	rows := fixedSample(result, specs)

	f.logger.InfoContext(ctx, "fitting specification ladder",
		"analysis", string(result.Analysis),
		"specifications", len(specs),
		"n", len(rows),
	)

	var results []Result
	var failures []error
	for _, spec := range specs {
		fitted, err := fitOLS(result.Analysis, spec, rows)
		if err != nil {
			f.logger.WarnContext(ctx, "specification failed",
				"analysis", string(result.Analysis),
				"specification", spec.Name,
				"error", err,
			)
			failures = append(failures, err)
			continue
		}
		treatment := fitted.Treatment()
		f.logger.InfoContext(ctx, "specification fit",
			"analysis", string(result.Analysis),
			"specification", spec.Name,
			"treatment_coef", treatment.Estimate,
			"treatment_p", treatment.PValue,
			"r2", fitted.R2,
		)
		results = append(results, fitted)
	}

	return results, errors.Join(failures...)
}

// fixedSample selects the rows every specification in the ladder will see
func fixedSample(result *sample.Result, specs []Spec) []sample.Record {
	needed := map[string]bool{}
	for _, spec := range specs {
		for _, term := range spec.terms() {
			needed[term] = true
		}
	}

	var rows []sample.Record
	for _, rec := range result.Records {
		if !rec.Included || !rec.Outcome.Valid {
			continue
		}
		observed := true
		for term := range needed {
			if _, ok := designValue(term, rec); !ok {
				observed = false
				break
			}
		}
		if observed {
			rows = append(rows, rec)
		}
	}
	return rows
}
