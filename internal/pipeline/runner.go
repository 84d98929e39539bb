package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"breachstudy/internal/config"
	"breachstudy/internal/diagnostics"
	"breachstudy/internal/eventstudy"
	"breachstudy/internal/ingest"
	"breachstudy/internal/mlcheck"
	"breachstudy/internal/regress"
	"breachstudy/internal/sample"
)

// analyses is the fixed set of built-in analyses, in output order
var analyses = []sample.Analysis{sample.AnalysisReturns, sample.AnalysisVolatility}

// Runner executes the full pipeline: ingest, per-event metrics, per-analysis
// sample construction, bias diagnostics, the regression ladder, and the ML
// validation layer, persisting one flat table per derived entity.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a pipeline runner
func New(cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Run executes one full pipeline pass. Per-event data conditions degrade to
// null metrics and attrition rows; specification-level failures are collected
// and returned after every analysis has run, so one bad specification never
// blocks the rest of the output tables.
func (r *Runner) Run(ctx context.Context) error {
	start := time.Now()
	runID := uuid.NewString()
	logger := r.logger.With("run_id", runID)

	logger.InfoContext(ctx, "pipeline starting",
		"output_dir", r.cfg.Paths.OutputDir,
		"benchmark", r.cfg.Model.Benchmark,
	)

	data, err := ingest.Load(ctx, ingest.Sources{
		RegistryFile:     r.cfg.Paths.RegistryFile,
		MarketFile:       r.cfg.Paths.MarketFile,
		FundamentalsFile: r.cfg.Paths.FundamentalsFile,
	}, logger)
	if err != nil {
		return err
	}

	metrics, err := r.computeMetrics(ctx, data, logger)
	if err != nil {
		return err
	}

	outDir := r.cfg.Paths.OutputDir
	if err := eventstudy.SaveToCSV(metrics, r.cfg.SortedEventLengths(), filepath.Join(outDir, "outcome_metrics.csv")); err != nil {
		return err
	}

	metricsByID := make(map[string]eventstudy.OutcomeMetric, len(metrics))
	for _, m := range metrics {
		metricsByID[m.EventID] = m
	}

	specs, err := regress.BuildLadder(r.cfg.Analysis.Controls, r.cfg.Analysis.Moderators)
	if err != nil {
		return err
	}

	builder := sample.NewBuilder(r.cfg.Model.EffectWindow, logger)
	fitter := regress.NewFitter(logger)
	diagRunner := diagnostics.NewRunner(logger)
	validator := mlcheck.NewValidator(mlcheck.ForestParams{
		Trees:    r.cfg.ML.Trees,
		MaxDepth: r.cfg.ML.MaxDepth,
		MinLeaf:  r.cfg.ML.MinLeaf,
		Folds:    r.cfg.ML.Folds,
		Seed:     r.cfg.ML.Seed,
	}, logger)

	var attritionReports []sample.AttritionReport
	var allComparisons []diagnostics.Comparison
	var allRegressions []regress.Result
	var mlResults []*mlcheck.Result
	var analysisFailures []error

	for _, analysis := range analyses {
		sampleResult, err := builder.Build(ctx, analysis, data.Events(), metricsByID, data)
		if err != nil {
			return err
		}
		attritionReports = append(attritionReports, sampleResult.Attrition)

		name := "sample_" + string(analysis) + ".csv"
		if err := sample.SaveRecordsCSV(sampleResult, filepath.Join(outDir, name)); err != nil {
			return err
		}

		allComparisons = append(allComparisons, diagRunner.Run(ctx, sampleResult)...)

		regResults, err := fitter.FitAll(ctx, sampleResult, specs)
		if err != nil {
			analysisFailures = append(analysisFailures, err)
		}
		allRegressions = append(allRegressions, regResults...)

		mlResult, err := validator.Run(ctx, sampleResult)
		if err != nil {
			logger.WarnContext(ctx, "ml validation failed",
				"analysis", string(analysis),
				"error", err,
			)
			analysisFailures = append(analysisFailures, err)
		} else {
			mlResults = append(mlResults, mlResult)
		}
	}

	if err := sample.SaveAttritionCSV(attritionReports, filepath.Join(outDir, "attrition.csv")); err != nil {
		return err
	}
	if err := diagnostics.SaveToCSV(allComparisons, filepath.Join(outDir, "bias_diagnostics.csv")); err != nil {
		return err
	}
	if err := regress.SaveToCSV(allRegressions, filepath.Join(outDir, "regression_results.csv")); err != nil {
		return err
	}
	if len(mlResults) > 0 {
		if err := mlcheck.SaveToCSV(mlResults, filepath.Join(outDir, "ml_validation.csv")); err != nil {
			return err
		}
	}

	logger.InfoContext(ctx, "pipeline complete",
		"duration", time.Since(start),
		"events", len(data.Events()),
		"specifications", len(allRegressions),
		"failures", len(analysisFailures),
	)

	return errors.Join(analysisFailures...)
}

// computeMetrics fans the per-event window and metric computations out over
// a bounded worker group. Events are independent and workers write to
// disjoint slice slots, so the result is identical to a sequential pass.
func (r *Runner) computeMetrics(ctx context.Context, data ingest.Reader, logger *slog.Logger) ([]eventstudy.OutcomeMetric, error) {
	params := eventstudy.Params{
		EstimationDays:      r.cfg.Windows.EstimationDays,
		GapDays:             r.cfg.Windows.GapDays,
		EventLengths:        r.cfg.SortedEventLengths(),
		MinHistory:          r.cfg.Windows.MinHistory,
		MissingDayTolerance: r.cfg.Windows.MissingDayTolerance,
		VolPreDays:          r.cfg.Windows.VolPreDays,
		VolPostDays:         r.cfg.Windows.VolPostDays,
		Benchmark:           r.cfg.Model.Benchmark,
	}
	estimator := eventstudy.NewEstimator(params, logger)

	events := data.Events()
	metrics := make([]eventstudy.OutcomeMetric, len(events))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, event := range events {
		i, event := i, event
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			metrics[i] = estimator.Compute(gctx, event, data.MarketSeries(event.Org))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	computable := 0
	for _, m := range metrics {
		if m.Computable() {
			computable++
		}
	}
	logger.InfoContext(ctx, "per-event metrics computed",
		"events", len(events),
		"computable", computable,
	)

	return metrics, nil
}
