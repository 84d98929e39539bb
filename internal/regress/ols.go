package regress

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	apperrors "breachstudy/internal/errors"
	"breachstudy/internal/sample"
)

// Coefficient is one fitted term of a regression result
type Coefficient struct {
	Term     string
	Estimate float64
	StdErr   float64
	TStat    float64
	PValue   float64
}

// Result is one fitted specification. Immutable once fit; refitting produces
// a new Result.
type Result struct {
	Analysis     sample.Analysis
	SpecName     string
	Coefficients []Coefficient
	N            int
	R2           float64
	AdjR2        float64
}

// Treatment returns the coefficient on the treatment indicator
func (r Result) Treatment() Coefficient {
	for _, c := range r.Coefficients {
		if c.Term == "treated" {
			return c
		}
	}
	return Coefficient{}
}

// designValue resolves a term name against a record. Interaction terms are
// products of the treatment indicator and the moderator value.
func designValue(term string, rec sample.Record) (float64, bool) {
	if name, ok := strings.CutPrefix(term, "treated_x_"); ok {
		v, observed := covariateAccessors[name](rec)
		return boolToFloat(rec.Treated) * v, observed
	}
	if term == "treated" {
		return boolToFloat(rec.Treated), true
	}
	v, observed := covariateAccessors[term](rec)
	return v, observed
}

// fitOLS fits outcome ~ intercept + terms by ordinary least squares with
// classical standard errors. The rows are exactly those the caller supplies:
// the fitter never re-filters the sample.
func fitOLS(analysis sample.Analysis, spec Spec, rows []sample.Record) (Result, error) {
	terms := spec.terms()
	k := len(terms) + 1 // intercept
	n := len(rows)

	if n <= k {
		return Result{}, apperrors.NewSpecificationError("sample too small for specification", nil).
			WithContext("specification", spec.Name).
			WithContext("n", n).
			WithContext("parameters", k)
	}

	X := mat.NewDense(n, k, nil)
	y := mat.NewVecDense(n, nil)
	for i, rec := range rows {
		X.Set(i, 0, 1)
		for j, term := range terms {
			v, observed := designValue(term, rec)
			if !observed {
				return Result{}, apperrors.NewSpecificationError("unobserved covariate in fixed sample", nil).
					WithContext("specification", spec.Name).
					WithContext("column", term).
					WithContext("event_id", rec.EventID)
			}
			X.Set(i, j+1, v)
		}
		y.SetVec(i, rec.Outcome.Value)
	}

	// A constant non-intercept column can never be identified; name it
	// instead of letting the factorization fail anonymously
	for j, term := range terms {
		if constantColumn(X, j+1) {
			return Result{}, apperrors.NewSpecificationError("design matrix column is constant", nil).
				WithContext("specification", spec.Name).
				WithContext("column", term)
		}
	}

	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	sym := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			sym.SetSym(i, j, xtx.At(i, j))
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return Result{}, apperrors.NewSpecificationError("singular design matrix", nil).
			WithContext("specification", spec.Name).
			WithContext("columns", strings.Join(terms, ","))
	}

	var xty mat.VecDense
	xty.MulVec(X.T(), y)
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &xty); err != nil {
		return Result{}, apperrors.NewSpecificationError("failed to solve normal equations", err).
			WithContext("specification", spec.Name)
	}

	var fitted mat.VecDense
	fitted.MulVec(X, &beta)

	rss := 0.0
	meanY := 0.0
	for i := 0; i < n; i++ {
		meanY += y.AtVec(i)
	}
	meanY /= float64(n)
	tss := 0.0
	for i := 0; i < n; i++ {
		r := y.AtVec(i) - fitted.AtVec(i)
		rss += r * r
		d := y.AtVec(i) - meanY
		tss += d * d
	}

	df := float64(n - k)
	sigma2 := rss / df
	var xtxInv mat.SymDense
	if err := chol.InverseTo(&xtxInv); err != nil {
		return Result{}, apperrors.NewSpecificationError("failed to invert design matrix", err).
			WithContext("specification", spec.Name)
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	names := append([]string{"intercept"}, terms...)
	coefficients := make([]Coefficient, k)
	for j := 0; j < k; j++ {
		estimate := beta.AtVec(j)
		se := math.Sqrt(sigma2 * xtxInv.At(j, j))
		t := 0.0
		p := 1.0
		if se > 0 {
			t = estimate / se
			p = 2 * (1 - tDist.CDF(math.Abs(t)))
		}
		coefficients[j] = Coefficient{Term: names[j], Estimate: estimate, StdErr: se, TStat: t, PValue: p}
	}

	r2 := 0.0
	if tss > 0 {
		r2 = 1 - rss/tss
	}
	adjR2 := 1 - (1-r2)*float64(n-1)/df

	return Result{
		Analysis:     analysis,
		SpecName:     spec.Name,
		Coefficients: coefficients,
		N:            n,
		R2:           r2,
		AdjR2:        adjR2,
	}, nil
}

func constantColumn(X *mat.Dense, col int) bool {
	n, _ := X.Dims()
	first := X.At(0, col)
	for i := 1; i < n; i++ {
		if X.At(i, col) != first {
			return false
		}
	}
	return true
}
