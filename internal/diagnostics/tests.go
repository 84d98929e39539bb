package diagnostics

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TestKind names the two-sample test applied to a covariate
type TestKind string

const (
	// KindWelchT is Welch's unequal-variance t-test for continuous covariates
	KindWelchT TestKind = "welch-t"
	// KindChiSquare is the Pearson chi-square test on a 2x2 contingency
	// table for binary covariates
	KindChiSquare TestKind = "chi-square"
)

// welchT runs Welch's two-sample t-test and returns the statistic, the
// Welch-Satterthwaite degrees of freedom, and the two-sided p-value.
// Degenerate inputs (fewer than two observations per group, or zero variance
// in both groups) yield a zero statistic and p = 1 when the means agree.
func welchT(a, b []float64) (t, df, p float64) {
	if len(a) < 2 || len(b) < 2 {
		return 0, 0, 1
	}

	meanA, varA := stat.MeanVariance(a, nil)
	meanB, varB := stat.MeanVariance(b, nil)
	nA, nB := float64(len(a)), float64(len(b))

	se2 := varA/nA + varB/nB
	if se2 == 0 {
		if meanA == meanB {
			return 0, nA + nB - 2, 1
		}
		return math.Inf(1), nA + nB - 2, 0
	}

	t = (meanA - meanB) / math.Sqrt(se2)
	df = se2 * se2 / (math.Pow(varA/nA, 2)/(nA-1) + math.Pow(varB/nB, 2)/(nB-1))

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * (1 - dist.CDF(math.Abs(t)))
	return t, df, p
}

// chiSquare2x2 runs Pearson's chi-square test on the 2x2 contingency table
//
//	          success  failure
//	group A     a        b
//	group B     c        d
//
// and returns the statistic, one degree of freedom, and the p-value. A table
// with an empty margin carries no information and yields p = 1.
func chiSquare2x2(a, b, c, d float64) (stat, df, p float64) {
	n := a + b + c + d
	rowA, rowB := a+b, c+d
	colS, colF := a+c, b+d
	if rowA == 0 || rowB == 0 || colS == 0 || colF == 0 {
		return 0, 1, 1
	}

	diff := a*d - b*c
	stat = n * diff * diff / (rowA * rowB * colS * colF)

	dist := distuv.ChiSquared{K: 1}
	return stat, 1, 1 - dist.CDF(stat)
}
