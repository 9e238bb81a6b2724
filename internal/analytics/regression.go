// Package analytics computes the pair-trading statistics: hedge ratio via
// OLS or robust regression, spread z-scores, rolling Pearson correlation and
// the Augmented Dickey-Fuller stationarity test.
package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Regression type selectors accepted by Spread.
const (
	RegressionOLS    = "ols"
	RegressionRobust = "robust"
)

// huberC is the Huber tuning constant (95% efficiency under normal errors).
const huberC = 1.345

// HedgeRatio returns the OLS slope β of base regressed on hedge
// (base = α + β·hedge). Returns 0 on mismatched or short input.
func HedgeRatio(base, hedge []float64) float64 {
	if len(base) != len(hedge) || len(base) < 2 {
		return 0
	}
	_, beta := stat.LinearRegression(hedge, base, nil, false)
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return 0
	}
	return beta
}

// Spread computes the regression spread S(t) = base(t) − β·hedge(t).
// kind selects the slope estimator; anything but "robust" falls back to OLS.
// Returns (nil, 0) on mismatched or short input.
func Spread(base, hedge []float64, kind string) ([]float64, float64) {
	if len(base) != len(hedge) || len(base) < 2 {
		return nil, 0
	}

	var beta float64
	if kind == RegressionRobust {
		_, beta = robustFit(hedge, base)
	} else {
		_, beta = stat.LinearRegression(hedge, base, nil, false)
	}
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return nil, 0
	}

	spread := make([]float64, len(base))
	for i := range base {
		spread[i] = base[i] - beta*hedge[i]
	}
	return spread, beta
}

// robustFit estimates y = α + β·x by iteratively reweighted least squares
// with Huber weights and a MAD scale, so a few outlier prices cannot drag
// the hedge ratio the way they do under plain OLS.
func robustFit(x, y []float64) (alpha, beta float64) {
	alpha, beta = stat.LinearRegression(x, y, nil, false)

	resid := make([]float64, len(x))
	weights := make([]float64, len(x))
	for iter := 0; iter < 50; iter++ {
		for i := range x {
			resid[i] = y[i] - alpha - beta*x[i]
		}
		scale := madScale(resid)
		if scale == 0 {
			return alpha, beta
		}
		for i := range resid {
			u := math.Abs(resid[i] / scale)
			if u <= huberC {
				weights[i] = 1
			} else {
				weights[i] = huberC / u
			}
		}
		a, b := stat.LinearRegression(x, y, weights, false)
		if math.Abs(a-alpha) < 1e-10 && math.Abs(b-beta) < 1e-10 {
			return a, b
		}
		alpha, beta = a, b
	}
	return alpha, beta
}

// madScale is the median absolute residual rescaled to be consistent with
// the standard deviation under normal errors.
func madScale(resid []float64) float64 {
	abs := make([]float64, len(resid))
	for i, r := range resid {
		abs[i] = math.Abs(r)
	}
	sort.Float64s(abs)
	var med float64
	n := len(abs)
	if n%2 == 1 {
		med = abs[n/2]
	} else {
		med = (abs[n/2-1] + abs[n/2]) / 2
	}
	return med / 0.6745
}
