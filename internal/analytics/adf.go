package analytics

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"statarb-engine/internal/model"
)

// MinADFPoints is the shortest series the ADF test accepts.
const MinADFPoints = 12

const errADFInsufficient = "Insufficient data for ADF test (need ≥12 points)"

// MacKinnon (2010) response-surface coefficients for the constant-only
// Dickey-Fuller distribution, one unit root. Critical value at sample size n
// is b0 + b1/n + b2/n² + b3/n³.
var adfCritSurface = map[string][4]float64{
	"1%":  {-3.43035, -6.5393, -16.786, -79.433},
	"5%":  {-2.86154, -2.8903, -4.234, -40.040},
	"10%": {-2.56677, -1.5384, -2.809, 0},
}

// MacKinnon (1994) approximate p-value polynomials for the constant-only
// case, split at tauStar. Outside [tauMin, tauMax] the p-value saturates.
const (
	adfTauStar = -1.61
	adfTauMin  = -18.83
	adfTauMax  = 2.74
)

var (
	adfSmallP = [3]float64{2.1659, 1.4412, 0.038269}
	adfLargeP = [4]float64{1.7339, 0.93202, -0.12745, -0.010368}
)

// ADFTest runs an Augmented Dickey-Fuller test with a constant term and AIC
// lag selection on the spread series. The null hypothesis is a unit root;
// p-value below alpha marks the series stationary (mean-reverting).
func ADFTest(series []float64, alpha float64) model.ADFResult {
	if len(series) < MinADFPoints {
		return model.ADFResult{
			PValue:         1,
			CriticalValues: map[string]float64{},
			Err:            errADFInsufficient,
		}
	}

	tstat, nobs, err := adfStatistic(series)
	if err != nil {
		return model.ADFResult{
			PValue:         1,
			CriticalValues: map[string]float64{},
			Err:            err.Error(),
		}
	}

	p := mackinnonPValue(tstat)
	stationary := p < alpha
	interp := "Spread is NON-STATIONARY (trending)"
	if stationary {
		interp = "Spread is STATIONARY (mean-reverting)"
	}
	return model.ADFResult{
		Statistic:      tstat,
		PValue:         p,
		Stationary:     stationary,
		CriticalValues: mackinnonCrit(nobs),
		Interpretation: interp,
	}
}

// adfStatistic computes the Dickey-Fuller t-statistic. Lag order is chosen
// by minimizing the AIC over a common sample (Schwert's rule bounds the
// search), then the test regression is refit on the longest sample the
// chosen lag allows.
func adfStatistic(y []float64) (tstat float64, nobs int, err error) {
	diff := make([]float64, len(y)-1)
	for i := range diff {
		diff[i] = y[i+1] - y[i]
	}
	nd := len(diff)

	maxLag := int(math.Ceil(12 * math.Pow(float64(nd)/100, 0.25)))
	if limit := nd/2 - 2; maxLag > limit {
		maxLag = limit
	}
	if maxLag < 0 {
		return 0, 0, errors.New("series too short for lag selection")
	}

	bestLag, bestAIC := 0, math.Inf(1)
	for k := 0; k <= maxLag; k++ {
		fit, ok := dickeyFullerFit(y, diff, k, maxLag)
		if !ok {
			continue
		}
		aic := float64(fit.n)*math.Log(fit.ssr/float64(fit.n)) + 2*float64(fit.p)
		if aic < bestAIC {
			bestAIC, bestLag = aic, k
		}
	}
	if math.IsInf(bestAIC, 1) {
		return 0, 0, errors.New("singular test regression")
	}

	fit, ok := dickeyFullerFit(y, diff, bestLag, bestLag)
	if !ok {
		return 0, 0, errors.New("singular test regression")
	}
	return fit.tstat, fit.n, nil
}

type dfFit struct {
	tstat float64
	ssr   float64
	n, p  int
}

// dickeyFullerFit regresses Δy_t on [y_{t−1}, Δy_{t−1..t−k}, 1] over
// t = startLag..end and returns the t-statistic of the level coefficient.
// startLag ≥ k lets the autolag search hold the sample fixed across lags.
func dickeyFullerFit(y, diff []float64, k, startLag int) (dfFit, bool) {
	nd := len(diff)
	n := nd - startLag
	p := k + 2
	if n <= p {
		return dfFit{}, false
	}

	design := mat.NewDense(n, p, nil)
	rhs := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		t := startLag + i
		design.Set(i, 0, y[t]) // level term y_{t-1}
		for j := 1; j <= k; j++ {
			design.Set(i, j, diff[t-j])
		}
		design.Set(i, p-1, 1)
		rhs.SetVec(i, diff[t])
	}

	var xtx mat.Dense
	xtx.Mul(design.T(), design)
	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return dfFit{}, false
	}
	var xty, beta, fitted mat.VecDense
	xty.MulVec(design.T(), rhs)
	beta.MulVec(&inv, &xty)
	fitted.MulVec(design, &beta)

	ssr := 0.0
	for i := 0; i < n; i++ {
		r := rhs.AtVec(i) - fitted.AtVec(i)
		ssr += r * r
	}
	sigma2 := ssr / float64(n-p)
	se := math.Sqrt(sigma2 * inv.At(0, 0))
	if se == 0 || math.IsNaN(se) {
		return dfFit{}, false
	}
	return dfFit{tstat: beta.AtVec(0) / se, ssr: ssr, n: n, p: p}, true
}

func mackinnonCrit(nobs int) map[string]float64 {
	n := float64(nobs)
	out := make(map[string]float64, len(adfCritSurface))
	for level, b := range adfCritSurface {
		out[level] = b[0] + b[1]/n + b[2]/(n*n) + b[3]/(n*n*n)
	}
	return out
}

func mackinnonPValue(tstat float64) float64 {
	switch {
	case tstat > adfTauMax:
		return 1
	case tstat < adfTauMin:
		return 0
	}
	var v float64
	if tstat <= adfTauStar {
		v = adfSmallP[0] + adfSmallP[1]*tstat + adfSmallP[2]*tstat*tstat
	} else {
		v = adfLargeP[0] + adfLargeP[1]*tstat + adfLargeP[2]*tstat*tstat +
			adfLargeP[3]*tstat*tstat*tstat
	}
	return 0.5 * math.Erfc(-v/math.Sqrt2)
}
