package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ZScore returns the z-score of the latest spread value against the rolling
// window mean and sample standard deviation. Returns nil when the series is
// shorter than the window; a flat window (σ = 0) yields 0.
func ZScore(spread []float64, window int) *float64 {
	if window < 2 || len(spread) < window {
		return nil
	}
	recent := spread[len(spread)-window:]
	mean := stat.Mean(recent, nil)
	std := stat.StdDev(recent, nil) // Bessel-corrected
	z := 0.0
	if std != 0 {
		z = (recent[len(recent)-1] - mean) / std
	}
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return nil
	}
	return &z
}

// Correlation returns the Pearson correlation of the last window values of
// both series, or nil when either is shorter than the window.
func Correlation(a, b []float64, window int) *float64 {
	if window < 2 || len(a) < window || len(b) < window {
		return nil
	}
	rho := stat.Correlation(a[len(a)-window:], b[len(b)-window:], nil)
	if math.IsNaN(rho) || math.IsInf(rho, 0) {
		return nil
	}
	return &rho
}

// RollingMean returns the mean of the last window values, or nil when short.
func RollingMean(values []float64, window int) *float64 {
	if window < 1 || len(values) < window {
		return nil
	}
	m := stat.Mean(values[len(values)-window:], nil)
	return &m
}

// RollingStd returns the sample standard deviation of the last window
// values, or nil when short.
func RollingStd(values []float64, window int) *float64 {
	if window < 2 || len(values) < window {
		return nil
	}
	s := stat.StdDev(values[len(values)-window:], nil)
	return &s
}

// PriceChange returns the absolute and percentage change from previous to
// current. A zero previous price yields a 0 percentage.
func PriceChange(current, previous float64) (change, changePct float64) {
	change = current - previous
	if previous != 0 {
		changePct = change / previous * 100
	}
	return change, changePct
}
