package stats

import (
	"math"
	"sort"

	"MacroPulse/internal/domain/models"
)

// Diff computes vals[t] - vals[t-w]. Cells where either side is missing
// stay missing.
func Diff(vals []models.Value, w int) []models.Value {
	out := make([]models.Value, len(vals))
	for t := w; t < len(vals); t++ {
		cur, prev := vals[t], vals[t-w]
		if cur.Valid && prev.Valid {
			out[t] = models.Some(cur.V - prev.V)
		}
	}
	return out
}

// PctChange computes (vals[t] - vals[t-w]) / vals[t-w]. A zero base yields
// a missing cell rather than Inf.
func PctChange(vals []models.Value, w int) []models.Value {
	out := make([]models.Value, len(vals))
	for t := w; t < len(vals); t++ {
		cur, prev := vals[t], vals[t-w]
		if cur.Valid && prev.Valid && prev.V != 0 {
			out[t] = models.Some(cur.V/prev.V - 1)
		}
	}
	return out
}

// RollingZScore standardizes each cell against the trailing window of rows
// [t-window+1, t]. Cells with fewer than minObs observed values in the
// window, a missing current value, or zero dispersion stay missing.
func RollingZScore(vals []models.Value, window, minObs int) []models.Value {
	out := make([]models.Value, len(vals))
	buf := make([]float64, 0, window)
	for t := range vals {
		if !vals[t].Valid {
			continue
		}
		lo := t - window + 1
		if lo < 0 {
			lo = 0
		}
		buf = buf[:0]
		for i := lo; i <= t; i++ {
			if vals[i].Valid {
				buf = append(buf, vals[i].V)
			}
		}
		if len(buf) < minObs {
			continue
		}
		mean, std := meanStd(buf)
		if std == 0 {
			continue
		}
		out[t] = models.Some((vals[t].V - mean) / std)
	}
	return out
}

// RollingPercentile computes the fraction of observed values in the trailing
// window of rows [t-window+1, t] strictly below the current value. Causal:
// never reads past t.
func RollingPercentile(vals []models.Value, window, minObs int) []models.Value {
	out := make([]models.Value, len(vals))
	for t := range vals {
		if !vals[t].Valid {
			continue
		}
		lo := t - window + 1
		if lo < 0 {
			lo = 0
		}
		n, below := 0, 0
		for i := lo; i <= t; i++ {
			if !vals[i].Valid {
				continue
			}
			n++
			if vals[i].V < vals[t].V {
				below++
			}
		}
		if n < minObs {
			continue
		}
		out[t] = models.Some(float64(below) / float64(n))
	}
	return out
}

// PercentileOf returns the fraction of observed values strictly below x.
func PercentileOf(vals []models.Value, x float64) (float64, bool) {
	n, below := 0, 0
	for _, v := range vals {
		if !v.Valid {
			continue
		}
		n++
		if v.V < x {
			below++
		}
	}
	if n == 0 {
		return 0, false
	}
	return float64(below) / float64(n), true
}

// TrailingZScore standardizes the last observed value of vals[:end+1]
// against the trailing window of rows, mirroring RollingZScore at a single
// point. Returns false when the window is too thin or has zero dispersion.
func TrailingZScore(vals []models.Value, end, window, minObs int) (float64, bool) {
	if end < 0 || end >= len(vals) || !vals[end].Valid {
		return 0, false
	}
	lo := end - window + 1
	if lo < 0 {
		lo = 0
	}
	buf := make([]float64, 0, window)
	for i := lo; i <= end; i++ {
		if vals[i].Valid {
			buf = append(buf, vals[i].V)
		}
	}
	if len(buf) < minObs {
		return 0, false
	}
	mean, std := meanStd(buf)
	if std == 0 {
		return 0, true // flat window: zero deviation by definition
	}
	return (vals[end].V - mean) / std, true
}

// Median returns the median of xs.
func Median(xs []float64) float64 { return Quantile(xs, 0.5) }

// Quantile returns the p-quantile of xs with linear interpolation.
func Quantile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	if len(s) == 1 {
		return s[0]
	}
	pos := p * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return s[lo]
	}
	frac := pos - float64(lo)
	return s[lo]*(1-frac) + s[hi]*frac
}

// NormCDF is the standard normal cumulative distribution function.
func NormCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// meanStd returns mean and sample standard deviation (n-1 denominator).
func meanStd(xs []float64) (float64, float64) {
	n := float64(len(xs))
	if n == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean := sum / n
	if n < 2 {
		return mean, 0
	}
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	variance := ss / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}
