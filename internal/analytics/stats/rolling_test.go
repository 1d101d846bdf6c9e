package stats

import (
	"math"
	"testing"

	"MacroPulse/internal/domain/models"
)

func somes(xs ...float64) []models.Value {
	out := make([]models.Value, len(xs))
	for i, x := range xs {
		out[i] = models.Some(x)
	}
	return out
}

func TestDiffSkipsMissingCells(t *testing.T) {
	vals := []models.Value{models.Some(1), models.None(), models.Some(3), models.Some(4)}
	d := Diff(vals, 1)
	if d[1].Valid || d[2].Valid {
		t.Fatalf("cells adjacent to a gap must stay missing: %+v", d)
	}
	if !d[3].Valid || d[3].V != 1 {
		t.Fatalf("d[3] = %+v, want 1", d[3])
	}
}

func TestPctChangeZeroBase(t *testing.T) {
	vals := somes(0, 5, 10)
	p := PctChange(vals, 1)
	if p[1].Valid {
		t.Fatalf("zero base must yield a missing cell, got %+v", p[1])
	}
	if !p[2].Valid || p[2].V != 1 {
		t.Fatalf("p[2] = %+v, want 1", p[2])
	}
}

func TestRollingZScoreCausal(t *testing.T) {
	// A large jump at the end must not affect earlier cells.
	vals := somes(1, 2, 3, 4, 5, 6, 7, 8, 9, 100)
	z := RollingZScore(vals, 10, 5)
	zTrunc := RollingZScore(vals[:9], 10, 5)
	for i := 0; i < 9; i++ {
		if z[i].Valid != zTrunc[i].Valid || (z[i].Valid && z[i].V != zTrunc[i].V) {
			t.Fatalf("z[%d] changed when future data was added: %+v vs %+v", i, z[i], zTrunc[i])
		}
	}
	if !z[9].Valid || z[9].V <= 2 {
		t.Fatalf("outlier z = %+v, want > 2", z[9])
	}
}

func TestRollingZScoreThinWindow(t *testing.T) {
	z := RollingZScore(somes(1, 2, 3), 10, 5)
	for i, v := range z {
		if v.Valid {
			t.Fatalf("z[%d] = %+v, want missing below minObs", i, v)
		}
	}
}

func TestRollingZScoreFlatWindow(t *testing.T) {
	z := RollingZScore(somes(5, 5, 5, 5, 5, 5), 6, 3)
	for i, v := range z {
		if v.Valid {
			t.Fatalf("z[%d] = %+v, want missing on zero dispersion", i, v)
		}
	}
}

func TestRollingPercentileStrictlyBelow(t *testing.T) {
	vals := somes(1, 2, 3, 4, 5)
	p := RollingPercentile(vals, 5, 1)
	// At t=4, four of five observations sit strictly below 5.
	if !p[4].Valid || math.Abs(p[4].V-0.8) > 1e-12 {
		t.Fatalf("p[4] = %+v, want 0.8", p[4])
	}
	// Ties are not counted as below.
	tied := RollingPercentile(somes(3, 3, 3), 3, 1)
	if !tied[2].Valid || tied[2].V != 0 {
		t.Fatalf("tied p[2] = %+v, want 0", tied[2])
	}
}

func TestTrailingZScore(t *testing.T) {
	vals := somes(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	z, ok := TrailingZScore(vals, len(vals)-1, 10, 5)
	if !ok || z <= 0 {
		t.Fatalf("z = %v ok = %v, want positive for a rising series", z, ok)
	}
	if _, ok := TrailingZScore(vals, 2, 10, 5); ok {
		t.Fatal("want !ok below minObs")
	}
	flat, ok := TrailingZScore(somes(4, 4, 4, 4, 4), 4, 5, 3)
	if !ok || flat != 0 {
		t.Fatalf("flat window z = %v ok = %v, want 0 true", flat, ok)
	}
}

func TestQuantileInterpolation(t *testing.T) {
	xs := []float64{1, 2, 3, 4}
	if m := Median(xs); m != 2.5 {
		t.Fatalf("median = %v, want 2.5", m)
	}
	if q := Quantile(xs, 0.25); math.Abs(q-1.75) > 1e-12 {
		t.Fatalf("q25 = %v, want 1.75", q)
	}
	if q := Quantile(nil, 0.5); q != 0 {
		t.Fatalf("empty quantile = %v, want 0", q)
	}
}

func TestNormCDF(t *testing.T) {
	if c := NormCDF(0); math.Abs(c-0.5) > 1e-12 {
		t.Fatalf("cdf(0) = %v, want 0.5", c)
	}
	if c := NormCDF(3); c < 0.99 {
		t.Fatalf("cdf(3) = %v, want > 0.99", c)
	}
	if c := NormCDF(-3); c > 0.01 {
		t.Fatalf("cdf(-3) = %v, want < 0.01", c)
	}
}

func TestCosine(t *testing.T) {
	a := []float64{1, 2, 3}
	if sim, ok := Cosine(a, a); !ok || math.Abs(sim-1) > 1e-12 {
		t.Fatalf("self similarity = %v ok = %v, want 1", sim, ok)
	}
	if sim, ok := Cosine(a, []float64{-1, -2, -3}); !ok || math.Abs(sim+1) > 1e-12 {
		t.Fatalf("opposite similarity = %v ok = %v, want -1", sim, ok)
	}
	if _, ok := Cosine(a, []float64{0, 0, 0}); ok {
		t.Fatal("zero-norm vector must report !ok")
	}
	if _, ok := Cosine(a, []float64{1, 2}); ok {
		t.Fatal("length mismatch must report !ok")
	}
}
