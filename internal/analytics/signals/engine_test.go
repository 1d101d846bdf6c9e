package signals

import (
	"math"
	"testing"
	"time"

	"MacroPulse/internal/domain/models"
	"MacroPulse/pkg/config"
)

func buildPanel(t *testing.T, n int, cols map[string][]models.Value) *models.Panel {
	t.Helper()
	dates := make([]time.Time, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	p, err := models.NewPanel(dates, cols)
	if err != nil {
		t.Fatalf("panel: %v", err)
	}
	return p
}

func flat(n int, v float64) []models.Value {
	out := make([]models.Value, n)
	for i := range out {
		out[i] = models.Some(v)
	}
	return out
}

func spike(n int, base, last float64) []models.Value {
	out := make([]models.Value, n)
	for i := range out {
		// mild noise keeps the rolling window's dispersion non-zero
		out[i] = models.Some(base + 0.1*float64(i%5))
	}
	out[n-1] = models.Some(last)
	return out
}

func TestComputeIdempotent(t *testing.T) {
	e := NewEngine(config.DefaultAnalytics())
	p := buildPanel(t, 100, map[string][]models.Value{
		"net_liquidity": spike(100, 6000, 6200),
		"vix":           flat(100, 15),
	})

	a := e.Compute(p)
	b := e.Compute(p)
	for name, sa := range a.Indicators {
		sb := b.Indicators[name]
		if sb == nil {
			t.Fatalf("%s missing on recompute", name)
		}
		for i := range sa.ZScore {
			if sa.ZScore[i] != sb.ZScore[i] {
				t.Fatalf("%s zscore[%d] differs across runs", name, i)
			}
		}
	}
}

func TestComputeSkipsAbsentColumns(t *testing.T) {
	e := NewEngine(config.DefaultAnalytics())
	p := buildPanel(t, 100, map[string][]models.Value{
		"vix": flat(100, 15),
	})
	table := e.Compute(p)
	if table.Indicator("net_liquidity") != nil {
		t.Fatal("absent column must not appear in the table")
	}
	if table.Indicator("vix") == nil {
		t.Fatal("present column missing from the table")
	}
}

func TestLabelsFollowDirectionClass(t *testing.T) {
	e := NewEngine(config.DefaultAnalytics())
	n := 100
	p := buildPanel(t, n, map[string][]models.Value{
		"vix":           spike(n, 15, 40),   // higher = tighter, big jump
		"net_liquidity": spike(n, 6000, 3000), // higher = looser, big drop
		"spx":           spike(n, 5000, 5600), // higher = looser, big jump
	})
	table := e.Compute(p)

	if got := table.Indicator("vix").Labels[n-1]; got != models.SignalStress {
		t.Fatalf("vix spike label = %s, want STRESS", got)
	}
	if got := table.Indicator("net_liquidity").Labels[n-1]; got != models.SignalStress {
		t.Fatalf("net liquidity collapse label = %s, want STRESS", got)
	}
	if got := table.Indicator("spx").Labels[n-1]; got != models.SignalEasing {
		t.Fatalf("spx rally label = %s, want EASING", got)
	}
}

func TestPctChangeOnlyForPriceLike(t *testing.T) {
	e := NewEngine(config.DefaultAnalytics())
	p := buildPanel(t, 60, map[string][]models.Value{
		"spx":  flat(60, 5000),
		"sofr": flat(60, 5.3),
	})
	table := e.Compute(p)
	if len(table.Indicator("spx").PctChange) == 0 {
		t.Fatal("price-like indicator must carry pct changes")
	}
	if len(table.Indicator("sofr").PctChange) != 0 {
		t.Fatal("rate indicator must not carry pct changes")
	}
}

func TestThinHistoryYieldsMissingCells(t *testing.T) {
	e := NewEngine(config.DefaultAnalytics())
	p := buildPanel(t, 10, map[string][]models.Value{
		"vix": spike(10, 15, 20),
	})
	table := e.Compute(p)
	sig := table.Indicator("vix")
	for i, z := range sig.ZScore {
		if z.Valid {
			t.Fatalf("zscore[%d] = %v, want missing below min observations", i, z.V)
		}
	}
	for i, l := range sig.Labels {
		if l != models.SignalNeutral {
			t.Fatalf("labels[%d] = %s, want NEUTRAL when z is missing", i, l)
		}
	}
}

func TestChangeWindows(t *testing.T) {
	e := NewEngine(config.DefaultAnalytics())
	n := 30
	ramp := make([]models.Value, n)
	for i := range ramp {
		ramp[i] = models.Some(float64(i))
	}
	p := buildPanel(t, n, map[string][]models.Value{"sofr": ramp})
	sig := e.Compute(p).Indicator("sofr")

	for _, w := range []int{1, 5, 20} {
		got := sig.LastChange(w)
		if !got.Valid || math.Abs(got.V-float64(w)) > 1e-12 {
			t.Fatalf("change[%d] = %+v, want %d", w, got, w)
		}
	}
}
