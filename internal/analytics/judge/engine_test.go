package judge

import (
	"strings"
	"testing"
	"time"

	"MacroPulse/internal/analytics/signals"
	"MacroPulse/internal/domain/models"
	"MacroPulse/pkg/config"
)

// ramp builds a series flat at base that moves linearly by delta over the
// final five rows, so the 5-day change at the last row equals delta exactly.
func ramp(n int, base, delta float64) []models.Value {
	out := make([]models.Value, n)
	for i := range out {
		v := base
		if steps := i - (n - 6); steps > 0 {
			v = base + delta*float64(steps)/5
		}
		out[i] = models.Some(v)
	}
	return out
}

func flat(n int, v float64) []models.Value { return ramp(n, v, 0) }

func buildPanel(t *testing.T, cols map[string][]models.Value) *models.Panel {
	t.Helper()
	n := 0
	for _, c := range cols {
		n = len(c)
		break
	}
	dates := make([]time.Time, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	p, err := models.NewPanel(dates, cols)
	if err != nil {
		t.Fatalf("build panel: %v", err)
	}
	return p
}

func evaluate(t *testing.T, cols map[string][]models.Value, quality models.QualityReport) *models.Judgment {
	t.Helper()
	cfg := config.DefaultAnalytics()
	panel := buildPanel(t, cols)
	table := signals.NewEngine(cfg).Compute(panel)
	return NewEngine(cfg).Evaluate(panel, table, quality)
}

func TestEvaluateStable(t *testing.T) {
	n := 40
	j := evaluate(t, map[string][]models.Value{
		"net_liquidity": flat(n, 6800),
		"sofr":          flat(n, 5.31),
		"hy_oas":        flat(n, 3.1),
		"vix":           flat(n, 15),
		"usdjpy":        flat(n, 150),
		"spx":           flat(n, 5000),
	}, nil)

	if j.Regime != models.RegimeStable {
		t.Fatalf("regime = %s, want STABLE", j.Regime)
	}
	if j.Confidence != models.ConfidenceHigh {
		t.Fatalf("confidence = %s, want high", j.Confidence)
	}
	if j.StressCount != 0 {
		t.Fatalf("stress count = %d, want 0", j.StressCount)
	}
}

func TestEvaluateTighteningConfirmed(t *testing.T) {
	n := 40
	j := evaluate(t, map[string][]models.Value{
		"net_liquidity": ramp(n, 6800, -200), // well past the -50B threshold
		"sofr":          ramp(n, 5.31, 0.15), // +15bps
		"hy_oas":        ramp(n, 2.8, 0.60),  // +60bps
		"vix":           flat(n, 15),
		"usdjpy":        flat(n, 150),
		"spx":           ramp(n, 5000, -200), // -4% confirms
	}, nil)

	if j.Regime != models.RegimeTightening {
		t.Fatalf("regime = %s, want TIGHTENING (%s)", j.Regime, j.Explanation)
	}
	if j.Confidence != models.ConfidenceHigh {
		t.Fatalf("confidence = %s, want high", j.Confidence)
	}
	if !j.NetLiquidityWeakening {
		t.Fatal("expected net liquidity weakening flag")
	}
	if j.StressCount < 2 {
		t.Fatalf("stress count = %d, want >= 2", j.StressCount)
	}
	if !j.RiskAssetConfirming {
		t.Fatal("expected risk-asset confirmation")
	}
	if !strings.Contains(j.Explanation, "net liquidity weakening") {
		t.Fatalf("explanation missing weakening clause: %q", j.Explanation)
	}
}

func TestEvaluateTighteningWithoutRiskConfirmation(t *testing.T) {
	n := 40
	j := evaluate(t, map[string][]models.Value{
		"net_liquidity": ramp(n, 6800, -120),
		"sofr":          ramp(n, 5.31, 0.15),
		"hy_oas":        ramp(n, 2.8, 0.40),
		"vix":           flat(n, 15),
		"spx":           flat(n, 5000), // risk assets calm
	}, nil)

	if j.Regime != models.RegimeTightening {
		t.Fatalf("regime = %s, want TIGHTENING (%s)", j.Regime, j.Explanation)
	}
	if j.Confidence != models.ConfidenceMedium {
		t.Fatalf("confidence = %s, want medium after downgrade", j.Confidence)
	}
	if j.RiskAssetConfirming {
		t.Fatal("risk assets should not be confirming")
	}
	if !strings.Contains(j.Explanation, "market confirmation is insufficient") {
		t.Fatalf("explanation missing non-confirmation clause: %q", j.Explanation)
	}
}

func TestEvaluateSingleStressIsLocalDisturbance(t *testing.T) {
	n := 40
	j := evaluate(t, map[string][]models.Value{
		"net_liquidity": flat(n, 6800),
		"sofr":          flat(n, 5.31),
		"hy_oas":        ramp(n, 2.8, 0.40), // only credit stressed
		"vix":           flat(n, 15),
		"spx":           flat(n, 5000),
	}, nil)

	if j.Regime != models.RegimeLocalDisturbance {
		t.Fatalf("regime = %s, want LOCAL_DISTURBANCE (%s)", j.Regime, j.Explanation)
	}
	if !strings.Contains(j.Explanation, "local disturbance") {
		t.Fatalf("explanation missing local-disturbance clause: %q", j.Explanation)
	}
}

func TestEvaluateWeakeningWithoutConfirmations(t *testing.T) {
	n := 40
	j := evaluate(t, map[string][]models.Value{
		"net_liquidity": ramp(n, 6800, -120),
		"sofr":          flat(n, 5.31),
		"hy_oas":        flat(n, 3.1),
		"vix":           flat(n, 15),
		"spx":           flat(n, 5000),
	}, nil)

	if j.Regime != models.RegimeLocalDisturbance {
		t.Fatalf("regime = %s, want LOCAL_DISTURBANCE (%s)", j.Regime, j.Explanation)
	}
	if !strings.Contains(j.Explanation, "confirmation signals are insufficient") {
		t.Fatalf("explanation missing insufficient-confirmation clause: %q", j.Explanation)
	}
}

func TestEvaluateStalenessCapsConfidence(t *testing.T) {
	n := 40
	quality := models.QualityReport{
		"hy_oas": {Status: models.QualityOK, StaleDays: 10},
	}
	j := evaluate(t, map[string][]models.Value{
		"net_liquidity": ramp(n, 6800, -120),
		"sofr":          ramp(n, 5.31, 0.15),
		"hy_oas":        ramp(n, 2.8, 0.40),
		"vix":           flat(n, 15),
		"spx":           ramp(n, 5000, -200),
	}, quality)

	if j.Regime != models.RegimeTightening {
		t.Fatalf("regime = %s, want TIGHTENING (%s)", j.Regime, j.Explanation)
	}
	if j.Confidence != models.ConfidenceMedium {
		t.Fatalf("confidence = %s, want medium with stale data", j.Confidence)
	}
	if len(j.StaleIndicators) != 1 || j.StaleIndicators[0] != "hy_oas" {
		t.Fatalf("stale indicators = %v, want [hy_oas]", j.StaleIndicators)
	}
	if !strings.Contains(j.Explanation, "[caution]") {
		t.Fatalf("explanation missing staleness caution: %q", j.Explanation)
	}
}

func TestEvaluateEmptyPanel(t *testing.T) {
	panel, err := models.NewPanel(nil, nil)
	if err != nil {
		t.Fatalf("build empty panel: %v", err)
	}
	cfg := config.DefaultAnalytics()
	j := NewEngine(cfg).Evaluate(panel, signals.NewEngine(cfg).Compute(panel), nil)
	if j.Regime != models.RegimeUnknown {
		t.Fatalf("regime = %s, want UNKNOWN", j.Regime)
	}
	if j.Confidence != models.ConfidenceNone {
		t.Fatalf("confidence = %s, want none", j.Confidence)
	}
}
