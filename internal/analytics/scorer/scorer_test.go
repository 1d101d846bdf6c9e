package scorer

import (
	"math"
	"testing"
	"time"

	"MacroPulse/internal/analytics/signals"
	"MacroPulse/internal/domain/models"
	"MacroPulse/pkg/config"
)

func trending(n int, start, step float64) []models.Value {
	out := make([]models.Value, n)
	for i := range out {
		out[i] = models.Some(start + step*float64(i))
	}
	return out
}

func buildPanel(t *testing.T, cols map[string][]models.Value) *models.Panel {
	t.Helper()
	n := 0
	for _, c := range cols {
		n = len(c)
		break
	}
	dates := make([]time.Time, n)
	start := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	p, err := models.NewPanel(dates, cols)
	if err != nil {
		t.Fatalf("build panel: %v", err)
	}
	return p
}

func compute(t *testing.T, cols map[string][]models.Value) *models.CompositeScore {
	t.Helper()
	cfg := config.DefaultAnalytics()
	panel := buildPanel(t, cols)
	table := signals.NewEngine(cfg).Compute(panel)
	return NewEngine(cfg).Compute(panel, table)
}

func TestComputeRisingLiquidityScoresHigh(t *testing.T) {
	n := 80
	cs := compute(t, map[string][]models.Value{
		"net_liquidity": trending(n, 6000, 10), // steadily rising
	})

	if cs.Score <= 60 {
		t.Fatalf("composite = %.1f, want > 60 for rising net liquidity", cs.Score)
	}
	is, ok := cs.Indicators["net_liquidity"]
	if !ok {
		t.Fatal("net_liquidity missing from breakdown")
	}
	if is.Signal != models.ScoreBullish && is.Signal != models.ScoreMildBull {
		t.Fatalf("signal = %s, want bullish for rising net liquidity", is.Signal)
	}
}

func TestComputeDirectionFlip(t *testing.T) {
	n := 80
	// VIX is a higher=bearish indicator: the same rising shape that makes
	// net liquidity bullish must make VIX bearish.
	up := compute(t, map[string][]models.Value{"net_liquidity": trending(n, 6000, 10)})
	down := compute(t, map[string][]models.Value{"vix": trending(n, 12, 0.25)})

	if up.Score <= 50 {
		t.Fatalf("rising net liquidity composite = %.1f, want > 50", up.Score)
	}
	if down.Score >= 50 {
		t.Fatalf("rising vix composite = %.1f, want < 50", down.Score)
	}

	// Symmetric shapes give symmetric scores: every component of the
	// flipped indicator is the exact 100-complement of the unflipped one.
	nl := up.Indicators["net_liquidity"]
	vx := down.Indicators["vix"]
	if math.Abs((nl.Score-50)-(50-vx.Score)) > 1e-6 {
		t.Fatalf("direction flip not symmetric: net_liquidity=%g vix=%g", nl.Score, vx.Score)
	}
}

func TestComputeDirectionsFromConfig(t *testing.T) {
	n := 80
	cols := map[string][]models.Value{"vix": trending(n, 12, 0.25)}
	panel := buildPanel(t, cols)

	cfg := config.DefaultAnalytics()
	table := signals.NewEngine(cfg).Compute(panel)
	base := NewEngine(cfg).Compute(panel, table)

	// Reclassifying vix as higher=looser must flip its score to the other
	// side of 50 for the same rising series.
	cfg.Score.Directions = map[string]int{"vix": 1}
	flipped := NewEngine(cfg).Compute(panel, table)

	bi, fi := base.Indicators["vix"], flipped.Indicators["vix"]
	if bi.Direction != models.HigherTighter {
		t.Fatalf("default vix direction = %d, want higher=tighter", bi.Direction)
	}
	if fi.Direction != models.HigherLooser {
		t.Fatalf("reconfigured vix direction = %d, want higher=looser", fi.Direction)
	}
	if bi.Score >= 50 {
		t.Fatalf("rising vix score = %.1f under default direction, want < 50", bi.Score)
	}
	if fi.Score <= 50 {
		t.Fatalf("rising vix score = %.1f after direction flip, want > 50", fi.Score)
	}
	if math.Abs((bi.Score-50)+(fi.Score-50)) > 1e-6 {
		t.Fatalf("reconfigured scores not symmetric: %g vs %g", bi.Score, fi.Score)
	}
}

func TestComputeBoundsAndTier(t *testing.T) {
	n := 80
	cs := compute(t, map[string][]models.Value{
		"net_liquidity":    trending(n, 6000, 15),
		"vix":              trending(n, 30, -0.2),
		"hy_oas":           trending(n, 4.5, -0.02),
		"sofr":             trending(n, 5.5, -0.01),
		"dxy":              trending(n, 108, -0.1),
		"carry_spread_bps": trending(n, 300, 2),
		"curve_slope_bps":  trending(n, -40, 1),
		"on_rrp":           trending(n, 2000, -10),
	})

	if cs.Score < 0 || cs.Score > 100 {
		t.Fatalf("composite %.1f outside [0,100]", cs.Score)
	}
	if cs.Tier != models.TierFor(cs.Score) {
		t.Fatalf("tier %s inconsistent with score %.1f", cs.Tier, cs.Score)
	}
	for name, is := range cs.Indicators {
		if is.Score < 0 || is.Score > 100 {
			t.Fatalf("%s score %.1f outside [0,100]", name, is.Score)
		}
	}
	// Every series here is easing, so the composite should be firmly bullish.
	if cs.Score < 60 {
		t.Fatalf("composite = %.1f, want >= 60 when all indicators ease", cs.Score)
	}
	if len(cs.BullishFactors) == 0 {
		t.Fatal("expected bullish factors")
	}
	if len(cs.BullishFactors) > 3 || len(cs.BearishFactors) > 3 {
		t.Fatalf("factor lists capped at 3, got %d/%d", len(cs.BullishFactors), len(cs.BearishFactors))
	}
}

func TestComputeThinHistoryRenormalizes(t *testing.T) {
	// Only net_liquidity has enough history; vix is too thin and must be
	// skipped, leaving net_liquidity carrying all the weight.
	cols := map[string][]models.Value{
		"net_liquidity": trending(80, 6000, 10),
		"vix":           make([]models.Value, 80),
	}
	for i := 70; i < 80; i++ {
		cols["vix"][i] = models.Some(15)
	}
	cs := compute(t, cols)

	if _, ok := cs.Indicators["vix"]; ok {
		t.Fatal("vix should be skipped with <30 observations")
	}
	nl, ok := cs.Indicators["net_liquidity"]
	if !ok {
		t.Fatal("net_liquidity missing from breakdown")
	}
	if math.Abs(cs.Score-nl.Score) > 1e-9 {
		t.Fatalf("composite %.2f should equal the only scored indicator %.2f", cs.Score, nl.Score)
	}
}

func TestComputeEmptyPanelNeutral(t *testing.T) {
	cfg := config.DefaultAnalytics()
	panel, err := models.NewPanel(nil, nil)
	if err != nil {
		t.Fatalf("build panel: %v", err)
	}
	cs := NewEngine(cfg).Compute(panel, signals.NewEngine(cfg).Compute(panel))
	if cs.Score != 50 {
		t.Fatalf("composite = %.1f, want neutral 50 with no data", cs.Score)
	}
	if cs.Tier != models.TierNeutral {
		t.Fatalf("tier = %s, want NEUTRAL", cs.Tier)
	}
}

func TestAssetOutlookBetas(t *testing.T) {
	assets := assetOutlooks(80)
	byAsset := map[string]models.AssetOutlook{}
	for _, a := range assets {
		byAsset[a.Asset] = a
	}

	btc, spx, ndx := byAsset["btc"], byAsset["spx"], byAsset["nasdaq"]
	if math.Abs(btc.Score-84.5) > 1e-9 {
		t.Fatalf("btc score = %.1f, want 84.5", btc.Score)
	}
	if math.Abs(spx.Score-77) > 1e-9 {
		t.Fatalf("spx score = %.1f, want 77.0", spx.Score)
	}
	if math.Abs(ndx.Score-81.5) > 1e-9 {
		t.Fatalf("nasdaq score = %.1f, want 81.5", ndx.Score)
	}

	// At a depressed composite BTC's higher beta cuts deeper than SPX.
	low := assetOutlooks(30)
	var lowBTC, lowSPX float64
	for _, a := range low {
		switch a.Asset {
		case "btc":
			lowBTC = a.Score
		case "spx":
			lowSPX = a.Score
		}
	}
	if lowBTC >= lowSPX {
		t.Fatalf("btc (%.1f) should undercut spx (%.1f) in weak liquidity", lowBTC, lowSPX)
	}
}
