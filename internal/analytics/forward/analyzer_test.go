package forward

import (
	"math"
	"testing"
	"time"

	"MacroPulse/internal/domain/models"
	"MacroPulse/pkg/config"
)

// cyclical builds a sine wave so historical profiles recur and analogue
// matching has something to find.
func cyclical(n int, base, amp float64, period int, phase float64) []models.Value {
	out := make([]models.Value, n)
	for i := range out {
		out[i] = models.Some(base + amp*math.Sin(2*math.Pi*float64(i)/float64(period)+phase))
	}
	return out
}

func linear(n int, start, step float64) []models.Value {
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
	start := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	p, err := models.NewPanel(dates, cols)
	if err != nil {
		t.Fatalf("build panel: %v", err)
	}
	return p
}

func cyclicalPanel(t *testing.T, n int) *models.Panel {
	t.Helper()
	return buildPanel(t, map[string][]models.Value{
		"net_liquidity": cyclical(n, 6500, 200, 80, 0),
		"vix":           cyclical(n, 18, 6, 80, math.Pi/2),
		"hy_oas":        cyclical(n, 3.2, 0.8, 80, math.Pi),
		"sofr":          cyclical(n, 5.0, 0.3, 80, 3*math.Pi/2),
		"spx":           linear(n, 4000, 2),
		"btc":           linear(n, 40000, 50),
	})
}

func TestAnalyzeFindsCausalAnalogues(t *testing.T) {
	cfg := config.DefaultAnalytics()
	panel := cyclicalPanel(t, 300)
	out := NewAnalyzer(cfg).Analyze(panel, nil)

	if len(out.Analogues) == 0 {
		t.Fatal("expected analogues on a cyclical panel")
	}
	if len(out.Analogues) > cfg.Forward.TopAnalogues {
		t.Fatalf("got %d analogues, cap is %d", len(out.Analogues), cfg.Forward.TopAnalogues)
	}

	latestAllowed := panel.Date(panel.Len() - 1 - cfg.Forward.ExclusionDays)
	months := map[string]bool{}
	for _, a := range out.Analogues {
		if a.Similarity < cfg.Forward.MinSimilarity {
			t.Fatalf("analogue %s similarity %.3f below floor", a.Date.Format("2006-01-02"), a.Similarity)
		}
		if a.Date.After(latestAllowed) {
			t.Fatalf("analogue %s inside the exclusion window", a.Date.Format("2006-01-02"))
		}
		key := a.Date.Format("2006-01")
		if months[key] {
			t.Fatalf("two analogues in month %s", key)
		}
		months[key] = true
	}
}

func TestAnalyzeForwardReturnsPositiveForUptrend(t *testing.T) {
	cfg := config.DefaultAnalytics()
	panel := cyclicalPanel(t, 300)
	out := NewAnalyzer(cfg).Analyze(panel, nil)

	// SPX and BTC trend straight up, so every realized forward return is
	// positive and the win rate is 1.
	for _, asset := range []string{"spx", "btc"} {
		for _, h := range []int{5, 10, 20} {
			hs := out.ReturnStats.Assets[asset][h]
			if !hs.Median.Valid {
				t.Fatalf("%s %dd median missing", asset, h)
			}
			if hs.Median.V <= 0 {
				t.Fatalf("%s %dd median = %.2f, want > 0 in an uptrend", asset, h, hs.Median.V)
			}
			if !hs.WinRate.Valid || hs.WinRate.V != 1 {
				t.Fatalf("%s %dd win rate = %v, want 1", asset, h, hs.WinRate)
			}
			if !hs.P25.Valid || !hs.P75.Valid || hs.P25.V > hs.Median.V || hs.Median.V > hs.P75.V {
				t.Fatalf("%s %dd quantiles out of order: %v <= %v <= %v", asset, h, hs.P25, hs.Median, hs.P75)
			}
		}
	}
}

func TestAnalyzeShortPanelFallsBack(t *testing.T) {
	cfg := config.DefaultAnalytics()
	panel := buildPanel(t, map[string][]models.Value{
		"net_liquidity": linear(30, 6500, 5),
		"vix":           linear(30, 20, -0.1),
	})
	out := NewAnalyzer(cfg).Analyze(panel, nil)

	if len(out.Analogues) != 0 {
		t.Fatalf("got %d analogues from 30 rows, want none", len(out.Analogues))
	}
	r := out.Regime
	if r.Empirical {
		t.Fatal("regime outlook should be the prior on a short panel")
	}
	if r.StayProb != 0.6 || r.Improve != 0.2 || r.Worsen != 0.2 {
		t.Fatalf("prior = %.1f/%.1f/%.1f, want 0.6/0.2/0.2", r.StayProb, r.Improve, r.Worsen)
	}
	if out.Signal.Score < 0 || out.Signal.Score > 100 {
		t.Fatalf("forward score %.1f outside [0,100]", out.Signal.Score)
	}
}

func TestAnalyzeEmpiricalRegimeProbs(t *testing.T) {
	cfg := config.DefaultAnalytics()
	panel := cyclicalPanel(t, 300)
	out := NewAnalyzer(cfg).Analyze(panel, nil)

	r := out.Regime
	if !r.Empirical {
		t.Fatal("expected empirical transition probabilities with 300 rows")
	}
	if r.Current != models.BucketNeutral {
		t.Fatalf("current bucket = %s, want neutral at composite 50", r.Current)
	}
	sum := r.StayProb + r.Improve + r.Worsen
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("probabilities sum to %.4f, want 1", sum)
	}
	for from, row := range r.Matrix {
		rowSum := 0.0
		for _, p := range row {
			rowSum += p
		}
		if math.Abs(rowSum-1) > 1e-9 {
			t.Fatalf("matrix row %s sums to %.4f", from, rowSum)
		}
	}
}

func TestComputeTrendsDirectionAndMomentum(t *testing.T) {
	cfg := config.DefaultAnalytics()
	a := NewAnalyzer(cfg)

	panel := buildPanel(t, map[string][]models.Value{
		"net_liquidity": linear(40, 6000, 10),  // rising, bullish
		"vix":           linear(40, 30, -0.25), // falling, also bullish
		"hy_oas":        linear(40, 3.0, 0.01), // rising, bearish
	})
	trends := a.computeTrends(panel)

	nl := trends["net_liquidity"]
	if nl.Direction != models.TrendRising || !nl.Improving {
		t.Fatalf("net_liquidity = %s improving=%v, want rising and improving", nl.Direction, nl.Improving)
	}
	vx := trends["vix"]
	if vx.Direction != models.TrendFalling || !vx.Improving {
		t.Fatalf("vix = %s improving=%v, want falling and improving", vx.Direction, vx.Improving)
	}
	hy := trends["hy_oas"]
	if hy.Improving {
		t.Fatal("rising hy_oas must not read as improving")
	}
	if nl.Chg5d != 50 {
		t.Fatalf("net_liquidity 5d change = %.1f, want 50", nl.Chg5d)
	}
}

func TestForwardSignalBiasBands(t *testing.T) {
	cases := []struct {
		score float64
		want  models.ForwardBias
	}{
		{75, models.BiasBullish},
		{60, models.BiasMildBull},
		{50, models.BiasNeutral},
		{35, models.BiasMildBear},
		{10, models.BiasBearish},
	}
	for _, c := range cases {
		if got := biasFor(c.score); got != c.want {
			t.Errorf("biasFor(%.0f) = %s, want %s", c.score, got, c.want)
		}
	}
}

func TestForwardSignalBlend(t *testing.T) {
	trends := map[string]models.Trend{
		"a": {Improving: true},
		"b": {Improving: true},
		"c": {Improving: false},
		"d": {Improving: false},
	}
	rs := models.ForwardReturnStats{Assets: map[string]map[int]models.HorizonStats{
		"spx": {20: {Median: models.Some(2.0)}},
		"btc": {20: {Median: models.Some(5.0)}},
	}}

	sig := forwardSignal(trends, rs, 60)
	// 60*0.4 + 50*0.3 + (50+(2*5+5*3)/2)*0.3 = 24 + 15 + 18.75
	if math.Abs(sig.Score-57.75) > 1e-9 {
		t.Fatalf("forward score = %.2f, want 57.75", sig.Score)
	}
	if sig.Bias != models.BiasMildBull {
		t.Fatalf("bias = %s, want mild_bull", sig.Bias)
	}
	if sig.ImprovingRatio != 0.5 || sig.ImprovingCount != 2 {
		t.Fatalf("improving = %d (%.2f), want 2 (0.50)", sig.ImprovingCount, sig.ImprovingRatio)
	}
}
