package scorer

import (
	"sort"

	"MacroPulse/internal/analytics/stats"
	"MacroPulse/internal/domain/models"
	"MacroPulse/pkg/config"
	applogger "MacroPulse/pkg/logger"
)

// Component weights inside a single indicator score.
const (
	percentileWeight = 0.40
	trendWeight      = 0.35
	zscoreWeight     = 0.25
)

// Engine computes the 0-100 composite liquidity score: a weighted blend of
// per-indicator scores, each built from full-history percentile position,
// recent trend, and the rolling z-score. Weights renormalize over the
// indicators that have enough history, so a thin panel still scores.
type Engine struct {
	cfg  config.ScoreConfig
	dirs map[string]models.Direction
	l    *applogger.Logger
}

func NewEngine(a config.Analytics) *Engine {
	return &Engine{cfg: a.Score, dirs: scoreDirections(a.Score)}
}

// scoreDirections converts the configured bullish-direction signs into the
// model enum.
func scoreDirections(cfg config.ScoreConfig) map[string]models.Direction {
	dirs := make(map[string]models.Direction, len(cfg.Directions))
	for name, sign := range cfg.Directions {
		dirs[name] = models.Direction(sign)
	}
	return dirs
}

// SetLogger injects a structured logger for skipped-indicator warnings.
func (e *Engine) SetLogger(l *applogger.Logger) { e.l = l }

// Compute scores the panel's latest date.
func (e *Engine) Compute(panel *models.Panel, table *models.SignalTable) *models.CompositeScore {
	scores := make(map[string]models.IndicatorScore, len(e.cfg.Weights))

	weightedSum, totalWeight := 0.0, 0.0
	for indicator, weight := range e.cfg.Weights {
		col, ok := panel.Column(indicator)
		if !ok {
			e.warn("scorer: indicator not in panel, skipping", indicator)
			continue
		}
		series := compact(col)
		if len(series) < e.cfg.MinObs {
			e.warn("scorer: indicator history too thin, skipping", indicator)
			continue
		}

		is := e.scoreIndicator(indicator, series, table)
		is.Weight = weight
		scores[indicator] = is
		weightedSum += is.Score * weight
		totalWeight += weight
	}

	composite := 50.0
	if totalWeight > 0 {
		composite = weightedSum / totalWeight
	}
	composite = stats.Clamp(composite, 0, 100)

	return &models.CompositeScore{
		Date:           panel.LastDate(),
		Score:          composite,
		Tier:           models.TierFor(composite),
		Indicators:     scores,
		Assets:         assetOutlooks(composite),
		BullishFactors: topFactors(scores, true),
		BearishFactors: topFactors(scores, false),
	}
}

// scoreIndicator blends the three components for one indicator. The series
// argument holds the observed values only, in date order.
func (e *Engine) scoreIndicator(name string, series []float64, table *models.SignalTable) models.IndicatorScore {
	dir := e.dirs[name]
	if dir == models.Unclassified {
		dir = models.HigherLooser
	}
	current := series[len(series)-1]

	pctile := percentileRank(series, current)
	pctileScore := pctile
	if dir == models.HigherTighter {
		pctileScore = 100 - pctile
	}

	chg5, trend5 := trendComponent(series, 5)
	chg20, trend20 := trendComponent(series, 20)
	trendScore := trend5*0.6 + trend20*0.4
	if dir == models.HigherTighter {
		trendScore = (100-trend5)*0.6 + (100-trend20)*0.4
	}

	z := 0.0
	if sig := table.Indicator(name); sig != nil {
		z = sig.LastZScore().Or(0)
	} else if zv, ok := trailingZ(series); ok {
		z = zv
	}
	zscoreScore := stats.NormCDF(z) * 100
	if dir == models.HigherTighter {
		zscoreScore = 100 - zscoreScore
	}

	score := stats.Clamp(
		pctileScore*percentileWeight+trendScore*trendWeight+zscoreScore*zscoreWeight,
		0, 100)

	return models.IndicatorScore{
		Score:           score,
		Signal:          signalFor(score),
		Current:         current,
		Percentile:      pctile,
		Chg5d:           chg5,
		Chg20d:          chg20,
		Direction:       dir,
		PercentileScore: pctileScore,
		TrendScore:      trendScore,
		ZScoreScore:     zscoreScore,
	}
}

// trendComponent returns the w-step change of the latest observation and
// its percentile rank among all historical w-step changes (50 when the
// history is too short to rank).
func trendComponent(series []float64, w int) (chg, pctile float64) {
	if len(series) <= w {
		return 0, 50
	}
	n := len(series)
	chg = series[n-1] - series[n-1-w]

	hist := make([]float64, 0, n-w)
	for i := w; i < n; i++ {
		hist = append(hist, series[i]-series[i-w])
	}
	return chg, percentileRank(hist, chg)
}

// percentileRank is the share of xs strictly below x, on a 0-100 scale.
func percentileRank(xs []float64, x float64) float64 {
	if len(xs) == 0 {
		return 50
	}
	below := 0
	for _, v := range xs {
		if v < x {
			below++
		}
	}
	return float64(below) / float64(len(xs)) * 100
}

func trailingZ(series []float64) (float64, bool) {
	vals := make([]models.Value, len(series))
	for i, v := range series {
		vals[i] = models.Some(v)
	}
	return stats.TrailingZScore(vals, len(vals)-1, 60, 20)
}

func signalFor(score float64) models.ScoreSignal {
	switch {
	case score >= 70:
		return models.ScoreBullish
	case score >= 55:
		return models.ScoreMildBull
	case score >= 45:
		return models.ScoreNeutral
	case score >= 30:
		return models.ScoreMildBear
	default:
		return models.ScoreBearish
	}
}

// assetOutlooks applies each asset's liquidity beta to the composite.
// BTC reacts hardest to liquidity shifts, SPX is dampened, Nasdaq sits
// between.
func assetOutlooks(composite float64) []models.AssetOutlook {
	build := func(asset string, score float64) models.AssetOutlook {
		score = stats.Clamp(score, 0, 100)
		return models.AssetOutlook{Asset: asset, Score: score, Tier: models.TierFor(score)}
	}
	return []models.AssetOutlook{
		build("btc", composite*1.15-7.5),
		build("spx", composite*0.9+5),
		build("nasdaq", composite*1.05-2.5),
	}
}

// topFactors lists up to three indicators pulling the composite in one
// direction: bullish means score >= 60, bearish means score <= 40.
func topFactors(scores map[string]models.IndicatorScore, bullish bool) []models.Factor {
	var out []models.Factor
	for name, is := range scores {
		if bullish && is.Score >= 60 {
			out = append(out, models.Factor{Indicator: name, Score: is.Score})
		}
		if !bullish && is.Score <= 40 {
			out = append(out, models.Factor{Indicator: name, Score: is.Score})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].Indicator < out[j].Indicator
		}
		if bullish {
			return out[i].Score > out[j].Score
		}
		return out[i].Score < out[j].Score
	})
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

func (e *Engine) warn(msg, indicator string) {
	if e.l != nil {
		e.l.Warn(msg, applogger.String("indicator", indicator))
	}
}

// compact drops missing cells, keeping observed values in date order.
func compact(col []models.Value) []float64 {
	out := make([]float64, 0, len(col))
	for _, v := range col {
		if v.Valid {
			out = append(out, v.V)
		}
	}
	return out
}
