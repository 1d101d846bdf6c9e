package forward

import (
	"math"
	"sort"

	"MacroPulse/internal/analytics/stats"
	"MacroPulse/internal/domain/models"
	"MacroPulse/pkg/config"
	applogger "MacroPulse/pkg/logger"
)

// forwardAssets and horizons define the analogue forward-return grid.
var (
	forwardAssets = []string{"spx", "btc"}
	horizons      = []int{5, 10, 20}
)

// Analyzer produces the forward-looking readout: per-indicator trend and
// momentum, historical analogue matching with realized forward returns,
// regime transition probabilities, and a blended forward signal.
//
// Analogue matching is strictly causal: candidate dates keep a 25-day
// buffer before the present so their forward windows never overlap it.
type Analyzer struct {
	cfg config.ForwardConfig
	// dirs is the bullish-direction table for forward-tracked indicators,
	// shared with the composite scorer's configured universe.
	dirs map[string]models.Direction
	l    *applogger.Logger
}

func NewAnalyzer(a config.Analytics) *Analyzer {
	dirs := make(map[string]models.Direction, len(a.Score.Directions))
	for name, sign := range a.Score.Directions {
		dirs[name] = models.Direction(sign)
	}
	return &Analyzer{cfg: a.Forward, dirs: dirs}
}

// SetLogger injects a structured logger.
func (a *Analyzer) SetLogger(l *applogger.Logger) { a.l = l }

// Analyze builds the forward outlook for the panel's latest date. The
// composite score feeds both the current-regime bucket and the forward
// signal blend.
func (a *Analyzer) Analyze(panel *models.Panel, score *models.CompositeScore) *models.ForwardOutlook {
	trends := a.computeTrends(panel)
	analogues := a.findAnalogues(panel)
	returnStats := aggregateReturns(analogues)

	current := 50.0
	if score != nil {
		current = score.Score
	}

	out := &models.ForwardOutlook{
		Date:        panel.LastDate(),
		Trends:      trends,
		Analogues:   analogues,
		ReturnStats: returnStats,
		Regime:      a.regimeOutlook(panel, current),
		Signal:      forwardSignal(trends, returnStats, current),
	}

	if a.l != nil {
		a.l.Info("forward analysis complete",
			applogger.Int("analogues", len(analogues)),
			applogger.Float64("forward_score", out.Signal.Score))
	}
	return out
}

// ----------------------------------------------------------------
// Trend and momentum
// ----------------------------------------------------------------

const (
	sidewaysBand = 0.1  // |5d % change| below this is sideways
	steadyBand   = 0.05 // |acceleration| below this is steady
)

func (a *Analyzer) computeTrends(panel *models.Panel) map[string]models.Trend {
	trends := make(map[string]models.Trend)
	for ind, dir := range a.dirs {
		col, ok := panel.Column(ind)
		if !ok {
			continue
		}
		series := compact(col)
		n := len(series)
		if n < 25 {
			continue
		}

		current := series[n-1]
		chg5 := series[n-1] - series[n-6]
		chg10 := series[n-1] - series[n-11]
		chg20 := series[n-1] - series[n-21]

		chg5Pct := chg5 / nonZero(math.Abs(series[n-6])) * 100
		chg20Pct := chg20 / nonZero(math.Abs(series[n-21])) * 100

		velocity := chg5Pct
		prevChg5 := series[n-6] - series[n-11]
		prevVelocity := prevChg5 / nonZero(math.Abs(series[n-11])) * 100
		acceleration := velocity - prevVelocity

		direction := models.TrendSideways
		if math.Abs(chg5Pct) >= sidewaysBand {
			direction = models.TrendRising
			if chg5Pct < 0 {
				direction = models.TrendFalling
			}
		}

		momentum := models.MomentumSteady
		if math.Abs(acceleration) >= steadyBand {
			if (velocity > 0 && acceleration > 0) || (velocity < 0 && acceleration < 0) {
				momentum = models.MomentumAccelerating
			} else {
				momentum = models.MomentumDecelerating
			}
		}

		trends[ind] = models.Trend{
			Current:      current,
			Chg5d:        chg5,
			Chg10d:       chg10,
			Chg20d:       chg20,
			Chg5dPct:     chg5Pct,
			Chg20dPct:    chg20Pct,
			Velocity:     velocity,
			Acceleration: acceleration,
			Direction:    direction,
			Momentum:     momentum,
			Improving:    chg5*dir.Sign() > 0,
		}
	}
	return trends
}

// ----------------------------------------------------------------
// Historical analogue matching
// ----------------------------------------------------------------

// findAnalogues locates past dates whose trailing z-score profile is
// cosine-similar to today's, deduplicated to one per calendar month.
func (a *Analyzer) findAnalogues(panel *models.Panel) []models.Analogue {
	if panel.Len() < a.cfg.TrailingWindow {
		return nil
	}

	inds := a.profileIndicators(panel)
	currentVec := make([]float64, 0, len(inds))
	for _, ind := range inds {
		col, _ := panel.Column(ind)
		z, _ := trailingObsZ(compact(col), a.cfg.TrailingWindow)
		currentVec = append(currentVec, z)
	}
	if len(currentVec) < a.cfg.MinProfileSize {
		return nil
	}

	minWindowObs := a.cfg.TrailingWindow / 2
	var candidates []models.Analogue
	for i := a.cfg.TrailingWindow; i < panel.Len()-a.cfg.ExclusionDays; i++ {
		vec := make([]float64, 0, len(inds))
		valid := true
		for _, ind := range inds {
			col, _ := panel.Column(ind)
			z, ok := rowZ(col, i, a.cfg.TrailingWindow, minWindowObs)
			if !ok {
				valid = false
				break
			}
			vec = append(vec, z)
		}
		if !valid {
			continue
		}

		sim, ok := stats.Cosine(currentVec, vec)
		if !ok || sim < a.cfg.MinSimilarity {
			continue
		}

		candidates = append(candidates, models.Analogue{
			Date:       panel.Date(i),
			Similarity: sim,
			ScoreThen:  meanAbs(vec) * 50,
			Forward:    forwardReturns(panel, i),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity == candidates[j].Similarity {
			return candidates[i].Date.Before(candidates[j].Date)
		}
		return candidates[i].Similarity > candidates[j].Similarity
	})

	// One analogue per calendar month, best similarity wins.
	seen := make(map[string]bool)
	out := make([]models.Analogue, 0, a.cfg.TopAnalogues)
	for _, c := range candidates {
		key := c.Date.Format("2006-01")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
		if len(out) >= a.cfg.TopAnalogues {
			break
		}
	}
	return out
}

// profileIndicators returns the tracked indicators with enough history for
// a full trailing z-score, in stable order.
func (a *Analyzer) profileIndicators(panel *models.Panel) []string {
	var inds []string
	for ind := range a.dirs {
		col, ok := panel.Column(ind)
		if !ok {
			continue
		}
		if len(compact(col)) < a.cfg.TrailingWindow {
			continue
		}
		inds = append(inds, ind)
	}
	sort.Strings(inds)
	return inds
}

// trailingObsZ standardizes the last observation against the trailing
// window of observed values. Flat windows read as zero deviation.
func trailingObsZ(series []float64, window int) (float64, bool) {
	n := len(series)
	if n < window {
		return 0, false
	}
	mean, std := meanStd(series[n-window:])
	if std == 0 {
		return 0, true
	}
	return (series[n-1] - mean) / std, true
}

// rowZ standardizes the panel value at row i against the trailing window of
// rows. A missing value at i standardizes to zero; a window with fewer than
// minObs observations invalidates the row.
func rowZ(col []models.Value, i, window, minObs int) (float64, bool) {
	lo := i - window
	if lo < 0 {
		lo = 0
	}
	buf := make([]float64, 0, window)
	for j := lo; j <= i; j++ {
		if col[j].Valid {
			buf = append(buf, col[j].V)
		}
	}
	if len(buf) < minObs {
		return 0, false
	}
	if !col[i].Valid {
		return 0, true
	}
	mean, std := meanStd(buf)
	if std == 0 {
		return 0, true
	}
	return (col[i].V - mean) / std, true
}

// forwardReturns computes realized percentage returns of the tracked risk
// assets from row i over each horizon, when both endpoints are observed.
func forwardReturns(panel *models.Panel, i int) map[string]map[int]models.Value {
	out := make(map[string]map[int]models.Value, len(forwardAssets))
	for _, asset := range forwardAssets {
		col, ok := panel.Column(asset)
		if !ok {
			continue
		}
		base := col[i]
		rets := make(map[int]models.Value, len(horizons))
		for _, h := range horizons {
			rets[h] = models.None()
			if !base.Valid || base.V <= 0 {
				continue
			}
			if i+h >= panel.Len() || !col[i+h].Valid {
				continue
			}
			rets[h] = models.Some((col[i+h].V/base.V - 1) * 100)
		}
		out[asset] = rets
	}
	return out
}

// aggregateReturns folds analogue forward returns into per-asset,
// per-horizon distribution stats.
func aggregateReturns(analogues []models.Analogue) models.ForwardReturnStats {
	out := models.ForwardReturnStats{
		NAnalogues: len(analogues),
		Assets:     make(map[string]map[int]models.HorizonStats, len(forwardAssets)),
	}
	for _, asset := range forwardAssets {
		byHorizon := make(map[int]models.HorizonStats, len(horizons))
		for _, h := range horizons {
			var vals []float64
			for _, a := range analogues {
				if rets, ok := a.Forward[asset]; ok && rets[h].Valid {
					vals = append(vals, rets[h].V)
				}
			}
			hs := models.HorizonStats{
				Median: models.None(), P25: models.None(), P75: models.None(), WinRate: models.None(),
			}
			if len(vals) > 0 {
				wins := 0
				for _, v := range vals {
					if v > 0 {
						wins++
					}
				}
				hs = models.HorizonStats{
					Median:  models.Some(stats.Median(vals)),
					P25:     models.Some(stats.Quantile(vals, 0.25)),
					P75:     models.Some(stats.Quantile(vals, 0.75)),
					WinRate: models.Some(float64(wins) / float64(len(vals))),
				}
			}
			byHorizon[h] = hs
		}
		out.Assets[asset] = byHorizon
	}
	return out
}

// ----------------------------------------------------------------
// Regime transition probabilities
// ----------------------------------------------------------------

// regimeOutlook estimates 5-day-forward transition probabilities from the
// net-liquidity percentile history. Falls back to a sticky prior when the
// history is too short to count transitions.
func (a *Analyzer) regimeOutlook(panel *models.Panel, composite float64) models.RegimeOutlook {
	current := models.BucketFor(composite)
	prior := models.RegimeOutlook{
		Current: current, StayProb: 0.6, Improve: 0.2, Worsen: 0.2, Empirical: false,
	}

	col, ok := panel.Column("net_liquidity")
	if !ok || panel.Len() < a.cfg.MinTransitionObs {
		return prior
	}
	nl := compact(col)

	var buckets []models.RegimeBucket
	for i := a.cfg.TrailingWindow; i < len(nl); i++ {
		below := 0
		for j := 0; j < i; j++ {
			if nl[j] < nl[i] {
				below++
			}
		}
		pctile := float64(below) / float64(i) * 100
		buckets = append(buckets, models.BucketFor(pctile))
	}
	if len(buckets) < 50 {
		return prior
	}

	counts := make(map[models.RegimeBucket]map[models.RegimeBucket]int)
	for i := 0; i < len(buckets)-5; i++ {
		from, to := buckets[i], buckets[i+5]
		if counts[from] == nil {
			counts[from] = make(map[models.RegimeBucket]int)
		}
		counts[from][to]++
	}

	order := []models.RegimeBucket{models.BucketBear, models.BucketNeutral, models.BucketBull}
	matrix := make(map[models.RegimeBucket]map[models.RegimeBucket]float64, len(counts))
	for from, row := range counts {
		total := 0
		for _, n := range row {
			total += n
		}
		if total == 0 {
			continue
		}
		dist := make(map[models.RegimeBucket]float64, len(order))
		for _, to := range order {
			dist[to] = float64(row[to]) / float64(total)
		}
		matrix[from] = dist
	}

	probs, ok := matrix[current]
	if !ok {
		return prior
	}

	idx := 0
	for i, b := range order {
		if b == current {
			idx = i
		}
	}
	improve, worsen := 0.0, 0.0
	for _, b := range order[idx+1:] {
		improve += probs[b]
	}
	for _, b := range order[:idx] {
		worsen += probs[b]
	}

	return models.RegimeOutlook{
		Current:   current,
		StayProb:  probs[current],
		Improve:   improve,
		Worsen:    worsen,
		Matrix:    matrix,
		Empirical: true,
	}
}

// ----------------------------------------------------------------
// Composite forward signal
// ----------------------------------------------------------------

// forwardSignal blends the current composite score (40%), the share of
// indicators trending bullish (30%), and the analogue precedent (30%).
func forwardSignal(trends map[string]models.Trend, rs models.ForwardReturnStats, composite float64) models.ForwardSignal {
	improving := 0
	for _, t := range trends {
		if t.Improving {
			improving++
		}
	}
	total := len(trends)
	if total == 0 {
		total = 1
	}
	improvingRatio := float64(improving) / float64(total)
	momentumScore := improvingRatio * 100

	histScore := 50.0
	spxMed := rs.Assets["spx"][20].Median
	btcMed := rs.Assets["btc"][20].Median
	switch {
	case spxMed.Valid && btcMed.Valid:
		histScore = stats.Clamp(50+(spxMed.V*5+btcMed.V*3)/2, 0, 100)
	case spxMed.Valid:
		histScore = stats.Clamp(50+spxMed.V*8, 0, 100)
	}

	score := stats.Clamp(composite*0.40+momentumScore*0.30+histScore*0.30, 0, 100)

	return models.ForwardSignal{
		Score:           score,
		Bias:            biasFor(score),
		CurrentScore:    composite,
		MomentumScore:   momentumScore,
		HistoricalScore: histScore,
		ImprovingRatio:  improvingRatio,
		ImprovingCount:  improving,
		TotalIndicators: len(trends),
	}
}

func biasFor(score float64) models.ForwardBias {
	switch {
	case score >= 70:
		return models.BiasBullish
	case score >= 55:
		return models.BiasMildBull
	case score >= 45:
		return models.BiasNeutral
	case score >= 30:
		return models.BiasMildBear
	default:
		return models.BiasBearish
	}
}

// ----------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------

func compact(col []models.Value) []float64 {
	out := make([]float64, 0, len(col))
	for _, v := range col {
		if v.Valid {
			out = append(out, v.V)
		}
	}
	return out
}

func nonZero(x float64) float64 {
	if x == 0 {
		return 1
	}
	return x
}

func meanAbs(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += math.Abs(x)
	}
	return sum / float64(len(xs))
}

func meanStd(xs []float64) (mean, std float64) {
	n := float64(len(xs))
	if n == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= n
	if n < 2 {
		return mean, 0
	}
	varSum := 0.0
	for _, x := range xs {
		d := x - mean
		varSum += d * d
	}
	return mean, math.Sqrt(varSum / (n - 1))
}
