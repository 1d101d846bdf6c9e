package models

import "time"

// TrendDirection classifies the 5-day move at a small dead-band.
type TrendDirection string

const (
	TrendRising   TrendDirection = "rising"
	TrendFalling  TrendDirection = "falling"
	TrendSideways TrendDirection = "sideways"
)

// Momentum classifies whether a move is speeding up or slowing down.
type Momentum string

const (
	MomentumSteady       Momentum = "steady"
	MomentumAccelerating Momentum = "accelerating"
	MomentumDecelerating Momentum = "decelerating"
)

// Trend is the per-indicator trend/momentum readout.
type Trend struct {
	Current      float64        `json:"current"`
	Chg5d        float64        `json:"chg_5d"`
	Chg10d       float64        `json:"chg_10d"`
	Chg20d       float64        `json:"chg_20d"`
	Chg5dPct     float64        `json:"chg_5d_pct"`
	Chg20dPct    float64        `json:"chg_20d_pct"`
	Velocity     float64        `json:"velocity"`
	Acceleration float64        `json:"acceleration"`
	Direction    TrendDirection `json:"direction"`
	Momentum     Momentum       `json:"momentum"`
	Improving    bool           `json:"improving"`
}

// Analogue is a historical date whose indicator z-score profile resembles
// the current one, with realized forward returns of the tracked risk assets.
// ScoreThen is a rough similarity-derived proxy (mean |z| scaled), not a
// recomputed historical composite score.
type Analogue struct {
	Date       time.Time                 `json:"date"`
	Similarity float64                   `json:"similarity"`
	ScoreThen  float64                   `json:"score_then"`
	Forward    map[string]map[int]Value  `json:"forward"` // asset -> horizon days -> return %
}

// HorizonStats aggregates analogue forward returns at one horizon.
type HorizonStats struct {
	Median  Value `json:"median"`
	P25     Value `json:"p25"`
	P75     Value `json:"p75"`
	WinRate Value `json:"win_rate"`
}

// ForwardReturnStats is the analogue-derived forward-return distribution.
type ForwardReturnStats struct {
	NAnalogues int                             `json:"n_analogues"`
	Assets     map[string]map[int]HorizonStats `json:"assets"` // asset -> horizon -> stats
}

// RegimeBucket is the coarse liquidity-percentile regime used for
// transition estimation.
type RegimeBucket string

const (
	BucketBear    RegimeBucket = "bear"    // < 35th percentile
	BucketNeutral RegimeBucket = "neutral" // 35-65th
	BucketBull    RegimeBucket = "bull"    // > 65th
)

// BucketFor maps a 0-100 reading into its regime bucket.
func BucketFor(score float64) RegimeBucket {
	switch {
	case score < 35:
		return BucketBear
	case score < 65:
		return BucketNeutral
	default:
		return BucketBull
	}
}

// RegimeOutlook reports empirical 5-day-forward transition probabilities
// for the current regime bucket. Empirical is false when history was too
// short and the flat prior was used instead.
type RegimeOutlook struct {
	Current   RegimeBucket                             `json:"current"`
	StayProb  float64                                  `json:"stay_prob"`
	Improve   float64                                  `json:"improve_prob"`
	Worsen    float64                                  `json:"worsen_prob"`
	Matrix    map[RegimeBucket]map[RegimeBucket]float64 `json:"matrix,omitempty"`
	Empirical bool                                     `json:"empirical"`
}

// ForwardBias is the 5-level forward-looking stance.
type ForwardBias string

const (
	BiasBullish  ForwardBias = "bullish"   // >= 70
	BiasMildBull ForwardBias = "mild_bull" // >= 55
	BiasNeutral  ForwardBias = "neutral"   // >= 45
	BiasMildBear ForwardBias = "mild_bear" // >= 30
	BiasBearish  ForwardBias = "bearish"
)

// ForwardSignal blends current score, trend momentum, and historical
// precedent into one forward-looking score.
type ForwardSignal struct {
	Score           float64     `json:"score"`
	Bias            ForwardBias `json:"bias"`
	CurrentScore    float64     `json:"current_score"`
	MomentumScore   float64     `json:"momentum_score"`
	HistoricalScore float64     `json:"historical_score"`
	ImprovingRatio  float64     `json:"improving_ratio"`
	ImprovingCount  int         `json:"improving_count"`
	TotalIndicators int         `json:"total_indicators"`
}

// ForwardOutlook is the full forward analyzer output.
type ForwardOutlook struct {
	Date        time.Time          `json:"date"`
	Trends      map[string]Trend   `json:"trends"`
	Analogues   []Analogue         `json:"analogues"`
	ReturnStats ForwardReturnStats `json:"return_stats"`
	Regime      RegimeOutlook      `json:"regime"`
	Signal      ForwardSignal      `json:"signal"`
}
