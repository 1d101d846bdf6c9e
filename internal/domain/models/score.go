package models

import "time"

// Tier maps a 0-100 score band to a qualitative stance.
type Tier string

const (
	TierStrongBull Tier = "STRONG_BULL" // >= 80
	TierBull       Tier = "BULL"        // >= 60
	TierNeutral    Tier = "NEUTRAL"     // >= 40
	TierBear       Tier = "BEAR"        // >= 20
	TierStrongBear Tier = "STRONG_BEAR"
)

// TierFor returns the tier band a composite score falls into.
func TierFor(score float64) Tier {
	switch {
	case score >= 80:
		return TierStrongBull
	case score >= 60:
		return TierBull
	case score >= 40:
		return TierNeutral
	case score >= 20:
		return TierBear
	default:
		return TierStrongBear
	}
}

// ScoreSignal labels a single indicator's contribution.
type ScoreSignal string

const (
	ScoreBullish  ScoreSignal = "BULLISH"   // >= 70
	ScoreMildBull ScoreSignal = "MILD_BULL" // >= 55
	ScoreNeutral  ScoreSignal = "NEUTRAL"   // >= 45
	ScoreMildBear ScoreSignal = "MILD_BEAR" // >= 30
	ScoreBearish  ScoreSignal = "BEARISH"
)

// IndicatorScore is the per-indicator breakdown behind the composite score.
type IndicatorScore struct {
	Score           float64     `json:"score"`
	Signal          ScoreSignal `json:"signal"`
	Current         float64     `json:"current"`
	Percentile      float64     `json:"percentile"`
	Chg5d           float64     `json:"chg_5d"`
	Chg20d          float64     `json:"chg_20d"`
	Direction       Direction   `json:"direction"`
	Weight          float64     `json:"weight"`
	PercentileScore float64     `json:"percentile_score"`
	TrendScore      float64     `json:"trend_score"`
	ZScoreScore     float64     `json:"zscore_score"`
}

// Factor names an indicator pulling the composite in one direction.
type Factor struct {
	Indicator string  `json:"indicator"`
	Score     float64 `json:"score"`
}

// AssetOutlook applies an asset's liquidity beta to the composite score.
type AssetOutlook struct {
	Asset string  `json:"asset"`
	Score float64 `json:"score"`
	Tier  Tier    `json:"tier"`
}

// CompositeScore summarizes liquidity favorability for risk assets on a
// single 0-100 scale, with the full per-indicator breakdown.
type CompositeScore struct {
	Date           time.Time                 `json:"date"`
	Score          float64                   `json:"score"`
	Tier           Tier                      `json:"tier"`
	Indicators     map[string]IndicatorScore `json:"indicators"`
	Assets         []AssetOutlook            `json:"assets"`
	BullishFactors []Factor                  `json:"bullish_factors"`
	BearishFactors []Factor                  `json:"bearish_factors"`
}
