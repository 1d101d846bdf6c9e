package models

import "time"

// Regime is the discrete liquidity-regime classification.
type Regime string

const (
	RegimeStable           Regime = "STABLE"
	RegimeLocalDisturbance Regime = "LOCAL_DISTURBANCE"
	RegimeTightening       Regime = "TIGHTENING"
	RegimeUnknown          Regime = "UNKNOWN"
)

// Confidence grades how much the judgment should be trusted.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// DimensionCheck is the outcome of one judgment dimension.
type DimensionCheck struct {
	Available bool               `json:"available"`
	Stressed  bool               `json:"stressed"`
	Detail    string             `json:"detail"`
	Values    map[string]float64 `json:"values,omitempty"`
}

// Judgment is the regime classification for one evaluation date. Immutable.
type Judgment struct {
	Date                  time.Time                 `json:"date"`
	Regime                Regime                    `json:"regime"`
	Confidence            Confidence                `json:"confidence"`
	Explanation           string                    `json:"explanation"`
	NetLiquidityWeakening bool                      `json:"net_liquidity_weakening"`
	StressCount           int                       `json:"stress_count"`
	StressDimensions      []string                  `json:"stress_dimensions"`
	RiskAssetConfirming   bool                      `json:"risk_asset_confirming"`
	StaleIndicators       []string                  `json:"stale_indicators"`
	Dimensions            map[string]DimensionCheck `json:"dimensions"`
}
