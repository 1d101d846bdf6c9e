package models

import "time"

// SignalLabel is the qualitative per-indicator reading derived from z-scores.
type SignalLabel string

const (
	SignalStress  SignalLabel = "STRESS"
	SignalTight   SignalLabel = "TIGHT"
	SignalNeutral SignalLabel = "NEUTRAL"
	SignalEasing  SignalLabel = "EASING"
)

// Direction classifies how an indicator relates to liquidity conditions.
// The sign is the bullish-direction multiplier for risk assets: +1 means a
// rising value loosens conditions, -1 means a rising value tightens them.
type Direction int8

const (
	HigherLooser  Direction = 1  // net liquidity, carry measures, risk-asset prices
	HigherTighter Direction = -1 // funding rates, spreads, vol, dollar strength
	Unclassified  Direction = 0
)

// Sign returns the bullish-direction multiplier as a float.
func (d Direction) Sign() float64 { return float64(d) }

// IndicatorSignals holds all derived series for one tracked indicator,
// parallel to the panel date index.
type IndicatorSignals struct {
	Level      []Value           `json:"level"`
	Change     map[int][]Value   `json:"change"`     // window (days) -> level diff
	PctChange  map[int][]Value   `json:"pct_change"` // only for price-like series
	ZScore     []Value           `json:"zscore"`
	Percentile []Value           `json:"percentile"`
	Labels     []SignalLabel     `json:"labels"`
}

// LastChange returns the most recent observed change over window w.
func (s *IndicatorSignals) LastChange(w int) Value {
	return lastValid(s.Change[w])
}

// LastPctChange returns the most recent observed percentage change over window w.
func (s *IndicatorSignals) LastPctChange(w int) Value {
	return lastValid(s.PctChange[w])
}

// LastZScore returns the most recent observed rolling z-score.
func (s *IndicatorSignals) LastZScore() Value { return lastValid(s.ZScore) }

// LastPercentile returns the most recent observed rolling percentile rank.
func (s *IndicatorSignals) LastPercentile() Value { return lastValid(s.Percentile) }

func lastValid(vals []Value) Value {
	for i := len(vals) - 1; i >= 0; i-- {
		if vals[i].Valid {
			return vals[i]
		}
	}
	return None()
}

// SignalTable is the full output of the signal engine: one IndicatorSignals
// block per tracked indicator present in the panel. Regenerated on every
// call and never mutated in place.
type SignalTable struct {
	Dates      []time.Time                  `json:"dates"`
	Indicators map[string]*IndicatorSignals `json:"indicators"`
}

// Indicator returns the signal block for name, or nil when absent.
func (t *SignalTable) Indicator(name string) *IndicatorSignals {
	if t == nil {
		return nil
	}
	return t.Indicators[name]
}
