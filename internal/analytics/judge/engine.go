package judge

import (
	"fmt"
	"sort"
	"strings"

	"MacroPulse/internal/domain/models"
	"MacroPulse/pkg/config"
)

// Dimension keys as they appear in Judgment.Dimensions.
const (
	DimNetLiquidity = "net_liquidity"
	DimFunding      = "funding"
	DimRateVol      = "rate_vol"
	DimCarryChain   = "carry_chain"
	DimCredit       = "credit"
	DimRiskAssets   = "risk_assets"
)

// confirmationDims are the dimensions that can corroborate a net-liquidity
// drain. Risk assets are a separate confirmation channel, not counted here.
var confirmationDims = []string{DimFunding, DimRateVol, DimCarryChain, DimCredit}

// Engine classifies the liquidity regime from the panel and signal table.
//
// Rules, in priority order:
//  1. TIGHTENING needs net liquidity weakening AND at least MinConfirmations
//     stressed confirmation dimensions.
//  2. Any single stressed dimension (or net-liquidity weakening alone) is a
//     LOCAL_DISTURBANCE, never TIGHTENING.
//  3. When risk assets have not confirmed, the explanation must say the
//     leading signal lacks market confirmation.
//  4. Stale or missing data caps confidence at medium and is listed in the
//     explanation.
type Engine struct {
	cfg config.JudgmentConfig
}

func NewEngine(a config.Analytics) *Engine {
	return &Engine{cfg: a.Judgment}
}

// Evaluate produces the judgment for the panel's latest date.
func (e *Engine) Evaluate(panel *models.Panel, table *models.SignalTable, quality models.QualityReport) *models.Judgment {
	if panel.Len() == 0 {
		return &models.Judgment{
			Regime:           models.RegimeUnknown,
			Confidence:       models.ConfidenceNone,
			Explanation:      "no data available",
			StressDimensions: []string{},
			StaleIndicators:  []string{},
			Dimensions:       map[string]models.DimensionCheck{},
		}
	}

	stale := quality.Stale(e.cfg.StaleDaysLimit)
	sort.Strings(stale)

	checks := map[string]models.DimensionCheck{
		DimNetLiquidity: e.checkNetLiquidity(panel, table),
		DimFunding:      e.checkFunding(panel, table),
		DimRateVol:      e.checkRateVol(panel, table),
		DimCarryChain:   e.checkCarryChain(panel, table),
		DimCredit:       e.checkCredit(panel, table),
		DimRiskAssets:   e.checkRiskAssets(panel, table),
	}

	return e.applyRules(panel, checks, stale)
}

// ----------------------------------------------------------------
// Individual dimension checks
// ----------------------------------------------------------------

func (e *Engine) checkNetLiquidity(panel *models.Panel, table *models.SignalTable) models.DimensionCheck {
	out := models.DimensionCheck{Detail: "data missing"}
	if !panel.Has("net_liquidity") {
		return out
	}
	out.Available = true

	latest, _ := panel.LastValid("net_liquidity")
	if !latest.Valid {
		out.Detail = "no observations"
		return out
	}

	sig := table.Indicator("net_liquidity")
	chg5, chg20 := 0.0, 0.0
	if sig != nil {
		chg5 = sig.LastChange(5).Or(0)
		chg20 = sig.LastChange(20).Or(0)
	}

	out.Stressed = chg5 < e.cfg.NetLiqWeakThreshold5d
	out.Detail = fmt.Sprintf("level %.1fB, 5d %+.1fB, 20d %+.1fB", latest.V, chg5, chg20)
	out.Values = map[string]float64{"level": latest.V, "chg_5d": chg5, "chg_20d": chg20}
	return out
}

func (e *Engine) checkFunding(panel *models.Panel, table *models.SignalTable) models.DimensionCheck {
	out := models.DimensionCheck{Detail: "data missing"}
	if !panel.Has("sofr") {
		return out
	}
	out.Available = true

	latest, _ := panel.LastValid("sofr")
	if !latest.Valid {
		out.Detail = "no observations"
		return out
	}

	sig := table.Indicator("sofr")
	var chg5 models.Value
	if sig != nil {
		chg5 = sig.LastChange(5)
	}

	threshold := e.cfg.SOFRStressThresholdBps5d / 100 // bps -> percentage points
	out.Stressed = chg5.Valid && chg5.V > threshold
	if chg5.Valid {
		out.Detail = fmt.Sprintf("SOFR %.4f%%, 5d %+.1fbps", latest.V, chg5.V*100)
		out.Values = map[string]float64{"level": latest.V, "chg_5d_bps": chg5.V * 100}
	} else {
		out.Detail = fmt.Sprintf("SOFR %.4f%%, 5d change unavailable", latest.V)
		out.Values = map[string]float64{"level": latest.V}
	}
	return out
}

func (e *Engine) checkRateVol(panel *models.Panel, table *models.SignalTable) models.DimensionCheck {
	out := models.DimensionCheck{Detail: "data missing"}

	col := "move_proxy"
	if !panel.Has(col) {
		col = "vix"
	}
	if !panel.Has(col) {
		return out
	}
	out.Available = true

	latest, _ := panel.LastValid(col)
	if !latest.Valid {
		out.Detail = "no observations"
		return out
	}

	sig := table.Indicator(col)
	var z models.Value
	if sig != nil {
		z = sig.LastZScore()
	}

	out.Stressed = latest.V > e.cfg.VolStressThreshold || (z.Valid && z.V > 1.0)
	if z.Valid {
		out.Detail = fmt.Sprintf("%s %.1f, z-score %.2f", col, latest.V, z.V)
		out.Values = map[string]float64{"level": latest.V, "zscore": z.V}
	} else {
		out.Detail = fmt.Sprintf("%s %.1f", col, latest.V)
		out.Values = map[string]float64{"level": latest.V}
	}
	return out
}

func (e *Engine) checkCarryChain(panel *models.Panel, table *models.SignalTable) models.DimensionCheck {
	out := models.DimensionCheck{Detail: "data missing"}

	hasFX := panel.Has("usdjpy")
	hasSpread := panel.Has("carry_spread_bps")
	if !hasFX && !hasSpread {
		return out
	}
	out.Available = true
	out.Values = map[string]float64{}

	var parts []string
	if hasFX {
		fx, _ := panel.LastValid("usdjpy")
		var chg5 models.Value
		if sig := table.Indicator("usdjpy"); sig != nil {
			chg5 = sig.LastChange(5)
		}
		part := "USDJPY n/a"
		if fx.Valid {
			part = fmt.Sprintf("USDJPY %.1f", fx.V)
			out.Values["usdjpy"] = fx.V
		}
		if chg5.Valid {
			out.Values["usdjpy_chg_5d"] = chg5.V
			if chg5.V < e.cfg.USDJPYStressThreshold5d {
				part += " [STRESS]"
				out.Stressed = true
			}
		}
		parts = append(parts, part)
	}
	if hasSpread {
		sp, _ := panel.LastValid("carry_spread_bps")
		var chg5 models.Value
		if sig := table.Indicator("carry_spread_bps"); sig != nil {
			chg5 = sig.LastChange(5)
		}
		part := "carry spread n/a"
		if sp.Valid {
			part = fmt.Sprintf("carry spread %.0fbps", sp.V)
			out.Values["carry_spread_bps"] = sp.V
		}
		if chg5.Valid {
			out.Values["carry_spread_chg_5d"] = chg5.V
			if chg5.V < e.cfg.CarryNarrowThresholdBps5d {
				part += " [STRESS]"
				out.Stressed = true
			}
		}
		parts = append(parts, part)
	}

	out.Detail = strings.Join(parts, " | ")
	return out
}

func (e *Engine) checkCredit(panel *models.Panel, table *models.SignalTable) models.DimensionCheck {
	out := models.DimensionCheck{Detail: "data missing"}
	if !panel.Has("hy_oas") {
		return out
	}
	out.Available = true

	latest, _ := panel.LastValid("hy_oas")
	if !latest.Valid {
		out.Detail = "no observations"
		return out
	}

	var chg5 models.Value
	if sig := table.Indicator("hy_oas"); sig != nil {
		chg5 = sig.LastChange(5)
	}

	threshold := e.cfg.HYOASWidenThresholdBps5d / 100
	out.Stressed = chg5.Valid && chg5.V > threshold
	if chg5.Valid {
		out.Detail = fmt.Sprintf("HY OAS %.2f%%, 5d %+.1fbps", latest.V, chg5.V*100)
		out.Values = map[string]float64{"level": latest.V, "chg_5d_bps": chg5.V * 100}
	} else {
		out.Detail = fmt.Sprintf("HY OAS %.2f%%, 5d change unavailable", latest.V)
		out.Values = map[string]float64{"level": latest.V}
	}
	return out
}

// checkRiskAssets reports whether risk assets confirm a tightening move:
// Stressed here means the equity benchmark's 5-day return broke down.
func (e *Engine) checkRiskAssets(panel *models.Panel, table *models.SignalTable) models.DimensionCheck {
	out := models.DimensionCheck{Detail: "data missing"}
	if !panel.Has("spx") {
		return out
	}
	out.Available = true
	out.Values = map[string]float64{}

	var spxPct, btcPct models.Value
	if sig := table.Indicator("spx"); sig != nil {
		spxPct = sig.LastPctChange(5)
	}
	if sig := table.Indicator("btc"); sig != nil {
		btcPct = sig.LastPctChange(5)
	}

	var parts []string
	if spxPct.Valid {
		parts = append(parts, fmt.Sprintf("SPX 5d %+.1f%%", spxPct.V*100))
		out.Values["spx_pct_5d"] = spxPct.V
	}
	if btcPct.Valid {
		parts = append(parts, fmt.Sprintf("BTC 5d %+.1f%%", btcPct.V*100))
		out.Values["btc_pct_5d"] = btcPct.V
	}

	out.Stressed = spxPct.Valid && spxPct.V < e.cfg.SPXWeakThreshold5d
	out.Detail = strings.Join(parts, " | ")
	if out.Detail == "" {
		out.Detail = "no recent returns"
	}
	return out
}

// ----------------------------------------------------------------
// Rule engine
// ----------------------------------------------------------------

func (e *Engine) applyRules(panel *models.Panel, checks map[string]models.DimensionCheck, stale []string) *models.Judgment {
	netLiq := checks[DimNetLiquidity]
	risk := checks[DimRiskAssets]

	stressNames := make([]string, 0, len(confirmationDims))
	for _, d := range confirmationDims {
		if checks[d].Stressed {
			stressNames = append(stressNames, d)
		}
	}
	stressCount := len(stressNames)

	hasStale := len(stale) > 0
	weakening := netLiq.Stressed

	var (
		regime      models.Regime
		confidence  models.Confidence
		explanation string
	)

	switch {
	case weakening && stressCount >= e.cfg.MinConfirmations:
		regime = models.RegimeTightening
		confidence = models.ConfidenceHigh
		if hasStale {
			confidence = models.ConfidenceMedium
		}
		explanation = fmt.Sprintf("net liquidity weakening (%s), with %d confirmation dimensions under stress (%s)",
			netLiq.Detail, stressCount, strings.Join(stressNames, ", "))

		if !risk.Stressed {
			explanation += ". Risk assets have not confirmed: a leading signal has appeared but market confirmation is insufficient"
			if confidence == models.ConfidenceHigh {
				confidence = models.ConfidenceMedium
			} else {
				confidence = models.ConfidenceLow
			}
		}

	case stressCount > 0 || weakening:
		regime = models.RegimeLocalDisturbance
		confidence = models.ConfidenceMedium
		if hasStale {
			confidence = models.ConfidenceLow
		}
		if weakening {
			explanation = fmt.Sprintf("net liquidity weakening (%s), but confirmation signals are insufficient (%d/%d)",
				netLiq.Detail, stressCount, e.cfg.MinConfirmations)
		} else {
			explanation = fmt.Sprintf("net liquidity has not weakened materially, but stress signals in %s; a local disturbance, not a regime shift",
				strings.Join(stressNames, ", "))
		}

	default:
		regime = models.RegimeStable
		confidence = models.ConfidenceHigh
		if hasStale {
			confidence = models.ConfidenceMedium
		}
		explanation = "net liquidity and all confirmation dimensions show no weakening signal"
	}

	if hasStale {
		explanation += fmt.Sprintf(". [caution] data stale or missing for: %s; judgment is conservative",
			strings.Join(stale, ", "))
	}

	return &models.Judgment{
		Date:                  panel.LastDate(),
		Regime:                regime,
		Confidence:            confidence,
		Explanation:           explanation,
		NetLiquidityWeakening: weakening,
		StressCount:           stressCount,
		StressDimensions:      stressNames,
		RiskAssetConfirming:   risk.Stressed,
		StaleIndicators:       stale,
		Dimensions:            checks,
	}
}
