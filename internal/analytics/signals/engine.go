package signals

import (
	"MacroPulse/internal/analytics/stats"
	"MacroPulse/internal/domain/models"
	"MacroPulse/pkg/config"
	applogger "MacroPulse/pkg/logger"
)

// Engine derives per-indicator signal series (changes, z-scores, percentile
// ranks, qualitative labels) from the raw panel. Pure: the same panel always
// produces the same table, and the panel is never written to.
type Engine struct {
	cfg  config.SignalConfig
	inds config.IndicatorsConfig
	l    *applogger.Logger
}

func NewEngine(a config.Analytics) *Engine {
	return &Engine{cfg: a.Signal, inds: a.Indicators}
}

// SetLogger injects a structured logger for missing-column warnings.
func (e *Engine) SetLogger(l *applogger.Logger) { e.l = l }

// Compute builds the signal table for every tracked indicator present in
// the panel. Missing columns are skipped; thin history yields missing cells
// in the derived series rather than an error.
func (e *Engine) Compute(panel *models.Panel) *models.SignalTable {
	table := &models.SignalTable{
		Dates:      panel.Dates(),
		Indicators: make(map[string]*models.IndicatorSignals),
	}

	for _, name := range e.inds.Tracked {
		col, ok := panel.Column(name)
		if !ok {
			if e.l != nil {
				e.l.Warn("signal engine: indicator not in panel, skipping",
					applogger.String("indicator", name))
			}
			continue
		}

		sig := &models.IndicatorSignals{
			Level:     append([]models.Value(nil), col...),
			Change:    make(map[int][]models.Value, len(e.cfg.ChangeWindows)),
			PctChange: make(map[int][]models.Value),
		}

		for _, w := range e.cfg.ChangeWindows {
			sig.Change[w] = stats.Diff(col, w)
			if e.inds.IsPriceLike(name) {
				sig.PctChange[w] = stats.PctChange(col, w)
			}
		}

		sig.ZScore = stats.RollingZScore(col, e.cfg.ZScoreWindow, e.cfg.ZScoreMinObs)
		sig.Percentile = stats.RollingPercentile(col, e.cfg.PercentileWindow, e.cfg.PercentileMinObs)
		sig.Labels = e.label(name, sig.ZScore)

		table.Indicators[name] = sig
	}

	return table
}

// label maps each z-score to STRESS / TIGHT / NEUTRAL / EASING according to
// the indicator's direction class. Unclassified indicators use a
// magnitude-only rule with no EASING state.
func (e *Engine) label(name string, zscores []models.Value) []models.SignalLabel {
	dir := e.inds.DirectionSign(name)
	out := make([]models.SignalLabel, len(zscores))
	for i, z := range zscores {
		out[i] = models.SignalNeutral
		if !z.Valid {
			continue
		}
		v := z.V
		switch dir {
		case -1: // higher = tighter
			switch {
			case v > 1.5:
				out[i] = models.SignalStress
			case v > 0.5:
				out[i] = models.SignalTight
			case v < -0.5:
				out[i] = models.SignalEasing
			}
		case 1: // higher = looser
			switch {
			case v < -1.5:
				out[i] = models.SignalStress
			case v < -0.5:
				out[i] = models.SignalTight
			case v > 0.5:
				out[i] = models.SignalEasing
			}
		default:
			abs := v
			if abs < 0 {
				abs = -abs
			}
			switch {
			case abs > 1.5:
				out[i] = models.SignalStress
			case abs > 0.5:
				out[i] = models.SignalTight
			}
		}
	}
	return out
}
