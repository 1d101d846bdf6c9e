package service

import (
	"MacroPulse/internal/domain/models"
)

// SignalEngine derives per-indicator signal series from the panel.
type SignalEngine interface {
	Compute(panel *models.Panel) *models.SignalTable
}

// JudgmentEngine classifies the liquidity regime for the latest date.
type JudgmentEngine interface {
	Evaluate(panel *models.Panel, table *models.SignalTable, quality models.QualityReport) *models.Judgment
}

// CompositeScorer maps the panel to the 0-100 liquidity score.
type CompositeScorer interface {
	Compute(panel *models.Panel, table *models.SignalTable) *models.CompositeScore
}

// ForwardAnalyzer builds the forward-looking outlook.
type ForwardAnalyzer interface {
	Analyze(panel *models.Panel, score *models.CompositeScore) *models.ForwardOutlook
}
