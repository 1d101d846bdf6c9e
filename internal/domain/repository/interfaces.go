package repository

import (
	"context"
	"time"

	"MacroPulse/internal/domain/models"
)

// PanelSource loads the cleaned indicator panel. Implementations return a
// business-day panel ordered by date; missing observations stay missing.
type PanelSource interface {
	LoadPanel(ctx context.Context, lookbackDays int) (*models.Panel, error)
	StoreObservation(ctx context.Context, date time.Time, indicator string, value float64) error
	Health(ctx context.Context) error
	Close() error
}

// SnapshotStore persists evaluation snapshots and serves the history API.
type SnapshotStore interface {
	StoreEvaluation(ctx context.Context, ev *models.Evaluation) error
	QueryEvaluations(ctx context.Context, from, to time.Time, limit int) ([]*models.Evaluation, error)
}

// Publisher fans evaluation events out to downstream consumers (report
// builders, narrators, alerting).
type Publisher interface {
	PublishEvaluation(ctx context.Context, ev *models.Evaluation) error
	Close() error
}

// Metrics is the domain-level instrumentation surface.
type Metrics interface {
	RecordEvaluation(regime string)
	RecordCompositeScore(score float64)
	RecordPanelRows(n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
