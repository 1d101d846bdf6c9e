package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"MacroPulse/internal/domain/models"
	domrepo "MacroPulse/internal/domain/repository"
	pkgch "MacroPulse/pkg/clickhouse"
	applogger "MacroPulse/pkg/logger"
	"MacroPulse/pkg/util"
)

// CHPanelStore implements PanelSource and SnapshotStore backed by ClickHouse.
// Panel observations live in one long table (date, indicator, value);
// evaluation snapshots are stored as flat summary columns plus the full
// JSON payload.
type CHPanelStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHPanelStore(ch *pkgch.Client, database string) *CHPanelStore {
	return &CHPanelStore{db: ch.DB(), database: database}
}

// SetLogger injects a structured logger.
func (s *CHPanelStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHPanelStore) obsTable() string  { return s.database + ".panel_obs" }
func (s *CHPanelStore) evalTable() string { return s.database + ".evaluations" }

// LoadPanel reads the trailing lookbackDays of observations and assembles
// the business-day panel. Dates with no observation for an indicator stay
// missing; they are never filled here.
func (s *CHPanelStore) LoadPanel(ctx context.Context, lookbackDays int) (*models.Panel, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT date, indicator, value
        FROM %s
        WHERE date >= today() - ?
        ORDER BY date ASC
    `, s.obsTable())

	rows, err := s.db.QueryContext(ctx, q, lookbackDays)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse load_panel query error",
				applogger.Int("lookback_days", lookbackDays),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("load panel: %w", err)
	}
	defer rows.Close()

	type obs struct {
		indicator string
		value     float64
	}
	byDate := make(map[time.Time][]obs)
	indicators := make(map[string]bool)
	for rows.Next() {
		var (
			d   time.Time
			ind string
			v   float64
		)
		if err := rows.Scan(&d, &ind, &v); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		d = util.TruncateDay(d)
		byDate[d] = append(byDate[d], obs{indicator: ind, value: v})
		indicators[ind] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	cols := make(map[string][]models.Value, len(indicators))
	for ind := range indicators {
		cols[ind] = make([]models.Value, len(dates))
	}
	for i, d := range dates {
		for _, o := range byDate[d] {
			cols[o.indicator][i] = models.Some(o.value)
		}
	}

	panel, err := models.NewPanel(dates, cols)
	if err != nil {
		return nil, fmt.Errorf("assemble panel: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse load_panel ok",
			applogger.Int("rows", panel.Len()),
			applogger.Int("indicators", len(cols)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return panel, nil
}

// StoreObservation upserts one panel cell. The ReplacingMergeTree engine
// collapses duplicate (indicator, date) rows on merge.
func (s *CHPanelStore) StoreObservation(ctx context.Context, date time.Time, indicator string, value float64) error {
	q := fmt.Sprintf("INSERT INTO %s (date, indicator, value) VALUES (?, ?, ?)", s.obsTable())
	if _, err := s.db.ExecContext(ctx, q, util.TruncateDay(date), indicator, value); err != nil {
		return fmt.Errorf("store observation: %w", err)
	}
	return nil
}

func (s *CHPanelStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHPanelStore) Close() error {
	return nil // connection managed by pkg/clickhouse
}

// StoreEvaluation persists one evaluation snapshot.
func (s *CHPanelStore) StoreEvaluation(ctx context.Context, ev *models.Evaluation) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal evaluation: %w", err)
	}

	regime, confidence := "", ""
	if ev.Judgment != nil {
		regime = string(ev.Judgment.Regime)
		confidence = string(ev.Judgment.Confidence)
	}
	score, tier := 0.0, ""
	if ev.Score != nil {
		score = ev.Score.Score
		tier = string(ev.Score.Tier)
	}
	forwardScore := 0.0
	if ev.Forward != nil {
		forwardScore = ev.Forward.Signal.Score
	}

	q := fmt.Sprintf(`
        INSERT INTO %s (date, created_at, regime, confidence, score, tier, forward_score, payload)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `, s.evalTable())
	_, err = s.db.ExecContext(ctx, q,
		util.TruncateDay(ev.Date),
		time.Now().UTC(),
		regime,
		confidence,
		score,
		tier,
		forwardScore,
		string(payload),
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse store_evaluation error", applogger.Error(err))
		}
		return fmt.Errorf("store evaluation: %w", err)
	}
	return nil
}

// QueryEvaluations returns snapshots in the date range, newest first.
func (s *CHPanelStore) QueryEvaluations(ctx context.Context, from, to time.Time, limit int) ([]*models.Evaluation, error) {
	q := fmt.Sprintf(`
        SELECT payload
        FROM %s
        WHERE date >= ? AND date <= ?
        ORDER BY date DESC, created_at DESC
        LIMIT ?
    `, s.evalTable())

	rows, err := s.db.QueryContext(ctx, q, util.TruncateDay(from), util.TruncateDay(to), limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse query_evaluations error", applogger.Error(err))
		}
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Evaluation, 0, limit)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		var ev models.Evaluation
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			if s.l != nil {
				s.l.Warn("skipping malformed evaluation payload", applogger.Error(err))
			}
			continue
		}
		out = append(out, &ev)
	}
	return out, rows.Err()
}

var (
	_ domrepo.PanelSource   = (*CHPanelStore)(nil)
	_ domrepo.SnapshotStore = (*CHPanelStore)(nil)
)
