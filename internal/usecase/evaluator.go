package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"MacroPulse/internal/domain/models"
	domrepo "MacroPulse/internal/domain/repository"
	"MacroPulse/internal/domain/service"
	"MacroPulse/pkg/cache"
	"MacroPulse/pkg/config"
	applogger "MacroPulse/pkg/logger"
)

const latestEvaluationKey = "evaluation:latest"

// Evaluator runs the full analysis pipeline over the cleaned panel:
// signal table, regime judgment, composite score, forward outlook.
// Component failures land in Evaluation.Errors instead of failing the run.
type Evaluator struct {
	source  domrepo.PanelSource
	store   domrepo.SnapshotStore
	pub     domrepo.Publisher
	cache   cache.Service
	metrics domrepo.Metrics

	signals service.SignalEngine
	judge   service.JudgmentEngine
	scorer  service.CompositeScorer
	forward service.ForwardAnalyzer

	cfg       *config.Config
	l         *applogger.Logger
	broadcast func(*models.Evaluation)
	timeout   time.Duration
}

func NewEvaluator(
	source domrepo.PanelSource,
	store domrepo.SnapshotStore,
	pub domrepo.Publisher,
	cch cache.Service,
	metrics domrepo.Metrics,
	signals service.SignalEngine,
	judge service.JudgmentEngine,
	scorer service.CompositeScorer,
	forward service.ForwardAnalyzer,
	cfg *config.Config,
) *Evaluator {
	return &Evaluator{
		source:  source,
		store:   store,
		pub:     pub,
		cache:   cch,
		metrics: metrics,
		signals: signals,
		judge:   judge,
		scorer:  scorer,
		forward: forward,
		cfg:     cfg,
		timeout: 30 * time.Second,
	}
}

// SetLogger injects a structured logger.
func (e *Evaluator) SetLogger(l *applogger.Logger) { e.l = l }

// SetBroadcast registers a callback invoked with every fresh evaluation,
// used to push updates to websocket clients.
func (e *Evaluator) SetBroadcast(fn func(*models.Evaluation)) { e.broadcast = fn }

// Evaluate runs the pipeline. When force is false a cached evaluation for
// the current panel date is returned without recomputation.
func (e *Evaluator) Evaluate(ctx context.Context, force bool) (*models.Evaluation, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if !force && e.cache != nil {
		var cached models.Evaluation
		if err := e.cache.Get(ctx, latestEvaluationKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) && e.l != nil {
			e.l.Warn("evaluation cache read failed", applogger.Error(err))
		}
	}

	start := time.Now()
	panel, err := e.source.LoadPanel(ctx, e.cfg.Panel.LookbackDays)
	if err != nil {
		e.metrics.RecordError("panel_load")
		return nil, fmt.Errorf("load panel: %w", err)
	}
	e.metrics.RecordPanelRows(panel.Len())
	e.metrics.RecordLatency("panel_load_seconds", time.Since(start).Seconds())

	ev := e.run(panel)

	e.finalize(ctx, ev)
	return ev, nil
}

// run executes the engines over an in-memory panel. Split out so tests can
// drive the pipeline without infrastructure.
func (e *Evaluator) run(panel *models.Panel) *models.Evaluation {
	ev := &models.Evaluation{
		Date:      panel.LastDate(),
		PanelRows: panel.Len(),
		Errors:    map[string]string{},
	}

	var mu sync.Mutex
	fail := func(name, msg string) {
		mu.Lock()
		ev.Errors[name] = msg
		mu.Unlock()
	}

	table := e.compute("signals", fail, func() interface{} {
		return e.signals.Compute(panel)
	})
	signalTable, _ := table.(*models.SignalTable)
	if signalTable == nil {
		return ev
	}

	quality := DeriveQuality(panel, e.cfg.Analytics.Indicators.Tracked)

	// Judgment and score are independent; forward needs the score.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if v := e.compute("judgment", fail, func() interface{} {
			return e.judge.Evaluate(panel, signalTable, quality)
		}); v != nil {
			ev.Judgment, _ = v.(*models.Judgment)
		}
	}()
	go func() {
		defer wg.Done()
		if v := e.compute("score", fail, func() interface{} {
			return e.scorer.Compute(panel, signalTable)
		}); v != nil {
			ev.Score, _ = v.(*models.CompositeScore)
		}
	}()
	wg.Wait()

	if v := e.compute("forward", fail, func() interface{} {
		return e.forward.Analyze(panel, ev.Score)
	}); v != nil {
		ev.Forward, _ = v.(*models.ForwardOutlook)
	}

	if len(ev.Errors) == 0 {
		ev.Errors = nil
	}
	return ev
}

// compute runs one engine, converting a panic into a component error so a
// single engine never takes down the pipeline.
func (e *Evaluator) compute(name string, fail func(string, string), fn func() interface{}) (out interface{}) {
	defer func() {
		if r := recover(); r != nil {
			fail(name, fmt.Sprintf("panic: %v", r))
			e.metrics.RecordError(name + "_panic")
			if e.l != nil {
				e.l.Error("engine panic", applogger.String("engine", name), applogger.Any("panic", r))
			}
			out = nil
		}
	}()
	start := time.Now()
	out = fn()
	e.metrics.RecordLatency(name+"_seconds", time.Since(start).Seconds())
	return out
}

// finalize persists, publishes, caches, and broadcasts a fresh evaluation.
// Downstream failures are logged and counted, never propagated.
func (e *Evaluator) finalize(ctx context.Context, ev *models.Evaluation) {
	if ev.Judgment != nil {
		e.metrics.RecordEvaluation(string(ev.Judgment.Regime))
	}
	if ev.Score != nil {
		e.metrics.RecordCompositeScore(ev.Score.Score)
	}

	if e.store != nil {
		if err := e.store.StoreEvaluation(ctx, ev); err != nil {
			e.metrics.RecordError("snapshot_store")
			if e.l != nil {
				e.l.Error("evaluation snapshot store failed", applogger.Error(err))
			}
		}
	}
	if e.pub != nil {
		if err := e.pub.PublishEvaluation(ctx, ev); err != nil {
			e.metrics.RecordError("publish")
			if e.l != nil {
				e.l.Error("evaluation publish failed", applogger.Error(err))
			}
		}
	}
	if e.cache != nil {
		if err := e.cache.Set(ctx, latestEvaluationKey, ev, e.cfg.Cache.TTL); err != nil {
			e.metrics.RecordError("cache_set")
			if e.l != nil {
				e.l.Warn("evaluation cache write failed", applogger.Error(err))
			}
		}
	}
	if e.broadcast != nil {
		e.broadcast(ev)
	}
	if e.l != nil {
		regime := "unknown"
		if ev.Judgment != nil {
			regime = string(ev.Judgment.Regime)
		}
		e.l.Info("evaluation complete",
			applogger.String("date", ev.Date.Format("2006-01-02")),
			applogger.String("regime", regime),
			applogger.Int("panel_rows", ev.PanelRows),
		)
	}
}

// Signals returns the signal block for one indicator, trimmed to the last
// n rows, or the whole table when indicator is empty.
func (e *Evaluator) Signals(ctx context.Context, indicator string, n int) (*models.SignalTable, error) {
	panel, err := e.source.LoadPanel(ctx, e.cfg.Panel.LookbackDays)
	if err != nil {
		e.metrics.RecordError("panel_load")
		return nil, fmt.Errorf("load panel: %w", err)
	}
	table := e.signals.Compute(panel)
	if indicator != "" {
		sig := table.Indicator(indicator)
		if sig == nil {
			return nil, fmt.Errorf("unknown indicator: %s", indicator)
		}
		table = &models.SignalTable{
			Dates:      table.Dates,
			Indicators: map[string]*models.IndicatorSignals{indicator: sig},
		}
	}
	return trimTable(table, n), nil
}

// History returns stored evaluation snapshots for the range.
func (e *Evaluator) History(ctx context.Context, from, to time.Time, limit int) ([]*models.Evaluation, error) {
	if e.store == nil {
		return nil, fmt.Errorf("snapshot store not configured")
	}
	return e.store.QueryEvaluations(ctx, from, to, limit)
}

// trimTable keeps the trailing n rows of every series.
func trimTable(t *models.SignalTable, n int) *models.SignalTable {
	if n <= 0 || n >= len(t.Dates) {
		return t
	}
	cut := len(t.Dates) - n
	out := &models.SignalTable{
		Dates:      t.Dates[cut:],
		Indicators: make(map[string]*models.IndicatorSignals, len(t.Indicators)),
	}
	for name, sig := range t.Indicators {
		trimmed := &models.IndicatorSignals{
			Level:      sig.Level[cut:],
			Change:     make(map[int][]models.Value, len(sig.Change)),
			PctChange:  make(map[int][]models.Value, len(sig.PctChange)),
			ZScore:     sig.ZScore[cut:],
			Percentile: sig.Percentile[cut:],
			Labels:     sig.Labels[cut:],
		}
		for w, vals := range sig.Change {
			trimmed.Change[w] = vals[cut:]
		}
		for w, vals := range sig.PctChange {
			trimmed.PctChange[w] = vals[cut:]
		}
		out.Indicators[name] = trimmed
	}
	return out
}
