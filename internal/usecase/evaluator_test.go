package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"MacroPulse/internal/analytics/forward"
	"MacroPulse/internal/analytics/judge"
	"MacroPulse/internal/analytics/scorer"
	"MacroPulse/internal/analytics/signals"
	"MacroPulse/internal/domain/models"
	"MacroPulse/pkg/cache"
	"MacroPulse/pkg/config"
)

type fakeSource struct {
	panel *models.Panel
	loads int
	obs   int
}

func (f *fakeSource) LoadPanel(ctx context.Context, lookbackDays int) (*models.Panel, error) {
	f.loads++
	return f.panel, nil
}

func (f *fakeSource) StoreObservation(ctx context.Context, date time.Time, indicator string, value float64) error {
	f.obs++
	return nil
}

func (f *fakeSource) Health(ctx context.Context) error { return nil }
func (f *fakeSource) Close() error                     { return nil }

type fakeStore struct {
	mu     sync.Mutex
	stored []*models.Evaluation
}

func (f *fakeStore) StoreEvaluation(ctx context.Context, ev *models.Evaluation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = append(f.stored, ev)
	return nil
}

func (f *fakeStore) QueryEvaluations(ctx context.Context, from, to time.Time, limit int) ([]*models.Evaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.Evaluation(nil), f.stored...), nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published int
}

func (f *fakePublisher) PublishEvaluation(ctx context.Context, ev *models.Evaluation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published++
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeMetrics struct {
	mu     sync.Mutex
	errors []string
}

func (f *fakeMetrics) RecordEvaluation(regime string)  {}
func (f *fakeMetrics) RecordCompositeScore(s float64)  {}
func (f *fakeMetrics) RecordPanelRows(n int)           {}
func (f *fakeMetrics) RecordLatency(op string, s float64) {}
func (f *fakeMetrics) RecordError(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, kind)
}

type boomScorer struct{}

func (boomScorer) Compute(panel *models.Panel, table *models.SignalTable) *models.CompositeScore {
	panic("boom")
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Analytics = config.DefaultAnalytics()
	cfg.Panel.LookbackDays = 400
	cfg.Cache.TTL = time.Minute
	return cfg
}

func testPanel(t *testing.T, n int) *models.Panel {
	t.Helper()
	dates := make([]time.Time, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	ramp := func(base, step float64) []models.Value {
		out := make([]models.Value, n)
		for i := range out {
			out[i] = models.Some(base + step*float64(i))
		}
		return out
	}
	cols := map[string][]models.Value{
		"net_liquidity": ramp(6000, 1),
		"vix":           ramp(20, -0.01),
		"hy_oas":        ramp(4, -0.001),
		"sofr":          ramp(5.3, 0),
		"spx":           ramp(5000, 2),
		"btc":           ramp(60000, 20),
		"usdjpy":        ramp(150, 0.01),
		"dxy":           ramp(104, -0.01),
	}
	p, err := models.NewPanel(dates, cols)
	if err != nil {
		t.Fatalf("panel: %v", err)
	}
	return p
}

func newTestEvaluator(t *testing.T, src *fakeSource, cs scorerOverride) (*Evaluator, *fakeStore, *fakePublisher) {
	t.Helper()
	cfg := testConfig()
	store := &fakeStore{}
	pub := &fakePublisher{}
	mem := cache.NewMemoryCache(cache.WithMemoryMaxSize(64))
	t.Cleanup(func() { _ = mem.Close() })

	var scorerEngine = cs
	if scorerEngine == nil {
		scorerEngine = scorer.NewEngine(cfg.Analytics)
	}

	eval := NewEvaluator(
		src, store, pub, mem, &fakeMetrics{},
		signals.NewEngine(cfg.Analytics),
		judge.NewEngine(cfg.Analytics),
		scorerEngine,
		forward.NewAnalyzer(cfg.Analytics),
		cfg,
	)
	return eval, store, pub
}

type scorerOverride interface {
	Compute(panel *models.Panel, table *models.SignalTable) *models.CompositeScore
}

func TestEvaluateFullPipeline(t *testing.T) {
	src := &fakeSource{panel: testPanel(t, 300)}
	eval, store, pub := newTestEvaluator(t, src, nil)

	ev, err := eval.Evaluate(context.Background(), true)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if ev.Judgment == nil || ev.Score == nil || ev.Forward == nil {
		t.Fatalf("incomplete evaluation: %+v", ev)
	}
	if len(ev.Errors) != 0 {
		t.Fatalf("unexpected component errors: %v", ev.Errors)
	}
	if ev.PanelRows != 300 {
		t.Fatalf("panel rows = %d, want 300", ev.PanelRows)
	}
	if len(store.stored) != 1 {
		t.Fatalf("stored %d snapshots, want 1", len(store.stored))
	}
	if pub.published != 1 {
		t.Fatalf("published %d, want 1", pub.published)
	}
}

func TestEvaluateServesCachedResult(t *testing.T) {
	src := &fakeSource{panel: testPanel(t, 200)}
	eval, _, _ := newTestEvaluator(t, src, nil)

	if _, err := eval.Evaluate(context.Background(), true); err != nil {
		t.Fatalf("warm evaluate: %v", err)
	}
	loadsAfterWarm := src.loads

	ev, err := eval.Evaluate(context.Background(), false)
	if err != nil {
		t.Fatalf("cached evaluate: %v", err)
	}
	if src.loads != loadsAfterWarm {
		t.Fatalf("cached evaluate reloaded the panel (%d loads)", src.loads)
	}
	if ev.Judgment == nil {
		t.Fatal("cached evaluation lost its judgment")
	}
}

func TestEvaluateComponentFailureDegrades(t *testing.T) {
	src := &fakeSource{panel: testPanel(t, 200)}
	eval, _, _ := newTestEvaluator(t, src, boomScorer{})

	ev, err := eval.Evaluate(context.Background(), true)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if ev.Errors["score"] == "" || !strings.Contains(ev.Errors["score"], "boom") {
		t.Fatalf("score failure not recorded: %v", ev.Errors)
	}
	if ev.Judgment == nil {
		t.Fatal("judgment must survive a scorer failure")
	}
	if ev.Forward == nil {
		t.Fatal("forward outlook must survive a scorer failure")
	}
}

func TestEvaluateBroadcasts(t *testing.T) {
	src := &fakeSource{panel: testPanel(t, 200)}
	eval, _, _ := newTestEvaluator(t, src, nil)

	var got *models.Evaluation
	eval.SetBroadcast(func(ev *models.Evaluation) { got = ev })

	if _, err := eval.Evaluate(context.Background(), true); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got == nil || got.Judgment == nil {
		t.Fatal("broadcast hook not invoked with a full evaluation")
	}
}

func TestSignalsTrimsToLastN(t *testing.T) {
	src := &fakeSource{panel: testPanel(t, 200)}
	eval, _, _ := newTestEvaluator(t, src, nil)

	table, err := eval.Signals(context.Background(), "vix", 10)
	if err != nil {
		t.Fatalf("signals: %v", err)
	}
	if len(table.Dates) != 10 {
		t.Fatalf("dates = %d, want 10", len(table.Dates))
	}
	if len(table.Indicators) != 1 || table.Indicator("vix") == nil {
		t.Fatalf("want only vix, got %d indicators", len(table.Indicators))
	}
	sig := table.Indicator("vix")
	if len(sig.Level) != 10 || len(sig.Labels) != 10 {
		t.Fatalf("series not trimmed: level=%d labels=%d", len(sig.Level), len(sig.Labels))
	}

	if _, err := eval.Signals(context.Background(), "nope", 10); err == nil {
		t.Fatal("unknown indicator must error")
	}
}

func TestHistoryReadsStore(t *testing.T) {
	src := &fakeSource{panel: testPanel(t, 200)}
	eval, _, _ := newTestEvaluator(t, src, nil)

	if _, err := eval.Evaluate(context.Background(), true); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	evs, err := eval.History(context.Background(), time.Time{}, time.Now(), 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(evs) != 1 {
		t.Fatalf("history = %d entries, want 1", len(evs))
	}
}
