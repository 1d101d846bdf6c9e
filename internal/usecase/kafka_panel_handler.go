package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domrepo "MacroPulse/internal/domain/repository"
	pkgkafka "MacroPulse/pkg/kafka"
	"MacroPulse/pkg/util"
)

// KafkaPanelHandler consumes indicator observations and writes them to the
// panel store.
type KafkaPanelHandler struct {
	topic   string
	source  domrepo.PanelSource
	metrics domrepo.Metrics
}

func NewKafkaPanelHandler(topic string, source domrepo.PanelSource, metrics domrepo.Metrics) *KafkaPanelHandler {
	return &KafkaPanelHandler{topic: topic, source: source, metrics: metrics}
}

func (h *KafkaPanelHandler) Topic() string { return h.topic }

// incoming message schema: {date, indicator, value}
func (h *KafkaPanelHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Date      string  `json:"date"`
		Indicator string  `json:"indicator"`
		Value     float64 `json:"value"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.Indicator == "" {
		h.metrics.RecordError("consumer_schema")
		return fmt.Errorf("observation missing indicator")
	}
	date, ok := util.ParseDate(m.Date)
	if !ok {
		h.metrics.RecordError("consumer_schema")
		return fmt.Errorf("observation date %q: invalid format", m.Date)
	}

	start := time.Now()
	err := h.source.StoreObservation(ctx, util.TruncateDay(date), m.Indicator, m.Value)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaPanelHandler)(nil)
