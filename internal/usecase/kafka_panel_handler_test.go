package usecase

import (
	"context"
	"strings"
	"testing"
)

func TestPanelHandlerStoresObservation(t *testing.T) {
	src := &fakeSource{}
	h := NewKafkaPanelHandler("macro.panel_obs", src, &fakeMetrics{})

	if h.Topic() != "macro.panel_obs" {
		t.Fatalf("topic = %s", h.Topic())
	}
	msg := []byte(`{"date":"2024-06-03","indicator":"net_liquidity","value":6123.4}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if src.obs != 1 {
		t.Fatalf("stored %d observations, want 1", src.obs)
	}
}

func TestPanelHandlerRejectsMalformedDate(t *testing.T) {
	src := &fakeSource{}
	m := &fakeMetrics{}
	h := NewKafkaPanelHandler("macro.panel_obs", src, m)

	err := h.Handle(context.Background(), []byte(`{"date":"03/06/2024","indicator":"vix","value":14.2}`))
	if err == nil {
		t.Fatal("malformed date must be rejected")
	}
	if !strings.Contains(err.Error(), "invalid format") {
		t.Fatalf("error = %v, want invalid format", err)
	}
	if src.obs != 0 {
		t.Fatalf("malformed date stored %d observations", src.obs)
	}
	if len(m.errors) != 1 || m.errors[0] != "consumer_schema" {
		t.Fatalf("error metrics = %v, want one consumer_schema", m.errors)
	}
}

func TestPanelHandlerRejectsBadMessages(t *testing.T) {
	src := &fakeSource{}
	m := &fakeMetrics{}
	h := NewKafkaPanelHandler("macro.panel_obs", src, m)

	cases := []string{
		`not json`,
		`{"date":"2024-06-03","value":1.0}`,
		`{"date":"yesterday","indicator":"vix","value":1.0}`,
	}
	for _, c := range cases {
		if err := h.Handle(context.Background(), []byte(c)); err == nil {
			t.Fatalf("message %q must be rejected", c)
		}
	}
	if src.obs != 0 {
		t.Fatalf("bad messages stored %d observations", src.obs)
	}
	if len(m.errors) != len(cases) {
		t.Fatalf("recorded %d error metrics, want %d", len(m.errors), len(cases))
	}
}
