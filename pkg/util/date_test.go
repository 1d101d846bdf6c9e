package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseDateLayout(t *testing.T) {
	got, ok := ParseDate("2024-10-10")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Format(DateLayout) != "2024-10-10" {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseDateRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseDate(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseDateUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseDate(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseDateDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	got := ParseDateDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestIsBusinessDay(t *testing.T) {
	sat := time.Date(2024, 10, 12, 0, 0, 0, 0, time.UTC)
	mon := time.Date(2024, 10, 14, 0, 0, 0, 0, time.UTC)
	if IsBusinessDay(sat) {
		t.Fatalf("saturday is not a business day")
	}
	if !IsBusinessDay(mon) {
		t.Fatalf("monday is a business day")
	}
}
