package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Value is a single panel cell: a float observation or "no observation".
// It replaces NaN so missing data never poisons downstream arithmetic.
type Value struct {
	V     float64
	Valid bool
}

// Some wraps an observed float.
func Some(v float64) Value { return Value{V: v, Valid: true} }

// None is the missing observation.
func None() Value { return Value{} }

// Or returns the observation or def when missing.
func (v Value) Or(def float64) float64 {
	if v.Valid {
		return v.V
	}
	return def
}

// MarshalJSON encodes a missing observation as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

// UnmarshalJSON decodes null as a missing observation.
func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = None()
		return nil
	}
	if err := json.Unmarshal(b, &v.V); err != nil {
		return err
	}
	v.Valid = true
	return nil
}

// Panel is an immutable date-indexed table of named indicator series.
// Dates are strictly increasing business days; columns may have gaps.
// The panel is owned by the upstream cleaning stage and is read-only here.
type Panel struct {
	dates []time.Time
	cols  map[string][]Value
}

// NewPanel builds a panel from a date index and named columns.
// Every column must have len(dates) cells. Dates must be strictly increasing.
func NewPanel(dates []time.Time, cols map[string][]Value) (*Panel, error) {
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("panel dates not strictly increasing at index %d (%s >= %s)",
				i, dates[i-1].Format("2006-01-02"), dates[i].Format("2006-01-02"))
		}
	}
	p := &Panel{
		dates: append([]time.Time(nil), dates...),
		cols:  make(map[string][]Value, len(cols)),
	}
	for name, vals := range cols {
		if len(vals) != len(dates) {
			return nil, fmt.Errorf("column %s has %d cells, want %d", name, len(vals), len(dates))
		}
		p.cols[name] = append([]Value(nil), vals...)
	}
	return p, nil
}

// Len returns the number of rows.
func (p *Panel) Len() int {
	if p == nil {
		return 0
	}
	return len(p.dates)
}

// Dates returns a copy of the date index.
func (p *Panel) Dates() []time.Time {
	return append([]time.Time(nil), p.dates...)
}

// Date returns the date at row i.
func (p *Panel) Date(i int) time.Time { return p.dates[i] }

// LastDate returns the most recent panel date, or zero time if empty.
func (p *Panel) LastDate() time.Time {
	if p.Len() == 0 {
		return time.Time{}
	}
	return p.dates[len(p.dates)-1]
}

// Columns returns the indicator names present in the panel.
func (p *Panel) Columns() []string {
	out := make([]string, 0, len(p.cols))
	for name := range p.cols {
		out = append(out, name)
	}
	return out
}

// Has reports whether an indicator column exists.
func (p *Panel) Has(name string) bool {
	if p == nil {
		return false
	}
	_, ok := p.cols[name]
	return ok
}

// Column returns the raw cell slice for an indicator. Callers must not mutate it.
func (p *Panel) Column(name string) ([]Value, bool) {
	if p == nil {
		return nil, false
	}
	s, ok := p.cols[name]
	return s, ok
}

// At returns the cell for indicator name at row i.
func (p *Panel) At(name string, i int) Value {
	s, ok := p.cols[name]
	if !ok || i < 0 || i >= len(s) {
		return None()
	}
	return s[i]
}

// LastValid returns the most recent observed value of an indicator and its
// row index, or (None, -1) when the column is absent or all cells missing.
func (p *Panel) LastValid(name string) (Value, int) {
	s, ok := p.cols[name]
	if !ok {
		return None(), -1
	}
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Valid {
			return s[i], i
		}
	}
	return None(), -1
}

// ValidCount returns the number of observed cells in a column.
func (p *Panel) ValidCount(name string) int {
	s, ok := p.cols[name]
	if !ok {
		return 0
	}
	n := 0
	for _, v := range s {
		if v.Valid {
			n++
		}
	}
	return n
}
