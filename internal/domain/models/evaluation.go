package models

import "time"

// Evaluation is the consolidated output of one analysis run over the panel.
// Note: no transport (json/http) concerns decide its shape; Errors carries
// per-component failures so one engine failing never fails the whole run.
type Evaluation struct {
	Date      time.Time         `json:"date"`
	PanelRows int               `json:"panel_rows"`
	Judgment  *Judgment         `json:"judgment,omitempty"`
	Score     *CompositeScore   `json:"score,omitempty"`
	Forward   *ForwardOutlook   `json:"forward,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}
