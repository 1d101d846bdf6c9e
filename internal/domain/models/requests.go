package models

// Requests for the evaluation HTTP endpoints. Defined in domain for
// consistency and reuse.

type SignalsRequest struct {
	Indicator string `query:"indicator" json:"indicator" validate:"omitempty,max=64"`
	N         int    `query:"n" json:"n" default:"120" validate:"gte=1,lte=5000"`
}

type EvaluateRequest struct {
	Force bool `query:"force" json:"force"`
}

type HistoryRequest struct {
	From  string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To    string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	Limit int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}
