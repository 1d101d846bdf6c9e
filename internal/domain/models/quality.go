package models

// QualityStatus classifies upstream data health for one indicator.
type QualityStatus string

const (
	QualityOK       QualityStatus = "ok"
	QualityDegraded QualityStatus = "degraded"
	QualityMissing  QualityStatus = "missing"
)

// IndicatorQuality is the per-indicator entry of the upstream quality report.
type IndicatorQuality struct {
	Status    QualityStatus `json:"status"`
	Coverage  float64       `json:"coverage"`
	StaleDays int           `json:"stale_days"`
	LastValid string        `json:"last_valid,omitempty"`
}

// QualityReport maps indicator name to its data-quality entry.
// Produced by the cleaning stage; read-only input to the judgment engine.
type QualityReport map[string]IndicatorQuality

// Stale returns the indicators whose data should not be fully trusted:
// status missing/degraded, or trailing staleness beyond maxStaleDays.
func (q QualityReport) Stale(maxStaleDays int) []string {
	var out []string
	for name, info := range q {
		if info.Status == QualityMissing || info.Status == QualityDegraded {
			out = append(out, name)
			continue
		}
		if info.StaleDays > maxStaleDays {
			out = append(out, name)
		}
	}
	return out
}
