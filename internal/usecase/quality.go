package usecase

import (
	"MacroPulse/internal/domain/models"
)

// DeriveQuality builds the per-indicator data-quality report from the
// panel. Coverage above 0.8 reads as ok, anything observed below that as
// degraded, and an absent or empty column as missing.
func DeriveQuality(panel *models.Panel, tracked []string) models.QualityReport {
	report := make(models.QualityReport, len(tracked))
	for _, name := range tracked {
		col, ok := panel.Column(name)
		if !ok || panel.Len() == 0 {
			report[name] = models.IndicatorQuality{Status: models.QualityMissing}
			continue
		}

		valid := 0
		lastValid := -1
		for i, v := range col {
			if v.Valid {
				valid++
				lastValid = i
			}
		}
		if valid == 0 {
			report[name] = models.IndicatorQuality{
				Status:    models.QualityMissing,
				StaleDays: len(col),
			}
			continue
		}

		status := models.QualityOK
		coverage := float64(valid) / float64(len(col))
		if coverage <= 0.8 {
			status = models.QualityDegraded
		}

		report[name] = models.IndicatorQuality{
			Status:    status,
			Coverage:  coverage,
			StaleDays: len(col) - 1 - lastValid,
			LastValid: panel.Date(lastValid).Format("2006-01-02"),
		}
	}
	return report
}
