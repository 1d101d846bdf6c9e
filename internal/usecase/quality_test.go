package usecase

import (
	"math"
	"testing"
	"time"

	"MacroPulse/internal/domain/models"
)

func qualityPanel(t *testing.T, cols map[string][]models.Value) *models.Panel {
	t.Helper()
	n := 0
	for _, c := range cols {
		n = len(c)
		break
	}
	dates := make([]time.Time, n)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	p, err := models.NewPanel(dates, cols)
	if err != nil {
		t.Fatalf("panel: %v", err)
	}
	return p
}

func TestDeriveQualityFullCoverage(t *testing.T) {
	col := make([]models.Value, 10)
	for i := range col {
		col[i] = models.Some(float64(i))
	}
	p := qualityPanel(t, map[string][]models.Value{"vix": col})

	q := DeriveQuality(p, []string{"vix"})["vix"]
	if q.Status != models.QualityOK {
		t.Fatalf("status = %s, want ok", q.Status)
	}
	if q.Coverage != 1 || q.StaleDays != 0 {
		t.Fatalf("coverage = %v stale = %d, want 1 and 0", q.Coverage, q.StaleDays)
	}
	if q.LastValid != "2024-03-10" {
		t.Fatalf("last valid = %s, want 2024-03-10", q.LastValid)
	}
}

func TestDeriveQualityStaleTail(t *testing.T) {
	col := make([]models.Value, 10)
	for i := range col {
		if i < 7 {
			col[i] = models.Some(1)
		}
	}
	p := qualityPanel(t, map[string][]models.Value{"sofr": col})

	q := DeriveQuality(p, []string{"sofr"})["sofr"]
	if q.StaleDays != 3 {
		t.Fatalf("stale days = %d, want 3", q.StaleDays)
	}
	if q.Status != models.QualityDegraded {
		t.Fatalf("status = %s, want degraded at 0.7 coverage", q.Status)
	}
	if math.Abs(q.Coverage-0.7) > 1e-12 {
		t.Fatalf("coverage = %v, want 0.7", q.Coverage)
	}
}

func TestDeriveQualityMissingColumn(t *testing.T) {
	col := []models.Value{models.Some(1), models.Some(2)}
	p := qualityPanel(t, map[string][]models.Value{"vix": col})

	report := DeriveQuality(p, []string{"vix", "on_rrp"})
	if report["on_rrp"].Status != models.QualityMissing {
		t.Fatalf("absent column status = %s, want missing", report["on_rrp"].Status)
	}
}

func TestDeriveQualityAllMissingValues(t *testing.T) {
	p := qualityPanel(t, map[string][]models.Value{"hy_oas": make([]models.Value, 5)})

	q := DeriveQuality(p, []string{"hy_oas"})["hy_oas"]
	if q.Status != models.QualityMissing {
		t.Fatalf("status = %s, want missing", q.Status)
	}
	if q.StaleDays != 5 {
		t.Fatalf("stale days = %d, want 5", q.StaleDays)
	}
}

func TestQualityReportStale(t *testing.T) {
	report := models.QualityReport{
		"vix":    {Status: models.QualityOK, StaleDays: 1},
		"sofr":   {Status: models.QualityOK, StaleDays: 5},
		"hy_oas": {Status: models.QualityDegraded},
	}
	stale := report.Stale(3)
	if len(stale) != 2 {
		t.Fatalf("stale = %v, want sofr and hy_oas", stale)
	}
}
