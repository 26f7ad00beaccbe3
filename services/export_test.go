package services

import (
	"bytes"
	"testing"
	"time"

	"postal-prediction-api/models"
)

func exportTestVector(t *testing.T) models.FeatureVector {
	t.Helper()
	v, err := models.NewFeatureVector(models.ItemFeatureSchema,
		map[string]float64{
			"EVENT_TYPE_CD": 4, "hour": 9, "month": 1,
			"is_weekend": 1, "first_last_week_day": 0,
			"days_since_last_holiday": 4, "days_until_next_holiday": 7,
			"etab_load_1h": 2, "route_load_1h": 1,
			"time_since_first_scan": 24.5, "time_since_last_scan": 3.25,
		},
		map[string]string{
			"etablissement_postal":      "ALG_CTR",
			"next_etablissement_postal": "ORAN_CTR",
			"day_of_week":               "Friday",
			"service_indicator":         "EE",
			"origin_destination":        "DZ_FR",
			"country_service":           "DZ_EE",
		})
	if err != nil {
		t.Fatalf("build vector: %v", err)
	}
	return v
}

func TestItemReport(t *testing.T) {
	svc := NewExportService()
	svc.now = func() time.Time { return time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC) }

	p := &models.ItemPrediction{
		ItemID:              "EE123456789DZ",
		PredictedHours:      12.5,
		TimeSinceFirstScan:  24.5,
		TotalEstimatedHours: 37,
		CurrentLocation:     "ALG_CTR",
		EventType:           "4",
		LastScanDate:        "2024-01-05 09:00:00",
		TotalScans:          3,
		Vector:              exportTestVector(t),
		JourneyHistory: []models.JourneyEntry{
			{Date: "2024-01-05 09:00:00", Facility: "ALG_CTR", NextFacility: "ORAN_CTR", EventType: "4"},
			{Date: "2024-01-04 09:00:00", Facility: "ALG_HUB", NextFacility: "ALG_CTR", EventType: "3"},
		},
	}

	data, err := svc.ItemReport(p)
	if err != nil {
		t.Fatalf("ItemReport: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF, starts with %q", data[:min(8, len(data))])
	}
	if len(data) < 1000 {
		t.Errorf("suspiciously small PDF: %d bytes", len(data))
	}
}

func TestReceptacleReportEmptyHistory(t *testing.T) {
	svc := NewExportService()
	p := &models.ReceptaclePrediction{
		ReceptacleID:        "DZFRAB",
		PredictedHours:      8,
		TotalEstimatedHours: 20,
		FlowDirection:       "outbound",
	}
	data, err := svc.ReceptacleReport(p)
	if err != nil {
		t.Fatalf("ReceptacleReport: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abcd" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("ab", 4); got != "ab" {
		t.Errorf("truncate = %q", got)
	}
	// Runes, not bytes: a cut inside an accented name must not leave a
	// half-encoded character behind.
	if got := truncate("Béjaïa Centre", 6); got != "Béjaïa" {
		t.Errorf("truncate = %q, want %q", got, "Béjaïa")
	}
}
