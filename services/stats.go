package services

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"postal-prediction-api/config"
	"postal-prediction-api/models"
)

// Shipment status labels derived from scan events.
const (
	StatusDelivered = "Delivered"
	StatusDelayed   = "Delayed"
	StatusInTransit = "In Transit"
)

// Overview is the high-level dashboard summary.
type Overview struct {
	TotalShipments int    `json:"total_shipments"`
	Delivered      int    `json:"delivered"`
	InTransit      int    `json:"in_transit"`
	Delayed        int    `json:"delayed"`
	UniquePackages int    `json:"unique_packages"`
	DateRangeStart string `json:"date_range_start"`
	DateRangeEnd   string `json:"date_range_end"`

	Predictions *PredictionStats `json:"predictions,omitempty"`
}

// PredictionStats summarizes the predicted durations logged so far.
type PredictionStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean_hours"`
	StdDev float64 `json:"stddev_hours"`
	P50    float64 `json:"p50_hours"`
	P90    float64 `json:"p90_hours"`
}

// StatsService derives dashboard numbers from the reference table and the
// prediction log.
type StatsService struct {
	deliveredCodes map[string]bool
	delayedCodes   map[string]bool
}

func NewStatsService(cfg config.FeaturesConfig) *StatsService {
	return &StatsService{
		deliveredCodes: codeSet(cfg.DeliveredCodes),
		delayedCodes:   codeSet(cfg.DelayedCodes),
	}
}

func codeSet(codes []string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}

// Status maps one event-type code to a shipment status label.
func (s *StatsService) Status(eventType string) string {
	switch {
	case s.deliveredCodes[eventType]:
		return StatusDelivered
	case s.delayedCodes[eventType]:
		return StatusDelayed
	default:
		return StatusInTransit
	}
}

// Overview aggregates the item reference table and, when available, the
// logged predictions.
func (s *StatsService) Overview(events []models.ScanEvent, logged []models.PredictionRecord) Overview {
	o := Overview{TotalShipments: len(events)}

	unique := make(map[string]bool)
	var minDate, maxDate time.Time
	for i, ev := range events {
		switch s.Status(ev.EventType) {
		case StatusDelivered:
			o.Delivered++
		case StatusDelayed:
			o.Delayed++
		default:
			o.InTransit++
		}
		unique[ev.ItemID] = true
		if i == 0 || ev.Date.Before(minDate) {
			minDate = ev.Date
		}
		if i == 0 || ev.Date.After(maxDate) {
			maxDate = ev.Date
		}
	}
	o.UniquePackages = len(unique)
	if len(events) > 0 {
		o.DateRangeStart = minDate.Format("2006-01-02")
		o.DateRangeEnd = maxDate.Format("2006-01-02")
	}

	o.Predictions = summarizePredictions(logged)
	return o
}

func summarizePredictions(logged []models.PredictionRecord) *PredictionStats {
	if len(logged) == 0 {
		return nil
	}
	hours := make([]float64, 0, len(logged))
	for _, rec := range logged {
		hours = append(hours, rec.PredictedHours)
	}
	sort.Float64s(hours)

	mean, std := stat.MeanStdDev(hours, nil)
	ps := &PredictionStats{
		Count:  len(hours),
		Mean:   round2(mean),
		P50:    round2(stat.Quantile(0.5, stat.Empirical, hours, nil)),
		P90:    round2(stat.Quantile(0.9, stat.Empirical, hours, nil)),
	}
	// StdDev of a single sample is NaN; report 0 instead.
	if len(hours) > 1 {
		ps.StdDev = round2(std)
	}
	return ps
}
