package services

import (
	"time"

	"postal-prediction-api/config"
	"postal-prediction-api/models"
)

// Flow classification levels for receptacles, relative to the home country.
const (
	FlowLocal    = "local"
	FlowInbound  = "inbound"
	FlowOutbound = "outbound"
	FlowOther    = "other"
)

// unknownCategory replaces any categorical feature that is still empty after
// all derivations, so an unresolved join reaches the model as a valid level
// instead of a missing value.
const unknownCategory = "UNKNOWN"

// FeatureService reproduces the exact feature engineering the route-duration
// models were trained with. Field order and every derivation rule are a
// contract with the trained models.
type FeatureService struct {
	holidays *HolidayIndex
	cfg      config.FeaturesConfig
}

func NewFeatureService(holidays *HolidayIndex, cfg config.FeaturesConfig) *FeatureService {
	return &FeatureService{holidays: holidays, cfg: cfg}
}

// PrepareItemFeatures derives the item model's feature vector for one target
// scan, given the item's full history and the entire item reference table.
func (s *FeatureService) PrepareItemFeatures(target models.ScanEvent, history, table []models.ScanEvent) (models.FeatureVector, error) {
	item := ParseItemID(target.ItemID)
	receptacle := ParseReceptacleID(target.ReceptacleID)

	nums := s.calendarAndLoadFeatures(target, table)
	nums["time_since_first_scan"] = hoursSinceFirstScan(target, history)
	nums["time_since_last_scan"] = hoursSincePreviousScan(target, history)

	cats := map[string]string{
		models.ColFacility:     target.Facility,
		models.ColNextFacility: target.NextFacility,
		"day_of_week":          target.Date.Weekday().String(),
		"service_indicator":    item.ServiceIndicator,
		"origin_destination":   receptacle.OriginCountry + "_" + receptacle.DestinationCountry,
		"country_service":      receptacle.OriginCountry + "_" + item.ServiceIndicator,
	}
	fillUnknown(cats)

	return models.NewFeatureVector(models.ItemFeatureSchema, nums, cats)
}

// PrepareReceptacleFeatures derives the receptacle model's feature vector.
// itemTable is the item reference table, needed for the per-receptacle item
// count even when only receptacles are being scored.
func (s *FeatureService) PrepareReceptacleFeatures(target models.ScanEvent, history, table, itemTable []models.ScanEvent) (models.FeatureVector, error) {
	receptacle := ParseReceptacleID(target.ReceptacleID)

	nums := s.calendarAndLoadFeatures(target, table)
	nums["time_since_first_scan"] = hoursSinceFirstScan(target, history)
	nums["time_since_last_scan"] = hoursSincePreviousScan(target, history)
	nums["items_per_receptacle"] = float64(countItemsInReceptacle(itemTable, target.ReceptacleID))

	cats := map[string]string{
		models.ColFacility:     target.Facility,
		models.ColNextFacility: target.NextFacility,
		"day_of_week":          target.Date.Weekday().String(),
		"origin_destination":   receptacle.OriginCountry + "_" + receptacle.DestinationCountry,
		"flow_direction":       s.ClassifyFlow(receptacle),
	}
	fillUnknown(cats)

	return models.NewFeatureVector(models.ReceptacleFeatureSchema, nums, cats)
}

// ClassifyFlow labels a receptacle's route relative to the home country.
func (s *FeatureService) ClassifyFlow(parts ReceptacleIDParts) string {
	origin := parts.OriginCountry == s.cfg.HomeCountry
	dest := parts.DestinationCountry == s.cfg.HomeCountry
	switch {
	case origin && dest:
		return FlowLocal
	case dest:
		return FlowInbound
	case origin:
		return FlowOutbound
	default:
		return FlowOther
	}
}

// calendarAndLoadFeatures computes the numeric features shared by both
// schemas: calendar fields, holiday distances and the two 1-hour loads.
func (s *FeatureService) calendarAndLoadFeatures(target models.ScanEvent, table []models.ScanEvent) map[string]float64 {
	nums := map[string]float64{
		models.ColEventType:       eventTypeNumber(target.EventType),
		"hour":                    float64(target.Date.Hour()),
		"month":                   float64(target.Date.Month()),
		"is_weekend":              boolFeature(weekdayIn(target.Date.Weekday(), s.cfg.WeekendDays)),
		"first_last_week_day":     boolFeature(weekdayIn(target.Date.Weekday(), s.cfg.EdgeDays)),
		"days_since_last_holiday": float64(s.holidays.DaysSinceLast(target.Date)),
		"days_until_next_holiday": float64(s.holidays.DaysUntilNext(target.Date)),
		"etab_load_1h":            float64(FacilityLoad1h(table, target.Facility, target.Date)),
		"route_load_1h":           float64(RouteLoad1h(table, target.Facility, target.NextFacility, target.Date)),
	}
	return nums
}

// FacilityLoad1h counts reference-table rows at the given facility within
// the hour before t. The window is half-open, [t-1h, t): a row stamped
// exactly t, including the target row itself, is not counted.
func FacilityLoad1h(table []models.ScanEvent, facility string, t time.Time) int {
	from := t.Add(-time.Hour)
	n := 0
	for _, ev := range table {
		if ev.Facility == facility && !ev.Date.Before(from) && ev.Date.Before(t) {
			n++
		}
	}
	return n
}

// RouteLoad1h counts rows sharing both the origin and the next facility
// within the hour before t, with the same half-open window.
func RouteLoad1h(table []models.ScanEvent, facility, nextFacility string, t time.Time) int {
	from := t.Add(-time.Hour)
	n := 0
	for _, ev := range table {
		if ev.Facility == facility && ev.NextFacility == nextFacility &&
			!ev.Date.Before(from) && ev.Date.Before(t) {
			n++
		}
	}
	return n
}

// countItemsInReceptacle counts item-table rows referencing the receptacle.
// Duplicate scans of the same item are counted; the feature is a row count,
// not a distinct-item count.
func countItemsInReceptacle(itemTable []models.ScanEvent, receptacleID string) int {
	n := 0
	for _, ev := range itemTable {
		if ev.ReceptacleID == receptacleID {
			n++
		}
	}
	return n
}

// hoursSinceFirstScan is the elapsed time from the entity's earliest scan to
// the target scan, in hours.
func hoursSinceFirstScan(target models.ScanEvent, history []models.ScanEvent) float64 {
	if len(history) == 0 {
		return 0
	}
	first := history[0].Date
	for _, ev := range history[1:] {
		if ev.Date.Before(first) {
			first = ev.Date
		}
	}
	return target.Date.Sub(first).Hours()
}

// hoursSincePreviousScan is the length of the interval ending at the target
// scan: elapsed hours since the second-most-recent scan, or 0 when the
// entity has a single scan on record.
func hoursSincePreviousScan(target models.ScanEvent, history []models.ScanEvent) float64 {
	if len(history) < 2 {
		return 0
	}
	ordered := make([]models.ScanEvent, len(history))
	copy(ordered, history)
	sortByDate(ordered)
	return target.Date.Sub(ordered[len(ordered)-2].Date).Hours()
}

// eventTypeNumber coerces the event-type code to its numeric value; codes
// that are not numeric map to 0.
func eventTypeNumber(code string) float64 {
	n := 0.0
	for _, r := range code {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + float64(r-'0')
	}
	return n
}

func weekdayIn(day time.Weekday, days []time.Weekday) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// fillUnknown back-fills the UNKNOWN sentinel into any categorical value
// that is still empty. This runs after every derivation, immediately before
// schema projection.
func fillUnknown(cats map[string]string) {
	for k, v := range cats {
		if v == "" {
			cats[k] = unknownCategory
		}
	}
}
