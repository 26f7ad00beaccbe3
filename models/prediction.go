package models

import "time"

// JourneyEntry is one historical scan in a prediction response, newest first.
type JourneyEntry struct {
	Date         string `json:"date"`
	Facility     string `json:"etablissement_postal"`
	NextFacility string `json:"next_etablissement_postal"`
	EventType    string `json:"event_type_cd"`
}

// ItemPrediction is the full result of scoring a mail item's latest scan.
type ItemPrediction struct {
	PredictionID            string            `json:"prediction_id"`
	ItemID                  string            `json:"mailitm_fid"`
	PredictedHours          float64           `json:"prediction_hours"`
	TimeSinceFirstScan      float64           `json:"time_since_first_scan_hours"`
	ReceptacleElapsedHours  float64           `json:"receptacle_time_since_first_scan_hours"`
	TotalEstimatedHours     float64           `json:"total_estimated_hours"`
	TotalEstimatedDays      float64           `json:"total_estimated_days"`
	IsDelayed               bool              `json:"is_delayed"`
	DelayThresholdDays      int               `json:"delay_threshold_days"`
	RouteSpeed              string            `json:"route_speed"`
	CurrentLocation         string            `json:"current_location"`
	NextLocation            string            `json:"next_location,omitempty"`
	EventType               string            `json:"event_type"`
	LastScanDate            string            `json:"last_scan_date"`
	TotalScans              int               `json:"total_scans"`
	ReceptacleID            string            `json:"recptcl_fid"`
	WasSaved                bool              `json:"was_saved"`
	Features                map[string]string `json:"features"`
	JourneyHistory          []JourneyEntry    `json:"journey_history"`

	// Vector keeps the ordered feature values for collaborators that need
	// them in schema order (PDF export); the JSON view uses Features.
	Vector FeatureVector `json:"-"`
}

// ReceptaclePrediction is the receptacle counterpart of ItemPrediction.
type ReceptaclePrediction struct {
	PredictionID        string            `json:"prediction_id"`
	ReceptacleID        string            `json:"recptcl_fid"`
	PredictedHours      float64           `json:"prediction_hours"`
	TimeSinceFirstScan  float64           `json:"time_since_first_scan_hours"`
	TotalEstimatedHours float64           `json:"total_estimated_hours"`
	TotalEstimatedDays  float64           `json:"total_estimated_days"`
	RouteSpeed          string            `json:"route_speed"`
	OriginCountry       string            `json:"origin_country"`
	DestinationCountry  string            `json:"destination_country"`
	FlowDirection       string            `json:"flow_direction"`
	CurrentLocation     string            `json:"current_location"`
	NextLocation        string            `json:"next_location,omitempty"`
	EventType           string            `json:"event_type"`
	LastScanDate        string            `json:"last_scan_date"`
	TotalScans          int               `json:"total_scans"`
	WasSaved            bool              `json:"was_saved"`
	Features            map[string]string `json:"features"`
	JourneyHistory      []JourneyEntry    `json:"journey_history"`

	Vector FeatureVector `json:"-"`
}

// PredictionRecord is one row of the append-only prediction log.
type PredictionRecord struct {
	LoggedAt       time.Time         `json:"prediction_timestamp"`
	EntityID       string            `json:"entity_id"`
	PredictedHours float64           `json:"predicted_duration_hours"`
	Features       map[string]string `json:"features"`
}
