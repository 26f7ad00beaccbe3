package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"postal-prediction-api/config"
	"postal-prediction-api/models"
)

// ErrNotFound marks a prediction request for an entity absent from the
// reference data. It is an expected outcome, not a fault; callers render it
// as a user-facing message.
var ErrNotFound = errors.New("entity not found in reference data")

// Route speed thresholds, in predicted hours.
const (
	fastRouteHours   = 6
	normalRouteHours = 24
)

const journeyHistoryLimit = 10

// DataProvider is the reference-data boundary the predictor depends on.
type DataProvider interface {
	ItemEvents() ([]models.ScanEvent, error)
	ReceptacleEvents() ([]models.ScanEvent, error)
}

// PredictionService runs the full prediction path: history lookup, feature
// engineering, model scoring, log append and live publishing.
type PredictionService struct {
	data     DataProvider
	features *FeatureService
	scorer   Scorer
	itemLog  *PredictionLog
	rcpLog   *PredictionLog
	cache    *CacheService
	cfg      config.FeaturesConfig
}

func NewPredictionService(
	data DataProvider,
	features *FeatureService,
	scorer Scorer,
	itemLog, rcpLog *PredictionLog,
	cache *CacheService,
	cfg config.FeaturesConfig,
) *PredictionService {
	return &PredictionService{
		data:     data,
		features: features,
		scorer:   scorer,
		itemLog:  itemLog,
		rcpLog:   rcpLog,
		cache:    cache,
		cfg:      cfg,
	}
}

// PredictItem scores the latest scan of one mail item. Returns ErrNotFound
// when the item has no rows in the reference table.
func (s *PredictionService) PredictItem(ctx context.Context, itemID string) (*models.ItemPrediction, error) {
	start := time.Now()
	defer func() { predictionDuration.Observe(time.Since(start).Seconds()) }()

	itemID = strings.TrimSpace(itemID)

	table, err := s.data.ItemEvents()
	if err != nil {
		predictionsFailed.WithLabelValues("item").Inc()
		return nil, err
	}

	history := ItemHistory(table, itemID)
	if len(history) == 0 {
		predictionsNotFound.WithLabelValues("item").Inc()
		return nil, fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}
	target := history[len(history)-1]

	vector, err := s.features.PrepareItemFeatures(target, history, table)
	if err != nil {
		predictionsFailed.WithLabelValues("item").Inc()
		return nil, err
	}

	predicted, err := s.scorer.ScoreItem(vector)
	if err != nil {
		predictionsFailed.WithLabelValues("item").Inc()
		return nil, err
	}
	predictionsGenerated.WithLabelValues("item").Inc()

	sinceFirst, _ := vector.NumByName("time_since_first_scan")

	// The item's journey started when its receptacle was first scanned;
	// fold that elapsed time into the total estimate when the receptacle
	// is known.
	receptacleElapsed := s.receptacleElapsedHours(target.ReceptacleID)
	total := receptacleElapsed + predicted
	thresholdHours := float64(s.cfg.DelayThresholdDays) * 24

	saved, err := s.itemLog.AppendIfNew(itemID, predicted, vector)
	if err != nil {
		predictionsFailed.WithLabelValues("item").Inc()
		return nil, err
	}
	if saved {
		predictionsLogged.WithLabelValues("item").Inc()
	}

	pred := &models.ItemPrediction{
		PredictionID:           uuid.NewString(),
		ItemID:                 itemID,
		PredictedHours:         round2(predicted),
		TimeSinceFirstScan:     round2(sinceFirst),
		ReceptacleElapsedHours: round2(receptacleElapsed),
		TotalEstimatedHours:    round2(total),
		TotalEstimatedDays:     round1(total / 24),
		IsDelayed:              total > thresholdHours,
		DelayThresholdDays:     s.cfg.DelayThresholdDays,
		RouteSpeed:             routeSpeed(predicted),
		CurrentLocation:        target.Facility,
		NextLocation:           target.NextFacility,
		EventType:              target.EventType,
		LastScanDate:           target.Date.Format("2006-01-02 15:04:05"),
		TotalScans:             len(history),
		ReceptacleID:           target.ReceptacleID,
		WasSaved:               saved,
		Features:               featureMap(vector),
		JourneyHistory:         journeyHistory(history),
		Vector:                 vector,
	}
	s.publish(ctx, "item", pred.PredictionID, itemID, pred.PredictedHours)
	return pred, nil
}

// PredictReceptacle scores the latest scan of one receptacle.
func (s *PredictionService) PredictReceptacle(ctx context.Context, receptacleID string) (*models.ReceptaclePrediction, error) {
	start := time.Now()
	defer func() { predictionDuration.Observe(time.Since(start).Seconds()) }()

	receptacleID = strings.TrimSpace(receptacleID)

	table, err := s.data.ReceptacleEvents()
	if err != nil {
		predictionsFailed.WithLabelValues("receptacle").Inc()
		return nil, err
	}
	// The item table backs the per-receptacle item count, so it is loaded
	// even when only receptacles are being scored.
	itemTable, err := s.data.ItemEvents()
	if err != nil {
		predictionsFailed.WithLabelValues("receptacle").Inc()
		return nil, err
	}

	history := ReceptacleHistory(table, receptacleID)
	if len(history) == 0 {
		predictionsNotFound.WithLabelValues("receptacle").Inc()
		return nil, fmt.Errorf("receptacle %s: %w", receptacleID, ErrNotFound)
	}
	target := history[len(history)-1]

	vector, err := s.features.PrepareReceptacleFeatures(target, history, table, itemTable)
	if err != nil {
		predictionsFailed.WithLabelValues("receptacle").Inc()
		return nil, err
	}

	predicted, err := s.scorer.ScoreReceptacle(vector)
	if err != nil {
		predictionsFailed.WithLabelValues("receptacle").Inc()
		return nil, err
	}
	predictionsGenerated.WithLabelValues("receptacle").Inc()

	sinceFirst, _ := vector.NumByName("time_since_first_scan")
	total := sinceFirst + predicted

	saved, err := s.rcpLog.AppendIfNew(receptacleID, predicted, vector)
	if err != nil {
		predictionsFailed.WithLabelValues("receptacle").Inc()
		return nil, err
	}
	if saved {
		predictionsLogged.WithLabelValues("receptacle").Inc()
	}

	parts := ParseReceptacleID(receptacleID)
	pred := &models.ReceptaclePrediction{
		PredictionID:        uuid.NewString(),
		ReceptacleID:        receptacleID,
		PredictedHours:      round2(predicted),
		TimeSinceFirstScan:  round2(sinceFirst),
		TotalEstimatedHours: round2(total),
		TotalEstimatedDays:  round1(total / 24),
		RouteSpeed:          routeSpeed(predicted),
		OriginCountry:       parts.OriginCountry,
		DestinationCountry:  parts.DestinationCountry,
		FlowDirection:       s.features.ClassifyFlow(parts),
		CurrentLocation:     target.Facility,
		NextLocation:        target.NextFacility,
		EventType:           target.EventType,
		LastScanDate:        target.Date.Format("2006-01-02 15:04:05"),
		TotalScans:          len(history),
		WasSaved:            saved,
		Features:            featureMap(vector),
		JourneyHistory:      journeyHistory(history),
		Vector:              vector,
	}
	s.publish(ctx, "receptacle", pred.PredictionID, receptacleID, pred.PredictedHours)
	return pred, nil
}

// ItemLog exposes the item prediction log for read endpoints.
func (s *PredictionService) ItemLog() *PredictionLog { return s.itemLog }

// ReceptacleLog exposes the receptacle prediction log for read endpoints.
func (s *PredictionService) ReceptacleLog() *PredictionLog { return s.rcpLog }

// receptacleElapsedHours returns the span between the first and last scans
// of the receptacle, or 0 when the receptacle is unknown.
func (s *PredictionService) receptacleElapsedHours(receptacleID string) float64 {
	if receptacleID == "" {
		return 0
	}
	table, err := s.data.ReceptacleEvents()
	if err != nil {
		log.Printf("receptacle table unavailable, skipping elapsed time: %v", err)
		return 0
	}
	history := ReceptacleHistory(table, receptacleID)
	if len(history) == 0 {
		return 0
	}
	return history[len(history)-1].Date.Sub(history[0].Date).Hours()
}

func (s *PredictionService) publish(ctx context.Context, kind, predictionID, entityID string, hours float64) {
	if s.cache == nil {
		return
	}
	event := map[string]interface{}{
		"prediction_id":    predictionID,
		"kind":             kind,
		"entity_id":        entityID,
		"prediction_hours": hours,
	}
	if err := s.cache.Publish(ctx, PredictionsChannel, event); err != nil {
		log.Printf("publish prediction failed: %v", err)
	}
}

func routeSpeed(predictedHours float64) string {
	switch {
	case predictedHours < fastRouteHours:
		return "fast"
	case predictedHours < normalRouteHours:
		return "normal"
	default:
		return "slow"
	}
}

func featureMap(v models.FeatureVector) map[string]string {
	out := make(map[string]string, v.Len())
	values := v.Strings()
	for i, f := range v.Fields() {
		out[f.Name] = values[i]
	}
	return out
}

func journeyHistory(history []models.ScanEvent) []models.JourneyEntry {
	n := len(history)
	limit := journeyHistoryLimit
	if n < limit {
		limit = n
	}
	entries := make([]models.JourneyEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		ev := history[i]
		entries = append(entries, models.JourneyEntry{
			Date:         ev.Date.Format("2006-01-02 15:04:05"),
			Facility:     ev.Facility,
			NextFacility: ev.NextFacility,
			EventType:    ev.EventType,
		})
	}
	return entries
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
