package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"sync"
	"time"

	"postal-prediction-api/models"
)

// Fixed leading columns of the prediction log; the feature vector follows.
var predictionLogPrefix = []string{"prediction_timestamp", "entity_id", "predicted_duration_hours"}

const timeSinceFirstScanField = "time_since_first_scan"

// PredictionLog is an append-only CSV of scored predictions. A row is keyed
// by (entity id, time_since_first_scan rounded to 2 decimals): re-scoring
// the same scan produces no second row. Writes are serialized by a mutex;
// the file has a single-writer ownership model per process.
type PredictionLog struct {
	mu     sync.Mutex
	path   string
	schema []models.FeatureField
	now    func() time.Time // injectable for deterministic tests
}

func NewPredictionLog(path string, schema []models.FeatureField) *PredictionLog {
	return &PredictionLog{path: path, schema: schema, now: time.Now}
}

// Columns returns the log's header: the fixed prefix followed by the
// feature schema in order.
func (l *PredictionLog) Columns() []string {
	return append(append([]string{}, predictionLogPrefix...), fieldNames(l.schema)...)
}

// AppendIfNew appends one record unless a duplicate already exists. Returns
// true when a row was written.
func (l *PredictionLog) AppendIfNew(entityID string, predicted float64, v models.FeatureVector) (bool, error) {
	if !models.SameSchema(v.Fields(), l.schema) {
		return false, fmt.Errorf("prediction log: vector schema does not match log schema")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	sinceFirst, ok := v.NumByName(timeSinceFirstScanField)
	if !ok {
		return false, fmt.Errorf("prediction log: vector has no %s field", timeSinceFirstScanField)
	}

	exists, err := l.exists(entityID, sinceFirst)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	writeHeader := false
	if _, err := os.Stat(l.path); errors.Is(err, os.ErrNotExist) {
		writeHeader = true
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("open prediction log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(l.Columns()); err != nil {
			return false, err
		}
	}

	row := []string{
		l.now().Format("2006-01-02 15:04:05"),
		entityID,
		strconv.FormatFloat(round2(predicted), 'f', 2, 64),
	}
	row = append(row, v.Strings()...)
	if err := w.Write(row); err != nil {
		return false, err
	}
	w.Flush()
	return true, w.Error()
}

// ReadAll returns every logged record, or (nil, nil) when the log file does
// not exist yet.
func (l *PredictionLog) ReadAll() ([]models.PredictionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readAllLocked()
}

func (l *PredictionLog) readAllLocked() ([]models.PredictionRecord, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open prediction log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []models.PredictionRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rec := models.PredictionRecord{Features: make(map[string]string)}
		for i, col := range header {
			if i >= len(row) {
				break
			}
			switch col {
			case "prediction_timestamp":
				if ts, perr := time.Parse("2006-01-02 15:04:05", row[i]); perr == nil {
					rec.LoggedAt = ts
				}
			case "entity_id":
				rec.EntityID = row[i]
			case "predicted_duration_hours":
				rec.PredictedHours, _ = strconv.ParseFloat(row[i], 64)
			default:
				rec.Features[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// exists reports whether a record with the same entity id and the same
// rounded time_since_first_scan is already present.
func (l *PredictionLog) exists(entityID string, sinceFirst float64) (bool, error) {
	records, err := l.readAllLocked()
	if err != nil {
		return false, err
	}
	key := round2(sinceFirst)
	for _, rec := range records {
		if rec.EntityID != entityID {
			continue
		}
		raw, ok := rec.Features[timeSinceFirstScanField]
		if !ok {
			continue
		}
		logged, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		if round2(logged) == key {
			return true, nil
		}
	}
	return false, nil
}

func fieldNames(schema []models.FeatureField) []string {
	names := make([]string, len(schema))
	for i, f := range schema {
		names[i] = f.Name
	}
	return names
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
