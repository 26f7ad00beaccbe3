package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/encoding/charmap"

	"postal-prediction-api/config"
	"postal-prediction-api/models"
)

// Timestamp layouts accepted in the reference tables, tried in order.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
}

// Alternate spellings seen in receptacle exports, keyed by a lowercased,
// underscore-stripped form of the raw header. Only the receptacle table is
// allowed this leniency; the item table must use the canonical names.
var receptacleAliases = map[string]string{
	"recptclfid":              models.ColReceptacleID,
	"recptclid":               models.ColReceptacleID,
	"receptaclefid":           models.ColReceptacleID,
	"receptacleid":            models.ColReceptacleID,
	"date":                    models.ColDate,
	"scandate":                models.ColDate,
	"eventdate":               models.ColDate,
	"etablissementpostal":     models.ColFacility,
	"etabpostal":              models.ColFacility,
	"etablissement":           models.ColFacility,
	"nextetablissementpostal": models.ColNextFacility,
	"nextetabpostal":          models.ColNextFacility,
	"nextetablissement":       models.ColNextFacility,
	"eventtypecd":             models.ColEventType,
	"eventtype":               models.ColEventType,
	"eventcd":                 models.ColEventType,
}

// DatasetService loads and caches the two reference tables. Each table is
// parsed at most once per process; there is no reload path, a restart is
// required to pick up new data.
type DatasetService struct {
	itemsPath       string
	receptaclesPath string

	itemsOnce sync.Once
	items     []models.ScanEvent
	itemsErr  error

	receptaclesOnce sync.Once
	receptacles     []models.ScanEvent
	receptaclesErr  error
}

func NewDatasetService(cfg config.DataConfig) *DatasetService {
	return &DatasetService{
		itemsPath:       cfg.ItemsPath,
		receptaclesPath: cfg.ReceptaclesPath,
	}
}

// ItemEvents returns the mail item reference table, loading it on first use.
// A load failure is sticky: every later call reports the same error.
func (s *DatasetService) ItemEvents() ([]models.ScanEvent, error) {
	s.itemsOnce.Do(func() {
		s.items, s.itemsErr = loadScanTable(s.itemsPath, false)
		if s.itemsErr != nil {
			s.itemsErr = fmt.Errorf("load item reference table: %w", s.itemsErr)
		}
	})
	return s.items, s.itemsErr
}

// ReceptacleEvents returns the receptacle reference table, loading it on
// first use.
func (s *DatasetService) ReceptacleEvents() ([]models.ScanEvent, error) {
	s.receptaclesOnce.Do(func() {
		s.receptacles, s.receptaclesErr = loadScanTable(s.receptaclesPath, true)
		if s.receptaclesErr != nil {
			s.receptaclesErr = fmt.Errorf("load receptacle reference table: %w", s.receptaclesErr)
		}
	})
	return s.receptacles, s.receptaclesErr
}

// ItemHistory returns the events for one item identifier, ordered by
// timestamp ascending.
func ItemHistory(events []models.ScanEvent, itemID string) []models.ScanEvent {
	itemID = strings.TrimSpace(itemID)
	var out []models.ScanEvent
	for _, ev := range events {
		if ev.ItemID == itemID {
			out = append(out, ev)
		}
	}
	sortByDate(out)
	return out
}

// ReceptacleHistory returns the events for one receptacle identifier,
// ordered by timestamp ascending.
func ReceptacleHistory(events []models.ScanEvent, receptacleID string) []models.ScanEvent {
	receptacleID = strings.TrimSpace(receptacleID)
	var out []models.ScanEvent
	for _, ev := range events {
		if ev.ReceptacleID == receptacleID {
			out = append(out, ev)
		}
	}
	sortByDate(out)
	return out
}

func sortByDate(events []models.ScanEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
}

// loadScanTable parses one delimited reference file. The exports come from a
// system that writes Latin-1, so the bytes are decoded as such before any
// header matching; UTF-8 accents that were mangled on the way ("é" read as
// "Ã©") are repaired in header names only.
func loadScanTable(path string, receptacleSchema bool) ([]models.ScanEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(f))
	r.TrimLeadingSpace = true

	rawHeader, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := resolveColumns(rawHeader, receptacleSchema)
	if err != nil {
		return nil, err
	}

	var events []models.ScanEvent
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++

		ts, err := parseTimestamp(record[cols.date])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ev := models.ScanEvent{
			Date:      ts,
			Facility:  strings.TrimSpace(record[cols.facility]),
			EventType: strings.TrimSpace(record[cols.eventType]),
		}
		if cols.next >= 0 {
			ev.NextFacility = strings.TrimSpace(record[cols.next])
		}
		if cols.itemID >= 0 {
			ev.ItemID = strings.TrimSpace(record[cols.itemID])
		}
		if cols.receptacleID >= 0 {
			ev.ReceptacleID = strings.TrimSpace(record[cols.receptacleID])
		}
		events = append(events, ev)
	}

	return events, nil
}

type columnIndexes struct {
	itemID       int
	receptacleID int
	date         int
	facility     int
	next         int
	eventType    int
}

// resolveColumns maps the raw header onto canonical column positions. For
// the item schema names must match exactly after mojibake repair; for the
// receptacle schema the alias table is consulted with case- and
// underscore-insensitive matching. Any unresolved required column makes the
// whole load fail, listing everything that is missing.
func resolveColumns(rawHeader []string, receptacleSchema bool) (columnIndexes, error) {
	cols := columnIndexes{itemID: -1, receptacleID: -1, date: -1, facility: -1, next: -1, eventType: -1}

	for i, raw := range rawHeader {
		name := repairMojibake(strings.TrimSpace(raw))
		if receptacleSchema {
			canonical, ok := receptacleAliases[normalizeHeaderKey(name)]
			if !ok {
				continue
			}
			name = canonical
		}
		switch name {
		case models.ColItemID:
			cols.itemID = i
		case models.ColReceptacleID:
			cols.receptacleID = i
		case models.ColDate:
			cols.date = i
		case models.ColFacility:
			cols.facility = i
		case models.ColNextFacility:
			cols.next = i
		case models.ColEventType:
			cols.eventType = i
		}
	}

	var missing []string
	if !receptacleSchema && cols.itemID < 0 {
		missing = append(missing, models.ColItemID)
	}
	if cols.receptacleID < 0 {
		missing = append(missing, models.ColReceptacleID)
	}
	if cols.date < 0 {
		missing = append(missing, models.ColDate)
	}
	if cols.facility < 0 {
		missing = append(missing, models.ColFacility)
	}
	if cols.eventType < 0 {
		missing = append(missing, models.ColEventType)
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("unresolved required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// repairMojibake normalizes accented header characters, covering both the
// properly decoded form and the double-encoded artifact.
func repairMojibake(name string) string {
	name = strings.ReplaceAll(name, "Ã©", "e")
	name = strings.ReplaceAll(name, "é", "e")
	return name
}

func normalizeHeaderKey(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "")
	name = strings.ReplaceAll(name, " ", "")
	return name
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", value)
}
