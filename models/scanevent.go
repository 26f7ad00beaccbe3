package models

import "time"

// Canonical column names of the reference tables. The receptacle file is
// allowed to use alternate spellings; the loader maps them back onto these.
const (
	ColItemID       = "MAILITM_FID"
	ColReceptacleID = "RECPTCL_FID"
	ColDate         = "date"
	ColFacility     = "etablissement_postal"
	ColNextFacility = "next_etablissement_postal"
	ColEventType    = "EVENT_TYPE_CD"
)

// ScanEvent is one row of a reference table: an entity observed at a
// facility. Rows from the receptacle table carry an empty ItemID.
type ScanEvent struct {
	ItemID       string    `json:"mailitm_fid,omitempty"`
	ReceptacleID string    `json:"recptcl_fid,omitempty"`
	Date         time.Time `json:"date"`
	Facility     string    `json:"etablissement_postal"`
	NextFacility string    `json:"next_etablissement_postal"`
	EventType    string    `json:"event_type_cd"`
}
