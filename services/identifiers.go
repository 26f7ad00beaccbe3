package services

import "strings"

// ItemIDParts are the fixed-offset components of a mail item identifier
// (S10-style, e.g. "RR123456789DZ "): a 2-char service indicator, a 9-char
// serial number and the destination country code.
type ItemIDParts struct {
	ServiceIndicator string
	SerialNumber     string
	CountryCode      string
}

// ReceptacleIDParts are the country components of a receptacle identifier:
// origin at offset 0, destination at offset 6.
type ReceptacleIDParts struct {
	OriginCountry      string
	DestinationCountry string
}

// ParseItemID extracts the item identifier components. The contract is
// deliberately best-effort: an identifier shorter than 14 characters yields
// truncated or empty parts, never an error.
func ParseItemID(id string) ItemIDParts {
	return ItemIDParts{
		ServiceIndicator: substr(id, 0, 2),
		SerialNumber:     substr(id, 2, 11),
		CountryCode:      strings.TrimSpace(substr(id, 11, 14)),
	}
}

// ParseReceptacleID extracts the origin and destination countries from a
// receptacle identifier. Same best-effort contract as ParseItemID.
func ParseReceptacleID(id string) ReceptacleIDParts {
	return ReceptacleIDParts{
		OriginCountry:      substr(id, 0, 2),
		DestinationCountry: substr(id, 6, 8),
	}
}

// substr returns s[lo:hi] clamped to the string's bounds.
func substr(s string, lo, hi int) string {
	if lo >= len(s) {
		return ""
	}
	if hi > len(s) {
		hi = len(s)
	}
	return s[lo:hi]
}
