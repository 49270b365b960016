package models

import (
	"math"
	"time"
)

// DefaultDepthKM applies when a report leaves depth unspecified.
const DefaultDepthKM = 10.0

type EarthquakeEvent struct {
	ID         int64      `json:"-"`
	Source     string     `json:"source,omitempty"`      // "usgs", "gdacs"; empty for direct reports
	ExternalID string     `json:"external_id,omitempty"` // upstream id, dedup key together with Source
	Magnitude  float64    `json:"magnitude"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Depth      float64    `json:"depth"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
	Timestamp  time.Time  `json:"timestamp"` // set by the receiver at insert time
}

func (e *EarthquakeEvent) Coordinates() Coordinates {
	return Coordinates{Latitude: e.Latitude, Longitude: e.Longitude}
}

func (e *EarthquakeEvent) Validate() error {
	if math.IsNaN(e.Magnitude) || math.IsInf(e.Magnitude, 0) {
		return invalidf("magnitude must be finite")
	}
	if math.IsNaN(e.Depth) || math.IsInf(e.Depth, 0) || e.Depth < 0 {
		return invalidf("depth %v must be a non-negative number", e.Depth)
	}
	if e.ExternalID != "" && e.Source == "" {
		return invalidf("external_id requires a source")
	}
	return validateLocation(e.Latitude, e.Longitude)
}
