package models

import (
	"encoding/json"
	"time"
)

type RescueReport struct {
	ID        int64           `json:"-"`
	VictimID  string          `json:"victim_id"`
	Status    string          `json:"status"`
	Needs     json.RawMessage `json:"needs"` // opaque, stored and broadcast verbatim
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Timestamp time.Time       `json:"timestamp"`
}

func (r *RescueReport) Coordinates() Coordinates {
	return Coordinates{Latitude: r.Latitude, Longitude: r.Longitude}
}

func (r *RescueReport) Validate() error {
	if r.VictimID == "" {
		return invalidf("victim_id is required")
	}
	if r.Status == "" {
		return invalidf("status is required")
	}
	if len(r.Needs) == 0 || string(r.Needs) == "null" {
		return invalidf("needs is required")
	}
	if !json.Valid(r.Needs) {
		return invalidf("needs is not valid JSON")
	}
	return validateLocation(r.Latitude, r.Longitude)
}
