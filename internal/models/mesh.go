package models

import "time"

type MeshMessage struct {
	RowID     int64     `json:"-"`
	ID        string    `json:"id"` // client supplied, uniqueness not enforced
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

func (m *MeshMessage) Coordinates() Coordinates {
	return Coordinates{Latitude: m.Latitude, Longitude: m.Longitude}
}

func (m *MeshMessage) Validate() error {
	if m.ID == "" {
		return invalidf("id is required")
	}
	if m.Type == "" {
		return invalidf("type is required")
	}
	return validateLocation(m.Latitude, m.Longitude)
}
