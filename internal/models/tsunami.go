package models

// RiskLevel is the tsunami risk tier.
type RiskLevel string

const (
	RiskNone     RiskLevel = "none"
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskExtreme  RiskLevel = "extreme"
)

type TsunamiInput struct {
	Magnitude  float64 `json:"magnitude"`
	Depth      float64 `json:"depth"` // km
	DistanceKM float64 `json:"distance_km"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

type TsunamiAssessment struct {
	RiskLevel          RiskLevel        `json:"risk_level"`
	ArrivalTimeMinutes *float64         `json:"arrival_time_minutes"`
	EvacuationZones    []EvacuationZone `json:"evacuation_zones"`
}

type EvacuationZone struct {
	Name       string  `json:"name"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Elevation  float64 `json:"elevation"` // meters
	DistanceKM float64 `json:"distance_km"`
}
