package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidReport marks client input errors. Callers match it with errors.Is.
var ErrInvalidReport = errors.New("invalid report")

// ReportKind names one of the three append-only report tables.
type ReportKind string

const (
	KindEarthquake ReportKind = "earthquake"
	KindMesh       ReportKind = "mesh_message"
	KindRescue     ReportKind = "rescue_report"
)

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Located is satisfied by every report kind so listings can share a GeoJSON encoder.
type Located interface {
	Coordinates() Coordinates
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidReport, fmt.Sprintf(format, args...))
}

func validateLocation(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return invalidf("latitude %v out of range", lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return invalidf("longitude %v out of range", lon)
	}
	return nil
}

// Filter narrows a recent-reports listing.
type Filter struct {
	Limit int
	Since *time.Time
}
