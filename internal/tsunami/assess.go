// Package tsunami computes a simplified tsunami risk tier and wave arrival
// estimate for an earthquake. The policy is a fixed set of thresholds and a
// shallow-water wave speed; it is an estimate, not a physical model.
package tsunami

import (
	"errors"
	"fmt"
	"math"

	"github.com/mr1hm/earthguard/internal/models"
)

var (
	ErrInvalidInput    = errors.New("invalid assessment input")
	ErrInvalidDepth    = fmt.Errorf("%w: depth must be greater than zero", ErrInvalidInput)
	ErrInvalidDistance = fmt.Errorf("%w: distance must not be negative", ErrInvalidInput)
)

// Gate thresholds. A tier other than none requires all three to hold.
const (
	gateMinMagnitude = 7.0
	gateMaxDepthKM   = 70.0
	gateMaxDistKM    = 1000.0

	gravity = 9.8 // m/s^2
)

// tiers are checked in order; the first match wins.
var tiers = []struct {
	level        models.RiskLevel
	minMagnitude float64
	maxDistKM    float64 // exclusive
}{
	{models.RiskExtreme, 9.0, 100},
	{models.RiskHigh, 8.5, 200},
	{models.RiskModerate, 8.0, 300},
	{models.RiskLow, 7.5, 500},
}

// Placeholder zone returned for any non-none tier.
const (
	zoneName       = "Highland Community Center"
	zoneOffsetDeg  = 0.01
	zoneElevationM = 50
	zoneDistanceKM = 2.5
)

// Assess validates the input and applies the risk policy. It has no side
// effects and is safe for concurrent use.
func Assess(in models.TsunamiInput) (models.TsunamiAssessment, error) {
	if err := validate(in); err != nil {
		return models.TsunamiAssessment{}, err
	}

	out := models.TsunamiAssessment{
		RiskLevel:       Classify(in.Magnitude, in.Depth, in.DistanceKM),
		EvacuationZones: []models.EvacuationZone{},
	}
	if out.RiskLevel == models.RiskNone {
		return out, nil
	}

	arrival, err := ArrivalMinutes(in.Depth, in.DistanceKM)
	if err != nil {
		return models.TsunamiAssessment{}, err
	}
	out.ArrivalTimeMinutes = &arrival
	out.EvacuationZones = append(out.EvacuationZones, models.EvacuationZone{
		Name:       zoneName,
		Latitude:   in.Latitude + zoneOffsetDeg,
		Longitude:  in.Longitude + zoneOffsetDeg,
		Elevation:  zoneElevationM,
		DistanceKM: zoneDistanceKM,
	})
	return out, nil
}

// Classify returns the risk tier. A passed gate with no matching tier is none,
// the same as a failed gate.
func Classify(magnitude, depthKM, distKM float64) models.RiskLevel {
	if magnitude < gateMinMagnitude || depthKM > gateMaxDepthKM || distKM > gateMaxDistKM {
		return models.RiskNone
	}
	for _, t := range tiers {
		if magnitude >= t.minMagnitude && distKM < t.maxDistKM {
			return t.level
		}
	}
	return models.RiskNone
}

// WaveSpeedKMPH is the shallow-water wave speed sqrt(g*d) for a depth in km,
// converted from m/s to km/h.
func WaveSpeedKMPH(depthKM float64) float64 {
	return math.Sqrt(gravity*depthKM*1000) * 3.6
}

// ArrivalMinutes estimates minutes until the wave covers distKM.
func ArrivalMinutes(depthKM, distKM float64) (float64, error) {
	if depthKM <= 0 {
		return 0, ErrInvalidDepth
	}
	return distKM / WaveSpeedKMPH(depthKM) * 60, nil
}

func validate(in models.TsunamiInput) error {
	for name, v := range map[string]float64{
		"magnitude":   in.Magnitude,
		"depth":       in.Depth,
		"distance_km": in.DistanceKM,
		"latitude":    in.Latitude,
		"longitude":   in.Longitude,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidInput, name)
		}
	}
	if in.Depth <= 0 {
		return ErrInvalidDepth
	}
	if in.DistanceKM < 0 {
		return ErrInvalidDistance
	}
	return nil
}
