package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mr1hm/earthguard/internal/models"
)

type usgsResponse struct {
	Features []usgsFeature `json:"features"`
}

type usgsFeature struct {
	ID         string         `json:"id"`
	Properties usgsProperties `json:"properties"`
	Geometry   usgsGeometry   `json:"geometry"`
}
type usgsProperties struct {
	Mag  *float64 `json:"mag"`
	Time int64    `json:"time"` // unix millis
}
type usgsGeometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
}

func (m *Manager) pollUSGS(ctx context.Context, url string) ([]*models.EarthquakeEvent, error) {
	resp, err := m.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var data usgsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("error decoding resp.Body: %w", err)
	}

	return parseUSGS(data), nil
}

func parseUSGS(data usgsResponse) []*models.EarthquakeEvent {
	events := make([]*models.EarthquakeEvent, 0, len(data.Features))
	for _, f := range data.Features {
		// Features without a magnitude or position are unusable
		if f.Properties.Mag == nil || len(f.Geometry.Coordinates) < 2 {
			continue
		}

		depth := models.DefaultDepthKM
		if len(f.Geometry.Coordinates) >= 3 && f.Geometry.Coordinates[2] >= 0 {
			depth = f.Geometry.Coordinates[2]
		}
		occurred := time.UnixMilli(f.Properties.Time).UTC()

		events = append(events, &models.EarthquakeEvent{
			Source:     sourceUSGS,
			ExternalID: f.ID,
			Magnitude:  *f.Properties.Mag,
			Longitude:  f.Geometry.Coordinates[0],
			Latitude:   f.Geometry.Coordinates[1],
			Depth:      depth,
			OccurredAt: &occurred,
		})
	}
	return events
}
