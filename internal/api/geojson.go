package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mr1hm/earthguard/internal/models"
)

func newFeature(l models.Located, props geojson.Properties) *geojson.Feature {
	c := l.Coordinates()
	f := geojson.NewFeature(orb.Point{c.Longitude, c.Latitude})
	f.Properties = props
	return f
}

func earthquakesToGeoJSON(events []models.EarthquakeEvent) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range events {
		e := &events[i]
		props := geojson.Properties{
			"kind":      models.KindEarthquake,
			"magnitude": e.Magnitude,
			"depth":     e.Depth,
			"timestamp": e.Timestamp,
		}
		if e.Source != "" {
			props["source"] = e.Source
			props["external_id"] = e.ExternalID
		}
		if e.OccurredAt != nil {
			props["occurred_at"] = e.OccurredAt
		}
		fc.Append(newFeature(e, props))
	}
	return fc
}

func meshToGeoJSON(messages []models.MeshMessage) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range messages {
		m := &messages[i]
		fc.Append(newFeature(m, geojson.Properties{
			"kind":      models.KindMesh,
			"id":        m.ID,
			"type":      m.Type,
			"content":   m.Content,
			"timestamp": m.Timestamp,
		}))
	}
	return fc
}

func rescueToGeoJSON(reports []models.RescueReport) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range reports {
		r := &reports[i]
		fc.Append(newFeature(r, geojson.Properties{
			"kind":      models.KindRescue,
			"victim_id": r.VictimID,
			"status":    r.Status,
			"needs":     r.Needs,
			"timestamp": r.Timestamp,
		}))
	}
	return fc
}

func writeGeoJSON(c *gin.Context, fc *geojson.FeatureCollection) {
	data, err := fc.MarshalJSON()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode GeoJSON"})
		return
	}
	c.Data(http.StatusOK, "application/geo+json", data)
}
