package ingestion

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mr1hm/earthguard/internal/models"
)

type gdacsRSS struct {
	Channel gdacsChannel `xml:"channel"`
}
type gdacsChannel struct {
	Items []gdacsItem `xml:"item"`
}
type gdacsItem struct {
	PubDate   string        `xml:"pubDate"`
	Point     gdacsPoint    `xml:"http://www.w3.org/2003/01/geo/wgs84_pos# Point"`
	EventType string        `xml:"http://www.gdacs.org eventtype"`
	EventID   string        `xml:"http://www.gdacs.org eventid"`
	Severity  gdacsSeverity `xml:"http://www.gdacs.org severity"`
}

type gdacsPoint struct {
	Lat  float64 `xml:"http://www.w3.org/2003/01/geo/wgs84_pos# lat"`
	Long float64 `xml:"http://www.w3.org/2003/01/geo/wgs84_pos# long"`
}

// gdacsSeverity looks like
// <gdacs:severity unit="M" value="6.1">Magnitude 6.1M, Depth:10km</gdacs:severity>
type gdacsSeverity struct {
	Unit  string  `xml:"unit,attr"`
	Value float64 `xml:"value,attr"`
	Text  string  `xml:",chardata"`
}

var gdacsDepthRe = regexp.MustCompile(`Depth:\s*([0-9.]+)\s*km`)

func (m *Manager) pollGDACS(ctx context.Context, url string) ([]*models.EarthquakeEvent, error) {
	resp, err := m.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var data gdacsRSS
	if err := xml.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("error decoding resp.Body: %w", err)
	}

	return parseGDACS(data, m.logger), nil
}

// parseGDACS keeps earthquake items only; other hazard types have no magnitude.
func parseGDACS(data gdacsRSS, logger *slog.Logger) []*models.EarthquakeEvent {
	events := make([]*models.EarthquakeEvent, 0, len(data.Channel.Items))
	for _, item := range data.Channel.Items {
		if !strings.EqualFold(item.EventType, "EQ") {
			continue
		}

		e := &models.EarthquakeEvent{
			Source:     sourceGDACS,
			ExternalID: item.EventID,
			Magnitude:  item.Severity.Value,
			Latitude:   item.Point.Lat,
			Longitude:  item.Point.Long,
			Depth:      gdacsDepth(item.Severity.Text),
		}
		if ts, err := time.Parse(time.RFC1123, item.PubDate); err == nil {
			ts = ts.UTC()
			e.OccurredAt = &ts
		} else {
			logger.Warn("GDACS timestamp parsing failed", "id", item.EventID, "error", err.Error())
		}
		events = append(events, e)
	}
	return events
}

func gdacsDepth(severity string) float64 {
	match := gdacsDepthRe.FindStringSubmatch(severity)
	if match == nil {
		return models.DefaultDepthKM
	}
	d, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return models.DefaultDepthKM
	}
	return d
}
