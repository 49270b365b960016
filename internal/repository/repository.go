package repository

import (
	"context"

	"github.com/mr1hm/earthguard/internal/models"
)

type EarthquakeRepository interface {
	AddEarthquake(ctx context.Context, e *models.EarthquakeEvent) error
	EarthquakeExists(ctx context.Context, source, externalID string) (bool, error)
	ListEarthquakes(ctx context.Context, opts models.Filter) ([]models.EarthquakeEvent, error)
}

type MeshRepository interface {
	AddMeshMessage(ctx context.Context, m *models.MeshMessage) error
	ListMeshMessages(ctx context.Context, opts models.Filter) ([]models.MeshMessage, error)
}

type RescueRepository interface {
	AddRescueReport(ctx context.Context, r *models.RescueReport) error
	ListRescueReports(ctx context.Context, opts models.Filter) ([]models.RescueReport, error)
}

// ReportRepository is the full append-only store for all report kinds.
type ReportRepository interface {
	EarthquakeRepository
	MeshRepository
	RescueRepository
	Ping(ctx context.Context) error
}
