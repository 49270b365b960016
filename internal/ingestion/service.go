package ingestion

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/earthguard/internal/models"
	"github.com/mr1hm/earthguard/internal/observability"
	"github.com/mr1hm/earthguard/internal/repository"
)

// Broadcaster pushes accepted reports to connected clients.
type Broadcaster interface {
	BroadcastEarthquake(e *models.EarthquakeEvent)
	BroadcastMeshMessage(m *models.MeshMessage)
	BroadcastRescueReport(r *models.RescueReport)
}

// Relay forwards accepted reports downstream. It must not block.
type Relay interface {
	Enqueue(kind models.ReportKind, payload any)
}

// Service accepts reports: validate, timestamp, store, then fan out.
// Nothing is broadcast for a report that failed validation or storage.
type Service struct {
	repo        repository.ReportRepository
	broadcaster Broadcaster
	relay       Relay
	clock       clockwork.Clock
	metrics     *observability.Metrics
	logger      *slog.Logger
}

type Option func(*Service)

// WithRelay forwards every accepted report to r.
func WithRelay(r Relay) Option {
	return func(s *Service) { s.relay = r }
}

// WithClock overrides the clock used for server-assigned timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func NewService(repo repository.ReportRepository, broadcaster Broadcaster, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		broadcaster: broadcaster,
		clock:       clockwork.NewRealClock(),
		metrics:     metrics,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ReportEarthquake(ctx context.Context, e *models.EarthquakeEvent) error {
	if err := e.Validate(); err != nil {
		return s.reject(models.KindEarthquake, err)
	}
	e.Timestamp = s.clock.Now().UTC()

	if err := s.repo.AddEarthquake(ctx, e); err != nil {
		return s.reject(models.KindEarthquake, err)
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastEarthquake(e)
	}
	s.accept(models.KindEarthquake, e)
	s.logger.Info("earthquake reported", "magnitude", e.Magnitude, "depth", e.Depth, "source", e.Source)
	return nil
}

func (s *Service) PostMeshMessage(ctx context.Context, m *models.MeshMessage) error {
	if err := m.Validate(); err != nil {
		return s.reject(models.KindMesh, err)
	}
	m.Timestamp = s.clock.Now().UTC()

	if err := s.repo.AddMeshMessage(ctx, m); err != nil {
		return s.reject(models.KindMesh, err)
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastMeshMessage(m)
	}
	s.accept(models.KindMesh, m)
	s.logger.Info("mesh message", "id", m.ID, "type", m.Type, "content", truncate(m.Content, 50))
	return nil
}

func (s *Service) ReportRescue(ctx context.Context, r *models.RescueReport) error {
	if err := r.Validate(); err != nil {
		return s.reject(models.KindRescue, err)
	}
	r.Timestamp = s.clock.Now().UTC()

	if err := s.repo.AddRescueReport(ctx, r); err != nil {
		return s.reject(models.KindRescue, err)
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastRescueReport(r)
	}
	s.accept(models.KindRescue, r)
	s.logger.Info("rescue report", "victim_id", r.VictimID, "status", r.Status,
		"latitude", r.Latitude, "longitude", r.Longitude)
	return nil
}

func (s *Service) accept(kind models.ReportKind, payload any) {
	s.metrics.ReportsAccepted.WithLabelValues(string(kind)).Inc()
	if s.relay != nil {
		s.relay.Enqueue(kind, payload)
	}
}

func (s *Service) reject(kind models.ReportKind, err error) error {
	reason := "storage"
	if errors.Is(err, models.ErrInvalidReport) {
		reason = "invalid"
	} else {
		s.logger.Error("failed to store report", "kind", kind, "error", err)
	}
	s.metrics.ReportsRejected.WithLabelValues(string(kind), reason).Inc()
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
