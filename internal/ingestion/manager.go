package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mr1hm/earthguard/internal/config"
	"github.com/mr1hm/earthguard/internal/models"
	"github.com/mr1hm/earthguard/internal/observability"
	"github.com/mr1hm/earthguard/internal/repository"
	"github.com/mr1hm/earthguard/internal/worker"
)

const (
	sourceUSGS  = "usgs"
	sourceGDACS = "gdacs"
)

// EarthquakeReporter is the ingestion path feed events go through.
type EarthquakeReporter interface {
	ReportEarthquake(ctx context.Context, e *models.EarthquakeEvent) error
}

// Manager polls upstream earthquake feeds and feeds new events into the
// ingestion path. Events already stored under the same source and external
// id are skipped.
type Manager struct {
	cfg      *config.Config
	repo     repository.EarthquakeRepository
	reporter EarthquakeReporter
	metrics  *observability.Metrics
	logger   *slog.Logger
	client   *http.Client
	pool     *worker.Pool[*models.EarthquakeEvent]
	wg       sync.WaitGroup
}

func NewManager(cfg *config.Config, repo repository.EarthquakeRepository, reporter EarthquakeReporter, metrics *observability.Metrics, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:      cfg,
		repo:     repo,
		reporter: reporter,
		metrics:  metrics,
		logger:   logger,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	m.pool = worker.NewPool("feed", cfg.Worker.Count, cfg.Worker.BufferSize, m.process)
	return m
}

func (m *Manager) Start(ctx context.Context) {
	m.pool.Start(ctx)

	if m.cfg.Sources.USGSEnabled {
		m.wg.Add(1)
		go m.runPoller(ctx, sourceUSGS, m.cfg.Sources.USGSURL, m.cfg.Sources.USGSPollInterval)
	}

	if m.cfg.Sources.GDACSEnabled {
		m.wg.Add(1)
		go m.runPoller(ctx, sourceGDACS, m.cfg.Sources.GDACSURL, m.cfg.Sources.GDACSPollInterval)
	}
}

func (m *Manager) process(ctx context.Context, e *models.EarthquakeEvent) error {
	exists, err := m.repo.EarthquakeExists(ctx, e.Source, e.ExternalID)
	if err != nil {
		m.logger.Error("error checking existence", "source", e.Source, "external_id", e.ExternalID, "error", err)
		return err
	}
	if exists {
		return nil
	}

	if err := m.reporter.ReportEarthquake(ctx, e); err != nil {
		if errors.Is(err, models.ErrInvalidReport) {
			m.logger.Warn("skipping invalid feed event", "source", e.Source, "external_id", e.ExternalID, "error", err)
		}
		return err
	}
	return nil
}

func (m *Manager) runPoller(ctx context.Context, source, url string, interval time.Duration) {
	defer m.wg.Done()
	m.logger.Info("starting poller", "source", source, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.poll(ctx, source, url)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("poller shutting down", "source", source)
			return
		case <-ticker.C:
			m.poll(ctx, source, url)
		}
	}
}

func (m *Manager) poll(ctx context.Context, source, url string) {
	m.logger.Debug("polling", "source", source)

	var (
		events []*models.EarthquakeEvent
		err    error
	)

	switch source {
	case sourceUSGS:
		events, err = m.pollUSGS(ctx, url)
	case sourceGDACS:
		events, err = m.pollGDACS(ctx, url)
	default:
		err = fmt.Errorf("unknown source %q", source)
	}
	if err != nil {
		m.metrics.FeedPolls.WithLabelValues(source, "error").Inc()
		m.logger.Error("poll failed", "source", source, "error", err)
		return
	}
	m.metrics.FeedPolls.WithLabelValues(source, "success").Inc()

	submitted := 0
	for _, e := range events {
		if e.Magnitude < m.cfg.Sources.MinMagnitude {
			continue
		}
		if err := m.pool.SubmitContext(ctx, e); err != nil {
			return
		}
		submitted++
	}

	m.logger.Debug("poll complete", "source", source, "count", len(events), "submitted", submitted)
}

func (m *Manager) Stop() {
	m.wg.Wait()
	m.pool.Stop()
	m.logger.Info("feed manager stopped")
}

func (m *Manager) fetch(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error doing request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}
	return resp, nil
}
