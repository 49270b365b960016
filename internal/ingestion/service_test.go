package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/earthguard/internal/models"
	"github.com/mr1hm/earthguard/internal/observability"
)

// mockReportRepo implements repository.ReportRepository for testing
type mockReportRepo struct {
	mu          sync.Mutex
	earthquakes []models.EarthquakeEvent
	mesh        []models.MeshMessage
	rescue      []models.RescueReport
	err         error
}

func (m *mockReportRepo) AddEarthquake(_ context.Context, e *models.EarthquakeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.earthquakes = append(m.earthquakes, *e)
	return nil
}

func (m *mockReportRepo) EarthquakeExists(_ context.Context, source, externalID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.earthquakes {
		if e.Source == source && e.ExternalID == externalID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockReportRepo) ListEarthquakes(context.Context, models.Filter) ([]models.EarthquakeEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.EarthquakeEvent(nil), m.earthquakes...), nil
}

func (m *mockReportRepo) AddMeshMessage(_ context.Context, msg *models.MeshMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.mesh = append(m.mesh, *msg)
	return nil
}

func (m *mockReportRepo) ListMeshMessages(context.Context, models.Filter) ([]models.MeshMessage, error) {
	return m.mesh, nil
}

func (m *mockReportRepo) AddRescueReport(_ context.Context, r *models.RescueReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rescue = append(m.rescue, *r)
	return nil
}

func (m *mockReportRepo) ListRescueReports(context.Context, models.Filter) ([]models.RescueReport, error) {
	return m.rescue, nil
}

func (m *mockReportRepo) Ping(context.Context) error { return nil }

func (m *mockReportRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.earthquakes)
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []any
}

func (b *recordingBroadcaster) record(v any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, v)
}

func (b *recordingBroadcaster) BroadcastEarthquake(e *models.EarthquakeEvent) { b.record(e) }
func (b *recordingBroadcaster) BroadcastMeshMessage(m *models.MeshMessage)   { b.record(m) }
func (b *recordingBroadcaster) BroadcastRescueReport(r *models.RescueReport) { b.record(r) }

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

type recordingRelay struct {
	kinds []models.ReportKind
}

func (r *recordingRelay) Enqueue(kind models.ReportKind, _ any) {
	r.kinds = append(r.kinds, kind)
}

var testNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(repo *mockReportRepo) (*Service, *recordingBroadcaster, *recordingRelay, *observability.Metrics) {
	b := &recordingBroadcaster{}
	r := &recordingRelay{}
	m := observability.NewMetricsForTesting()
	svc := NewService(repo, b, m, discardLogger(),
		WithRelay(r),
		WithClock(clockwork.NewFakeClockAt(testNow)),
	)
	return svc, b, r, m
}

func TestService_ReportEarthquake(t *testing.T) {
	repo := &mockReportRepo{}
	svc, b, r, m := newTestService(repo)

	e := &models.EarthquakeEvent{Magnitude: 7.8, Latitude: 37.2, Longitude: 37.0, Depth: 17.9}
	require.NoError(t, svc.ReportEarthquake(context.Background(), e))

	assert.Equal(t, testNow, e.Timestamp)
	require.Len(t, repo.earthquakes, 1)
	assert.Equal(t, testNow, repo.earthquakes[0].Timestamp)
	require.Equal(t, 1, b.count())
	assert.Same(t, e, b.events[0])
	assert.Equal(t, []models.ReportKind{models.KindEarthquake}, r.kinds)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsAccepted.WithLabelValues("earthquake")))
}

func TestService_OverwritesClientTimestamp(t *testing.T) {
	repo := &mockReportRepo{}
	svc, _, _, _ := newTestService(repo)

	msg := &models.MeshMessage{ID: "n1:1", Type: "sos", Content: "help", Timestamp: time.Unix(0, 0)}
	require.NoError(t, svc.PostMeshMessage(context.Background(), msg))

	assert.Equal(t, testNow, msg.Timestamp)
}

func TestService_InvalidReportIsNotStoredOrBroadcast(t *testing.T) {
	repo := &mockReportRepo{}
	svc, b, r, m := newTestService(repo)
	ctx := context.Background()

	err := svc.ReportEarthquake(ctx, &models.EarthquakeEvent{Magnitude: 6, Latitude: 120, Depth: 10})
	assert.ErrorIs(t, err, models.ErrInvalidReport)

	err = svc.PostMeshMessage(ctx, &models.MeshMessage{Type: "sos"})
	assert.ErrorIs(t, err, models.ErrInvalidReport)

	err = svc.ReportRescue(ctx, &models.RescueReport{VictimID: "v", Status: "ok"})
	assert.ErrorIs(t, err, models.ErrInvalidReport)

	assert.Empty(t, repo.earthquakes)
	assert.Empty(t, repo.mesh)
	assert.Empty(t, repo.rescue)
	assert.Equal(t, 0, b.count())
	assert.Empty(t, r.kinds)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsRejected.WithLabelValues("earthquake", "invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsRejected.WithLabelValues("mesh_message", "invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsRejected.WithLabelValues("rescue_report", "invalid")))
}

func TestService_StorageFailureSkipsBroadcast(t *testing.T) {
	storageErr := errors.New("disk I/O error")
	repo := &mockReportRepo{err: storageErr}
	svc, b, r, m := newTestService(repo)

	err := svc.ReportRescue(context.Background(), &models.RescueReport{
		VictimID: "v1",
		Status:   "trapped",
		Needs:    json.RawMessage(`["water"]`),
	})

	assert.ErrorIs(t, err, storageErr)
	assert.NotErrorIs(t, err, models.ErrInvalidReport)
	assert.Equal(t, 0, b.count())
	assert.Empty(t, r.kinds)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportsRejected.WithLabelValues("rescue_report", "storage")))
}

func TestService_NilBroadcasterAndRelay(t *testing.T) {
	repo := &mockReportRepo{}
	svc := NewService(repo, nil, observability.NewMetricsForTesting(), discardLogger())

	err := svc.ReportRescue(context.Background(), &models.RescueReport{
		VictimID: "v1",
		Status:   "safe",
		Needs:    json.RawMessage(`[]`),
	})
	require.NoError(t, err)
	assert.Len(t, repo.rescue, 1)
	assert.False(t, repo.rescue[0].Timestamp.IsZero())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 50))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.Equal(t, "çã...", truncate("çãõ", 2))
}
