package relay

import (
	"context"
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
	"go.uber.org/goleak"

	"github.com/mr1hm/earthguard/internal/models"
	"github.com/mr1hm/earthguard/internal/observability"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakePublisher struct {
	mu     sync.Mutex
	sent   []Envelope
	err    error
	closed bool
}

func (f *fakePublisher) Publish(_ context.Context, env Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newTestRelay(pub Publisher, buffer int) (*Relay, *observability.Metrics, clockwork.Clock) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC))
	m := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(pub, 1, buffer, clock, m, logger), m, clock
}

func TestRelay_PublishesEnqueuedReports(t *testing.T) {
	pub := &fakePublisher{}
	r, m, clock := newTestRelay(pub, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	r.Enqueue(models.KindEarthquake, &models.EarthquakeEvent{Magnitude: 7.0})
	r.Enqueue(models.KindMesh, &models.MeshMessage{ID: "m1"})
	r.Enqueue(models.KindRescue, &models.RescueReport{VictimID: "v1"})

	require.NoError(t, r.Stop())

	require.Len(t, pub.sent, 3)
	assert.True(t, pub.closed)
	assert.Equal(t, models.KindEarthquake, pub.sent[0].Kind)
	assert.Equal(t, models.KindMesh, pub.sent[1].Kind)
	assert.Equal(t, models.KindRescue, pub.sent[2].Kind)
	assert.Equal(t, clock.Now().UTC(), pub.sent[0].AcceptedAt)
	assert.NotEmpty(t, pub.sent[0].ID)
	assert.NotEqual(t, pub.sent[0].ID, pub.sent[1].ID)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RelayPublished.WithLabelValues("success")))
}

func TestRelay_PublishErrorIsCounted(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker unavailable")}
	r, m, _ := newTestRelay(pub, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	r.Enqueue(models.KindEarthquake, &models.EarthquakeEvent{})
	require.NoError(t, r.Stop())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelayPublished.WithLabelValues("error")))
}

func TestRelay_FullQueueDrops(t *testing.T) {
	pub := &fakePublisher{}
	r, m, _ := newTestRelay(pub, 1)

	// Not started yet, so the single slot fills
	r.Enqueue(models.KindMesh, &models.MeshMessage{ID: "kept"})
	r.Enqueue(models.KindMesh, &models.MeshMessage{ID: "dropped"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelayPublished.WithLabelValues("dropped")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	require.NoError(t, r.Stop())

	require.Len(t, pub.sent, 1)
	assert.Equal(t, "kept", pub.sent[0].Payload.(*models.MeshMessage).ID)
}
