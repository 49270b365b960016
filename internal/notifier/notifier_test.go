package notifier

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/earthguard/internal/models"
	"github.com/mr1hm/earthguard/internal/observability"
)

type failingSubscriber struct {
	id    string
	panic bool
}

func (f *failingSubscriber) ID() string { return f.id }
func (f *failingSubscriber) Close()     {}
func (f *failingSubscriber) Deliver(Event) error {
	if f.panic {
		panic("connection reset")
	}
	return errors.New("write: broken pipe")
}

func newTestNotifier() (*Notifier, *Registry, *observability.Metrics) {
	reg := NewRegistry()
	m := observability.NewMetricsForTesting()
	return New(reg, m, slog.New(slog.NewTextHandler(io.Discard, nil))), reg, m
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for event on %s", c.ID())
		return Event{}
	}
}

func TestNotifier_BroadcastChannels(t *testing.T) {
	n, reg, _ := newTestNotifier()
	defer reg.Close()

	c := NewClient("a", 10)
	require.True(t, reg.Add(c))

	quake := &models.EarthquakeEvent{Magnitude: 7.4, Latitude: 38.3, Longitude: 142.4, Depth: 20}
	msg := &models.MeshMessage{ID: "m1", Type: "sos", Content: "help"}
	rescue := &models.RescueReport{VictimID: "v1", Status: "trapped"}

	n.BroadcastEarthquake(quake)
	n.BroadcastMeshMessage(msg)
	n.BroadcastRescueReport(rescue)

	ev := receive(t, c)
	assert.Equal(t, EventEarthquakeAlert, ev.Name)
	assert.Same(t, quake, ev.Data)

	ev = receive(t, c)
	assert.Equal(t, EventMeshMessage, ev.Name)
	assert.Same(t, msg, ev.Data)

	ev = receive(t, c)
	assert.Equal(t, EventRescueReport, ev.Name)
	assert.Same(t, rescue, ev.Data)
}

func TestNotifier_BroadcastIsolation(t *testing.T) {
	n, reg, m := newTestNotifier()
	defer reg.Close()

	var healthy []*Client
	for i := 0; i < 4; i++ {
		c := NewClient(fmt.Sprintf("ok-%d", i), 10)
		require.True(t, reg.Add(c))
		healthy = append(healthy, c)
	}
	require.True(t, reg.Add(&failingSubscriber{id: "broken"}))
	require.True(t, reg.Add(&failingSubscriber{id: "panicky", panic: true}))

	assert.NotPanics(t, func() {
		n.BroadcastEarthquake(&models.EarthquakeEvent{Magnitude: 8.1})
	})

	for _, c := range healthy {
		ev := receive(t, c)
		assert.Equal(t, EventEarthquakeAlert, ev.Name)
	}

	assert.Equal(t, 4.0, testutil.ToFloat64(m.Deliveries.WithLabelValues(EventEarthquakeAlert, "delivered")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Deliveries.WithLabelValues(EventEarthquakeAlert, "dropped")))
}

func TestNotifier_OrderWithinChannel(t *testing.T) {
	n, reg, _ := newTestNotifier()
	defer reg.Close()

	c := NewClient("a", 100)
	require.True(t, reg.Add(c))

	for i := 0; i < 50; i++ {
		n.BroadcastMeshMessage(&models.MeshMessage{ID: fmt.Sprintf("m%d", i)})
	}

	for i := 0; i < 50; i++ {
		ev := receive(t, c)
		assert.Equal(t, fmt.Sprintf("m%d", i), ev.Data.(*models.MeshMessage).ID)
	}
}

func TestNotifier_OnClientConnect(t *testing.T) {
	n, reg, _ := newTestNotifier()
	defer reg.Close()

	a := NewClient("a", 10)
	b := NewClient("b", 10)
	reg.Add(a)
	reg.Add(b)

	require.NoError(t, n.OnClientConnect("a"))

	ev := receive(t, a)
	assert.Equal(t, EventConnected, ev.Name)
	assert.Equal(t, ConnectedPayload{Data: "Connected to EarthGuard server", ClientID: "a"}, ev.Data)
	assert.Empty(t, b.Events(), "ack must go to the connecting client only")

	assert.ErrorIs(t, n.OnClientConnect("ghost"), ErrUnknownClient)
}

func TestNotifier_OnClientDisconnect(t *testing.T) {
	n, reg, _ := newTestNotifier()

	c := NewClient("a", 10)
	reg.Add(c)

	n.OnClientDisconnect("a")
	n.OnClientDisconnect("a")

	assert.Equal(t, 0, reg.Len())
	_, ok := <-c.Events()
	assert.False(t, ok)

	n.BroadcastRescueReport(&models.RescueReport{VictimID: "v"})
}

func TestNotifier_OnJoinMesh(t *testing.T) {
	n, reg, _ := newTestNotifier()
	defer reg.Close()

	a := NewClient("a", 10)
	b := NewClient("b", 10)
	reg.Add(a)
	reg.Add(b)

	require.NoError(t, n.OnJoinMesh("a", "node-42"))

	ev := receive(t, a)
	assert.Equal(t, EventMeshJoined, ev.Name)
	assert.Equal(t, MeshJoinedPayload{NodeID: "node-42"}, ev.Data)
	assert.Empty(t, b.Events())

	assert.ErrorIs(t, n.OnJoinMesh("a", ""), ErrInvalidNodeID)
	assert.ErrorIs(t, n.OnJoinMesh("ghost", "node-1"), ErrUnknownClient)
}

func TestNotifier_ConcurrentLifecycleAndBroadcast(t *testing.T) {
	n, reg, _ := newTestNotifier()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c := NewClient(fmt.Sprintf("c%d", id), 10)
			reg.Add(c)
			_ = n.OnClientConnect(c.ID())
			// Drain so the buffer never fills
			done := make(chan struct{})
			go func() {
				defer close(done)
				for range c.Events() {
				}
			}()
			time.Sleep(5 * time.Millisecond)
			n.OnClientDisconnect(c.ID())
			<-done
		}(i)
	}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(mag int) {
			defer wg.Done()
			n.BroadcastEarthquake(&models.EarthquakeEvent{Magnitude: float64(mag)})
		}(i)
	}

	wg.Wait()
	assert.Equal(t, 0, reg.Len())
}
