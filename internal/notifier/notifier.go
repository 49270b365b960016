// Package notifier fans accepted reports out to every connected client and
// handles the per-client connect and mesh-join acknowledgements.
package notifier

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mr1hm/earthguard/internal/models"
	"github.com/mr1hm/earthguard/internal/observability"
)

// Real-time channel event names.
const (
	EventEarthquakeAlert = "earthquake_alert"
	EventMeshMessage     = "mesh_message"
	EventRescueReport    = "rescue_report"
	EventConnected       = "connected"
	EventMeshJoined      = "mesh_joined"
)

const connectedMessage = "Connected to EarthGuard server"

var (
	ErrUnknownClient = errors.New("unknown client")
	ErrInvalidNodeID = errors.New("node_id is required")
)

type ConnectedPayload struct {
	Data     string `json:"data"`
	ClientID string `json:"client_id"`
}

type MeshJoinedPayload struct {
	NodeID string `json:"node_id"`
}

// Notifier delivers events to the subscribers of a Registry. Broadcasts on the
// same event name are serialized so each client sees them in call order.
type Notifier struct {
	registry *Registry
	metrics  *observability.Metrics
	logger   *slog.Logger
	channels map[string]*sync.Mutex
}

func New(registry *Registry, metrics *observability.Metrics, logger *slog.Logger) *Notifier {
	return &Notifier{
		registry: registry,
		metrics:  metrics,
		logger:   logger,
		channels: map[string]*sync.Mutex{
			EventEarthquakeAlert: {},
			EventMeshMessage:     {},
			EventRescueReport:    {},
		},
	}
}

func (n *Notifier) BroadcastEarthquake(e *models.EarthquakeEvent) {
	n.broadcast(Event{Name: EventEarthquakeAlert, Data: e})
}

func (n *Notifier) BroadcastMeshMessage(m *models.MeshMessage) {
	n.broadcast(Event{Name: EventMeshMessage, Data: m})
}

func (n *Notifier) BroadcastRescueReport(r *models.RescueReport) {
	n.broadcast(Event{Name: EventRescueReport, Data: r})
}

// OnClientConnect acknowledges a newly registered client.
func (n *Notifier) OnClientConnect(clientID string) error {
	s, ok := n.registry.Get(clientID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownClient, clientID)
	}
	n.deliver(s, Event{
		Name: EventConnected,
		Data: ConnectedPayload{Data: connectedMessage, ClientID: clientID},
	})
	n.logger.Info("client connected", "client_id", clientID, "clients", n.registry.Len())
	return nil
}

// OnClientDisconnect releases the client's registry entry. Unknown ids are ignored.
func (n *Notifier) OnClientDisconnect(clientID string) {
	if n.registry.Remove(clientID) {
		n.logger.Info("client disconnected", "client_id", clientID, "clients", n.registry.Len())
	}
}

// OnJoinMesh acknowledges a mesh join to the requesting client only. Membership
// is not recorded.
func (n *Notifier) OnJoinMesh(clientID, nodeID string) error {
	if nodeID == "" {
		return ErrInvalidNodeID
	}
	s, ok := n.registry.Get(clientID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownClient, clientID)
	}
	n.deliver(s, Event{Name: EventMeshJoined, Data: MeshJoinedPayload{NodeID: nodeID}})
	n.logger.Info("mesh node joined", "client_id", clientID, "node_id", nodeID)
	return nil
}

func (n *Notifier) broadcast(ev Event) {
	if mu, ok := n.channels[ev.Name]; ok {
		mu.Lock()
		defer mu.Unlock()
	}

	for _, s := range n.registry.Snapshot() {
		n.deliver(s, ev)
	}
}

// deliver pushes ev to one subscriber. Failures, including panics, stay with
// that subscriber.
func (n *Notifier) deliver(s Subscriber, ev Event) {
	err := safeDeliver(s, ev)
	if err != nil {
		n.metrics.Deliveries.WithLabelValues(ev.Name, "dropped").Inc()
		n.logger.Debug("event dropped", "event", ev.Name, "client_id", s.ID(), "error", err)
		return
	}
	n.metrics.Deliveries.WithLabelValues(ev.Name, "delivered").Inc()
}

func safeDeliver(s Subscriber, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panicked: %v", r)
		}
	}()
	return s.Deliver(ev)
}
