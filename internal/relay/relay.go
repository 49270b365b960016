// Package relay forwards accepted reports to Kafka for downstream consumers.
// Publication happens on a worker pool so ingestion never waits on the broker.
package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/earthguard/internal/models"
	"github.com/mr1hm/earthguard/internal/observability"
	"github.com/mr1hm/earthguard/internal/worker"
)

// Envelope wraps one accepted report for the wire.
type Envelope struct {
	ID         string            `json:"id"`
	Kind       models.ReportKind `json:"kind"`
	AcceptedAt time.Time         `json:"accepted_at"`
	Payload    any               `json:"payload"`
}

// Publisher writes envelopes to a broker.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

type Relay struct {
	publisher Publisher
	pool      *worker.Pool[Envelope]
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger
}

func New(publisher Publisher, workers, bufferSize int, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Relay {
	r := &Relay{
		publisher: publisher,
		clock:     clock,
		metrics:   metrics,
		logger:    logger,
	}
	r.pool = worker.NewPool("relay", workers, bufferSize, r.publish)
	return r
}

func (r *Relay) Start(ctx context.Context) {
	r.pool.Start(ctx)
}

// Enqueue schedules a report for publication. A full queue drops it.
func (r *Relay) Enqueue(kind models.ReportKind, payload any) {
	env := Envelope{
		ID:         uuid.NewString(),
		Kind:       kind,
		AcceptedAt: r.clock.Now().UTC(),
		Payload:    payload,
	}
	if !r.pool.TrySubmit(env) {
		r.metrics.RelayPublished.WithLabelValues("dropped").Inc()
		r.logger.Warn("relay queue full, dropping report", "kind", kind, "envelope_id", env.ID)
	}
}

// Stop drains queued envelopes and closes the publisher.
func (r *Relay) Stop() error {
	r.pool.Stop()
	return r.publisher.Close()
}

func (r *Relay) publish(ctx context.Context, env Envelope) error {
	start := r.clock.Now()
	err := r.publisher.Publish(ctx, env)
	r.metrics.RelayPublishDur.Observe(r.clock.Since(start).Seconds())

	if err != nil {
		r.metrics.RelayPublished.WithLabelValues("error").Inc()
		r.logger.Error("relay publish failed", "kind", env.Kind, "envelope_id", env.ID, "error", err)
		return err
	}
	r.metrics.RelayPublished.WithLabelValues("success").Inc()
	return nil
}
