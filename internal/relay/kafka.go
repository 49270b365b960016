package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// KafkaPublisher produces envelopes to a single topic.
type KafkaPublisher struct {
	writer *kafkago.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, env Envelope) error {
	msg, err := serializeToMessage(env)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func serializeToMessage(env Envelope) (kafkago.Message, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s envelope: %w", env.Kind, err)
	}
	return kafkago.Message{
		Key:   []byte(env.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "report_kind", Value: []byte(env.Kind)},
			{Key: "accepted_at", Value: []byte(env.AcceptedAt.Format(time.RFC3339))},
		},
	}, nil
}
