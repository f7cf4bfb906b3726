package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/intramurals/internal/domain/model"
	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes notifications to a Kafka topic keyed by notification id.
type KafkaPublisher struct {
	w *kafka.Writer
}

// NewKafkaPublisher creates a synchronous writer for brokers/topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = Topic
	}
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

func (k *KafkaPublisher) Publish(ctx context.Context, n model.Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := k.w.WriteMessages(ctx, kafka.Message{Key: []byte(n.ID), Value: b, Time: n.Timestamp}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error { return k.w.Close() }
