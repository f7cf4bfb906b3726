package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/okian/intramurals/internal/domain/model"
)

// ChannelBus is an in-process pub/sub over a watermill go channel.
type ChannelBus struct {
	pubsub *gochannel.GoChannel
	topic  string
}

// NewChannelBus creates a bus; buffer bounds each subscriber's backlog.
func NewChannelBus(buffer int64) *ChannelBus {
	return &ChannelBus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: buffer}, watermill.NopLogger{}),
		topic:  Topic,
	}
}

// Publish encodes n as JSON and publishes it on the topic.
func (b *ChannelBus) Publish(_ context.Context, n model.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	msg := message.NewMessage(n.ID, payload)
	if err := b.pubsub.Publish(b.topic, msg); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Subscribe returns decoded notifications published after the call until ctx ends.
func (b *ChannelBus) Subscribe(ctx context.Context) (<-chan model.Notification, error) {
	msgs, err := b.pubsub.Subscribe(ctx, b.topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", b.topic, err)
	}
	out := make(chan model.Notification)
	go func() {
		defer close(out)
		for msg := range msgs {
			var n model.Notification
			if err := json.Unmarshal(msg.Payload, &n); err != nil {
				msg.Nack()
				continue
			}
			select {
			case out <- n:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// Close shuts the bus and ends all subscriptions.
func (b *ChannelBus) Close() error {
	return b.pubsub.Close()
}
