// Package notify carries mutation notifications out of the writer: a capped
// persisted feed for polling readers, an in-process watermill topic for
// subscribers, and optional Kafka fan-out.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/okian/intramurals/internal/domain/model"
)

// Topic is the watermill and default Kafka topic for notifications.
const Topic = "intramurals.notifications"

// DefaultLimit caps the persisted feed.
const DefaultLimit = 50

// Publisher delivers a notification to some audience.
type Publisher interface {
	Publish(ctx context.Context, n model.Notification) error
	Close() error
}

// New builds a notification stamped at now.
func New(now time.Time, typ model.NotificationType, title, message, link string) model.Notification {
	return model.Notification{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   message,
		Link:      link,
		Type:      typ,
		Timestamp: now.UTC(),
	}
}

// Prepend puts n at the head of feed and trims it to limit entries.
func Prepend(feed []model.Notification, n model.Notification, limit int) []model.Notification {
	if limit <= 0 {
		limit = DefaultLimit
	}
	out := make([]model.Notification, 0, min(len(feed)+1, limit))
	out = append(out, n)
	for _, f := range feed {
		if len(out) == limit {
			break
		}
		out = append(out, f)
	}
	return out
}

// Since returns the entries strictly newer than t, newest first.
// A zero t returns the whole feed.
func Since(feed []model.Notification, t time.Time) []model.Notification {
	if t.IsZero() {
		return feed
	}
	out := make([]model.Notification, 0, len(feed))
	for _, n := range feed {
		if n.Timestamp.After(t) {
			out = append(out, n)
		}
	}
	return out
}
