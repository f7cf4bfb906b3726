package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okian/intramurals/internal/domain/model"
	"github.com/okian/intramurals/internal/domain/scoring"
	"github.com/okian/intramurals/pkg/metrics"
)

// Key layout.
const (
	teamPrefix       = "teams/"
	eventPrefix      = "events/"
	notificationsKey = "notifications/feed"
)

// Records is the typed view over a KV store.
type Records struct {
	kv KV
}

// NewRecords wraps kv.
func NewRecords(kv KV) *Records {
	return &Records{kv: kv}
}

// Driver names the underlying store.
func (r *Records) Driver() string { return r.kv.Driver() }

// Close closes the underlying store.
func (r *Records) Close() error { return r.kv.Close() }

func (r *Records) observe(op string, start time.Time) {
	metrics.RecordStoreLatency(r.kv.Driver(), op, float64(time.Since(start).Microseconds())/1000)
}

func (r *Records) getJSON(ctx context.Context, key string, out any) error {
	defer r.observe("get", time.Now())
	raw, err := r.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return nil
}

func (r *Records) putJSON(ctx context.Context, key string, v any) error {
	defer r.observe("put", time.Now())
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.kv.Put(ctx, key, raw)
}

// Load reads every team and event.
func (r *Records) Load(ctx context.Context) (scoring.Records, error) {
	defer r.observe("load", time.Now())
	var out scoring.Records

	teams, err := r.kv.List(ctx, teamPrefix)
	if err != nil {
		return out, err
	}
	for _, p := range teams {
		var t model.TeamRecord
		if err := json.Unmarshal(p.Value, &t); err != nil {
			return out, fmt.Errorf("%w: %s: %v", ErrCorrupt, p.Key, err)
		}
		out.Teams = append(out.Teams, t)
	}

	events, err := r.kv.List(ctx, eventPrefix)
	if err != nil {
		return out, err
	}
	for _, p := range events {
		var e model.Event
		if err := json.Unmarshal(p.Value, &e); err != nil {
			return out, fmt.Errorf("%w: %s: %v", ErrCorrupt, p.Key, err)
		}
		out.Events = append(out.Events, e)
	}
	return out, nil
}

// Team returns a team record or ErrNotFound.
func (r *Records) Team(ctx context.Context, id string) (model.TeamRecord, error) {
	var t model.TeamRecord
	err := r.getJSON(ctx, teamPrefix+id, &t)
	return t, err
}

// PutTeam creates or replaces a team record.
func (r *Records) PutTeam(ctx context.Context, t model.TeamRecord) error {
	return r.putJSON(ctx, teamPrefix+t.ID, t)
}

// Event returns an event or ErrNotFound.
func (r *Records) Event(ctx context.Context, id string) (model.Event, error) {
	var e model.Event
	err := r.getJSON(ctx, eventPrefix+id, &e)
	return e, err
}

// PutEvent creates or replaces an event.
func (r *Records) PutEvent(ctx context.Context, e model.Event) error {
	return r.putJSON(ctx, eventPrefix+e.ID, e)
}

// DeleteEvent removes an event.
func (r *Records) DeleteEvent(ctx context.Context, id string) error {
	defer r.observe("delete", time.Now())
	return r.kv.Delete(ctx, eventPrefix+id)
}

// Notifications returns the persisted feed, newest first.
func (r *Records) Notifications(ctx context.Context) ([]model.Notification, error) {
	var feed []model.Notification
	err := r.getJSON(ctx, notificationsKey, &feed)
	if errors.Is(err, ErrNotFound) {
		return []model.Notification{}, nil
	}
	return feed, err
}

// PutNotifications replaces the persisted feed.
func (r *Records) PutNotifications(ctx context.Context, feed []model.Notification) error {
	return r.putJSON(ctx, notificationsKey, feed)
}
