// Package service provides the scoring engine facade used by the HTTP API,
// the admin CLI and the seed loader. Every mutation is serialized through a
// single writer; reads are served from the last published snapshot.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/intramurals/internal/adapters/mq/queue"
	"github.com/okian/intramurals/internal/adapters/mq/worker"
	"github.com/okian/intramurals/internal/adapters/notify"
	"github.com/okian/intramurals/internal/adapters/repository"
	"github.com/okian/intramurals/internal/domain/dedupe"
	"github.com/okian/intramurals/internal/domain/model"
	"github.com/okian/intramurals/internal/domain/scoring"
	"github.com/okian/intramurals/pkg/logger"
	"github.com/okian/intramurals/pkg/metrics"
)

const tracerName = "github.com/okian/intramurals/internal/app"

// Service implements the engine operations.
type Service struct {
	mu sync.RWMutex

	// Core components
	store  Store
	bus    *notify.ChannelBus
	state  *state
	queue  *queue.InMemoryQueue
	writer *worker.InMemoryWorker

	// Configuration
	queueSize         int
	dedupeSize        int
	notificationLimit int
	facilitatorID     string
	baseline          time.Time
	now               func() time.Time

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
	tracer trace.Tracer
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithQueueSize sets the capacity of the command queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the number of idempotency keys remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithNotificationLimit caps the persisted notification feed.
func WithNotificationLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.notificationLimit = limit
		}
	}
}

// WithFacilitator sets the team id that is tracked but never ranked.
func WithFacilitator(id string) Option {
	return func(s *Service) { s.facilitatorID = id }
}

// WithBaseline sets the competition start used as the first history row.
func WithBaseline(t time.Time) Option {
	return func(s *Service) { s.baseline = t.UTC() }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// New constructs a Service over store. Call Start before mutating.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:             store,
		queueSize:         1024,
		dedupeSize:        10000,
		notificationLimit: notify.DefaultLimit,
		facilitatorID:     "facilitators",
		baseline:          time.Date(2025, time.April, 28, 0, 0, 0, 0, time.UTC),
		now:               time.Now,
		logger:            logger.Get().Named("service"),
		tracer:            otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.bus = notify.NewChannelBus(int64(s.notificationLimit))
	s.state = newState(store, s.bus, scoring.Options{
		FacilitatorID: s.facilitatorID,
		Baseline:      s.baseline,
	}, s.notificationLimit, s.now, s.logger.Named("writer"))
	return s
}

// Start loads the persisted records, publishes the first snapshot and
// starts the writer.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting scoring service...")

	if err := s.state.load(ctx); err != nil {
		return err
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.writer = worker.NewInMemoryWorker(s.queue, s.state,
		worker.WithLogger(s.logger),
		worker.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))),
	)
	metrics.UpdateQueueCapacity(s.queueSize)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	go s.writer.Run(runCtx)

	s.started = true
	v := s.state.latest()
	s.logger.Info(ctx, "scoring service started",
		logger.String("store", s.store.Driver()),
		logger.Int("teams", len(v.snap.Teams)),
		logger.Int("events", len(v.snap.Events)),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains the writer and closes the notification bus. The store is
// owned by the caller.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping scoring service...")

	err := s.writer.Shutdown(ctx)
	s.cancel()
	_ = s.queue.Close()
	if cerr := s.bus.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}

	s.started = false
	s.logger.Info(ctx, "scoring service stopped")
	return err
}

// Subscribe streams notifications published after the call until ctx ends.
func (s *Service) Subscribe(ctx context.Context) (<-chan model.Notification, error) {
	return s.bus.Subscribe(ctx)
}

type idempotencyKey struct{}

// WithIdempotencyKey tags the mutation issued with ctx so a retry carrying
// the same key replays the first result.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, idempotencyKey{}, key)
}

func (s *Service) submit(ctx context.Context, kind string, payload any) (any, error) {
	s.mu.RLock()
	w := s.writer
	started := s.started
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	cmd := queue.NewCommand(kind, payload)
	if key, ok := ctx.Value(idempotencyKey{}).(string); ok {
		cmd = cmd.WithIdempotencyKey(kind + ":" + key)
	}
	v, err := w.Submit(ctx, cmd)
	return v, normalize(err)
}

// normalize folds lower-layer not-found kinds into ErrNotFound.
func normalize(err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	if errors.Is(err, scoring.ErrNotFound) || errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

func (s *Service) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "service."+name, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func result[T any](v any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected command result %T", v)
	}
	return out, nil
}

// SubmitEventResults replaces the results of an event and marks it completed.
func (s *Service) SubmitEventResults(ctx context.Context, eventID string, results []model.EventResult) (ev model.Event, err error) {
	ctx, span := s.span(ctx, "SubmitEventResults",
		attribute.String("event.id", eventID), attribute.Int("results", len(results)))
	defer func() { finish(span, err) }()

	return result[model.Event](s.submit(ctx, cmdSubmitResults, submitResults{EventID: eventID, Results: results}))
}

// AddPointLog appends a standing merit or demerit to a team.
func (s *Service) AddPointLog(ctx context.Context, in PointLogInput) (l model.PointLog, err error) {
	ctx, span := s.span(ctx, "AddPointLog",
		attribute.String("team.id", in.TeamID), attribute.String("log.type", string(in.Kind)))
	defer func() { finish(span, err) }()

	return result[model.PointLog](s.submit(ctx, cmdAddPointLog, in))
}

// UpdatePointLog patches a log entry found under either kind.
func (s *Service) UpdatePointLog(ctx context.Context, logID, teamID string, patch model.PointLogPatch) (l model.PointLog, err error) {
	ctx, span := s.span(ctx, "UpdatePointLog",
		attribute.String("team.id", teamID), attribute.String("log.id", logID))
	defer func() { finish(span, err) }()

	return result[model.PointLog](s.submit(ctx, cmdUpdatePointLog, updatePointLog{LogID: logID, TeamID: teamID, Patch: patch}))
}

// DeletePointLog removes a log entry of the given kind.
func (s *Service) DeletePointLog(ctx context.Context, logID, teamID string, kind model.AdjustmentKind) (err error) {
	ctx, span := s.span(ctx, "DeletePointLog",
		attribute.String("team.id", teamID), attribute.String("log.id", logID))
	defer func() { finish(span, err) }()

	_, err = s.submit(ctx, cmdDeletePointLog, deletePointLog{LogID: logID, TeamID: teamID, Kind: kind})
	return err
}

// CreateTeam registers a team.
func (s *Service) CreateTeam(ctx context.Context, in TeamInput) (t model.Team, err error) {
	ctx, span := s.span(ctx, "CreateTeam", attribute.String("team.id", in.ID))
	defer func() { finish(span, err) }()

	return result[model.Team](s.submit(ctx, cmdCreateTeam, in))
}

// UpdateTeam changes a team's name or description.
func (s *Service) UpdateTeam(ctx context.Context, id string, patch TeamPatch) (t model.Team, err error) {
	ctx, span := s.span(ctx, "UpdateTeam", attribute.String("team.id", id))
	defer func() { finish(span, err) }()

	return result[model.Team](s.submit(ctx, cmdUpdateTeam, updateTeam{ID: id, Patch: patch}))
}

// CreateEvent schedules an event.
func (s *Service) CreateEvent(ctx context.Context, in EventInput) (ev model.Event, err error) {
	ctx, span := s.span(ctx, "CreateEvent", attribute.String("event.id", in.ID))
	defer func() { finish(span, err) }()

	return result[model.Event](s.submit(ctx, cmdCreateEvent, in))
}

// UpdateEvent patches an event; standings are re-derived.
func (s *Service) UpdateEvent(ctx context.Context, id string, patch EventPatch) (ev model.Event, err error) {
	ctx, span := s.span(ctx, "UpdateEvent", attribute.String("event.id", id))
	defer func() { finish(span, err) }()

	return result[model.Event](s.submit(ctx, cmdUpdateEvent, updateEvent{ID: id, Patch: patch}))
}

// DeleteEvent removes an event and every award it produced.
func (s *Service) DeleteEvent(ctx context.Context, id string) (err error) {
	ctx, span := s.span(ctx, "DeleteEvent", attribute.String("event.id", id))
	defer func() { finish(span, err) }()

	_, err = s.submit(ctx, cmdDeleteEvent, id)
	return err
}

// Recompute reloads every record from the store and republishes standings.
func (s *Service) Recompute(ctx context.Context) (err error) {
	ctx, span := s.span(ctx, "Recompute")
	defer func() { finish(span, err) }()

	_, err = s.submit(ctx, cmdReload, "")
	return err
}

// Leaderboard returns ranked teams, best first. The facilitator is omitted.
func (s *Service) Leaderboard(ctx context.Context) ([]model.Team, error) {
	_, span := s.span(ctx, "Leaderboard")
	defer span.End()

	snap := s.state.latest().snap
	out := make([]model.Team, len(snap.Leaderboard))
	for i, t := range snap.Leaderboard {
		out[i] = *t
	}
	return out, nil
}

// TeamHistory returns the score progression of a team.
func (s *Service) TeamHistory(ctx context.Context, teamID string) (h model.History, err error) {
	_, span := s.span(ctx, "TeamHistory", attribute.String("team.id", teamID))
	defer func() { finish(span, err) }()

	h, err = s.state.latest().snap.History(teamID)
	return h, normalize(err)
}

// Team returns the derived view of one team.
func (s *Service) Team(ctx context.Context, id string) (t model.Team, err error) {
	_, span := s.span(ctx, "Team", attribute.String("team.id", id))
	defer func() { finish(span, err) }()

	tp, err := s.state.latest().snap.Team(id)
	if err != nil {
		return model.Team{}, normalize(err)
	}
	return *tp, nil
}

// Teams returns every team: ranked teams first, then unranked ones by id.
func (s *Service) Teams(ctx context.Context) ([]model.Team, error) {
	_, span := s.span(ctx, "Teams")
	defer span.End()

	snap := s.state.latest().snap
	out := make([]model.Team, 0, len(snap.Teams))
	ranked := make(map[string]struct{}, len(snap.Leaderboard))
	for _, t := range snap.Leaderboard {
		out = append(out, *t)
		ranked[t.ID] = struct{}{}
	}
	rest := make([]model.Team, 0, len(snap.Teams)-len(snap.Leaderboard))
	for id, t := range snap.Teams {
		if _, ok := ranked[id]; !ok {
			rest = append(rest, *t)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].ID < rest[j].ID })
	return append(out, rest...), nil
}

// Event returns one event.
func (s *Service) Event(ctx context.Context, id string) (ev model.Event, err error) {
	_, span := s.span(ctx, "Event", attribute.String("event.id", id))
	defer func() { finish(span, err) }()

	ev, err = s.state.latest().snap.Event(id)
	return ev, normalize(err)
}

// Events returns every event ordered by date.
func (s *Service) Events(ctx context.Context) ([]model.Event, error) {
	_, span := s.span(ctx, "Events")
	defer span.End()

	return s.state.latest().snap.Events, nil
}

// Notifications returns feed entries newer than since, newest first.
func (s *Service) Notifications(ctx context.Context, since time.Time) ([]model.Notification, error) {
	_, span := s.span(ctx, "Notifications")
	defer span.End()

	return notify.Since(s.state.latest().feed, since), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.state.latest()
	stats := map[string]interface{}{
		"started":         s.started,
		"store":           s.store.Driver(),
		"queueSize":       s.queueSize,
		"dedupeSize":      s.dedupeSize,
		"facilitator":     s.facilitatorID,
		"teams":           len(v.snap.Teams),
		"rankedTeams":     len(v.snap.Leaderboard),
		"events":          len(v.snap.Events),
		"completedEvents": v.snap.CompletedEvents(),
		"notifications":   len(v.feed),
	}
	if !v.at.IsZero() {
		stats["lastRecompute"] = v.at
	}
	if s.started {
		queueLen := s.queue.Len(context.Background())
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}
