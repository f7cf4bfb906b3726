package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/intramurals/internal/adapters/mq/queue"
	"github.com/okian/intramurals/internal/adapters/notify"
	"github.com/okian/intramurals/internal/domain/model"
	"github.com/okian/intramurals/internal/domain/scoring"
	"github.com/okian/intramurals/pkg/logger"
	"github.com/okian/intramurals/pkg/metrics"
)

// Store is the persistence the writer needs. Only source records are stored;
// standings are always derived.
type Store interface {
	Driver() string
	Load(ctx context.Context) (scoring.Records, error)
	PutTeam(ctx context.Context, t model.TeamRecord) error
	PutEvent(ctx context.Context, e model.Event) error
	DeleteEvent(ctx context.Context, id string) error
	Notifications(ctx context.Context) ([]model.Notification, error)
	PutNotifications(ctx context.Context, feed []model.Notification) error
}

// view is what readers see. It is replaced wholesale after every mutation.
type view struct {
	snap *scoring.Snapshot
	feed []model.Notification
	at   time.Time
}

// state is owned by the writer goroutine. Apply is never called concurrently,
// so the maps below are only touched from one goroutine; readers go through
// the atomically published view.
type state struct {
	store Store
	pub   notify.Publisher
	opts  scoring.Options
	limit int
	now   func() time.Time
	log   logger.Logger

	teams  map[string]model.TeamRecord
	events map[string]model.Event
	feed   []model.Notification
	seq    uint64

	current atomic.Pointer[view]
}

func newState(store Store, pub notify.Publisher, opts scoring.Options, limit int, now func() time.Time, log logger.Logger) *state {
	st := &state{
		store:  store,
		pub:    pub,
		opts:   opts,
		limit:  limit,
		now:    now,
		log:    log,
		teams:  map[string]model.TeamRecord{},
		events: map[string]model.Event{},
	}
	st.current.Store(&view{snap: scoring.Empty(), feed: []model.Notification{}})
	return st
}

func (s *state) load(ctx context.Context) error {
	rec, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	feed, err := s.store.Notifications(ctx)
	if err != nil {
		return fmt.Errorf("load notifications: %w", err)
	}

	s.teams = make(map[string]model.TeamRecord, len(rec.Teams))
	s.events = make(map[string]model.Event, len(rec.Events))
	s.seq = 0
	for _, t := range rec.Teams {
		s.teams[t.ID] = t
		s.seq = max(s.seq, t.Seq)
		for _, l := range t.Merits {
			s.seq = max(s.seq, l.Seq)
		}
		for _, l := range t.Demerits {
			s.seq = max(s.seq, l.Seq)
		}
	}
	for _, e := range rec.Events {
		s.events[e.ID] = e
		s.seq = max(s.seq, e.Seq)
	}
	s.feed = feed
	s.publish()
	return nil
}

func (s *state) latest() *view { return s.current.Load() }

func (s *state) records() scoring.Records {
	rec := scoring.Records{
		Teams:  make([]model.TeamRecord, 0, len(s.teams)),
		Events: make([]model.Event, 0, len(s.events)),
	}
	for _, t := range s.teams {
		rec.Teams = append(rec.Teams, t)
	}
	for _, e := range s.events {
		rec.Events = append(rec.Events, e)
	}
	sort.Slice(rec.Teams, func(i, j int) bool { return rec.Teams[i].ID < rec.Teams[j].ID })
	sort.Slice(rec.Events, func(i, j int) bool { return rec.Events[i].ID < rec.Events[j].ID })
	return rec
}

// publish recomputes standings from the writer's records and swaps the view.
func (s *state) publish() *scoring.Snapshot {
	start := time.Now()
	snap := scoring.Recompute(s.records(), s.opts)
	at := s.now().UTC()
	s.current.Store(&view{snap: snap, feed: s.feed, at: at})

	metrics.RecordRecompute(float64(time.Since(start).Microseconds())/1000.0, at.Unix())
	metrics.UpdateStandings(len(s.teams), len(s.events), snap.CompletedEvents())
	return snap
}

// commit republishes standings and then announces n, if any. Notification
// delivery failures are logged; the mutation has already been persisted.
func (s *state) commit(ctx context.Context, n *model.Notification) *scoring.Snapshot {
	if n != nil {
		s.feed = notify.Prepend(s.feed, *n, s.limit)
	}
	snap := s.publish()
	if n == nil {
		return snap
	}

	metrics.RecordNotification()
	if err := s.store.PutNotifications(ctx, s.feed); err != nil {
		s.log.Warn(ctx, "persist notifications failed", logger.Error(err))
		metrics.RecordErrorByComponent("notify", "persist")
	}
	if s.pub != nil {
		if err := s.pub.Publish(ctx, *n); err != nil {
			s.log.Warn(ctx, "publish notification failed", logger.Error(err))
			metrics.RecordErrorByComponent("notify", "publish")
		}
	}
	return snap
}

func (s *state) announce(typ model.NotificationType, title, message, link string) *model.Notification {
	n := notify.New(s.now(), typ, title, message, link)
	return &n
}

// Apply implements worker.Applier.
func (s *state) Apply(ctx context.Context, cmd queue.Command) (any, error) { //nolint:gocritic // hugeParam
	switch p := cmd.Payload.(type) {
	case TeamInput:
		return s.createTeam(ctx, p)
	case updateTeam:
		return s.updateTeam(ctx, p)
	case EventInput:
		return s.createEvent(ctx, p)
	case updateEvent:
		return s.updateEvent(ctx, p)
	case submitResults:
		return s.submitResults(ctx, p)
	case PointLogInput:
		return s.addPointLog(ctx, p)
	case updatePointLog:
		return s.updatePointLog(ctx, p)
	case deletePointLog:
		return nil, s.deletePointLog(ctx, p)
	case string:
		switch cmd.Kind {
		case cmdDeleteEvent:
			return nil, s.deleteEvent(ctx, p)
		case cmdReload:
			if err := s.load(ctx); err != nil {
				return nil, err
			}
			return s.latest().snap, nil
		}
	}
	return nil, fmt.Errorf("%w: unsupported command %q", ErrInvalidInput, cmd.Kind)
}

func (s *state) nextSeq() uint64 { return s.seq + 1 }

func (s *state) team(id string) (model.TeamRecord, error) {
	t, ok := s.teams[id]
	if !ok {
		return model.TeamRecord{}, fmt.Errorf("team %q: %w", id, ErrNotFound)
	}
	return t, nil
}

func (s *state) event(id string) (model.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return model.Event{}, fmt.Errorf("event %q: %w", id, ErrNotFound)
	}
	return e, nil
}

func (s *state) createTeam(ctx context.Context, in TeamInput) (model.Team, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Team{}, fmt.Errorf("%w: team name is required", ErrInvalidInput)
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	if _, ok := s.teams[id]; ok {
		return model.Team{}, fmt.Errorf("team %q: %w", id, ErrConflict)
	}

	rec := model.TeamRecord{
		ID:          id,
		Name:        name,
		Description: in.Description,
		CreatedAt:   s.now().UTC(),
		Merits:      []model.PointLog{},
		Demerits:    []model.PointLog{},
		Seq:         s.nextSeq(),
	}
	if err := s.store.PutTeam(ctx, rec); err != nil {
		return model.Team{}, err
	}
	s.seq = rec.Seq
	s.teams[id] = rec

	snap := s.commit(ctx, nil)
	return *snap.Teams[id], nil
}

func (s *state) updateTeam(ctx context.Context, p updateTeam) (model.Team, error) {
	rec, err := s.team(p.ID)
	if err != nil {
		return model.Team{}, err
	}
	if p.Patch.Name != nil {
		rec.Name = strings.TrimSpace(*p.Patch.Name)
		if rec.Name == "" {
			return model.Team{}, fmt.Errorf("%w: team name is required", ErrInvalidInput)
		}
	}
	if p.Patch.Description != nil {
		rec.Description = *p.Patch.Description
	}
	if err := s.store.PutTeam(ctx, rec); err != nil {
		return model.Team{}, err
	}
	s.teams[rec.ID] = rec

	snap := s.commit(ctx, nil)
	return *snap.Teams[rec.ID], nil
}

func validateEvent(e *model.Event) error {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return fmt.Errorf("%w: event name is required", ErrInvalidInput)
	}
	if e.CompetitionPoints < 0 {
		return fmt.Errorf("%w: competition points must not be negative", ErrInvalidInput)
	}
	if e.Status == "" {
		e.Status = model.StatusUpcoming
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%w: unknown event status %q", ErrInvalidInput, e.Status)
	}
	seen := make(map[string]struct{}, len(e.Criteria))
	for i := range e.Criteria {
		c := &e.Criteria[i]
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			return fmt.Errorf("%w: criterion name is required", ErrInvalidInput)
		}
		if c.MaxPoints < 0 {
			return fmt.Errorf("%w: criterion %q max points must not be negative", ErrInvalidInput, c.Name)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: duplicate criterion %q", ErrInvalidInput, c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	if !e.Date.IsZero() {
		e.Date = e.Date.UTC()
	}
	return nil
}

func (s *state) createEvent(ctx context.Context, in EventInput) (model.Event, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	if _, ok := s.events[id]; ok {
		return model.Event{}, fmt.Errorf("event %q: %w", id, ErrConflict)
	}
	ev := model.Event{
		ID:                id,
		Name:              in.Name,
		Date:              in.Date,
		Venue:             in.Venue,
		Category:          in.Category,
		Status:            in.Status,
		CompetitionPoints: in.CompetitionPoints,
		Criteria:          slices.Clone(in.Criteria),
		Seq:               s.nextSeq(),
	}
	if ev.Criteria == nil {
		ev.Criteria = []model.Criterion{}
	}
	if err := validateEvent(&ev); err != nil {
		return model.Event{}, err
	}
	if err := s.store.PutEvent(ctx, ev); err != nil {
		return model.Event{}, err
	}
	s.seq = ev.Seq
	s.events[id] = ev

	snap := s.commit(ctx, s.announce(model.NotifySuccess, "New Event Added",
		fmt.Sprintf("A new event %q has been scheduled.", ev.Name),
		"/events?eventId="+ev.ID))
	return snap.Event(id)
}

func (s *state) updateEvent(ctx context.Context, p updateEvent) (model.Event, error) {
	ev, err := s.event(p.ID)
	if err != nil {
		return model.Event{}, err
	}
	if p.Patch.Name != nil {
		ev.Name = *p.Patch.Name
	}
	if p.Patch.Date != nil {
		ev.Date = *p.Patch.Date
	}
	if p.Patch.Venue != nil {
		ev.Venue = *p.Patch.Venue
	}
	if p.Patch.Category != nil {
		ev.Category = *p.Patch.Category
	}
	if p.Patch.Status != nil {
		ev.Status = *p.Patch.Status
	}
	if p.Patch.CompetitionPoints != nil {
		ev.CompetitionPoints = *p.Patch.CompetitionPoints
	}
	if p.Patch.Criteria != nil {
		ev.Criteria = slices.Clone(p.Patch.Criteria)
	}
	if err := validateEvent(&ev); err != nil {
		return model.Event{}, err
	}
	if err := s.store.PutEvent(ctx, ev); err != nil {
		return model.Event{}, err
	}
	s.events[ev.ID] = ev

	snap := s.commit(ctx, s.announce(model.NotifyInfo, "Event Details Updated",
		fmt.Sprintf("Details for %q have been updated.", ev.Name),
		"/events?eventId="+ev.ID))
	return snap.Event(ev.ID)
}

func (s *state) deleteEvent(ctx context.Context, id string) error {
	ev, err := s.event(id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return err
	}
	delete(s.events, id)

	s.commit(ctx, s.announce(model.NotifyWarning, "Event Removed",
		fmt.Sprintf("%q has been removed from the schedule.", ev.Name),
		"/events"))
	return nil
}

func (s *state) submitResults(ctx context.Context, p submitResults) (model.Event, error) {
	ev, err := s.event(p.EventID)
	if err != nil {
		return model.Event{}, err
	}
	results := make([]model.EventResult, 0, len(p.Results))
	seen := make(map[string]struct{}, len(p.Results))
	for _, r := range p.Results {
		r.TeamID = strings.TrimSpace(r.TeamID)
		if r.TeamID == "" {
			return model.Event{}, fmt.Errorf("%w: result without team id", ErrInvalidInput)
		}
		if _, dup := seen[r.TeamID]; dup {
			return model.Event{}, fmt.Errorf("%w: team %q appears twice", ErrInvalidInput, r.TeamID)
		}
		seen[r.TeamID] = struct{}{}
		if _, ok := s.teams[r.TeamID]; !ok {
			return model.Event{}, fmt.Errorf("team %q: %w", r.TeamID, ErrNotFound)
		}
		if r.CriteriaScores == nil {
			r.CriteriaScores = map[string]model.Points{}
		}
		results = append(results, r)
	}

	ev.Results = results
	ev.Status = model.StatusCompleted
	if err := s.store.PutEvent(ctx, ev); err != nil {
		return model.Event{}, err
	}
	s.events[ev.ID] = ev

	snap := s.commit(ctx, s.announce(model.NotifySuccess, "Scores Finalized",
		fmt.Sprintf("Results for %q are in! Check the updated standings.", ev.Name),
		"/leaderboard"))
	return snap.Event(ev.ID)
}

func validateLog(l model.PointLog) error {
	if l.Points < 0 {
		return fmt.Errorf("%w: points must not be negative", ErrInvalidInput)
	}
	if strings.TrimSpace(l.Reason) == "" {
		return fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}
	return nil
}

func (s *state) addPointLog(ctx context.Context, in PointLogInput) (model.PointLog, error) {
	if !in.Kind.Valid() {
		return model.PointLog{}, fmt.Errorf("%w: unknown log type %q", ErrInvalidInput, in.Kind)
	}
	rec, err := s.team(in.TeamID)
	if err != nil {
		return model.PointLog{}, err
	}
	ts := s.now()
	if in.Timestamp != nil {
		ts = *in.Timestamp
	}
	entry := model.PointLog{
		ID:                uuid.NewString(),
		Points:            in.Points,
		Reason:            strings.TrimSpace(in.Reason),
		Author:            in.Author,
		Timestamp:         ts.UTC(),
		ResponsiblePerson: in.ResponsiblePerson,
		Seq:               s.nextSeq(),
	}
	if err := validateLog(entry); err != nil {
		return model.PointLog{}, err
	}

	logs := rec.Logs(in.Kind)
	*logs = append(slices.Clone(*logs), entry)
	if err := s.store.PutTeam(ctx, rec); err != nil {
		return model.PointLog{}, err
	}
	s.seq = entry.Seq
	s.teams[rec.ID] = rec

	title, typ := "Merit Awarded", model.NotifySuccess
	if in.Kind == model.KindDemerit {
		title, typ = "Demerit Issued", model.NotifyWarning
	}
	s.commit(ctx, s.announce(typ, title,
		fmt.Sprintf("Team %s received %d points for: %s", rec.Name, entry.Points, entry.Reason),
		"/teams?teamId="+rec.ID+"&tab=merits"))
	return entry, nil
}

func (s *state) updatePointLog(ctx context.Context, p updatePointLog) (model.PointLog, error) {
	rec, err := s.team(p.TeamID)
	if err != nil {
		return model.PointLog{}, err
	}
	kind, idx, ok := rec.FindLog(p.LogID)
	if !ok {
		return model.PointLog{}, fmt.Errorf("log %q: %w", p.LogID, ErrNotFound)
	}
	logs := rec.Logs(kind)
	updated := slices.Clone(*logs)
	p.Patch.Apply(&updated[idx])
	if err := validateLog(updated[idx]); err != nil {
		return model.PointLog{}, err
	}
	*logs = updated
	if err := s.store.PutTeam(ctx, rec); err != nil {
		return model.PointLog{}, err
	}
	s.teams[rec.ID] = rec

	s.commit(ctx, nil)
	return updated[idx], nil
}

func (s *state) deletePointLog(ctx context.Context, p deletePointLog) error {
	if !p.Kind.Valid() {
		return fmt.Errorf("%w: unknown log type %q", ErrInvalidInput, p.Kind)
	}
	rec, err := s.team(p.TeamID)
	if err != nil {
		return err
	}
	logs := rec.Logs(p.Kind)
	idx := slices.IndexFunc(*logs, func(l model.PointLog) bool { return l.ID == p.LogID })
	if idx < 0 {
		return fmt.Errorf("%s %q: %w", p.Kind, p.LogID, ErrNotFound)
	}
	*logs = slices.Delete(slices.Clone(*logs), idx, idx+1)
	if err := s.store.PutTeam(ctx, rec); err != nil {
		return err
	}
	s.teams[rec.ID] = rec

	s.commit(ctx, nil)
	return nil
}
