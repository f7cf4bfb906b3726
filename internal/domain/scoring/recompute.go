package scoring

import (
	"fmt"
	"sort"
	"time"

	"github.com/okian/intramurals/internal/domain/model"
)

// Records is the full source state the engine derives standings from.
type Records struct {
	Teams  []model.TeamRecord
	Events []model.Event
}

// Options parameterize a recompute.
type Options struct {
	// FacilitatorID is tracked with history but excluded from ranking.
	FacilitatorID string
	// Baseline is the timestamp of the "Competition Start" ledger row.
	Baseline time.Time
}

// Snapshot is an immutable view of derived standings. Callers must treat
// every slice reachable from it as read-only.
type Snapshot struct {
	// Leaderboard lists ranked teams, best first.
	Leaderboard []*model.Team
	// Teams holds every team, facilitator included, by id.
	Teams map[string]*model.Team
	// Events lists events by date then sequence.
	Events []model.Event

	eventIdx map[string]int
}

// Team returns the derived team or ErrNotFound.
func (s *Snapshot) Team(id string) (*model.Team, error) {
	if t, ok := s.Teams[id]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("team %q: %w", id, ErrNotFound)
}

// Event returns an event or ErrNotFound.
func (s *Snapshot) Event(id string) (model.Event, error) {
	if i, ok := s.eventIdx[id]; ok {
		return s.Events[i], nil
	}
	return model.Event{}, fmt.Errorf("event %q: %w", id, ErrNotFound)
}

// History returns the progression of a team or ErrNotFound.
func (s *Snapshot) History(id string) (model.History, error) {
	t, err := s.Team(id)
	if err != nil {
		return model.History{}, err
	}
	return model.History{
		TeamID:   t.ID,
		Score:    t.Score,
		Daily:    t.ProgressHistory,
		Detailed: t.DetailedProgressHistory,
	}, nil
}

// CompletedEvents counts events with submitted results.
func (s *Snapshot) CompletedEvents() int {
	n := 0
	for _, e := range s.Events {
		if len(e.Results) > 0 {
			n++
		}
	}
	return n
}

// Empty returns a snapshot with no teams or events.
func Empty() *Snapshot {
	return &Snapshot{Teams: map[string]*model.Team{}, eventIdx: map[string]int{}}
}

// Recompute derives every team's event scores, totals, placement stats,
// history and rank from the source records. It reads no clock and keeps no
// state, so repeated calls with the same records give identical snapshots.
// Results referring to teams that no longer exist are ignored.
func Recompute(rec Records, opts Options) *Snapshot {
	events := make([]model.Event, len(rec.Events))
	copy(events, rec.Events)
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].Seq < events[j].Seq
	})

	teams := make(map[string]*model.Team, len(rec.Teams))
	for _, tr := range rec.Teams {
		teams[tr.ID] = &model.Team{TeamRecord: tr}
	}

	eventSeq := make(map[string]uint64, len(events))
	eventIdx := make(map[string]int, len(events))
	for i, ev := range events {
		eventSeq[ev.ID] = ev.Seq
		eventIdx[ev.ID] = i
		for _, p := range scoreEvent(ev, teams) {
			t := teams[p.TeamID]
			t.EventScores = append(t.EventScores, p.toEventScore(ev))
		}
	}

	all := make([]*model.Team, 0, len(teams))
	for _, t := range teams {
		if t.EventScores == nil {
			t.EventScores = []model.EventScore{}
		}
		t.Score = Total(t.TeamRecord, t.EventScores)
		t.PlacementStats = Stats(t.TeamRecord, t.EventScores)
		detailed := Detailed(Ledger(t.TeamRecord, t.EventScores, eventSeq, opts.Baseline), opts.Baseline)
		t.DetailedProgressHistory = detailed
		t.ProgressHistory = Daily(detailed)
		all = append(all, t)
	}

	ranked, _ := Rank(all, opts.FacilitatorID)
	return &Snapshot{
		Leaderboard: ranked,
		Teams:       teams,
		Events:      events,
		eventIdx:    eventIdx,
	}
}

type scored struct {
	Placed
	result model.EventResult
}

// scoreEvent places one event's results among known teams. A team listed
// twice keeps its first result.
func scoreEvent(ev model.Event, teams map[string]*model.Team) []scored {
	if len(ev.Results) == 0 {
		return nil
	}
	byTeam := make(map[string]model.EventResult, len(ev.Results))
	raws := make([]Raw, 0, len(ev.Results))
	for _, res := range ev.Results {
		if _, known := teams[res.TeamID]; !known {
			continue
		}
		if _, dup := byTeam[res.TeamID]; dup {
			continue
		}
		byTeam[res.TeamID] = res
		raws = append(raws, RawScore(res))
	}
	placed := Place(raws, ev.CompetitionPoints)
	out := make([]scored, len(placed))
	for i, p := range placed {
		out[i] = scored{Placed: p, result: byTeam[p.TeamID]}
	}
	return out
}

func (s scored) toEventScore(ev model.Event) model.EventScore {
	return model.EventScore{
		EventID:           ev.ID,
		EventName:         ev.Name,
		EventDate:         ev.Date,
		Placement:         s.Placement,
		CompetitionPoints: s.Points,
		RawScore:          s.Score,
		Scores:            Breakdown(s.result, ev.Criteria),
		MeritAdjustment:   s.Merits,
		DemeritAdjustment: s.Demerits,
		Merits:            s.result.Merits,
		Demerits:          s.result.Demerits,
	}
}
