// Package seed loads YAML fixtures into an empty competition.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	service "github.com/okian/intramurals/internal/app"
	"github.com/okian/intramurals/internal/domain/model"
	"github.com/okian/intramurals/pkg/logger"
)

// ErrNotEmpty is returned when the target already holds teams.
var ErrNotEmpty = errors.New("competition already has teams")

// Fixture is the on-disk seed document.
type Fixture struct {
	Teams  []Team  `yaml:"teams"`
	Events []Event `yaml:"events"`
	Logs   []Log   `yaml:"logs"`
}

// Team seeds a team.
type Team struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Criterion seeds an event criterion.
type Criterion struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	MaxPoints   int    `yaml:"max_points"`
}

// Adjustment seeds an event-scoped merit or demerit.
type Adjustment struct {
	Name   string  `yaml:"name"`
	Points float64 `yaml:"points"`
}

// Result seeds one team's judged result.
type Result struct {
	Team     string             `yaml:"team"`
	Scores   map[string]float64 `yaml:"scores"`
	Merits   []Adjustment       `yaml:"merits"`
	Demerits []Adjustment       `yaml:"demerits"`
}

// Event seeds an event and, optionally, its results.
type Event struct {
	ID                string      `yaml:"id"`
	Name              string      `yaml:"name"`
	Date              time.Time   `yaml:"date"`
	Venue             string      `yaml:"venue"`
	Category          string      `yaml:"category"`
	Status            string      `yaml:"status"`
	CompetitionPoints int         `yaml:"competition_points"`
	Criteria          []Criterion `yaml:"criteria"`
	Results           []Result    `yaml:"results"`
}

// Log seeds a standing merit or demerit.
type Log struct {
	Team              string    `yaml:"team"`
	Type              string    `yaml:"type"`
	Points            int       `yaml:"points"`
	Reason            string    `yaml:"reason"`
	Author            string    `yaml:"author"`
	ResponsiblePerson string    `yaml:"responsible_person"`
	Timestamp         time.Time `yaml:"timestamp"`
}

// Target is the subset of the service a fixture is applied through.
type Target interface {
	Teams(ctx context.Context) ([]model.Team, error)
	CreateTeam(ctx context.Context, in service.TeamInput) (model.Team, error)
	CreateEvent(ctx context.Context, in service.EventInput) (model.Event, error)
	SubmitEventResults(ctx context.Context, eventID string, results []model.EventResult) (model.Event, error)
	AddPointLog(ctx context.Context, in service.PointLogInput) (model.PointLog, error)
}

// Summary counts what a fixture created.
type Summary struct {
	Teams   int
	Events  int
	Results int
	Logs    int
}

// Load reads and parses a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a fixture document.
func Parse(data []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &fx, nil
}

// Apply creates the fixture's teams, events, results and logs in that order.
// It refuses to touch a competition that already has teams.
func Apply(ctx context.Context, t Target, fx *Fixture) (Summary, error) {
	var sum Summary
	log := logger.Get().Named("seed")

	existing, err := t.Teams(ctx)
	if err != nil {
		return sum, err
	}
	if len(existing) > 0 {
		return sum, ErrNotEmpty
	}

	for _, tm := range fx.Teams {
		if _, err := t.CreateTeam(ctx, service.TeamInput{ID: tm.ID, Name: tm.Name, Description: tm.Description}); err != nil {
			return sum, fmt.Errorf("seed team %q: %w", tm.ID, err)
		}
		sum.Teams++
	}

	for _, ev := range fx.Events {
		criteria := make([]model.Criterion, len(ev.Criteria))
		for i, c := range ev.Criteria {
			criteria[i] = model.Criterion{Name: c.Name, Description: c.Description, MaxPoints: c.MaxPoints}
		}
		created, err := t.CreateEvent(ctx, service.EventInput{
			ID:                ev.ID,
			Name:              ev.Name,
			Date:              ev.Date,
			Venue:             ev.Venue,
			Category:          ev.Category,
			Status:            model.EventStatus(ev.Status),
			CompetitionPoints: ev.CompetitionPoints,
			Criteria:          criteria,
		})
		if err != nil {
			return sum, fmt.Errorf("seed event %q: %w", ev.ID, err)
		}
		sum.Events++

		if len(ev.Results) == 0 {
			continue
		}
		if _, err := t.SubmitEventResults(ctx, created.ID, results(ev.Results)); err != nil {
			return sum, fmt.Errorf("seed results for %q: %w", ev.ID, err)
		}
		sum.Results += len(ev.Results)
	}

	for _, l := range fx.Logs {
		in := service.PointLogInput{
			TeamID:            l.Team,
			Kind:              model.AdjustmentKind(l.Type),
			Points:            l.Points,
			Reason:            l.Reason,
			Author:            l.Author,
			ResponsiblePerson: l.ResponsiblePerson,
		}
		if !l.Timestamp.IsZero() {
			ts := l.Timestamp
			in.Timestamp = &ts
		}
		if _, err := t.AddPointLog(ctx, in); err != nil {
			return sum, fmt.Errorf("seed %s for %q: %w", l.Type, l.Team, err)
		}
		sum.Logs++
	}

	log.Info(ctx, "seed applied",
		logger.Int("teams", sum.Teams),
		logger.Int("events", sum.Events),
		logger.Int("results", sum.Results),
		logger.Int("logs", sum.Logs),
	)
	return sum, nil
}

func results(in []Result) []model.EventResult {
	out := make([]model.EventResult, len(in))
	for i, r := range in {
		scores := make(map[string]model.Points, len(r.Scores))
		for k, v := range r.Scores {
			scores[k] = model.Points(v)
		}
		out[i] = model.EventResult{
			TeamID:         r.Team,
			CriteriaScores: scores,
			Merits:         adjustments(r.Merits),
			Demerits:       adjustments(r.Demerits),
		}
	}
	return out
}

func adjustments(in []Adjustment) []model.Adjustment {
	if len(in) == 0 {
		return nil
	}
	out := make([]model.Adjustment, len(in))
	for i, a := range in {
		out[i] = model.Adjustment{Name: a.Name, Points: model.Points(a.Points)}
	}
	return out
}
