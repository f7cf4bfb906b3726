package simulate

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/okian/intramurals/internal/domain/model"
)

var (
	categories = []string{"Sports", "Arts", "Academics", "Esports"}
	criteria   = []string{"Execution", "Teamwork", "Creativity", "Timing", "Accuracy", "Presentation"}
	pools      = []int{300, 500, 800, 1000}
)

// TeamSpec is a team to be registered.
type TeamSpec struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// EventSpec is an event to be scheduled.
type EventSpec struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Date              time.Time         `json:"date"`
	Venue             string            `json:"venue,omitempty"`
	Category          string            `json:"category,omitempty"`
	CompetitionPoints int               `json:"competition_points"`
	Criteria          []model.Criterion `json:"criteria"`
}

// LogSpec is a standing merit or demerit.
type LogSpec struct {
	TeamID string               `json:"-"`
	Kind   model.AdjustmentKind `json:"type"`
	Points int                  `json:"points"`
	Reason string               `json:"reason"`
	Author string               `json:"author"`
}

// Generator produces deterministic scenario data for a seed.
type Generator struct {
	faker *gofakeit.Faker
	start time.Time
}

// NewGenerator creates a generator seeded with seed.
func NewGenerator(seed uint64, start time.Time) *Generator {
	return &Generator{faker: gofakeit.New(seed), start: start.UTC()}
}

// Teams generates n teams with unique ids.
func (g *Generator) Teams(n int) []TeamSpec {
	teams := make([]TeamSpec, n)
	for i := range teams {
		teams[i] = TeamSpec{
			ID:          fmt.Sprintf("team-%02d", i+1),
			Name:        g.faker.Color() + " " + title(g.faker.Animal()),
			Description: g.faker.Sentence(6),
		}
	}
	return teams
}

// Events generates n events spread one per day from the start day.
func (g *Generator) Events(n int) []EventSpec {
	events := make([]EventSpec, n)
	for i := range events {
		names := append([]string(nil), criteria...)
		g.faker.ShuffleAnySlice(names)
		picked := make([]model.Criterion, 0, 3)
		for _, name := range names[:g.faker.Number(1, 3)] {
			picked = append(picked, model.Criterion{
				Name:      name,
				MaxPoints: g.faker.RandomInt([]int{10, 20, 25, 50}),
			})
		}
		events[i] = EventSpec{
			ID:                fmt.Sprintf("event-%02d", i+1),
			Name:              title(g.faker.Adjective()) + " " + g.faker.RandomString([]string{"Relay", "Cup", "Showdown", "Bee", "Open"}),
			Date:              g.start.AddDate(0, 0, i+1).Add(time.Duration(g.faker.Number(8, 17)) * time.Hour),
			Venue:             g.faker.City() + " Gym",
			Category:          g.faker.RandomString(categories),
			CompetitionPoints: g.faker.RandomInt(pools),
			Criteria:          picked,
		}
	}
	return events
}

// Results scores every team on each criterion of ev. Scores stay within
// the criterion maximum and a few teams receive event merits or demerits.
func (g *Generator) Results(ev EventSpec, teamIDs []string) []model.EventResult {
	results := make([]model.EventResult, 0, len(teamIDs))
	for _, id := range teamIDs {
		scores := make(map[string]model.Points, len(ev.Criteria))
		for _, c := range ev.Criteria {
			scores[c.Name] = model.Points(g.faker.Number(0, c.MaxPoints))
		}
		res := model.EventResult{TeamID: id, CriteriaScores: scores}
		switch g.faker.Number(0, 9) {
		case 0:
			res.Merits = []model.Adjustment{{Name: "Sportsmanship", Points: model.Points(g.faker.Number(1, 5))}}
		case 1:
			res.Demerits = []model.Adjustment{{Name: "Late arrival", Points: model.Points(g.faker.Number(1, 5))}}
		}
		results = append(results, res)
	}
	return results
}

// Logs generates n standing point logs against random teams.
func (g *Generator) Logs(n int, teamIDs []string) []LogSpec {
	if len(teamIDs) == 0 {
		return nil
	}
	logs := make([]LogSpec, n)
	for i := range logs {
		kind := model.KindMerit
		if g.faker.Bool() {
			kind = model.KindDemerit
		}
		logs[i] = LogSpec{
			TeamID: g.faker.RandomString(teamIDs),
			Kind:   kind,
			Points: g.faker.Number(5, 60),
			Reason: g.faker.Sentence(4),
			Author: g.faker.Name(),
		}
	}
	return logs
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
