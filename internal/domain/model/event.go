// Package model contains domain models passed between layers.
package model

import "time"

// EventStatus tracks an event through its lifecycle.
type EventStatus string

const (
	StatusUpcoming  EventStatus = "upcoming"
	StatusOpen      EventStatus = "open"
	StatusClosed    EventStatus = "closed"
	StatusCompleted EventStatus = "completed"
)

// Valid reports whether s is a known status.
func (s EventStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusOpen, StatusClosed, StatusCompleted:
		return true
	}
	return false
}

// Criterion is one judged dimension of an event.
type Criterion struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MaxPoints   int    `json:"max_points"`
}

// Adjustment is an event-scoped merit or demerit. It only moves the raw
// score of that event and never touches the team's standing logs.
type Adjustment struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Venue       string     `json:"venue,omitempty"`
	Points      Points     `json:"points"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

// EventResult is the judged outcome for one team in one event.
type EventResult struct {
	TeamID         string            `json:"team_id"`
	CriteriaScores map[string]Points `json:"criteria_scores"`
	Merits         []Adjustment      `json:"merits,omitempty"`
	Demerits       []Adjustment      `json:"demerits,omitempty"`
}

// Event is a scheduled competition with its criteria and latest results.
type Event struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Date              time.Time     `json:"date"`
	Venue             string        `json:"venue,omitempty"`
	Category          string        `json:"category,omitempty"`
	Status            EventStatus   `json:"status"`
	CompetitionPoints int           `json:"competition_points"`
	Criteria          []Criterion   `json:"criteria"`
	Results           []EventResult `json:"results,omitempty"`

	// Seq orders ledger entries that share a timestamp.
	Seq uint64 `json:"seq"`
}

// CriterionScore is a display row of an EventScore.
type CriterionScore struct {
	Criterion string  `json:"criterion"`
	Score     float64 `json:"score"`
	MaxScore  int     `json:"max_score"`
}

// EventScore is a team's derived outcome for one event.
type EventScore struct {
	EventID           string           `json:"event_id"`
	EventName         string           `json:"event_name"`
	EventDate         time.Time        `json:"event_date"`
	Placement         int              `json:"placement"`
	CompetitionPoints int              `json:"competition_points"`
	RawScore          float64          `json:"raw_score"`
	Scores            []CriterionScore `json:"scores"`
	MeritAdjustment   float64          `json:"merit_adjustment"`
	DemeritAdjustment float64          `json:"demerit_adjustment"`
	Merits            []Adjustment     `json:"merits,omitempty"`
	Demerits          []Adjustment     `json:"demerits,omitempty"`
}
