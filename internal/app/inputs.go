package service

import (
	"time"

	"github.com/okian/intramurals/internal/domain/model"
)

// Command kinds handled by the writer.
const (
	cmdCreateTeam     = "create_team"
	cmdUpdateTeam     = "update_team"
	cmdCreateEvent    = "create_event"
	cmdUpdateEvent    = "update_event"
	cmdDeleteEvent    = "delete_event"
	cmdSubmitResults  = "submit_results"
	cmdAddPointLog    = "add_point_log"
	cmdUpdatePointLog = "update_point_log"
	cmdDeletePointLog = "delete_point_log"
	cmdReload         = "reload"
)

// TeamInput creates a team. An empty ID is generated.
type TeamInput struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// TeamPatch updates team identity fields.
type TeamPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type updateTeam struct {
	ID    string
	Patch TeamPatch
}

// EventInput creates an event. An empty ID is generated.
type EventInput struct {
	ID                string            `json:"id,omitempty"`
	Name              string            `json:"name"`
	Date              time.Time         `json:"date"`
	Venue             string            `json:"venue,omitempty"`
	Category          string            `json:"category,omitempty"`
	Status            model.EventStatus `json:"status,omitempty"`
	CompetitionPoints int               `json:"competition_points"`
	Criteria          []model.Criterion `json:"criteria"`
}

// EventPatch updates event fields; any change re-derives standings.
type EventPatch struct {
	Name              *string            `json:"name,omitempty"`
	Date              *time.Time         `json:"date,omitempty"`
	Venue             *string            `json:"venue,omitempty"`
	Category          *string            `json:"category,omitempty"`
	Status            *model.EventStatus `json:"status,omitempty"`
	CompetitionPoints *int               `json:"competition_points,omitempty"`
	Criteria          []model.Criterion  `json:"criteria,omitempty"`
}

type updateEvent struct {
	ID    string
	Patch EventPatch
}

type submitResults struct {
	EventID string
	Results []model.EventResult
}

// PointLogInput appends a standing merit or demerit. A nil Timestamp means now.
type PointLogInput struct {
	TeamID            string               `json:"team_id"`
	Kind              model.AdjustmentKind `json:"type"`
	Points            int                  `json:"points"`
	Reason            string               `json:"reason"`
	Author            string               `json:"author"`
	ResponsiblePerson string               `json:"responsible_person,omitempty"`
	Timestamp         *time.Time           `json:"timestamp,omitempty"`
}

type updatePointLog struct {
	LogID  string
	TeamID string
	Patch  model.PointLogPatch
}

type deletePointLog struct {
	LogID  string
	TeamID string
	Kind   model.AdjustmentKind
}
