package model

import "time"

// AdjustmentKind distinguishes standing merits from demerits.
type AdjustmentKind string

const (
	KindMerit   AdjustmentKind = "merit"
	KindDemerit AdjustmentKind = "demerit"
)

// Valid reports whether k is merit or demerit.
func (k AdjustmentKind) Valid() bool { return k == KindMerit || k == KindDemerit }

// PointLog is one standing merit or demerit entry on a team.
type PointLog struct {
	ID                string    `json:"id"`
	Points            int       `json:"points"`
	Reason            string    `json:"reason"`
	Author            string    `json:"author"`
	Timestamp         time.Time `json:"timestamp"`
	ResponsiblePerson string    `json:"responsible_person,omitempty"`
	Seq               uint64    `json:"seq"`
}

// PointLogPatch carries the optional fields of an update.
type PointLogPatch struct {
	Points            *int       `json:"points,omitempty"`
	Reason            *string    `json:"reason,omitempty"`
	Author            *string    `json:"author,omitempty"`
	Timestamp         *time.Time `json:"timestamp,omitempty"`
	ResponsiblePerson *string    `json:"responsible_person,omitempty"`
}

// Apply copies the set fields of p onto l.
func (p PointLogPatch) Apply(l *PointLog) {
	if p.Points != nil {
		l.Points = *p.Points
	}
	if p.Reason != nil {
		l.Reason = *p.Reason
	}
	if p.Author != nil {
		l.Author = *p.Author
	}
	if p.Timestamp != nil {
		l.Timestamp = p.Timestamp.UTC()
	}
	if p.ResponsiblePerson != nil {
		l.ResponsiblePerson = *p.ResponsiblePerson
	}
}

// TeamRecord is the persisted source of a team.
type TeamRecord struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	Merits      []PointLog `json:"merits"`
	Demerits    []PointLog `json:"demerits"`
	Seq         uint64     `json:"seq"`
}

// Logs returns the log slice for kind.
func (t *TeamRecord) Logs(kind AdjustmentKind) *[]PointLog {
	if kind == KindDemerit {
		return &t.Demerits
	}
	return &t.Merits
}

// FindLog locates a log by id across both kinds.
func (t *TeamRecord) FindLog(id string) (AdjustmentKind, int, bool) {
	for i := range t.Merits {
		if t.Merits[i].ID == id {
			return KindMerit, i, true
		}
	}
	for i := range t.Demerits {
		if t.Demerits[i].ID == id {
			return KindDemerit, i, true
		}
	}
	return "", -1, false
}

// PlacementStats summarizes a team's record.
type PlacementStats struct {
	First    int `json:"first"`
	Second   int `json:"second"`
	Third    int `json:"third"`
	Other    int `json:"other"`
	Merits   int `json:"merits"`
	Demerits int `json:"demerits"`
}

// Team is the derived view of a team after recompute.
type Team struct {
	TeamRecord

	Score                   int            `json:"score"`
	Rank                    int            `json:"rank"`
	EventScores             []EventScore   `json:"event_scores"`
	PlacementStats          PlacementStats `json:"placement_stats"`
	ProgressHistory         []DailyPoint   `json:"progress_history"`
	DetailedProgressHistory []HistoryPoint `json:"detailed_progress_history"`
}

// HistoryPoint is one ledger row with its running total.
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Score     int       `json:"score"`
	Reason    string    `json:"reason"`
	Change    int       `json:"change"`
}

// DailyPoint is the last running total of a calendar day.
type DailyPoint struct {
	Date  string `json:"date"`
	Score int    `json:"score"`
}

// History is a team's score progression.
type History struct {
	TeamID   string         `json:"team_id"`
	Score    int            `json:"score"`
	Daily    []DailyPoint   `json:"daily"`
	Detailed []HistoryPoint `json:"detailed"`
}
