// Package scoring turns judged event results and standing adjustments into
// placements, competition points, team totals, history and ranks.
//
// Everything here is pure: the same records always produce the same Snapshot.
package scoring

import (
	"sort"

	"github.com/okian/intramurals/internal/domain/model"
)

// Raw is the raw score of one result with its adjustment totals.
type Raw struct {
	TeamID   string
	Score    float64
	Merits   float64
	Demerits float64
}

// RawScore sums criteria scores and event-scoped adjustments. Criteria are
// summed in name order so the float result does not depend on map order.
func RawScore(res model.EventResult) Raw {
	names := make([]string, 0, len(res.CriteriaScores))
	for name := range res.CriteriaScores {
		names = append(names, name)
	}
	sort.Strings(names)

	var criteria float64
	for _, name := range names {
		criteria += res.CriteriaScores[name].Float()
	}
	merits := sumAdjustments(res.Merits)
	demerits := sumAdjustments(res.Demerits)
	return Raw{
		TeamID:   res.TeamID,
		Score:    criteria + merits - demerits,
		Merits:   merits,
		Demerits: demerits,
	}
}

func sumAdjustments(adj []model.Adjustment) float64 {
	var total float64
	for _, a := range adj {
		total += a.Points.Float()
	}
	return total
}

// Breakdown lists the per-criterion rows in the event's criteria order.
// Scores for criteria the event does not define are not shown.
func Breakdown(res model.EventResult, criteria []model.Criterion) []model.CriterionScore {
	rows := make([]model.CriterionScore, 0, len(criteria))
	for _, c := range criteria {
		rows = append(rows, model.CriterionScore{
			Criterion: c.Name,
			Score:     res.CriteriaScores[c.Name].Float(),
			MaxScore:  c.MaxPoints,
		})
	}
	return rows
}
