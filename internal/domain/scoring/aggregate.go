package scoring

import "github.com/okian/intramurals/internal/domain/model"

// Total is event points plus standing merits minus standing demerits.
func Total(rec model.TeamRecord, scores []model.EventScore) int {
	total := 0
	for _, es := range scores {
		total += es.CompetitionPoints
	}
	for _, m := range rec.Merits {
		total += m.Points
	}
	for _, d := range rec.Demerits {
		total -= d.Points
	}
	return total
}

// Stats counts placements by bucket and the number of standing logs.
func Stats(rec model.TeamRecord, scores []model.EventScore) model.PlacementStats {
	st := model.PlacementStats{
		Merits:   len(rec.Merits),
		Demerits: len(rec.Demerits),
	}
	for _, es := range scores {
		switch es.Placement {
		case 1:
			st.First++
		case 2:
			st.Second++
		case 3:
			st.Third++
		default:
			st.Other++
		}
	}
	return st
}
