package scoring

import (
	"sort"

	"github.com/okian/intramurals/internal/domain/model"
)

// sortTeams orders by score descending with team id ascending as tie-breaker.
func sortTeams(teams []*model.Team) {
	sort.SliceStable(teams, func(i, j int) bool {
		if teams[i].Score != teams[j].Score {
			return teams[i].Score > teams[j].Score
		}
		return teams[i].ID < teams[j].ID
	})
}

// assignRanksWithTies gives tied teams the same rank; the next distinct score
// ranks at one more than the number of teams ahead of it (1, 1, 3).
func assignRanksWithTies(teams []*model.Team) {
	for i := range teams {
		if i > 0 && teams[i].Score == teams[i-1].Score {
			teams[i].Rank = teams[i-1].Rank
			continue
		}
		teams[i].Rank = i + 1
	}
}

// Rank orders competing teams and assigns ranks. The facilitator team gets
// rank 0 and is returned separately, never in the ranked slice.
func Rank(teams []*model.Team, facilitatorID string) (ranked []*model.Team, unranked []*model.Team) {
	ranked = make([]*model.Team, 0, len(teams))
	for _, t := range teams {
		if facilitatorID != "" && t.ID == facilitatorID {
			t.Rank = 0
			unranked = append(unranked, t)
			continue
		}
		ranked = append(ranked, t)
	}
	sortTeams(ranked)
	assignRanksWithTies(ranked)
	return ranked, unranked
}
