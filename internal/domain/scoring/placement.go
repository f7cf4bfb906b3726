package scoring

import (
	"math"
	"sort"
)

// DefaultMultiplier applies to every placement past the end of the table.
const DefaultMultiplier = 0.1

// placementMultipliers maps placement (1-based) to its share of the pool.
var placementMultipliers = [...]float64{1.0, 0.8, 0.64, 0.512} //nolint:gochecknoglobals // fixed award table

// Multiplier returns the pool share for a placement.
func Multiplier(placement int) float64 {
	if placement >= 1 && placement <= len(placementMultipliers) {
		return placementMultipliers[placement-1]
	}
	return DefaultMultiplier
}

// AwardPoints is round(pool * multiplier), rounding halves up.
func AwardPoints(pool, placement int) int {
	return int(math.Floor(float64(pool)*Multiplier(placement) + 0.5))
}

// Placed is a result with its placement and awarded points.
type Placed struct {
	Raw
	Placement int
	Points    int
}

// Place orders raw scores descending and assigns dense placements: equal raw
// scores share a placement and the next lower score gets the next integer.
// Ties are listed by team id so the output is stable.
func Place(raws []Raw, pool int) []Placed {
	out := make([]Placed, len(raws))
	for i, r := range raws {
		out[i] = Placed{Raw: r}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].TeamID < out[j].TeamID
	})

	placement := 0
	for i := range out {
		if i == 0 || out[i].Score != out[i-1].Score {
			placement++
		}
		out[i].Placement = placement
		out[i].Points = AwardPoints(pool, placement)
	}
	return out
}
