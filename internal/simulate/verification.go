package simulate

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/okian/intramurals/pkg/logger"
)

const startReason = "Competition Start"

// verifier accumulates invariant violations.
type verifier struct {
	stats      *Stats
	violations []string
}

func (v *verifier) check(ok bool, format string, args ...any) {
	v.stats.Checks++
	if !ok {
		v.violations = append(v.violations, fmt.Sprintf(format, args...))
	}
}

func (v *verifier) err() error {
	if len(v.violations) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInconsistent, strings.Join(v.violations, "; "))
}

// verifyResults fetches the leaderboard and every team history and checks
// them against each other.
func verifyResults(ctx context.Context, client *Client, cfg Config, stats *Stats) error {
	log := logger.Get().Named("simulate")
	log.Info(ctx, "verifying results")

	res, err := client.Get(ctx, "/leaderboard")
	if err != nil {
		return fmt.Errorf("fetch leaderboard: %w", err)
	}
	board := res.Body.Array()
	stats.RankedTeams = len(board)
	if len(board) > 0 {
		stats.TopTeam = board[0].Get("name").String()
		stats.TopScore = int(board[0].Get("score").Int())
	}

	v := &verifier{stats: stats}
	verifyLeaderboard(v, board, cfg.Facilitator)

	for _, entry := range board {
		id := entry.Get("id").String()
		hist, err := client.Get(ctx, "/teams/"+id+"/history")
		if err != nil {
			return fmt.Errorf("fetch history for %s: %w", id, err)
		}
		verifyHistory(v, id, entry.Get("score").Int(), hist.Body)
	}

	if cfg.Facilitator != "" {
		team, err := client.Get(ctx, "/teams/"+cfg.Facilitator)
		if err == nil {
			v.check(team.Body.Get("rank").Int() == 0, "facilitator %s has rank %d", cfg.Facilitator, team.Body.Get("rank").Int())
		} else if !isStatus(err, 404) {
			return fmt.Errorf("fetch facilitator: %w", err)
		}
	}

	if err := v.err(); err != nil {
		return err
	}
	log.Info(ctx, "result verification completed", logger.Int("checks", stats.Checks))
	return nil
}

// verifyLeaderboard checks ordering, competition ranks and score totals.
func verifyLeaderboard(v *verifier, board []gjson.Result, facilitator string) {
	var prevScore, prevRank int64
	for i, entry := range board {
		id := entry.Get("id").String()
		score := entry.Get("score").Int()
		rank := entry.Get("rank").Int()

		v.check(facilitator == "" || id != facilitator, "facilitator %s is on the leaderboard", id)

		want := int64(i + 1)
		if i > 0 {
			v.check(score <= prevScore, "%s scores %d above the previous entry %d", id, score, prevScore)
			if score == prevScore {
				want = prevRank
			}
		}
		v.check(rank == want, "%s has rank %d, want %d", id, rank, want)

		total := sum(entry.Get("event_scores.#.competition_points")) +
			sum(entry.Get("merits.#.points")) -
			sum(entry.Get("demerits.#.points"))
		v.check(total == score, "%s scores %d but its ledger totals %d", id, score, total)

		prevScore, prevRank = score, rank
	}
}

// verifyHistory checks that a history runs from zero to the team score.
func verifyHistory(v *verifier, id string, score int64, hist gjson.Result) {
	v.check(hist.Get("score").Int() == score, "%s history score %d, leaderboard %d", id, hist.Get("score").Int(), score)

	detailed := hist.Get("detailed").Array()
	v.check(len(detailed) > 0, "%s has an empty history", id)
	if len(detailed) == 0 {
		return
	}
	v.check(detailed[0].Get("reason").String() == startReason && detailed[0].Get("score").Int() == 0,
		"%s history does not open at zero", id)

	running := int64(0)
	for i, row := range detailed[1:] {
		running += row.Get("change").Int()
		v.check(row.Get("score").Int() == running, "%s history row %d is %d, want %d", id, i+1, row.Get("score").Int(), running)
	}
	v.check(detailed[len(detailed)-1].Get("score").Int() == score, "%s detailed history ends below its score", id)

	if daily := hist.Get("daily").Array(); len(daily) > 0 {
		v.check(daily[len(daily)-1].Get("score").Int() == score, "%s daily history ends at %d, want %d",
			id, daily[len(daily)-1].Get("score").Int(), score)
	}
}

func sum(r gjson.Result) int64 {
	var total int64
	for _, x := range r.Array() {
		total += x.Int()
	}
	return total
}
