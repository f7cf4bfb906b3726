package scoring

import (
	"sort"
	"time"

	"github.com/okian/intramurals/internal/domain/model"
)

// Ledger reasons.
const (
	ReasonStart         = "Competition Start"
	reasonEventPrefix   = "Event: "
	reasonMeritPrefix   = "Merit: "
	reasonDemeritPrefix = "Demerit: "
	dayLayout           = "2006-01-02"
)

// LedgerEntry is one score change before running totals are applied.
type LedgerEntry struct {
	Timestamp time.Time
	Seq       uint64
	Reason    string
	Change    int
}

// Ledger collects every score change of a team. eventSeq supplies the Seq of
// each scored event; events without a date are placed at baseline.
func Ledger(rec model.TeamRecord, scores []model.EventScore, eventSeq map[string]uint64, baseline time.Time) []LedgerEntry {
	entries := make([]LedgerEntry, 0, len(scores)+len(rec.Merits)+len(rec.Demerits))
	for _, es := range scores {
		at := es.EventDate
		if at.IsZero() {
			at = baseline
		}
		entries = append(entries, LedgerEntry{
			Timestamp: at,
			Seq:       eventSeq[es.EventID],
			Reason:    reasonEventPrefix + es.EventName,
			Change:    es.CompetitionPoints,
		})
	}
	for _, m := range rec.Merits {
		entries = append(entries, LedgerEntry{Timestamp: m.Timestamp, Seq: m.Seq, Reason: reasonMeritPrefix + m.Reason, Change: m.Points})
	}
	for _, d := range rec.Demerits {
		entries = append(entries, LedgerEntry{Timestamp: d.Timestamp, Seq: d.Seq, Reason: reasonDemeritPrefix + d.Reason, Change: -d.Points})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		}
		return entries[i].Seq < entries[j].Seq
	})
	return entries
}

// Detailed prepends the baseline row and applies running totals. entries
// must be in Ledger order. When the earliest entry predates the baseline the
// start row moves back to it so the history stays time ordered.
func Detailed(entries []LedgerEntry, baseline time.Time) []model.HistoryPoint {
	start := baseline
	if len(entries) > 0 && entries[0].Timestamp.Before(start) {
		start = entries[0].Timestamp
	}
	out := make([]model.HistoryPoint, 0, len(entries)+1)
	out = append(out, model.HistoryPoint{Timestamp: start, Score: 0, Reason: ReasonStart})
	running := 0
	for _, e := range entries {
		running += e.Change
		out = append(out, model.HistoryPoint{
			Timestamp: e.Timestamp,
			Score:     running,
			Reason:    e.Reason,
			Change:    e.Change,
		})
	}
	return out
}

// Daily keeps the last running total of each UTC calendar day, in date order.
// A day counts once even if its rows are not adjacent; the row latest in
// time wins.
func Daily(detailed []model.HistoryPoint) []model.DailyPoint {
	out := make([]model.DailyPoint, 0, len(detailed))
	last := make(map[string]time.Time, len(detailed))
	index := make(map[string]int, len(detailed))
	for _, p := range detailed {
		day := p.Timestamp.UTC().Format(dayLayout)
		i, seen := index[day]
		if !seen {
			index[day] = len(out)
			last[day] = p.Timestamp
			out = append(out, model.DailyPoint{Date: day, Score: p.Score})
			continue
		}
		if !p.Timestamp.Before(last[day]) {
			last[day] = p.Timestamp
			out[i].Score = p.Score
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
