package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/intramurals/internal/adapters/sheets"
	"github.com/okian/intramurals/internal/domain/model"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context) ([]model.Team, error)
	Events(ctx context.Context) ([]model.Event, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /leaderboard[?limit=N] requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}
	teams, err := h.deps.Leaderboard(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if limit > 0 && limit < len(teams) {
		teams = teams[:limit]
	}
	writeJSON(w, http.StatusOK, teams)
}

// HandleExport handles GET /leaderboard.xlsx requests.
func (h *LeaderboardHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_leaderboard"
	teams, err := h.deps.Leaderboard(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	events, err := h.deps.Events(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	completed := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.Status == model.StatusCompleted {
			completed = append(completed, ev)
		}
	}
	data, err := sheets.ExportStandings(teams, completed)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	name := "standings-" + time.Now().UTC().Format(time.DateOnly) + ".xlsx"
	writeFile(w, xlsxContentType, name, data)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
