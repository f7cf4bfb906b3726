package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/intramurals/internal/adapters/chart"
	service "github.com/okian/intramurals/internal/app"
	"github.com/okian/intramurals/internal/domain/model"
)

// TeamsHandler handles team, history and point log requests.
type TeamsHandler struct {
	deps     Dependencies
	maxBytes int64
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(deps Dependencies, maxBytes int64) *TeamsHandler {
	return &TeamsHandler{deps: deps, maxBytes: maxBytes}
}

// HandleList handles GET /teams.
func (h *TeamsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	teams, err := h.deps.Teams(r.Context())
	if err != nil {
		writeServiceError(w, "api.list_teams", err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

// HandleGet handles GET /teams/{teamID}.
func (h *TeamsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	team, err := h.deps.Team(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		writeServiceError(w, "api.get_team", err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// HandleCreate handles POST /teams.
func (h *TeamsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_team"
	var in service.TeamInput
	if err := decodeJSON(w, r, h.maxBytes, &in); err != nil {
		writeServiceError(w, op, err)
		return
	}
	team, err := h.deps.CreateTeam(r.Context(), in)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

// HandleUpdate handles PATCH /teams/{teamID}.
func (h *TeamsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_team"
	var patch service.TeamPatch
	if err := decodeJSON(w, r, h.maxBytes, &patch); err != nil {
		writeServiceError(w, op, err)
		return
	}
	team, err := h.deps.UpdateTeam(r.Context(), chi.URLParam(r, "teamID"), patch)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// HandleHistory handles GET /teams/{teamID}/history.
func (h *TeamsHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.deps.TeamHistory(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		writeServiceError(w, "api.team_history", err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// HandleHistoryChart handles GET /teams/{teamID}/history.png.
func (h *TeamsHandler) HandleHistoryChart(w http.ResponseWriter, r *http.Request) {
	const op = "api.team_history_chart"
	teamID := chi.URLParam(r, "teamID")
	team, err := h.deps.Team(r.Context(), teamID)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	png, err := chart.History(team.Name, team.ProgressHistory, chart.DefaultPalette)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeFile(w, "image/png", "", png)
}

// HandleAddLog handles POST /teams/{teamID}/logs.
func (h *TeamsHandler) HandleAddLog(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_point_log"
	var in service.PointLogInput
	if err := decodeJSON(w, r, h.maxBytes, &in); err != nil {
		writeServiceError(w, op, err)
		return
	}
	in.TeamID = chi.URLParam(r, "teamID")
	entry, err := h.deps.AddPointLog(r.Context(), in)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// HandleUpdateLog handles PATCH /teams/{teamID}/logs/{logID}.
func (h *TeamsHandler) HandleUpdateLog(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_point_log"
	var patch model.PointLogPatch
	if err := decodeJSON(w, r, h.maxBytes, &patch); err != nil {
		writeServiceError(w, op, err)
		return
	}
	entry, err := h.deps.UpdatePointLog(r.Context(), chi.URLParam(r, "logID"), chi.URLParam(r, "teamID"), patch)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleDeleteLog handles DELETE /teams/{teamID}/logs/{logID}[?type=merit|demerit].
// Without a type the log is looked up under both kinds.
func (h *TeamsHandler) HandleDeleteLog(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_point_log"
	teamID, logID := chi.URLParam(r, "teamID"), chi.URLParam(r, "logID")

	kind := model.AdjustmentKind(r.URL.Query().Get("type"))
	if kind == "" {
		team, err := h.deps.Team(r.Context(), teamID)
		if err != nil {
			writeServiceError(w, op, err)
			return
		}
		found, _, ok := team.FindLog(logID)
		if !ok {
			writeServiceError(w, op, fmt.Errorf("log %q: %w", logID, service.ErrNotFound))
			return
		}
		kind = found
	}
	if err := h.deps.DeletePointLog(r.Context(), logID, teamID, kind); err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
