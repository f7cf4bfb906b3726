package api

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/intramurals/internal/adapters/sheets"
	service "github.com/okian/intramurals/internal/app"
	"github.com/okian/intramurals/internal/domain/model"
)

// EventsHandler handles event and result requests.
type EventsHandler struct {
	deps     Dependencies
	maxBytes int64
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies, maxBytes int64) *EventsHandler {
	return &EventsHandler{deps: deps, maxBytes: maxBytes}
}

type resultsRequest struct {
	Results []model.EventResult `json:"results"`
}

// HandleList handles GET /events.
func (h *EventsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	events, err := h.deps.Events(r.Context())
	if err != nil {
		writeServiceError(w, "api.list_events", err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleGet handles GET /events/{eventID}.
func (h *EventsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ev, err := h.deps.Event(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeServiceError(w, "api.get_event", err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// HandleCreate handles POST /events.
func (h *EventsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_event"
	var in service.EventInput
	if err := decodeJSON(w, r, h.maxBytes, &in); err != nil {
		writeServiceError(w, op, err)
		return
	}
	ev, err := h.deps.CreateEvent(r.Context(), in)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// HandleUpdate handles PUT /events/{eventID}. Omitted fields are kept.
func (h *EventsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_event"
	var patch service.EventPatch
	if err := decodeJSON(w, r, h.maxBytes, &patch); err != nil {
		writeServiceError(w, op, err)
		return
	}
	ev, err := h.deps.UpdateEvent(r.Context(), chi.URLParam(r, "eventID"), patch)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// HandleDelete handles DELETE /events/{eventID}.
func (h *EventsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DeleteEvent(r.Context(), chi.URLParam(r, "eventID")); err != nil {
		writeServiceError(w, "api.delete_event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSubmitResults handles PUT /events/{eventID}/results.
func (h *EventsHandler) HandleSubmitResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_results"
	var req resultsRequest
	if err := decodeJSON(w, r, h.maxBytes, &req); err != nil {
		writeServiceError(w, op, err)
		return
	}
	ev, err := h.deps.SubmitEventResults(r.Context(), chi.URLParam(r, "eventID"), req.Results)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// HandleImportResults handles POST /events/{eventID}/results.xlsx. The
// workbook is either the raw body or the "file" part of a multipart form.
func (h *EventsHandler) HandleImportResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.import_results"
	data, err := h.readUpload(w, r)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	results, err := sheets.ParseResults(data)
	if err != nil {
		writeServiceError(w, op, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	ev, err := h.deps.SubmitEventResults(r.Context(), chi.URLParam(r, "eventID"), results)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// HandleScoresheet handles GET /events/{eventID}/scoresheet.xlsx.
func (h *EventsHandler) HandleScoresheet(w http.ResponseWriter, r *http.Request) {
	const op = "api.event_scoresheet"
	ev, err := h.deps.Event(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	teams, err := h.deps.Leaderboard(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	ids := make([]string, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
	}
	data, err := sheets.Template(ev, ids)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeFile(w, xlsxContentType, ev.ID+"-scoresheet.xlsx", data)
}

func (h *EventsHandler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: empty upload", ErrBadRequest)
		}
		return data, nil
	}

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return data, nil
}
