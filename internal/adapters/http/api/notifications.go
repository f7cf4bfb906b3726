package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/intramurals/internal/domain/model"
)

// NotificationsDependencies reads the notification feed.
type NotificationsDependencies interface {
	Notifications(ctx context.Context, since time.Time) ([]model.Notification, error)
}

// NotificationsHandler serves the polling feed.
type NotificationsHandler struct {
	deps NotificationsDependencies
}

// NewNotificationsHandler creates a new notifications handler.
func NewNotificationsHandler(deps NotificationsDependencies) *NotificationsHandler {
	return &NotificationsHandler{deps: deps}
}

// HandleList handles GET /notifications[?since=RFC3339].
func (h *NotificationsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_notifications"
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		since = t
	}
	feed, err := h.deps.Notifications(r.Context(), since)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}
