package handlers

import (
	"net/http"
	"time"

	"git.home.luguber.info/inful/docsync/internal/server/responses"
)

// MonitoringHandlers serves liveness.
type MonitoringHandlers struct {
	session Session
	started time.Time
	now     func() time.Time
}

func NewMonitoringHandlers(session Session) *MonitoringHandlers {
	return &MonitoringHandlers{session: session, started: time.Now(), now: time.Now}
}

// HandleHealth reports ok while the collaborator channel is open and 503 after it
// was lost.
func (h *MonitoringHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	st := h.session.State()
	now := h.now()
	resp := responses.HealthResponse{
		Status:    "ok",
		SessionID: st.SessionID,
		Timestamp: now.UTC(),
		Uptime:    now.Sub(h.started).Seconds(),
		Closed:    st.Closed,
	}
	status := http.StatusOK
	if st.Closed {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	_ = writeJSON(w, status, resp)
}
