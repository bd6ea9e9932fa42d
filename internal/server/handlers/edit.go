package handlers

import (
	"net/http"

	"git.home.luguber.info/inful/docsync/internal/server/responses"
)

// HandleBeginEdit enters edit mode.
func (h *SessionHandlers) HandleBeginEdit(w http.ResponseWriter, r *http.Request) {
	if err := h.session.BeginEdit(); err != nil {
		h.errors.WriteErrorResponse(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, responses.StatusResponse{Status: "edit"})
}

// HandleSaveEdit converts the edited HTML back to markdown and commits it.
func (h *SessionHandlers) HandleSaveEdit(w http.ResponseWriter, r *http.Request) {
	var req responses.EditSaveRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errors.WriteErrorResponse(w, r, err)
		return
	}
	rev, err := h.session.SaveEdit(req.HTML)
	if err != nil {
		h.errors.WriteErrorResponse(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, responses.RevisionResponse{Revision: rev})
}

// HandleCancelEdit parks a discard confirmation; nothing changes until it is confirmed.
func (h *SessionHandlers) HandleCancelEdit(w http.ResponseWriter, r *http.Request) {
	c, err := h.session.CancelEdit()
	if err != nil {
		h.errors.WriteErrorResponse(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusAccepted, c)
}

// HandleReset parks a reset confirmation.
func (h *SessionHandlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusAccepted, h.session.RequestReset())
}

// HandleConfirm resolves the confirmation named by the {id} path value.
func (h *SessionHandlers) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Confirm(r.PathValue("id")); err != nil {
		h.errors.WriteErrorResponse(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, responses.StatusResponse{Status: "confirmed"})
}

// HandleDecline drops the confirmation named by the {id} path value.
func (h *SessionHandlers) HandleDecline(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Decline(r.PathValue("id")); err != nil {
		h.errors.WriteErrorResponse(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, responses.StatusResponse{Status: "declined"})
}
