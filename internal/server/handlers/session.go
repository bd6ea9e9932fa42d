package handlers

import (
	"context"
	"net/http"

	"git.home.luguber.info/inful/docsync/internal/coordinator"
	"git.home.luguber.info/inful/docsync/internal/document"
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/section"
	"git.home.luguber.info/inful/docsync/internal/server/responses"
)

// Session is the part of the coordinator the display server drives.
type Session interface {
	SessionID() string
	Document() document.Document
	Tree() section.Tree
	Index() *section.Index
	State() coordinator.State
	StartResearch(ctx context.Context, topic string) error
	RequestRegeneration(ctx context.Context, title, feedback string) (string, error)
	ExitSectionMode()
	BeginEdit() error
	SaveEdit(html string) (uint64, error)
	CancelEdit() (coordinator.Confirmation, error)
	RequestReset() coordinator.Confirmation
	Confirm(id string) error
	Decline(id string) error
}

// SessionHandlers serves the document views and the regeneration commands.
type SessionHandlers struct {
	session Session
	errors  *errors.HTTPErrorAdapter
}

func NewSessionHandlers(session Session, adapter *errors.HTTPErrorAdapter) *SessionHandlers {
	return &SessionHandlers{session: session, errors: adapter}
}

// HandleDocument serves {revision, text}.
func (h *SessionHandlers) HandleDocument(w http.ResponseWriter, r *http.Request) {
	_ = writeJSONPretty(w, r, http.StatusOK, h.session.Document())
}

// HandleTree serves the render tree of the current revision.
func (h *SessionHandlers) HandleTree(w http.ResponseWriter, r *http.Request) {
	_ = writeJSONPretty(w, r, http.StatusOK, h.session.Tree())
}

// HandleSections serves the section index.
func (h *SessionHandlers) HandleSections(w http.ResponseWriter, r *http.Request) {
	ix := h.session.Index()
	resp := responses.SectionsResponse{Revision: ix.Revision, Sections: ix.Sections}
	if resp.Sections == nil {
		resp.Sections = []section.Section{}
	}
	_ = writeJSONPretty(w, r, http.StatusOK, resp)
}

// HandleState serves mode, pending request, last status and pending confirmation.
func (h *SessionHandlers) HandleState(w http.ResponseWriter, r *http.Request) {
	_ = writeJSONPretty(w, r, http.StatusOK, h.session.State())
}

// HandleResearch starts a research run for {topic}.
func (h *SessionHandlers) HandleResearch(w http.ResponseWriter, r *http.Request) {
	var req responses.ResearchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errors.WriteErrorResponse(w, r, err)
		return
	}
	if err := h.session.StartResearch(r.Context(), req.Topic); err != nil {
		h.errors.WriteErrorResponse(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusAccepted, responses.StatusResponse{Status: "started"})
}

// HandleRegenerate asks the collaborator to rewrite one section. A request made
// while another is in flight is refused with 409.
func (h *SessionHandlers) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	var req responses.RegenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errors.WriteErrorResponse(w, r, err)
		return
	}
	if req.SectionTitle == "" {
		h.errors.WriteErrorResponse(w, r, errors.ValidationError("section_title is required").Build())
		return
	}
	id, err := h.session.RequestRegeneration(r.Context(), req.SectionTitle, req.Feedback)
	if err != nil {
		h.errors.WriteErrorResponse(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusAccepted, responses.RegenerateResponse{RequestID: id, Section: req.SectionTitle})
}

// HandleExitSection leaves section mode, retiring any pending request.
func (h *SessionHandlers) HandleExitSection(w http.ResponseWriter, r *http.Request) {
	h.session.ExitSectionMode()
	_ = writeJSON(w, http.StatusOK, responses.StatusResponse{Status: "browse"})
}
