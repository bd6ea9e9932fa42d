package events

import "time"

// Event is implemented by every event the coordinator publishes. Kind names the event on
// the display stream.
type Event interface {
	Kind() string
}

// Commit causes carried by RevisionCommitted.
const (
	CausePatch   = "patch"
	CauseReport  = "report"
	CauseEdit    = "edit"
	CauseRestore = "restore"
	CauseReset   = "reset"
	CauseReload  = "reload"
)

// RevisionCommitted is published after a mutation of the document store.
type RevisionCommitted struct {
	SessionID string    `json:"session_id"`
	Revision  uint64    `json:"revision"`
	Cause     string    `json:"cause"`
	Section   string    `json:"section,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Text      string    `json:"-"`
	At        time.Time `json:"at"`
}

// TreeRebuilt is published when a patch attempt fell back to a full rebuild of the
// render tree from the store.
type TreeRebuilt struct {
	SessionID string    `json:"session_id"`
	Revision  uint64    `json:"revision"`
	Section   string    `json:"section,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

// RegenerationRequested is published once a regenerate request has been sent.
type RegenerationRequested struct {
	SessionID string    `json:"session_id"`
	RequestID string    `json:"request_id"`
	Section   string    `json:"section"`
	At        time.Time `json:"at"`
}

// RegenerationFailed is published when a pending regeneration ends without a patch:
// the collaborator reported failure, the request timed out, or the channel was lost.
type RegenerationFailed struct {
	SessionID string    `json:"session_id"`
	RequestID string    `json:"request_id"`
	Section   string    `json:"section"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

// ProgressUpdated carries a research status message.
type ProgressUpdated struct {
	SessionID   string    `json:"session_id"`
	Step        string    `json:"step"`
	Message     string    `json:"message"`
	Progress    int       `json:"progress"`
	Sections    []string  `json:"sections,omitempty"`
	Queries     []string  `json:"queries,omitempty"`
	SectionName string    `json:"section_name,omitempty"`
	At          time.Time `json:"at"`
}

// Thinking relays an interim collaborator message.
type Thinking struct {
	SessionID string    `json:"session_id"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

// ReportDelivered is published when a research run delivered its final report.
type ReportDelivered struct {
	SessionID string    `json:"session_id"`
	Topic     string    `json:"topic"`
	Revision  uint64    `json:"revision"`
	Sections  []string  `json:"sections"`
	At        time.Time `json:"at"`
}

// ConfirmationRequested is published when a destructive action parks for confirmation.
type ConfirmationRequested struct {
	SessionID string    `json:"session_id"`
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	At        time.Time `json:"at"`
}

// ModeChanged is published when the session enters or leaves section or edit mode.
type ModeChanged struct {
	SessionID string    `json:"session_id"`
	Mode      string    `json:"mode"`
	At        time.Time `json:"at"`
}

// CollaboratorError relays an error message the collaborator sent for the current run.
type CollaboratorError struct {
	SessionID string    `json:"session_id"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

// SessionClosed is published once when the collaborator channel is lost.
type SessionClosed struct {
	SessionID string    `json:"session_id"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

func (RevisionCommitted) Kind() string     { return "revision_committed" }
func (TreeRebuilt) Kind() string           { return "tree_rebuilt" }
func (RegenerationRequested) Kind() string { return "regeneration_requested" }
func (RegenerationFailed) Kind() string    { return "regeneration_failed" }
func (ProgressUpdated) Kind() string       { return "progress" }
func (Thinking) Kind() string              { return "thinking" }
func (ReportDelivered) Kind() string       { return "report_delivered" }
func (ConfirmationRequested) Kind() string { return "confirmation_requested" }
func (ModeChanged) Kind() string           { return "mode_changed" }
func (CollaboratorError) Kind() string     { return "collaborator_error" }
func (SessionClosed) Kind() string         { return "session_closed" }
