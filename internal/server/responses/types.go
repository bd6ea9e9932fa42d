// Package responses defines API response types used by docsync HTTP handlers.
package responses

import (
	"time"

	"git.home.luguber.info/inful/docsync/internal/section"
)

// SectionsResponse lists the section index of one revision.
type SectionsResponse struct {
	Revision uint64            `json:"revision"`
	Sections []section.Section `json:"sections"`
}

// RegenerateResponse acknowledges an accepted regeneration request.
type RegenerateResponse struct {
	RequestID string `json:"request_id"`
	Section   string `json:"section"`
}

// RevisionResponse reports the revision produced by a mutation.
type RevisionResponse struct {
	Revision uint64 `json:"revision"`
}

// StatusResponse is returned by operations with nothing else to report.
type StatusResponse struct {
	Status string `json:"status"`
}

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status    string    `json:"status"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"`
	Closed    bool      `json:"closed,omitempty"`
}

// StreamEvent is one frame on the /ws/events stream.
type StreamEvent struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

// RegenerateRequest is the body of POST /api/sections/regenerate.
type RegenerateRequest struct {
	SectionTitle string `json:"section_title"`
	Feedback     string `json:"feedback"`
}

// ResearchRequest is the body of POST /api/research.
type ResearchRequest struct {
	Topic string `json:"topic"`
}

// EditSaveRequest is the body of POST /api/edit/save.
type EditSaveRequest struct {
	HTML string `json:"html"`
}
