// Package journal persists every committed revision of the document so a session's
// history survives restarts and can be inspected offline.
package journal

import (
	"time"

	"github.com/inful/mdfp"
)

// Entry is one committed revision.
type Entry struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	Revision    uint64    `json:"revision"`
	Cause       string    `json:"cause"`
	Section     string    `json:"section,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	Text        string    `json:"text,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Fingerprint returns the content fingerprint recorded for text.
func Fingerprint(text string) string {
	return mdfp.CalculateFingerprintFromParts("", text)
}
