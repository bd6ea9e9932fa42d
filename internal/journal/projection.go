package journal

import "time"

// Summary is a read model over a session's journal entries.
type Summary struct {
	SessionID       string         `json:"session_id"`
	Entries         int            `json:"entries"`
	FirstRevision   uint64         `json:"first_revision"`
	LastRevision    uint64         `json:"last_revision"`
	LastFingerprint string         `json:"last_fingerprint"`
	ByCause         map[string]int `json:"by_cause"`
	// Sections counts patches per section title.
	Sections  map[string]int `json:"sections,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Summarize builds a Summary from entries in any order.
func Summarize(sessionID string, entries []Entry) Summary {
	s := Summary{SessionID: sessionID, ByCause: map[string]int{}}
	var lastID int64
	for i, e := range entries {
		s.Entries++
		s.ByCause[e.Cause]++
		if e.Cause == "patch" && e.Section != "" {
			if s.Sections == nil {
				s.Sections = map[string]int{}
			}
			s.Sections[e.Section]++
		}
		if i == 0 || e.Revision < s.FirstRevision {
			s.FirstRevision = e.Revision
		}
		if i == 0 || e.RecordedAt.Before(s.StartedAt) {
			s.StartedAt = e.RecordedAt
		}
		if e.ID >= lastID {
			lastID = e.ID
			s.LastRevision = e.Revision
			s.LastFingerprint = e.Fingerprint
			s.UpdatedAt = e.RecordedAt
		}
	}
	return s
}
