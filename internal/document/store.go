// Package document owns the canonical markdown text of a session and its revision counter.
package document

import (
	"sync"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

// Document is an immutable view of the store at one revision.
type Document struct {
	Text     string `json:"text"`
	Revision uint64 `json:"revision"`
}

// Snapshot captures the store for a later Restore.
type Snapshot struct {
	text     string
	revision uint64
}

// Revision returns the revision the snapshot was taken at.
func (s Snapshot) Revision() uint64 { return s.revision }

// Text returns the captured text.
func (s Snapshot) Text() string { return s.text }

// Store holds the canonical markdown text. Revision strictly increases on every
// committed mutation. No markdown validation is performed; callers supply well-formed text.
type Store struct {
	mu       sync.RWMutex
	text     string
	revision uint64
}

// NewStore returns a store holding text at revision 0.
func NewStore(text string) *Store {
	return &Store{text: text}
}

// Text returns the current text.
func (s *Store) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// Revision returns the current revision.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Document returns text and revision read together.
func (s *Store) Document() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Document{Text: s.text, Revision: s.revision}
}

// SetText replaces the text wholesale and returns the new revision.
func (s *Store) SetText(text string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
	s.revision++
	return s.revision
}

// Commit replaces the text only if the store is still at expected. It is how computed
// patches land: a patch built against an older revision is refused rather than applied.
func (s *Store) Commit(expected uint64, text string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revision != expected {
		return s.revision, errors.ConflictError("document changed since patch was computed").
			WithContext("expected_revision", expected).
			WithContext("current_revision", s.revision).
			Build()
	}
	s.text = text
	s.revision++
	return s.revision, nil
}

// Snapshot captures the current text and revision.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{text: s.text, revision: s.revision}
}

// Restore puts the snapshot's text back. Restoring is itself a committed mutation, so the
// revision moves forward rather than back to the snapshot's revision.
func (s *Store) Restore(snap Snapshot) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = snap.text
	s.revision++
	return s.revision
}
