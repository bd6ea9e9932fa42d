package journal

import (
	"context"
	"database/sql"
	stderrors "errors"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

// Store implements the revision journal using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the journal at dbPath.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryJournal, "open sqlite database").
			WithContext("path", dbPath).
			Build()
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, errors.WrapError(err, errors.CategoryJournal, "initialize schema").
			WithContext("path", dbPath).
			Build()
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS revisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		revision INTEGER NOT NULL,
		cause TEXT NOT NULL,
		section TEXT,
		request_id TEXT,
		fingerprint TEXT NOT NULL,
		text TEXT NOT NULL,
		recorded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_session_revision ON revisions(session_id, revision);
	CREATE INDEX IF NOT EXISTS idx_recorded_at ON revisions(recorded_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append records e. A zero RecordedAt is set to now and an empty Fingerprint is computed
// from the text.
func (s *Store) Append(ctx context.Context, e Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	if e.Fingerprint == "" {
		e.Fingerprint = Fingerprint(e.Text)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO revisions (session_id, revision, cause, section, request_id, fingerprint, text, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, int64(e.Revision), e.Cause, e.Section, e.RequestID, e.Fingerprint, e.Text, e.RecordedAt.UnixNano(),
	)
	if err != nil {
		return 0, errors.WrapError(err, errors.CategoryJournal, "insert revision").
			WithContext("session_id", e.SessionID).
			WithContext("revision", e.Revision).
			Build()
	}
	return res.LastInsertId()
}

// History returns a session's entries, newest first, without their text. limit <= 0
// returns everything.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, revision, cause, section, request_id, fingerprint, '', recorded_at
		FROM revisions WHERE session_id = ? ORDER BY id DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryJournal, "query history").Build()
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Sessions returns the ids of every session in the journal, most recently active first.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id FROM revisions GROUP BY session_id ORDER BY MAX(id) DESC`)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryJournal, "query sessions").Build()
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.WrapError(err, errors.CategoryJournal, "scan session").Build()
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryJournal, "iterate sessions").Build()
	}
	return out, nil
}

// Get returns the latest entry recorded for revision of a session, text included.
func (s *Store) Get(ctx context.Context, sessionID string, revision uint64) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, revision, cause, section, request_id, fingerprint, text, recorded_at
		FROM revisions WHERE session_id = ? AND revision = ? ORDER BY id DESC LIMIT 1`,
		sessionID, int64(revision),
	)
	e, err := scanEntry(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Entry{}, errors.NotFoundError("revision not in journal").
			WithContext("session_id", sessionID).
			WithContext("revision", revision).
			Build()
	}
	if err != nil {
		return Entry{}, errors.WrapError(err, errors.CategoryJournal, "query revision").Build()
	}
	return e, nil
}

// Latest returns the most recent entry of a session, text included.
func (s *Store) Latest(ctx context.Context, sessionID string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, revision, cause, section, request_id, fingerprint, text, recorded_at
		FROM revisions WHERE session_id = ? ORDER BY id DESC LIMIT 1`,
		sessionID,
	)
	e, err := scanEntry(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Entry{}, errors.NotFoundError("session not in journal").
			WithContext("session_id", sessionID).
			Build()
	}
	if err != nil {
		return Entry{}, errors.WrapError(err, errors.CategoryJournal, "query latest revision").Build()
	}
	return e, nil
}

// Prune deletes entries recorded before cutoff, except the latest entry of each session.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM revisions WHERE recorded_at < ?
		AND id NOT IN (SELECT MAX(id) FROM revisions GROUP BY session_id)`,
		cutoff.UnixNano(),
	)
	if err != nil {
		return 0, errors.WrapError(err, errors.CategoryJournal, "prune revisions").Build()
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var (
		e          Entry
		revision   int64
		section    sql.NullString
		requestID  sql.NullString
		recordedAt int64
	)
	if err := sc.Scan(&e.ID, &e.SessionID, &revision, &e.Cause, &section, &requestID, &e.Fingerprint, &e.Text, &recordedAt); err != nil {
		return Entry{}, err
	}
	e.Revision = uint64(revision)
	e.Section = section.String
	e.RequestID = requestID.String
	e.RecordedAt = time.Unix(0, recordedAt)
	return e, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryJournal, "scan revision").Build()
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryJournal, "iterate rows").Build()
	}
	return out, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
