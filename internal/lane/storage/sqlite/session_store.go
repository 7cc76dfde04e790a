package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/lane"
	"github.com/samguns/Project4-Advanced-Lane-Finding/internal/timeutil"
)

// ErrSessionNotFound is returned when a session ID has no row.
var ErrSessionNotFound = errors.New("lane session not found")

// Session is one tracker run over a frame source, together with the
// search parameters it ran with.
type Session struct {
	SessionID    string  `json:"session_id"`
	Source       string  `json:"source"`
	CreatedAt    int64   `json:"created_at"`
	NWindows     int     `json:"nwindows"`
	Margin       int     `json:"margin"`
	MinPix       int     `json:"minpix"`
	Filter       float64 `json:"filter"`
	SmoothFactor int     `json:"smooth_factor"`
	Notes        string  `json:"notes,omitempty"`
}

// NewSession returns a session for source populated from cfg.
// SessionID and CreatedAt are filled in by SessionStore.Create.
func NewSession(source string, cfg lane.SearchConfig) *Session {
	return &Session{
		Source:       source,
		NWindows:     cfg.NWindows,
		Margin:       cfg.Margin,
		MinPix:       cfg.MinPix,
		Filter:       cfg.Filter,
		SmoothFactor: cfg.SmoothFactor,
	}
}

// SearchConfig returns the parameters the session was recorded with.
func (s *Session) SearchConfig() lane.SearchConfig {
	return lane.SearchConfig{
		NWindows:     s.NWindows,
		Margin:       s.Margin,
		MinPix:       s.MinPix,
		Filter:       s.Filter,
		SmoothFactor: s.SmoothFactor,
	}
}

// SessionStore provides persistence for tracking sessions.
type SessionStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewSessionStore creates a SessionStore using the wall clock.
func NewSessionStore(db *DB) *SessionStore {
	return NewSessionStoreWithClock(db, timeutil.RealClock{})
}

// NewSessionStoreWithClock creates a SessionStore that stamps rows with clock.
func NewSessionStoreWithClock(db *DB, clock timeutil.Clock) *SessionStore {
	return &SessionStore{db: db.DB, clock: clock}
}

// Create inserts a session. If SessionID is empty, a UUID is generated.
func (s *SessionStore) Create(session *Session) error {
	if session.SessionID == "" {
		session.SessionID = uuid.New().String()
	}
	if session.CreatedAt == 0 {
		session.CreatedAt = s.clock.Now().UnixNano()
	}

	err := retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO lane_sessions (
				session_id, source, created_at, nwindows, margin, minpix,
				filter, smooth_factor, notes
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			session.SessionID, session.Source, session.CreatedAt,
			session.NWindows, session.Margin, session.MinPix,
			session.Filter, session.SmoothFactor, nullString(session.Notes),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("inserting session %s: %w", session.SessionID, err)
	}
	return nil
}

// Get returns a single session by ID.
func (s *SessionStore) Get(sessionID string) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT session_id, source, created_at, nwindows, margin, minpix,
		       filter, smooth_factor, notes
		FROM lane_sessions
		WHERE session_id = ?`, sessionID)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return session, nil
}

// List returns all sessions, newest first.
func (s *SessionStore) List() ([]*Session, error) {
	rows, err := s.db.Query(`
		SELECT session_id, source, created_at, nwindows, margin, minpix,
		       filter, smooth_factor, notes
		FROM lane_sessions
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// Delete removes a session and, through the foreign key, its frames.
func (s *SessionStore) Delete(sessionID string) error {
	return retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM lane_sessions WHERE session_id = ?`, sessionID)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*Session, error) {
	var s Session
	var notes sql.NullString
	if err := row.Scan(
		&s.SessionID, &s.Source, &s.CreatedAt, &s.NWindows, &s.Margin, &s.MinPix,
		&s.Filter, &s.SmoothFactor, &notes,
	); err != nil {
		return nil, err
	}
	if notes.Valid {
		s.Notes = notes.String
	}
	return &s, nil
}
