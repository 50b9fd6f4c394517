package service

import "github.com/gofrs/uuid/v5"

// Session is one client's conversation with the engine. It is created once
// per client, passed to every operation, and carries the authenticated
// username between calls. The session id keys the itinerary cache, so search
// results survive only as long as the session.
//
// A session is driven by a single caller; operations on one session are
// never invoked concurrently.
type Session struct {
	id       uuid.UUID
	username string
}

// NewSession creates an unauthenticated session.
func NewSession() (*Session, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	return &Session{id: id}, nil
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Active reports whether a user is logged in on this session.
func (s *Session) Active() bool { return s.username != "" }

// Username returns the logged-in username, or "" when inactive.
func (s *Session) Username() string { return s.username }

func (s *Session) bind(username string) { s.username = username }

func (s *Session) clear() { s.username = "" }
