// Package storage defines persistence interfaces for the therapy engine.
package storage

import (
	"context"
	"errors"

	"github.com/sakshi-health/sakshi/internal/therapy/domain"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("not found")

// SessionStore persists therapy sessions.
type SessionStore interface {
	// PutSession inserts or replaces a session by ID.
	PutSession(ctx context.Context, session domain.Session) error
	// GetSession returns the session with the given ID or ErrNotFound.
	GetSession(ctx context.Context, id string) (domain.Session, error)
	// ListSessionsByOwner returns the owner's sessions, newest first.
	ListSessionsByOwner(ctx context.Context, ownerID string) ([]domain.Session, error)
	// ListActiveSessions returns every session currently in the active status.
	ListActiveSessions(ctx context.Context) ([]domain.Session, error)
}

// LogStore persists the append-only conversation record.
type LogStore interface {
	// AppendPhaseLog appends one entry to the session's log, assigning the
	// next sequence number, and returns the stored entry.
	AppendPhaseLog(ctx context.Context, entry domain.PhaseLog) (domain.PhaseLog, error)
	// ListPhaseLogs returns the session's log in sequence order.
	ListPhaseLogs(ctx context.Context, sessionID string) ([]domain.PhaseLog, error)
}

// UserStore persists registered session owners.
type UserStore interface {
	// PutUser inserts or replaces a user by ID.
	PutUser(ctx context.Context, user domain.User) error
	// GetUser returns the user with the given ID or ErrNotFound.
	GetUser(ctx context.Context, id string) (domain.User, error)
}

// Store is the combined persistence surface the engine runs against.
type Store interface {
	SessionStore
	LogStore
	UserStore
	Close() error
}
