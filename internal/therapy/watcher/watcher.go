// Package watcher completes sessions whose expiry has passed.
package watcher

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	apperrors "github.com/sakshi-health/sakshi/internal/errors"
	"github.com/sakshi-health/sakshi/internal/therapy/domain"
)

// DefaultInterval is how often tracked sessions are swept.
const DefaultInterval = 5 * time.Second

// Config wires the watcher's dependencies.
type Config struct {
	// Complete closes one expired session. Required.
	Complete func(ctx context.Context, sessionID string) error
	// Interval defaults to DefaultInterval.
	Interval time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Watcher tracks active sessions by expiry and completes each one exactly
// once after its deadline passes.
type Watcher struct {
	complete func(ctx context.Context, sessionID string) error
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	tracked map[string]time.Time
}

// New builds a watcher.
func New(cfg Config) (*Watcher, error) {
	if cfg.Complete == nil {
		return nil, fmt.Errorf("complete callback is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Watcher{
		complete: cfg.Complete,
		interval: cfg.Interval,
		now:      cfg.Now,
		tracked:  map[string]time.Time{},
	}, nil
}

// Track registers a session for expiry sweeps. Re-tracking after a pause,
// resume, or extend replaces the stored expiry; tracking a session that is
// no longer active removes it instead.
func (w *Watcher) Track(session domain.Session) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if session.Status != domain.StatusActive {
		delete(w.tracked, session.ID)
		return
	}
	w.tracked[session.ID] = session.ExpiresAt
}

// Untrack removes a session from expiry sweeps.
func (w *Watcher) Untrack(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.tracked, sessionID)
}

// Run sweeps tracked sessions until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep completes every tracked session whose expiry has passed. A session
// that fails to complete for transient reasons stays tracked and is retried
// on the next sweep; one that is already closed is dropped.
func (w *Watcher) sweep(ctx context.Context) {
	now := w.now().UTC()

	w.mu.Lock()
	var due []string
	for sessionID, expiresAt := range w.tracked {
		if !expiresAt.After(now) {
			due = append(due, sessionID)
		}
	}
	w.mu.Unlock()

	for _, sessionID := range due {
		err := w.complete(ctx, sessionID)
		switch {
		case err == nil:
			log.Printf("session %s completed after expiry", sessionID)
			w.Untrack(sessionID)
		case apperrors.IsCode(err, apperrors.CodeSessionInvalidStatusTransition),
			apperrors.IsCode(err, apperrors.CodeNotFound):
			// Closed through another path while tracked.
			w.Untrack(sessionID)
		default:
			log.Printf("session %s expiry completion failed, will retry: %v", sessionID, err)
		}
	}
}
