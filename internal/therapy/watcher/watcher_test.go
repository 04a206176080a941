package watcher

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/sakshi-health/sakshi/internal/errors"
	"github.com/sakshi-health/sakshi/internal/therapy/domain"
)

func TestSweepCompletesExpiredSessionsOnce(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	completed := map[string]int{}

	w, err := New(Config{
		Complete: func(_ context.Context, sessionID string) error {
			completed[sessionID]++
			return nil
		},
		Now: func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	w.Track(domain.Session{ID: "expired", Status: domain.StatusActive, ExpiresAt: now.Add(-time.Minute)})
	w.Track(domain.Session{ID: "running", Status: domain.StatusActive, ExpiresAt: now.Add(time.Hour)})

	w.sweep(context.Background())
	w.sweep(context.Background())

	if completed["expired"] != 1 {
		t.Fatalf("expired completions = %d, want exactly 1", completed["expired"])
	}
	if completed["running"] != 0 {
		t.Fatalf("running completions = %d, want 0", completed["running"])
	}
}

func TestSweepRetriesTransientFailures(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	attempts := 0

	w, err := New(Config{
		Complete: func(_ context.Context, _ string) error {
			attempts++
			if attempts == 1 {
				return apperrors.New(apperrors.CodeStorageUnavailable, "database locked")
			}
			return nil
		},
		Now: func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	w.Track(domain.Session{ID: "expired", Status: domain.StatusActive, ExpiresAt: now.Add(-time.Minute)})

	w.sweep(context.Background())
	w.sweep(context.Background())
	w.sweep(context.Background())

	if attempts != 2 {
		t.Fatalf("attempts = %d, want retry then stop", attempts)
	}
}

func TestSweepDropsAlreadyClosedSessions(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	attempts := 0

	w, err := New(Config{
		Complete: func(_ context.Context, _ string) error {
			attempts++
			return apperrors.New(apperrors.CodeSessionInvalidStatusTransition, "already terminated")
		},
		Now: func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	w.Track(domain.Session{ID: "closed-elsewhere", Status: domain.StatusActive, ExpiresAt: now.Add(-time.Minute)})

	w.sweep(context.Background())
	w.sweep(context.Background())

	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestTrackWithClosedStatusUntracks(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	attempts := 0

	w, err := New(Config{
		Complete: func(_ context.Context, _ string) error {
			attempts++
			return nil
		},
		Now: func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	session := domain.Session{ID: "session-1", Status: domain.StatusActive, ExpiresAt: now.Add(-time.Minute)}
	w.Track(session)

	// The session was terminated elsewhere before the sweep ran.
	session.Status = domain.StatusTerminated
	w.Track(session)

	w.sweep(context.Background())
	if attempts != 0 {
		t.Fatalf("attempts = %d, want 0 after untrack", attempts)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	w, err := New(Config{
		Complete: func(_ context.Context, _ string) error { return nil },
		Interval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not stop after cancel")
	}
}
