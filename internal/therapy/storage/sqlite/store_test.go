package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sakshi-health/sakshi/internal/therapy/domain"
	"github.com/sakshi-health/sakshi/internal/therapy/phase"
	"github.com/sakshi-health/sakshi/internal/therapy/storage"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "engine.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func sampleSession(id string, createdAt time.Time) domain.Session {
	pausedAt := createdAt.Add(10 * time.Minute)
	return domain.Session{
		ID:                id,
		OwnerID:           "owner-1",
		TherapyModel:      phase.DefaultModel,
		Status:            domain.StatusActive,
		DurationMinutes:   60,
		CreatedAt:         createdAt,
		ExpiresAt:         createdAt.Add(60 * time.Minute),
		UpdatedAt:         createdAt,
		PausedAt:          &pausedAt,
		CurrentPhaseIndex: 2,
		CurrentPhase:      phase.NameExploratoryInquiry,
		Schedule: []phase.Deadline{
			{Phase: phase.NameInitial, EndsAt: createdAt.Add(6 * time.Minute)},
			{Phase: phase.NameIntake, EndsAt: createdAt.Add(15 * time.Minute)},
		},
		Title:          "First check-in",
		TreatmentGoals: "Reduce workplace anxiety",
		Metadata:       map[string]string{"follow_up_of": "session-0"},
	}
}

func TestPutGetSessionRoundTrip(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	createdAt := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	want := sampleSession("session-1", createdAt)
	if err := store.PutSession(ctx, want); err != nil {
		t.Fatalf("put session: %v", err)
	}

	got, err := store.GetSession(ctx, "session-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.OwnerID != want.OwnerID {
		t.Fatalf("owner = %q, want %q", got.OwnerID, want.OwnerID)
	}
	if !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Fatalf("expires at = %v, want %v", got.ExpiresAt, want.ExpiresAt)
	}
	if got.PausedAt == nil || !got.PausedAt.Equal(*want.PausedAt) {
		t.Fatalf("paused at = %v, want %v", got.PausedAt, want.PausedAt)
	}
	if got.CompletedAt != nil {
		t.Fatalf("completed at = %v, want nil", got.CompletedAt)
	}
	if len(got.Schedule) != 2 || got.Schedule[0].Phase != phase.NameInitial {
		t.Fatalf("schedule = %+v, want two deadlines starting with initial", got.Schedule)
	}
	if !got.Schedule[1].EndsAt.Equal(want.Schedule[1].EndsAt) {
		t.Fatalf("deadline = %v, want %v", got.Schedule[1].EndsAt, want.Schedule[1].EndsAt)
	}
	if got.Metadata["follow_up_of"] != "session-0" {
		t.Fatalf("metadata = %v, want follow_up_of preserved", got.Metadata)
	}
	if got.CurrentPhase != phase.NameExploratoryInquiry || got.CurrentPhaseIndex != 2 {
		t.Fatalf("phase = %q/%d, want exploratory inquiry at index 2", got.CurrentPhase, got.CurrentPhaseIndex)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	store := openTempStore(t)

	if _, err := store.GetSession(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get missing session error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestListSessionsByOwnerNewestFirst(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"session-1", "session-2", "session-3"} {
		session := sampleSession(id, base.Add(time.Duration(i)*time.Hour))
		if err := store.PutSession(ctx, session); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}
	other := sampleSession("session-other", base)
	other.OwnerID = "owner-2"
	if err := store.PutSession(ctx, other); err != nil {
		t.Fatalf("put other owner session: %v", err)
	}

	sessions, err := store.ListSessionsByOwner(ctx, "owner-1")
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("sessions len = %d, want 3", len(sessions))
	}
	if sessions[0].ID != "session-3" || sessions[2].ID != "session-1" {
		t.Fatalf("order = %s..%s, want newest first", sessions[0].ID, sessions[2].ID)
	}
}

func TestListActiveSessionsFiltersStatus(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	active := sampleSession("session-active", base)
	paused := sampleSession("session-paused", base)
	paused.Status = domain.StatusPaused
	done := sampleSession("session-done", base)
	done.Status = domain.StatusCompleted

	for _, session := range []domain.Session{active, paused, done} {
		if err := store.PutSession(ctx, session); err != nil {
			t.Fatalf("put %s: %v", session.ID, err)
		}
	}

	sessions, err := store.ListActiveSessions(ctx)
	if err != nil {
		t.Fatalf("list active sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "session-active" {
		t.Fatalf("active sessions = %+v, want only session-active", sessions)
	}
}

func TestAppendPhaseLogAssignsSequence(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 14, 9, 5, 0, 0, time.UTC)

	first, err := store.AppendPhaseLog(ctx, domain.PhaseLog{
		SessionID: "session-1",
		Phase:     phase.NameInitial,
		UserInput: "I have been feeling overwhelmed.",
		Response:  "What has been weighing on you the most?",
		Situation: "The user is described as having an emotional state of \"overwhelmed\".",
		Decision:  domain.DecisionMoreQuestions,
		Timestamp: at,
	})
	if err != nil {
		t.Fatalf("append first: %v", err)
	}
	if first.Seq != 1 {
		t.Fatalf("first seq = %d, want 1", first.Seq)
	}

	second, err := store.AppendPhaseLog(ctx, domain.PhaseLog{
		SessionID: "session-1",
		Phase:     phase.NameInitial,
		UserInput: "Mostly work deadlines.",
		Response:  "Let's look at what makes those deadlines feel unmanageable.",
		Decision:  domain.DecisionAdvance,
		Timestamp: at.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("append second: %v", err)
	}
	if second.Seq != 2 {
		t.Fatalf("second seq = %d, want 2", second.Seq)
	}

	// Sequences are per session.
	other, err := store.AppendPhaseLog(ctx, domain.PhaseLog{
		SessionID: "session-2",
		Phase:     phase.NameInitial,
		UserInput: "Hello.",
		Response:  "Welcome.",
		Decision:  domain.DecisionMoreQuestions,
		Timestamp: at,
	})
	if err != nil {
		t.Fatalf("append other session: %v", err)
	}
	if other.Seq != 1 {
		t.Fatalf("other session seq = %d, want 1", other.Seq)
	}

	entries, err := store.ListPhaseLogs(ctx, "session-1")
	if err != nil {
		t.Fatalf("list phase logs: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries len = %d, want 2", len(entries))
	}
	if entries[0].Seq != 1 || entries[1].Seq != 2 {
		t.Fatalf("entries out of order: %d, %d", entries[0].Seq, entries[1].Seq)
	}
	if entries[1].Decision != domain.DecisionAdvance {
		t.Fatalf("decision = %q, want %q", entries[1].Decision, domain.DecisionAdvance)
	}
	if !strings.Contains(entries[0].Situation, "overwhelmed") {
		t.Fatalf("situation = %q, want it persisted", entries[0].Situation)
	}
	if !entries[0].Timestamp.Equal(at) {
		t.Fatalf("timestamp = %v, want %v", entries[0].Timestamp, at)
	}
}

func TestPutGetUser(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if _, err := store.GetUser(ctx, "user-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get missing user error = %v, want %v", err, storage.ErrNotFound)
	}

	createdAt := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	if err := store.PutUser(ctx, domain.User{ID: "user-1", DisplayName: "Asha", CreatedAt: createdAt}); err != nil {
		t.Fatalf("put user: %v", err)
	}

	user, err := store.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.DisplayName != "Asha" {
		t.Fatalf("display name = %q, want %q", user.DisplayName, "Asha")
	}
	if !user.CreatedAt.Equal(createdAt) {
		t.Fatalf("created at = %v, want %v", user.CreatedAt, createdAt)
	}
}
