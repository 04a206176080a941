package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/sakshi-health/sakshi/internal/therapy/phase"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func fixedID(id string) func() (string, error) {
	return func() (string, error) { return id, nil }
}

func newTestSession(t *testing.T, start time.Time, minutes int) Session {
	t.Helper()
	session, err := Create(CreateInput{
		OwnerID:         "owner-1",
		DurationMinutes: minutes,
	}, fixedClock(start), fixedID("session-1"))
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session
}

func TestCreateSession(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	session := newTestSession(t, start, 60)

	if session.Status != StatusActive {
		t.Fatalf("status = %q, want %q", session.Status, StatusActive)
	}
	if session.TherapyModel != phase.DefaultModel {
		t.Fatalf("model = %q, want default %q", session.TherapyModel, phase.DefaultModel)
	}
	if want := start.Add(60 * time.Minute); !session.ExpiresAt.Equal(want) {
		t.Fatalf("expires at = %v, want %v", session.ExpiresAt, want)
	}
	if session.CurrentPhase != phase.NameInitial {
		t.Fatalf("current phase = %q, want %q", session.CurrentPhase, phase.NameInitial)
	}
	if len(session.Schedule) != len(phase.TableFor(session.TherapyModel)) {
		t.Fatalf("schedule len = %d, want %d", len(session.Schedule), len(phase.TableFor(session.TherapyModel)))
	}
	if final := session.Schedule[len(session.Schedule)-1]; !final.EndsAt.Equal(session.ExpiresAt) {
		t.Fatalf("final deadline = %v, want expiry %v", final.EndsAt, session.ExpiresAt)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	if _, err := Create(CreateInput{DurationMinutes: 60}, fixedClock(start), fixedID("x")); !errors.Is(err, ErrEmptyOwnerID) {
		t.Fatalf("empty owner error = %v, want %v", err, ErrEmptyOwnerID)
	}
	if _, err := Create(CreateInput{OwnerID: "owner-1"}, fixedClock(start), fixedID("x")); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("zero duration error = %v, want %v", err, ErrInvalidDuration)
	}

	session, err := Create(CreateInput{
		OwnerID:         "owner-1",
		DurationMinutes: 30,
		TherapyModel:    phase.TherapyModel("hypnosis"),
	}, fixedClock(start), fixedID("x"))
	if err != nil {
		t.Fatalf("create with unknown model: %v", err)
	}
	if session.TherapyModel != phase.DefaultModel {
		t.Fatalf("unknown model normalized to %q, want %q", session.TherapyModel, phase.DefaultModel)
	}
}

func TestPauseRecordsRemainingMinutes(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	session := newTestSession(t, start, 60)

	paused, err := Pause(session, start.Add(40*time.Minute))
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if paused.Status != StatusPaused {
		t.Fatalf("status = %q, want %q", paused.Status, StatusPaused)
	}
	if paused.RemainingMinutes != 20 {
		t.Fatalf("remaining minutes = %d, want 20", paused.RemainingMinutes)
	}
	if paused.PausedAt == nil || !paused.PausedAt.Equal(start.Add(40*time.Minute)) {
		t.Fatalf("paused at = %v, want %v", paused.PausedAt, start.Add(40*time.Minute))
	}
}

func TestResumeRestoresRemainingBudget(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	session := newTestSession(t, start, 60)
	session = AdvancePhase(session, phase.NameExploratoryInquiry, start.Add(30*time.Minute))

	paused, err := Pause(session, start.Add(40*time.Minute))
	if err != nil {
		t.Fatalf("pause: %v", err)
	}

	// Resume an hour later: the break is neither credited nor charged.
	resumedAt := start.Add(100 * time.Minute)
	resumed, err := Resume(paused, resumedAt)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.Status != StatusActive {
		t.Fatalf("status = %q, want %q", resumed.Status, StatusActive)
	}
	if want := resumedAt.Add(20 * time.Minute); !resumed.ExpiresAt.Equal(want) {
		t.Fatalf("expires at = %v, want %v", resumed.ExpiresAt, want)
	}
	if resumed.PausedAt != nil {
		t.Fatal("paused at should be cleared after resume")
	}
	if resumed.RemainingMinutes != 0 {
		t.Fatalf("remaining minutes = %d, want 0", resumed.RemainingMinutes)
	}

	// Elapsed phases keep their historical deadlines; the rest are
	// reallocated from the resume instant.
	table := phase.TableFor(resumed.TherapyModel)
	if len(resumed.Schedule) != len(table) {
		t.Fatalf("schedule len = %d, want %d", len(resumed.Schedule), len(table))
	}
	for i := 0; i < resumed.CurrentPhaseIndex; i++ {
		if !resumed.Schedule[i].EndsAt.Equal(session.Schedule[i].EndsAt) {
			t.Fatalf("elapsed deadline[%d] changed: %v != %v", i, resumed.Schedule[i].EndsAt, session.Schedule[i].EndsAt)
		}
	}
	if first := resumed.Schedule[resumed.CurrentPhaseIndex]; !first.EndsAt.After(resumedAt) {
		t.Fatalf("current phase deadline %v should follow resume time %v", first.EndsAt, resumedAt)
	}
	if final := resumed.Schedule[len(resumed.Schedule)-1]; !final.EndsAt.Equal(resumed.ExpiresAt) {
		t.Fatalf("final deadline = %v, want expiry %v", final.EndsAt, resumed.ExpiresAt)
	}
}

func TestExtendOnlyMovesExpiry(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	session := newTestSession(t, start, 60)
	originalSchedule := append([]phase.Deadline(nil), session.Schedule...)

	extended, err := Extend(session, start.Add(10*time.Minute), 15)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if want := start.Add(75 * time.Minute); !extended.ExpiresAt.Equal(want) {
		t.Fatalf("expires at = %v, want %v", extended.ExpiresAt, want)
	}
	for i, deadline := range extended.Schedule {
		if !deadline.EndsAt.Equal(originalSchedule[i].EndsAt) {
			t.Fatalf("deadline[%d] moved on extend: %v != %v", i, deadline.EndsAt, originalSchedule[i].EndsAt)
		}
	}

	if _, err := Extend(session, start, 0); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("extend by zero error = %v, want %v", err, ErrInvalidDuration)
	}
}

func TestTerminalStatusesAreAbsorbing(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	session := newTestSession(t, start, 60)

	terminated, err := Terminate(session, start.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("terminate: %v", err)
	}
	completed, err := Complete(session, start.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.CompletedAt == nil {
		t.Fatal("expected completed at timestamp")
	}

	for _, terminal := range []Session{terminated, completed} {
		if _, err := Pause(terminal, start.Add(6*time.Minute)); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("pause %s error = %v, want %v", terminal.Status, err, ErrInvalidTransition)
		}
		if _, err := Resume(terminal, start.Add(6*time.Minute)); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("resume %s error = %v, want %v", terminal.Status, err, ErrInvalidTransition)
		}
		if _, err := Extend(terminal, start.Add(6*time.Minute), 10); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("extend %s error = %v, want %v", terminal.Status, err, ErrInvalidTransition)
		}
		if _, err := Terminate(terminal, start.Add(6*time.Minute)); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("terminate %s error = %v, want %v", terminal.Status, err, ErrInvalidTransition)
		}
		if _, err := Complete(terminal, start.Add(6*time.Minute)); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("complete %s error = %v, want %v", terminal.Status, err, ErrInvalidTransition)
		}
	}

	var transition *TransitionError
	_, err = Pause(terminated, start)
	if !errors.As(err, &transition) {
		t.Fatalf("expected TransitionError, got %T", err)
	}
	if transition.Op != "pause" || transition.Status != StatusTerminated {
		t.Fatalf("transition error = %+v, want pause/terminated", transition)
	}
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		raw  string
		want Decision
	}{
		{"advance", DecisionAdvance},
		{" Advance ", DecisionAdvance},
		{"MORE_QUESTIONS", DecisionMoreQuestions},
		{"crisis", DecisionCrisis},
	}
	for _, tc := range tests {
		got, err := ParseDecision(tc.raw)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("parse %q = %q, want %q", tc.raw, got, tc.want)
		}
	}

	for _, raw := range []string{"", "proceed", "terminate"} {
		if _, err := ParseDecision(raw); !errors.Is(err, ErrUnparseableDecision) {
			t.Fatalf("parse %q error = %v, want %v", raw, err, ErrUnparseableDecision)
		}
	}
}
