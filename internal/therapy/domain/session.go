package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakshi-health/sakshi/internal/platform/id"
	"github.com/sakshi-health/sakshi/internal/therapy/phase"
)

// Status describes the lifecycle state of a therapy session.
type Status string

const (
	// StatusActive indicates the session is in progress.
	StatusActive Status = "active"
	// StatusPaused indicates the session clock is suspended.
	StatusPaused Status = "paused"
	// StatusTerminated indicates the session was ended by the owner.
	// Terminated is absorbing.
	StatusTerminated Status = "terminated"
	// StatusCompleted indicates the session ran to completion or timed out.
	// Completed is absorbing.
	StatusCompleted Status = "completed"
)

var (
	// ErrEmptyOwnerID indicates a missing session owner.
	ErrEmptyOwnerID = errors.New("owner id is required")
	// ErrInvalidDuration indicates a non-positive session duration.
	ErrInvalidDuration = errors.New("duration must be greater than zero minutes")
	// ErrInvalidTransition indicates a status transition the automaton forbids.
	ErrInvalidTransition = errors.New("invalid session status transition")
)

// TransitionError reports which operation was attempted against which
// source status. It matches ErrInvalidTransition under errors.Is.
type TransitionError struct {
	Op     string
	Status Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s session in status %q", e.Op, e.Status)
}

// Is reports whether target is the invalid-transition sentinel.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Session is one bounded, timed conversation instance progressing through
// ordered phases.
type Session struct {
	ID      string
	OwnerID string

	TherapyModel phase.TherapyModel
	Status       Status

	DurationMinutes  int
	RemainingMinutes int // meaningful only while paused

	CreatedAt   time.Time
	ExpiresAt   time.Time
	UpdatedAt   time.Time
	PausedAt    *time.Time
	ResumedAt   *time.Time
	CompletedAt *time.Time

	CurrentPhaseIndex int
	CurrentPhase      phase.Name
	Schedule          []phase.Deadline

	Title       string
	FirstPrompt string

	SessionForm        string
	TreatmentGoals     string
	ClientExpectations string
	SessionNotes       string
	TerminationPlan    string
	ReviewOfProgress   string
	ClosingNote        string

	Metadata map[string]string
}

// CreateInput captures the client-provided fields for creating a session.
type CreateInput struct {
	OwnerID            string
	DurationMinutes    int
	TherapyModel       phase.TherapyModel
	SessionForm        string
	TreatmentGoals     string
	ClientExpectations string
	SessionNotes       string
	TerminationPlan    string
	ReviewOfProgress   string
	ClosingNote        string
	Metadata           map[string]string
}

// NormalizeCreateInput trims and validates session creation input.
func NormalizeCreateInput(input CreateInput) (CreateInput, error) {
	input.OwnerID = strings.TrimSpace(input.OwnerID)
	if input.OwnerID == "" {
		return CreateInput{}, ErrEmptyOwnerID
	}
	if input.DurationMinutes <= 0 {
		return CreateInput{}, ErrInvalidDuration
	}
	if _, err := phase.ParseModel(string(input.TherapyModel)); err != nil {
		input.TherapyModel = phase.DefaultModel
	}
	return input, nil
}

// Create builds a new active session with a generated ID, an expiry derived
// from the requested duration, and a full phase schedule allocated from the
// therapy model's phase table.
func Create(input CreateInput, now func() time.Time, idGenerator func() (string, error)) (Session, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateInput(input)
	if err != nil {
		return Session{}, err
	}

	sessionID, err := idGenerator()
	if err != nil {
		return Session{}, fmt.Errorf("generate session id: %w", err)
	}

	table := phase.TableFor(normalized.TherapyModel)
	createdAt := now().UTC()
	schedule, err := phase.Allocate(createdAt, normalized.DurationMinutes, table, 0)
	if err != nil {
		return Session{}, fmt.Errorf("allocate phase schedule: %w", err)
	}

	return Session{
		ID:                 sessionID,
		OwnerID:            normalized.OwnerID,
		TherapyModel:       normalized.TherapyModel,
		Status:             StatusActive,
		DurationMinutes:    normalized.DurationMinutes,
		CreatedAt:          createdAt,
		ExpiresAt:          createdAt.Add(time.Duration(normalized.DurationMinutes) * time.Minute),
		UpdatedAt:          createdAt,
		CurrentPhaseIndex:  0,
		CurrentPhase:       table.First(),
		Schedule:           schedule,
		SessionForm:        normalized.SessionForm,
		TreatmentGoals:     normalized.TreatmentGoals,
		ClientExpectations: normalized.ClientExpectations,
		SessionNotes:       normalized.SessionNotes,
		TerminationPlan:    normalized.TerminationPlan,
		ReviewOfProgress:   normalized.ReviewOfProgress,
		ClosingNote:        normalized.ClosingNote,
		Metadata:           normalized.Metadata,
	}, nil
}

// Pause suspends an active session, recording the remaining budget in whole
// minutes and the phase index to resume from.
func Pause(s Session, now time.Time) (Session, error) {
	if s.Status != StatusActive {
		return Session{}, &TransitionError{Op: "pause", Status: s.Status}
	}

	now = now.UTC()
	remaining := int(s.ExpiresAt.Sub(now).Minutes())
	if remaining < 0 {
		remaining = 0
	}

	s.Status = StatusPaused
	s.PausedAt = &now
	s.RemainingMinutes = remaining
	s.UpdatedAt = now
	return s, nil
}

// Resume reactivates a paused session. The new expiry restores exactly the
// remaining minutes recorded at pause time; wall-clock time spent paused is
// neither credited nor charged. Phases before the current index keep their
// historical deadlines while the remainder is reallocated from now.
func Resume(s Session, now time.Time) (Session, error) {
	if s.Status != StatusPaused {
		return Session{}, &TransitionError{Op: "resume", Status: s.Status}
	}
	if s.RemainingMinutes <= 0 {
		return Session{}, fmt.Errorf("no remaining session time: %w", ErrInvalidDuration)
	}

	now = now.UTC()
	table := phase.TableFor(s.TherapyModel)
	tail, err := phase.Allocate(now, s.RemainingMinutes, table, s.CurrentPhaseIndex)
	if err != nil {
		return Session{}, fmt.Errorf("reallocate phase schedule: %w", err)
	}

	elapsed := s.Schedule
	if s.CurrentPhaseIndex < len(elapsed) {
		elapsed = elapsed[:s.CurrentPhaseIndex]
	}
	schedule := make([]phase.Deadline, 0, len(elapsed)+len(tail))
	schedule = append(schedule, elapsed...)
	schedule = append(schedule, tail...)

	s.Status = StatusActive
	s.ExpiresAt = now.Add(time.Duration(s.RemainingMinutes) * time.Minute)
	s.Schedule = schedule
	s.ResumedAt = &now
	s.PausedAt = nil
	s.RemainingMinutes = 0
	s.UpdatedAt = now
	return s, nil
}

// Extend pushes the expiry of an active session out by additionalMinutes.
// Phase deadlines are deliberately left untouched; callers that want the
// extra time rebalanced across phases must pause and resume instead.
func Extend(s Session, now time.Time, additionalMinutes int) (Session, error) {
	if s.Status != StatusActive {
		return Session{}, &TransitionError{Op: "extend", Status: s.Status}
	}
	if additionalMinutes <= 0 {
		return Session{}, ErrInvalidDuration
	}

	s.ExpiresAt = s.ExpiresAt.Add(time.Duration(additionalMinutes) * time.Minute)
	s.UpdatedAt = now.UTC()
	return s, nil
}

// Terminate ends an active session at the owner's request.
func Terminate(s Session, now time.Time) (Session, error) {
	if s.Status != StatusActive {
		return Session{}, &TransitionError{Op: "terminate", Status: s.Status}
	}

	s.Status = StatusTerminated
	s.UpdatedAt = now.UTC()
	return s, nil
}

// Complete marks an active session as finished, recording the completion time.
func Complete(s Session, now time.Time) (Session, error) {
	if s.Status != StatusActive {
		return Session{}, &TransitionError{Op: "complete", Status: s.Status}
	}

	completedAt := now.UTC()
	s.Status = StatusCompleted
	s.CompletedAt = &completedAt
	s.UpdatedAt = completedAt
	return s, nil
}

// AdvancePhase moves the session's current phase to name, keeping the phase
// index aligned with the therapy model's table. The Crisis phase is
// out-of-band and does not move the index.
func AdvancePhase(s Session, name phase.Name, now time.Time) Session {
	s.CurrentPhase = name
	if idx, ok := phase.TableFor(s.TherapyModel).Index(name); ok {
		s.CurrentPhaseIndex = idx
	}
	s.UpdatedAt = now.UTC()
	return s
}
