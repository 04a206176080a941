// Package manager owns the therapy session lifecycle.
package manager

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	apperrors "github.com/sakshi-health/sakshi/internal/errors"
	"github.com/sakshi-health/sakshi/internal/platform/id"
	"github.com/sakshi-health/sakshi/internal/therapy/domain"
	"github.com/sakshi-health/sakshi/internal/therapy/oracle"
	"github.com/sakshi-health/sakshi/internal/therapy/phase"
	"github.com/sakshi-health/sakshi/internal/therapy/storage"
)

// enrichmentTimeout bounds the background title and opening prompt calls.
const enrichmentTimeout = 30 * time.Second

// Config wires the manager's dependencies.
type Config struct {
	Sessions storage.SessionStore
	Logs     storage.LogStore
	Users    storage.UserStore
	Oracle   oracle.Oracle

	// Track registers a session with the expiry watcher. Optional.
	Track func(domain.Session)
	// Now defaults to time.Now.
	Now func() time.Time
	// IDGenerator defaults to the platform ID generator.
	IDGenerator func() (string, error)
}

// Manager creates sessions and drives their lifecycle transitions.
type Manager struct {
	sessions    storage.SessionStore
	logs        storage.LogStore
	users       storage.UserStore
	oracle      oracle.Oracle
	track       func(domain.Session)
	now         func() time.Time
	idGenerator func() (string, error)

	wg sync.WaitGroup
}

// New builds a session manager.
func New(cfg Config) (*Manager, error) {
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Logs == nil {
		return nil, fmt.Errorf("log store is required")
	}
	if cfg.Users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("oracle is required")
	}
	if cfg.Track == nil {
		cfg.Track = func(domain.Session) {}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = id.NewID
	}
	return &Manager{
		sessions:    cfg.Sessions,
		logs:        cfg.Logs,
		users:       cfg.Users,
		oracle:      cfg.Oracle,
		track:       cfg.Track,
		now:         cfg.Now,
		idGenerator: cfg.IDGenerator,
	}, nil
}

// Wait blocks until background enrichment work has drained. Called on
// shutdown and by tests.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// CreateSession validates the intake, classifies a therapy model when none
// was requested, persists the new session, and registers it with the expiry
// watcher. The session title and opening prompt are generated in the
// background; creation never waits on them.
func (m *Manager) CreateSession(ctx context.Context, input domain.CreateInput) (domain.Session, error) {
	if _, err := m.users.GetUser(ctx, strings.TrimSpace(input.OwnerID)); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return domain.Session{}, apperrors.WithMetadata(apperrors.CodeUserNotFound, "user not registered", map[string]string{"user_id": input.OwnerID})
		}
		return domain.Session{}, apperrors.Wrap(apperrors.CodeStorageUnavailable, "load user", err)
	}

	if strings.TrimSpace(string(input.TherapyModel)) == "" {
		input.TherapyModel = m.classifyModel(ctx, input)
	}

	session, err := domain.Create(input, m.now, m.idGenerator)
	if err != nil {
		return domain.Session{}, mapDomainError("create", err)
	}
	if err := m.sessions.PutSession(ctx, session); err != nil {
		return domain.Session{}, apperrors.Wrap(apperrors.CodeStorageUnavailable, "persist session", err)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.enrich(session)
	}()

	m.track(session)
	return session, nil
}

// GetSession returns a session by ID.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	session, err := m.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return domain.Session{}, apperrors.WithMetadata(apperrors.CodeNotFound, "session not found", map[string]string{"session_id": sessionID})
		}
		return domain.Session{}, apperrors.Wrap(apperrors.CodeStorageUnavailable, "load session", err)
	}
	return session, nil
}

// ListSessions returns the owner's sessions, newest first.
func (m *Manager) ListSessions(ctx context.Context, ownerID string) ([]domain.Session, error) {
	sessions, err := m.sessions.ListSessionsByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageUnavailable, "list sessions", err)
	}
	return sessions, nil
}

// PauseSession suspends an active session.
func (m *Manager) PauseSession(ctx context.Context, sessionID string) (domain.Session, error) {
	return m.transition(ctx, sessionID, "pause", func(s domain.Session, now time.Time) (domain.Session, error) {
		return domain.Pause(s, now)
	})
}

// ResumeSession reactivates a paused session; the watcher picks up its new
// expiry through the transition notification.
func (m *Manager) ResumeSession(ctx context.Context, sessionID string) (domain.Session, error) {
	return m.transition(ctx, sessionID, "resume", func(s domain.Session, now time.Time) (domain.Session, error) {
		return domain.Resume(s, now)
	})
}

// ExtendSession adds minutes to an active session's expiry without touching
// its phase deadlines.
func (m *Manager) ExtendSession(ctx context.Context, sessionID string, additionalMinutes int) (domain.Session, error) {
	return m.transition(ctx, sessionID, "extend", func(s domain.Session, now time.Time) (domain.Session, error) {
		return domain.Extend(s, now, additionalMinutes)
	})
}

// TerminateSession ends an active session at the owner's request.
func (m *Manager) TerminateSession(ctx context.Context, sessionID string) (domain.Session, error) {
	return m.transition(ctx, sessionID, "terminate", func(s domain.Session, now time.Time) (domain.Session, error) {
		return domain.Terminate(s, now)
	})
}

// CompleteSession marks an active session as finished. The watcher calls
// this when a session's expiry passes.
func (m *Manager) CompleteSession(ctx context.Context, sessionID string) (domain.Session, error) {
	return m.transition(ctx, sessionID, "complete", func(s domain.Session, now time.Time) (domain.Session, error) {
		return domain.Complete(s, now)
	})
}

// ActiveSessions returns every active session, soonest expiry first. Used to
// rebuild the watcher's tracked set on startup.
func (m *Manager) ActiveSessions(ctx context.Context) ([]domain.Session, error) {
	sessions, err := m.sessions.ListActiveSessions(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageUnavailable, "list active sessions", err)
	}
	return sessions, nil
}

func (m *Manager) transition(ctx context.Context, sessionID, op string, apply func(domain.Session, time.Time) (domain.Session, error)) (domain.Session, error) {
	session, err := m.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	session, err = apply(session, m.now())
	if err != nil {
		return domain.Session{}, mapDomainError(op, err)
	}
	if err := m.sessions.PutSession(ctx, session); err != nil {
		return domain.Session{}, apperrors.Wrap(apperrors.CodeStorageUnavailable, "persist session", err)
	}
	// Every transition notifies the watcher: active sessions are tracked
	// under their current expiry, paused and closed ones are dropped.
	m.track(session)
	return session, nil
}

// classifyModel asks the oracle which therapy model fits the intake. Any
// failure falls back to the default model so creation never blocks on the
// oracle being healthy.
func (m *Manager) classifyModel(ctx context.Context, input domain.CreateInput) phase.TherapyModel {
	models := phase.Models()
	labels := make([]string, 0, len(models))
	for _, model := range models {
		labels = append(labels, string(model))
	}

	var response oracle.ClassificationResponse
	prompt := oracle.ClassificationPrompt(oracle.SessionBrief{
		SessionForm:      input.SessionForm,
		TreatmentGoals:   input.TreatmentGoals,
		Expectations:     input.ClientExpectations,
		SessionNotes:     input.SessionNotes,
		TerminationPlan:  input.TerminationPlan,
		ReviewOfProgress: input.ReviewOfProgress,
		DurationMinutes:  input.DurationMinutes,
	}, labels)
	if err := oracle.GenerateJSON(ctx, m.oracle, prompt, &response); err != nil {
		log.Printf("therapy model classification failed, using default: %v", err)
		return phase.DefaultModel
	}

	model := phase.NormalizeModel(response.ChosenModel)
	log.Printf("classified therapy model %q: %s", model, response.Rationale)
	return model
}

// enrich generates the session title and opening prompt after creation. Both
// are best effort; failures leave the fields empty.
func (m *Manager) enrich(session domain.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), enrichmentTimeout)
	defer cancel()

	brief := oracle.SessionBrief{
		SessionForm:    session.SessionForm,
		TreatmentGoals: session.TreatmentGoals,
		Expectations:   session.ClientExpectations,
		SessionNotes:   session.SessionNotes,
		TherapyModel:   string(session.TherapyModel),
	}

	var title oracle.TitleResponse
	if err := oracle.GenerateJSON(ctx, m.oracle, oracle.TitlePrompt(brief), &title); err != nil {
		log.Printf("session %s: title generation failed: %v", session.ID, err)
	}
	var opening oracle.OpeningResponse
	if err := oracle.GenerateJSON(ctx, m.oracle, oracle.OpeningPrompt(brief), &opening); err != nil {
		log.Printf("session %s: opening prompt generation failed: %v", session.ID, err)
	}
	if strings.TrimSpace(title.SessionTitle) == "" && strings.TrimSpace(opening.FirstPrompt) == "" {
		return
	}

	current, err := m.sessions.GetSession(ctx, session.ID)
	if err != nil {
		log.Printf("session %s: reload for enrichment failed: %v", session.ID, err)
		return
	}
	if strings.TrimSpace(title.SessionTitle) != "" {
		current.Title = strings.TrimSpace(title.SessionTitle)
	}
	if strings.TrimSpace(opening.FirstPrompt) != "" {
		current.FirstPrompt = strings.TrimSpace(opening.FirstPrompt)
	}
	if err := m.sessions.PutSession(ctx, current); err != nil {
		log.Printf("session %s: persist enrichment failed: %v", session.ID, err)
	}
}

func mapDomainError(op string, err error) error {
	var transition *domain.TransitionError
	switch {
	case stderrors.As(err, &transition):
		return apperrors.WithMetadata(apperrors.CodeSessionInvalidStatusTransition, err.Error(), map[string]string{
			"operation": transition.Op,
			"status":    string(transition.Status),
		})
	case stderrors.Is(err, domain.ErrEmptyOwnerID):
		return apperrors.Wrap(apperrors.CodeSessionEmptyOwnerID, "owner id is required", err)
	case stderrors.Is(err, domain.ErrInvalidDuration):
		return apperrors.Wrap(apperrors.CodeSessionInvalidDuration, op+" rejected: invalid duration", err)
	case stderrors.Is(err, phase.ErrNoRemainingWeight):
		return apperrors.Wrap(apperrors.CodePhaseNoWeight, "no schedulable phase weight", err)
	default:
		return apperrors.Wrap(apperrors.CodeUnknown, op+" session", err)
	}
}
