// Package conversation processes user turns against active therapy sessions.
package conversation

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	apperrors "github.com/sakshi-health/sakshi/internal/errors"
	"github.com/sakshi-health/sakshi/internal/therapy/domain"
	"github.com/sakshi-health/sakshi/internal/therapy/oracle"
	"github.com/sakshi-health/sakshi/internal/therapy/phase"
	"github.com/sakshi-health/sakshi/internal/therapy/storage"
)

// CrisisMessage is returned verbatim whenever the oracle flags severe
// distress. It never passes through the oracle.
const CrisisMessage = "Your responses indicate severe distress. We strongly recommend that you seek " +
	"immediate in-person help from a doctor or crisis intervention service."

// ClosureMessage is returned verbatim when the final phase concludes.
const ClosureMessage = "We are now in the Termination/Closure Phase. Please review the recommendations provided earlier, " +
	"continue with the suggested practices, and observe any changes over the next 7 days. " +
	"When you are ready, you can initiate a new session for further guidance."

// FallbackMessage is returned when the oracle cannot produce a therapist
// response. The turn still completes and is recorded so the conversation can
// pick up on the next input.
const FallbackMessage = "I'm having trouble forming a response right now. " +
	"Please share a little more about what is on your mind, and we will continue from there."

// Config wires the conversation service's dependencies.
type Config struct {
	Sessions storage.SessionStore
	Logs     storage.LogStore
	Users    storage.UserStore
	Oracle   oracle.Oracle

	// Track notifies the expiry watcher of status or expiry changes made
	// during a turn. Optional.
	Track func(domain.Session)
	// Now defaults to time.Now.
	Now func() time.Time
	// MaxContextTokens defaults to DefaultMaxContextTokens.
	MaxContextTokens int
}

// Service turns user input into therapist responses, advancing the session's
// phase according to the oracle's decisions.
type Service struct {
	sessions  storage.SessionStore
	logs      storage.LogStore
	users     storage.UserStore
	oracle    oracle.Oracle
	track     func(domain.Session)
	now       func() time.Time
	maxTokens int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New builds a conversation service.
func New(cfg Config) (*Service, error) {
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
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = DefaultMaxContextTokens
	}
	return &Service{
		sessions:  cfg.Sessions,
		logs:      cfg.Logs,
		users:     cfg.Users,
		oracle:    cfg.Oracle,
		track:     cfg.Track,
		now:       cfg.Now,
		maxTokens: cfg.MaxContextTokens,
		locks:     map[string]*sync.Mutex{},
	}, nil
}

// TurnResult is the outcome of one processed user turn.
type TurnResult struct {
	Response  string
	Decision  domain.Decision
	Situation string
	Phase     phase.Name
	Session   domain.Session
}

// ProcessTurn handles one user input for a session. Turns for paused
// sessions resume them first; turns against terminated or completed sessions
// fail. Turns for the same session are serialized so the append-only log and
// the phase cursor never race.
func (s *Service) ProcessTurn(ctx context.Context, userID, sessionID, userInput string) (TurnResult, error) {
	userID = strings.TrimSpace(userID)
	sessionID = strings.TrimSpace(sessionID)
	userInput = strings.TrimSpace(userInput)
	if userID == "" {
		return TurnResult{}, apperrors.New(apperrors.CodeUserNotFound, "user id is required")
	}
	if sessionID == "" {
		return TurnResult{}, apperrors.New(apperrors.CodeNotFound, "session id is required")
	}
	if userInput == "" {
		return TurnResult{}, apperrors.New(apperrors.CodeUnknown, "user input is required")
	}

	if _, err := s.users.GetUser(ctx, userID); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return TurnResult{}, apperrors.WithMetadata(apperrors.CodeUserNotFound, "user not registered", map[string]string{"user_id": userID})
		}
		return TurnResult{}, apperrors.Wrap(apperrors.CodeStorageUnavailable, "load user", err)
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return TurnResult{}, apperrors.WithMetadata(apperrors.CodeNotFound, "session not found", map[string]string{"session_id": sessionID})
		}
		return TurnResult{}, apperrors.Wrap(apperrors.CodeStorageUnavailable, "load session", err)
	}

	now := s.now().UTC()
	switch session.Status {
	case domain.StatusActive:
	case domain.StatusPaused:
		// An inbound turn implicitly resumes a paused session.
		session, err = domain.Resume(session, now)
		if err != nil {
			return TurnResult{}, apperrors.Wrap(apperrors.CodeSessionInvalidStatusTransition, "resume session", err)
		}
		if err := s.sessions.PutSession(ctx, session); err != nil {
			return TurnResult{}, apperrors.Wrap(apperrors.CodeStorageUnavailable, "persist resumed session", err)
		}
		s.track(session)
		log.Printf("session %s auto-resumed on inbound turn", session.ID)
	default:
		return TurnResult{}, apperrors.WithMetadata(apperrors.CodeSessionInvalidStatusTransition, "session is closed", map[string]string{
			"operation": "converse",
			"status":    string(session.Status),
		})
	}

	entries, err := s.logs.ListPhaseLogs(ctx, sessionID)
	if err != nil {
		return TurnResult{}, apperrors.Wrap(apperrors.CodeStorageUnavailable, "load conversation record", err)
	}

	situation := s.analyzeSituation(ctx, session.ID, userInput)
	verdict := s.decide(ctx, session, entries, userInput, situation, now)

	table := phase.TableFor(session.TherapyModel)
	result := TurnResult{Decision: verdict.Decision, Situation: situation}

	switch verdict.Decision {
	case domain.DecisionCrisis:
		log.Printf("session %s flagged for crisis: %s", session.ID, verdict.Rationale)
		session = domain.AdvancePhase(session, phase.NameCrisis, now)
		result.Response = CrisisMessage
		result.Phase = phase.NameCrisis

	case domain.DecisionAdvance:
		next := nextPhase(table, session)
		if next == session.CurrentPhase && table.Last(session.CurrentPhase) {
			// The final phase concluded; close out without another oracle
			// round trip.
			session, err = domain.Complete(session, now)
			if err != nil {
				return TurnResult{}, apperrors.Wrap(apperrors.CodeSessionInvalidStatusTransition, "complete session", err)
			}
			result.Decision = domain.DecisionTerminate
			result.Response = ClosureMessage
			result.Phase = session.CurrentPhase
			break
		}
		session = domain.AdvancePhase(session, next, now)
		result.Response = s.guidance(ctx, session, entries, userInput, oracle.AdvancePrompt)
		result.Phase = next

	default: // more_questions, including the unparseable-decision fallback
		result.Decision = domain.DecisionMoreQuestions
		result.Response = s.guidance(ctx, session, entries, userInput, oracle.FollowUpPrompt)
		result.Phase = session.CurrentPhase
	}

	if _, err := s.logs.AppendPhaseLog(ctx, domain.PhaseLog{
		SessionID: session.ID,
		Phase:     result.Phase,
		UserInput: userInput,
		Response:  result.Response,
		Situation: situation,
		Decision:  result.Decision,
		Timestamp: now,
	}); err != nil {
		return TurnResult{}, apperrors.Wrap(apperrors.CodeStorageUnavailable, "append conversation record", err)
	}
	if err := s.sessions.PutSession(ctx, session); err != nil {
		return TurnResult{}, apperrors.Wrap(apperrors.CodeStorageUnavailable, "persist session", err)
	}
	if session.Status != domain.StatusActive {
		// Closed during this turn; the watcher can stop tracking it.
		s.track(session)
	}

	result.Session = session
	return result, nil
}

// analyzeSituation extracts a one-line summary of the user's state from
// their latest input. Best effort; the decision prompt degrades gracefully
// without it.
func (s *Service) analyzeSituation(ctx context.Context, sessionID, userInput string) string {
	var response oracle.SituationResponse
	if err := oracle.GenerateJSON(ctx, s.oracle, oracle.SituationPrompt(userInput), &response); err != nil {
		log.Printf("session %s: situation analysis failed: %v", sessionID, err)
		return ""
	}
	return response.Summary()
}

// decide asks the oracle whether the current phase's objectives are met.
// Oracle failures and unrecognized labels deterministically fall back to
// more_questions so a flaky model can keep probing but never trigger the
// crisis path on its own.
func (s *Service) decide(ctx context.Context, session domain.Session, entries []domain.PhaseLog, userInput, situation string, now time.Time) domain.Verdict {
	table := phase.TableFor(session.TherapyModel)
	def, _ := table.Lookup(session.CurrentPhase)

	lastQuestion := session.FirstPrompt
	if len(entries) > 0 {
		lastQuestion = entries[len(entries)-1].Response
	}

	var response oracle.DecisionResponse
	prompt := oracle.DecisionPrompt(oracle.DecisionInput{
		Context:       BuildContext(entries, s.maxTokens),
		CurrentPhase:  string(session.CurrentPhase),
		PhaseIntent:   def.Intent,
		Situation:     situation,
		LastQuestion:  lastQuestion,
		UserInput:     userInput,
		TimeRemaining: schedulePressure(session, now),
	})
	if err := oracle.GenerateJSON(ctx, s.oracle, prompt, &response); err != nil {
		log.Printf("session %s: phase decision failed, keeping current phase: %v", session.ID, err)
		return domain.Verdict{Decision: domain.DecisionMoreQuestions}
	}

	decision, err := domain.ParseDecision(response.Decision)
	if err != nil {
		log.Printf("session %s: %v, keeping current phase", session.ID, err)
		return domain.Verdict{Decision: domain.DecisionMoreQuestions, Rationale: response.Reason}
	}
	return domain.Verdict{Decision: decision, Rationale: response.Reason}
}

// guidance asks the oracle for the next therapist statement. An unreachable
// oracle or an empty statement degrades to the fixed fallback message; only
// storage failures fail a turn outright.
func (s *Service) guidance(ctx context.Context, session domain.Session, entries []domain.PhaseLog, userInput string, build func(oracle.GuidanceInput) string) string {
	def, _ := phase.TableFor(session.TherapyModel).Lookup(session.CurrentPhase)

	var response oracle.GuidanceResponse
	prompt := build(oracle.GuidanceInput{
		Context:      BuildContext(entries, s.maxTokens),
		CurrentPhase: string(session.CurrentPhase),
		PhaseIntent:  def.Intent,
		Approach:     string(def.Approach),
		UserInput:    userInput,
	})
	if err := oracle.GenerateJSON(ctx, s.oracle, prompt, &response); err != nil {
		log.Printf("session %s: therapist response failed, using fallback: %v", session.ID, err)
		return FallbackMessage
	}
	if strings.TrimSpace(response.AdvanceStatement) == "" {
		log.Printf("session %s: oracle returned an empty therapist response, using fallback", session.ID)
		return FallbackMessage
	}
	return response.AdvanceStatement
}

// nextPhase resolves an advance verdict to a concrete phase. The crisis
// phase is out-of-band and keeps the phase index on the phase it interrupted,
// so advancement from crisis resumes the canonical sequence from that index
// and never trips the final-phase closure condition.
func nextPhase(table phase.Table, session domain.Session) phase.Name {
	if session.CurrentPhase != phase.NameCrisis {
		return table.Next(session.CurrentPhase)
	}
	if session.CurrentPhaseIndex >= 0 && session.CurrentPhaseIndex < len(table) {
		return table.Next(table[session.CurrentPhaseIndex].Name)
	}
	return table.First()
}

// schedulePressure describes how much time the current phase has left so the
// oracle can weigh pacing in its decision.
func schedulePressure(session domain.Session, now time.Time) string {
	for _, deadline := range session.Schedule {
		if deadline.Phase != session.CurrentPhase {
			continue
		}
		remaining := deadline.EndsAt.Sub(now).Round(time.Minute)
		if remaining <= 0 {
			return "the current phase is past its scheduled end"
		}
		return fmt.Sprintf("about %s left in the current phase", remaining)
	}
	return "no schedule information for the current phase"
}

func (s *Service) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}
