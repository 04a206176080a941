package manager

import (
	"context"
	"log"
	"strings"

	apperrors "github.com/sakshi-health/sakshi/internal/errors"
	"github.com/sakshi-health/sakshi/internal/therapy/domain"
	"github.com/sakshi-health/sakshi/internal/therapy/oracle"
)

// CreateFollowUpSession starts a new session seeded from a closed one. The
// previous session's transcript is condensed into session notes so the new
// session opens with a progress-oriented title and prompt, and the new
// session records its predecessor under the follow_up_of metadata key.
func (m *Manager) CreateFollowUpSession(ctx context.Context, previousSessionID string, input domain.CreateInput) (domain.Session, error) {
	previous, err := m.GetSession(ctx, previousSessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if previous.Status != domain.StatusCompleted && previous.Status != domain.StatusTerminated {
		return domain.Session{}, apperrors.WithMetadata(apperrors.CodeSessionInvalidStatusTransition, "previous session is still open", map[string]string{
			"operation": "follow up",
			"status":    string(previous.Status),
		})
	}

	if strings.TrimSpace(input.SessionNotes) == "" {
		input.SessionNotes = m.synthesizeNotes(ctx, previous)
	}
	if strings.TrimSpace(string(input.TherapyModel)) == "" {
		input.TherapyModel = previous.TherapyModel
	}
	if strings.TrimSpace(input.TreatmentGoals) == "" {
		input.TreatmentGoals = previous.TreatmentGoals
	}
	if input.Metadata == nil {
		input.Metadata = map[string]string{}
	}
	input.Metadata["follow_up_of"] = previous.ID

	return m.CreateSession(ctx, input)
}

// synthesizeNotes condenses the previous session's transcript into notes the
// new session can build on. Falls back to the notes stored on the previous
// session when the oracle is unavailable or the transcript is empty.
func (m *Manager) synthesizeNotes(ctx context.Context, previous domain.Session) string {
	entries, err := m.logs.ListPhaseLogs(ctx, previous.ID)
	if err != nil {
		log.Printf("session %s: load transcript for follow-up failed: %v", previous.ID, err)
		return previous.SessionNotes
	}
	if len(entries) == 0 {
		return previous.SessionNotes
	}

	var transcript strings.Builder
	for _, entry := range entries {
		transcript.WriteString(string(entry.Phase))
		transcript.WriteString(" - User: ")
		transcript.WriteString(entry.UserInput)
		transcript.WriteString(" | AI: ")
		transcript.WriteString(entry.Response)
		transcript.WriteString("\n")
	}

	var notes oracle.NotesResponse
	if err := oracle.GenerateJSON(ctx, m.oracle, oracle.ClosingNotesPrompt(transcript.String()), &notes); err != nil {
		log.Printf("session %s: note synthesis failed: %v", previous.ID, err)
		return previous.SessionNotes
	}
	if strings.TrimSpace(notes.SessionNotes) == "" {
		return previous.SessionNotes
	}
	return strings.TrimSpace(notes.SessionNotes)
}
