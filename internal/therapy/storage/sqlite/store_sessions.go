package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sakshi-health/sakshi/internal/therapy/domain"
	"github.com/sakshi-health/sakshi/internal/therapy/phase"
	"github.com/sakshi-health/sakshi/internal/therapy/storage"
)

const sessionColumns = `
	id,
	owner_id,
	therapy_model,
	status,
	duration_minutes,
	remaining_minutes,
	created_at,
	expires_at,
	updated_at,
	paused_at,
	resumed_at,
	completed_at,
	current_phase_index,
	current_phase,
	schedule,
	title,
	first_prompt,
	session_form,
	treatment_goals,
	client_expectations,
	session_notes,
	termination_plan,
	review_of_progress,
	closing_note,
	metadata
`

// PutSession inserts or replaces a session by ID.
func (s *Store) PutSession(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	session.ID = strings.TrimSpace(session.ID)
	session.OwnerID = strings.TrimSpace(session.OwnerID)
	if session.ID == "" {
		return fmt.Errorf("session id is required")
	}
	if session.OwnerID == "" {
		return fmt.Errorf("owner id is required")
	}

	scheduleJSON, err := json.Marshal(session.Schedule)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	metadata := session.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT OR REPLACE INTO sessions (`+sessionColumns+`
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		session.ID,
		session.OwnerID,
		string(session.TherapyModel),
		string(session.Status),
		session.DurationMinutes,
		session.RemainingMinutes,
		toMillis(session.CreatedAt),
		toMillis(session.ExpiresAt),
		toMillis(session.UpdatedAt),
		toNullMillis(session.PausedAt),
		toNullMillis(session.ResumedAt),
		toNullMillis(session.CompletedAt),
		session.CurrentPhaseIndex,
		string(session.CurrentPhase),
		string(scheduleJSON),
		session.Title,
		session.FirstPrompt,
		session.SessionForm,
		session.TreatmentGoals,
		session.ClientExpectations,
		session.SessionNotes,
		session.TerminationPlan,
		session.ReviewOfProgress,
		session.ClosingNote,
		string(metadataJSON),
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// GetSession returns the session with the given ID or storage.ErrNotFound.
func (s *Store) GetSession(ctx context.Context, id string) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Session{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Session{}, fmt.Errorf("session id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+sessionColumns+`
FROM sessions
WHERE id = ?
`, id)
	session, err := scanSession(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Session{}, storage.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// ListSessionsByOwner returns the owner's sessions, newest first.
func (s *Store) ListSessionsByOwner(ctx context.Context, ownerID string) ([]domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, fmt.Errorf("owner id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+sessionColumns+`
FROM sessions
WHERE owner_id = ?
ORDER BY created_at DESC, id DESC
`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

// ListActiveSessions returns every session currently in the active status.
func (s *Store) ListActiveSessions(ctx context.Context) ([]domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT `+sessionColumns+`
FROM sessions
WHERE status = ?
ORDER BY expires_at ASC
`, string(domain.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (domain.Session, error) {
	var session domain.Session
	var therapyModel, status, currentPhase string
	var createdAt, expiresAt, updatedAt int64
	var pausedAt, resumedAt, completedAt sql.NullInt64
	var scheduleJSON, metadataJSON string

	if err := row.Scan(
		&session.ID,
		&session.OwnerID,
		&therapyModel,
		&status,
		&session.DurationMinutes,
		&session.RemainingMinutes,
		&createdAt,
		&expiresAt,
		&updatedAt,
		&pausedAt,
		&resumedAt,
		&completedAt,
		&session.CurrentPhaseIndex,
		&currentPhase,
		&scheduleJSON,
		&session.Title,
		&session.FirstPrompt,
		&session.SessionForm,
		&session.TreatmentGoals,
		&session.ClientExpectations,
		&session.SessionNotes,
		&session.TerminationPlan,
		&session.ReviewOfProgress,
		&session.ClosingNote,
		&metadataJSON,
	); err != nil {
		return domain.Session{}, err
	}

	session.TherapyModel = phase.TherapyModel(therapyModel)
	session.Status = domain.Status(status)
	session.CurrentPhase = phase.Name(currentPhase)
	session.CreatedAt = fromMillis(createdAt)
	session.ExpiresAt = fromMillis(expiresAt)
	session.UpdatedAt = fromMillis(updatedAt)
	session.PausedAt = fromNullMillis(pausedAt)
	session.ResumedAt = fromNullMillis(resumedAt)
	session.CompletedAt = fromNullMillis(completedAt)

	if err := json.Unmarshal([]byte(scheduleJSON), &session.Schedule); err != nil {
		return domain.Session{}, fmt.Errorf("decode schedule: %w", err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &session.Metadata); err != nil {
		return domain.Session{}, fmt.Errorf("decode metadata: %w", err)
	}
	return session, nil
}

func collectSessions(rows *sql.Rows) ([]domain.Session, error) {
	var sessions []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}
