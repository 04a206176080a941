package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sakshi-health/sakshi/internal/therapy/domain"
	"github.com/sakshi-health/sakshi/internal/therapy/phase"
)

// AppendPhaseLog appends one entry to the session's conversation record,
// assigning the next sequence number inside a transaction so concurrent
// appends for the same session never collide.
func (s *Store) AppendPhaseLog(ctx context.Context, entry domain.PhaseLog) (domain.PhaseLog, error) {
	if err := ctx.Err(); err != nil {
		return domain.PhaseLog{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.PhaseLog{}, fmt.Errorf("storage is not configured")
	}

	entry.SessionID = strings.TrimSpace(entry.SessionID)
	if entry.SessionID == "" {
		return domain.PhaseLog{}, fmt.Errorf("session id is required")
	}
	if entry.Phase == "" {
		return domain.PhaseLog{}, fmt.Errorf("phase is required")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.PhaseLog{}, fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
SELECT COALESCE(MAX(seq), 0) + 1 FROM phase_logs WHERE session_id = ?
`, entry.SessionID)
	if err := row.Scan(&entry.Seq); err != nil {
		return domain.PhaseLog{}, fmt.Errorf("next sequence: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO phase_logs (
	session_id,
	seq,
	phase,
	user_input,
	response,
	situation,
	decision,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		entry.SessionID,
		entry.Seq,
		string(entry.Phase),
		entry.UserInput,
		entry.Response,
		entry.Situation,
		string(entry.Decision),
		toMillis(entry.Timestamp),
	); err != nil {
		return domain.PhaseLog{}, fmt.Errorf("append phase log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.PhaseLog{}, fmt.Errorf("commit append: %w", err)
	}
	return entry, nil
}

// ListPhaseLogs returns the session's conversation record in sequence order.
func (s *Store) ListPhaseLogs(ctx context.Context, sessionID string) ([]domain.PhaseLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT
	session_id,
	seq,
	phase,
	user_input,
	response,
	situation,
	decision,
	created_at
FROM phase_logs
WHERE session_id = ?
ORDER BY seq ASC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list phase logs: %w", err)
	}
	defer rows.Close()

	var entries []domain.PhaseLog
	for rows.Next() {
		var entry domain.PhaseLog
		var phaseName, decision string
		var createdAt int64
		if err := rows.Scan(
			&entry.SessionID,
			&entry.Seq,
			&phaseName,
			&entry.UserInput,
			&entry.Response,
			&entry.Situation,
			&decision,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan phase log: %w", err)
		}
		entry.Phase = phase.Name(phaseName)
		entry.Decision = domain.Decision(decision)
		entry.Timestamp = fromMillis(createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate phase logs: %w", err)
	}
	return entries, nil
}
