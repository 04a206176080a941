package rest

import (
	"time"

	"github.com/sakshi-health/sakshi/internal/therapy/domain"
)

type userView struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}

type deadlineView struct {
	Phase  string    `json:"phase"`
	EndsAt time.Time `json:"ends_at"`
}

type sessionView struct {
	ID               string            `json:"id"`
	OwnerID          string            `json:"owner_id"`
	TherapyModel     string            `json:"therapy_model"`
	Status           string            `json:"status"`
	DurationMinutes  int               `json:"duration_minutes"`
	RemainingMinutes int               `json:"remaining_minutes,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	ExpiresAt        time.Time         `json:"expires_at"`
	PausedAt         *time.Time        `json:"paused_at,omitempty"`
	ResumedAt        *time.Time        `json:"resumed_at,omitempty"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	CurrentPhase     string            `json:"current_phase"`
	Schedule         []deadlineView    `json:"schedule"`
	Title            string            `json:"title,omitempty"`
	FirstPrompt      string            `json:"first_prompt,omitempty"`
	SessionNotes     string            `json:"session_notes,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type logView struct {
	Seq       int64     `json:"seq"`
	Phase     string    `json:"phase"`
	UserInput string    `json:"user_input"`
	Response  string    `json:"response"`
	Situation string    `json:"user_situation,omitempty"`
	Decision  string    `json:"decision"`
	Timestamp time.Time `json:"timestamp"`
}

func sessionToView(session domain.Session) sessionView {
	schedule := make([]deadlineView, 0, len(session.Schedule))
	for _, deadline := range session.Schedule {
		schedule = append(schedule, deadlineView{Phase: string(deadline.Phase), EndsAt: deadline.EndsAt})
	}
	return sessionView{
		ID:               session.ID,
		OwnerID:          session.OwnerID,
		TherapyModel:     string(session.TherapyModel),
		Status:           string(session.Status),
		DurationMinutes:  session.DurationMinutes,
		RemainingMinutes: session.RemainingMinutes,
		CreatedAt:        session.CreatedAt,
		ExpiresAt:        session.ExpiresAt,
		PausedAt:         session.PausedAt,
		ResumedAt:        session.ResumedAt,
		CompletedAt:      session.CompletedAt,
		CurrentPhase:     string(session.CurrentPhase),
		Schedule:         schedule,
		Title:            session.Title,
		FirstPrompt:      session.FirstPrompt,
		SessionNotes:     session.SessionNotes,
		Metadata:         session.Metadata,
	}
}
