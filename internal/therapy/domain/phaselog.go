package domain

import (
	"time"

	"github.com/sakshi-health/sakshi/internal/therapy/phase"
)

// PhaseLog is one immutable entry in a session's conversation record. Entries
// are append-only; Seq is assigned by storage and totally orders the log
// within a session.
type PhaseLog struct {
	SessionID string
	Seq       int64
	Phase     phase.Name
	UserInput string
	Response  string
	Situation string
	Decision  Decision
	Timestamp time.Time
}
