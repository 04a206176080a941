package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Decision is the verdict the scheduling oracle returns for a conversation
// turn. Terminate is produced by the engine itself when the final phase
// advances; the oracle only ever emits the other three.
type Decision string

const (
	// DecisionAdvance moves the session to the next phase in sequence.
	DecisionAdvance Decision = "advance"
	// DecisionMoreQuestions keeps the session in its current phase.
	DecisionMoreQuestions Decision = "more_questions"
	// DecisionCrisis routes the session into the out-of-band crisis phase.
	DecisionCrisis Decision = "crisis"
	// DecisionTerminate closes the session after the final phase.
	DecisionTerminate Decision = "terminate"
)

// ErrUnparseableDecision indicates oracle output that names no known verdict.
var ErrUnparseableDecision = errors.New("unparseable phase decision")

// Verdict pairs a decision with the oracle's stated rationale.
type Verdict struct {
	Decision  Decision
	Rationale string
}

// ParseDecision normalizes a raw oracle label into one of the three verdicts
// the oracle may emit. Anything else is unparseable; callers fall back to
// keeping the current phase rather than guessing.
func ParseDecision(raw string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(raw))) {
	case DecisionAdvance:
		return DecisionAdvance, nil
	case DecisionMoreQuestions:
		return DecisionMoreQuestions, nil
	case DecisionCrisis:
		return DecisionCrisis, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnparseableDecision, raw)
}
