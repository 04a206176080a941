// Package phase defines the ordered therapy session phases, the per-model
// phase tables, and the allocator that maps a session's time budget onto
// phase deadlines.
package phase

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Name identifies a therapy session phase.
type Name string

const (
	// NameInitial establishes rapport and gathers baseline concerns.
	NameInitial Name = "Initial Phase"
	// NameIntake collects detailed presenting issues and history.
	NameIntake Name = "Intake Phase"
	// NameExploratoryInquiry digs into underlying causes and triggers.
	NameExploratoryInquiry Name = "Exploratory Inquiry Phase"
	// NameScenarioValidation validates self-reported issues against concrete scenarios.
	NameScenarioValidation Name = "Scenario Validation Phase"
	// NameSolutionRetrieval introduces tailored coping strategies.
	NameSolutionRetrieval Name = "Solution Retrieval Phase"
	// NameInterventionFollowUp monitors progress on agreed interventions.
	NameInterventionFollowUp Name = "Intervention & Follow-Up Phase"
	// NameProgressEvaluation reviews measurable outcomes.
	NameProgressEvaluation Name = "Progress Evaluation Phase"
	// NameTerminationClosure concludes the session with recommendations.
	NameTerminationClosure Name = "Termination/Closure Phase"

	// NameCrisis is the out-of-band safety phase. It is never scheduled and
	// never part of the canonical advancement sequence.
	NameCrisis Name = "Crisis Phase"
)

// Approach indicates how the assistant should address the client in a phase.
type Approach string

const (
	// ApproachQuestions favors open-ended questions.
	ApproachQuestions Approach = "questions"
	// ApproachStatements favors supportive statements.
	ApproachStatements Approach = "statements"
	// ApproachBoth mixes questions and statements.
	ApproachBoth Approach = "both"
)

var (
	// ErrEmptyTable indicates a phase table with no entries.
	ErrEmptyTable = errors.New("phase table has no entries")
	// ErrInvalidWeight indicates a missing or non-positive phase weight.
	ErrInvalidWeight = errors.New("phase weight must be greater than zero")
	// ErrDuplicatePhase indicates a phase name appearing twice in a table.
	ErrDuplicatePhase = errors.New("phase table contains a duplicate phase")
	// ErrUnknownModel indicates an unsupported therapy model label.
	ErrUnknownModel = errors.New("therapy model is not supported")
)

// Definition describes one schedulable phase of a therapy model.
type Definition struct {
	Name     Name
	Weight   float64
	Approach Approach
	Intent   string
}

// Table is the ordered phase sequence for a therapy model. The order of
// entries defines the canonical advancement sequence; the Crisis phase is
// deliberately excluded.
type Table []Definition

// Validate rejects tables with missing entries, duplicate phases, or
// non-positive weights. Tables are validated at startup so a malformed
// weight fails fast instead of silently dropping a phase from scheduling.
func (t Table) Validate() error {
	if len(t) == 0 {
		return ErrEmptyTable
	}
	seen := make(map[Name]struct{}, len(t))
	for _, def := range t {
		if strings.TrimSpace(string(def.Name)) == "" {
			return fmt.Errorf("phase name is required: %w", ErrEmptyTable)
		}
		if def.Name == NameCrisis {
			return fmt.Errorf("%s cannot be scheduled: %w", NameCrisis, ErrDuplicatePhase)
		}
		if _, ok := seen[def.Name]; ok {
			return fmt.Errorf("%s: %w", def.Name, ErrDuplicatePhase)
		}
		seen[def.Name] = struct{}{}
		if def.Weight <= 0 {
			return fmt.Errorf("%s: %w", def.Name, ErrInvalidWeight)
		}
	}
	return nil
}

// Index returns the position of name in the table.
func (t Table) Index(name Name) (int, bool) {
	for i, def := range t {
		if def.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Next returns the phase following name in canonical sequence order.
// The final phase returns itself; callers treat that as a closure condition.
func (t Table) Next(name Name) Name {
	idx, ok := t.Index(name)
	if !ok || idx >= len(t)-1 {
		return name
	}
	return t[idx+1].Name
}

// Lookup returns the definition for name, including the Crisis phase.
func (t Table) Lookup(name Name) (Definition, bool) {
	if name == NameCrisis {
		return crisisDefinition, true
	}
	for _, def := range t {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}

// First returns the opening phase of the table.
func (t Table) First() Name {
	if len(t) == 0 {
		return ""
	}
	return t[0].Name
}

// Last reports whether name is the final phase of the sequence.
func (t Table) Last(name Name) bool {
	return len(t) > 0 && t[len(t)-1].Name == name
}

// RemainingNames returns the phase names from index from onward.
func (t Table) RemainingNames(from int) []Name {
	if from < 0 {
		from = 0
	}
	if from >= len(t) {
		return nil
	}
	names := make([]Name, 0, len(t)-from)
	for _, def := range t[from:] {
		names = append(names, def.Name)
	}
	return names
}

// Deadline pairs a phase with its scheduled end time. Deadlines are kept
// as an ordered slice because advancement order is significant.
type Deadline struct {
	Phase  Name      `json:"phase"`
	EndsAt time.Time `json:"ends_at"`
}
