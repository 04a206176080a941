package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SessionBrief carries the intake details prompt builders work from.
type SessionBrief struct {
	SessionForm      string
	TreatmentGoals   string
	Expectations     string
	SessionNotes     string
	TherapyModel     string
	TerminationPlan  string
	ReviewOfProgress string
	DurationMinutes  int
}

// TitleResponse is the expected JSON shape for TitlePrompt.
type TitleResponse struct {
	SessionTitle string `json:"session_title"`
}

// OpeningResponse is the expected JSON shape for OpeningPrompt.
type OpeningResponse struct {
	FirstPrompt string `json:"first_prompt"`
}

// ClassificationResponse is the expected JSON shape for ClassificationPrompt.
type ClassificationResponse struct {
	ChosenModel string `json:"chosen_model"`
	Rationale   string `json:"rationale"`
}

// SituationResponse is the expected JSON shape for SituationPrompt.
type SituationResponse struct {
	EmotionalState   string `json:"emotional_state"`
	CurrentIssues    string `json:"current_issues"`
	EmotionalHistory string `json:"emotional_history"`
	TherapeuticPhase string `json:"therapeutic_phase"`
}

// Summary renders the situation as the one-line description the decision
// prompt and the conversation record carry.
func (r SituationResponse) Summary() string {
	state := strings.TrimSpace(r.EmotionalState)
	if state == "" {
		state = "unclear"
	}
	issues := strings.TrimSpace(r.CurrentIssues)
	if issues == "" {
		issues = "an undefined challenge"
	}
	return fmt.Sprintf("The user is described as having an emotional state of %q and facing %q.", state, issues)
}

// DecisionResponse is the expected JSON shape for DecisionPrompt.
type DecisionResponse struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

// GuidanceResponse is the expected JSON shape for AdvancePrompt and
// FollowUpPrompt.
type GuidanceResponse struct {
	AdvanceStatement string `json:"advance_statement"`
	Intention        string `json:"intention"`
}

// NotesResponse is the expected JSON shape for ClosingNotesPrompt.
type NotesResponse struct {
	SessionNotes string `json:"session_notes"`
}

// TitlePrompt asks for a session title. With previous session notes it asks
// for a follow-up title reflecting progress, otherwise a fresh one built from
// the intake form.
func TitlePrompt(brief SessionBrief) string {
	if strings.TrimSpace(brief.SessionNotes) != "" {
		return joinPrompt(
			"You are an experienced therapy session title generator. Generate a session title "+
				"that reflects the patient's progress and focus for this session, drawing on the previous session notes. "+
				"Output the result as a JSON object with a single key 'session_title'.",
			`Example:
Input: {"session_notes": "Last session, you mentioned challenges with work stress.", "treatment_goals": "Improve stress management", "expectations": "Reflect on progress"}
Output: {"session_title": "Progress in Managing Work Stress: Reflecting on Recent Improvements"}`,
			map[string]any{
				"session_notes":   brief.SessionNotes,
				"treatment_goals": brief.TreatmentGoals,
				"expectations":    brief.Expectations,
			},
		)
	}
	return joinPrompt(
		"You are an expert therapy session title generator. Generate a creative and descriptive session title "+
			"that encapsulates the patient's treatment goals and expectations, based on the session form. "+
			"Output the result as a JSON object with a single key 'session_title'.",
		`Example:
Input: {"session_form": "I have been feeling anxious and have trouble sleeping.", "treatment_goals": "Reduce anxiety", "expectations": "Receive guidance on managing anxiety"}
Output: {"session_title": "Starting A New Journey: Understanding Your Current Challenges"}`,
		map[string]any{
			"session_form":    brief.SessionForm,
			"treatment_goals": brief.TreatmentGoals,
			"expectations":    brief.Expectations,
		},
	)
}

// OpeningPrompt asks for the therapist's opening statement. With previous
// session notes it produces a follow-up question that builds on them.
func OpeningPrompt(brief SessionBrief) string {
	if strings.TrimSpace(brief.SessionNotes) != "" {
		return joinPrompt(
			"You are a seasoned therapist generating a follow-up prompt for a returning patient. "+
				"Generate a thoughtful follow-up question that builds on the previous session notes and invites the "+
				"patient to reflect on changes or progress since the last session. "+
				"Include one line at most about the therapy model used and the session's focus. "+
				"Output the result as a JSON object with a single key 'first_prompt'.",
			`Example:
Input: {"session_notes": "Last session, you expressed feeling overwhelmed by work stress.", "treatment_goals": "Improve stress management", "expectations": "Reflect on progress since last session."}
Output: {"first_prompt": "Based on our last session where you felt overwhelmed by work stress, can you share any changes or progress you've noticed since then?"}`,
			map[string]any{
				"session_notes":   brief.SessionNotes,
				"treatment_goals": brief.TreatmentGoals,
				"therapy_model":   brief.TherapyModel,
				"expectations":    brief.Expectations,
			},
		)
	}
	return joinPrompt(
		"You are a compassionate therapist opening a new session with a patient. "+
			"Generate a welcoming statement or question that encourages the patient to discuss their current "+
			"feelings and experiences, based on the session form they filled out. "+
			"Include one line at most about the therapy model used and the session's focus. "+
			"Output the result as a JSON object with a single key 'first_prompt'.",
		`Example:
Input: {"session_form": "I have been feeling anxious lately and having trouble sleeping.", "treatment_goals": "Reduce anxiety", "expectations": "Receive clear guidance to manage anxiety."}
Output: {"first_prompt": "Welcome! Can you elaborate on your recent feelings of anxiety and difficulty sleeping, so we can work together on managing these issues?"}`,
		map[string]any{
			"session_form":    brief.SessionForm,
			"treatment_goals": brief.TreatmentGoals,
			"therapy_model":   brief.TherapyModel,
			"expectations":    brief.Expectations,
		},
	)
}

// ClassificationPrompt asks which supported therapy model fits the intake
// details. Labels must come from the supplied list of supported models.
func ClassificationPrompt(brief SessionBrief, supportedModels []string) string {
	details, _ := json.Marshal(map[string]any{
		"session_form":       brief.SessionForm,
		"treatment_goals":    brief.TreatmentGoals,
		"expectations":       brief.Expectations,
		"session_notes":      brief.SessionNotes,
		"termination_plan":   brief.TerminationPlan,
		"review_of_progress": brief.ReviewOfProgress,
		"duration_minutes":   brief.DurationMinutes,
	})
	return fmt.Sprintf(`You are a clinical decision-support assistant.
Given the following client details, classify which therapy model to use among:
[%s].

%s

STRICTLY: Choose only one of the listed models.
IMPORTANT: Base your classification on alignment of duration, goals, expectations, note style, termination plan, and progress review methods.
OUTPUT as valid JSON with keys:
  "chosen_model": <string>,
  "rationale": <brief explanation referencing criteria>.
Do NOT include additional fields or commentary.`,
		strings.Join(supportedModels, ", "), string(details))
}

// SituationPrompt asks for a structured read of the user's latest input:
// emotional state, current issues, history, and the therapeutic phase the
// input suggests.
func SituationPrompt(userInput string) string {
	return fmt.Sprintf(`Analyze the following user response to extract their emotional state, current issues, emotional history, and determine the appropriate therapeutic phase:
User's response: %q
Return the result as a JSON object, for example:
{"emotional_state": "anxious", "current_issues": "work stress", "emotional_history": "has felt anxious for months due to workload", "therapeutic_phase": "stabilization"}`, userInput)
}

// DecisionInput carries the turn context for a phase decision.
type DecisionInput struct {
	Context       string
	CurrentPhase  string
	PhaseIntent   string
	Situation     string
	LastQuestion  string
	UserInput     string
	TimeRemaining string
}

// DecisionPrompt asks whether the current phase's objectives have been met.
func DecisionPrompt(input DecisionInput) string {
	return fmt.Sprintf(`Context:
Previous Conversation: %s

Current Phase: %s
Phase Intent: %s
Schedule Pressure: %s

User Situation: %s

Last Question Asked: %s
Latest User Answer: %s

Decision Task: Evaluate whether the user's latest response and the accumulated conversation history indicate that the objectives of the current phase have been met.
If they have, respond with 'advance' and explain why.
If additional probing is needed, respond with 'more_questions' and explain what further information is required.
If the response indicates severe distress, respond with 'crisis'.

Format your answer as a JSON object with keys 'decision' and 'reason', for example:
{"decision": "advance", "reason": "The user provided detailed insights meeting the phase objectives."}`,
		input.Context, input.CurrentPhase, input.PhaseIntent, input.TimeRemaining, input.Situation, input.LastQuestion, input.UserInput)
}

// GuidanceInput carries the turn context for generating the next therapist
// statement or question.
type GuidanceInput struct {
	Context      string
	CurrentPhase string
	PhaseIntent  string
	Approach     string
	UserInput    string
}

// AdvancePrompt asks for an empathetic question or statement that bridges the
// client into the next phase.
func AdvancePrompt(input GuidanceInput) string {
	return guidancePrompt(input,
		"Generate one empathetic advance question or statement that bridges the client's current emotional state "+
			"to the next phase, addresses any resistance or ambiguity, and reinforces the session's objectives.")
}

// FollowUpPrompt asks for a probing follow-up that keeps the client in the
// current phase.
func FollowUpPrompt(input GuidanceInput) string {
	return guidancePrompt(input,
		"Generate one empathetic follow-up question that probes deeper into the client's current phase, "+
			"drawing out the information still needed before the phase objectives are met.")
}

func guidancePrompt(input GuidanceInput, task string) string {
	return fmt.Sprintf(`Act as an AI therapist guiding a client through a structured session.

Inputs:
- Current Phase: %s
- Phase Intent: %s
- Phase Approach: %s
- Previous Context: %s
- User's Prompt: %q

NOTE: Follow the Phase Approach. It can be Questions, Statements, or Both.
If the Approach is Questions and the user asked a question themselves, answer it first and then follow up with a question.

Task: %s

Respond in JSON with keys:
- "advance_statement": the question or statement, strictly a string.
- "intention": a brief explanation of why it is appropriate for this phase.`,
		input.CurrentPhase, input.PhaseIntent, input.Approach, input.Context, input.UserInput, task)
}

// ClosingNotesPrompt asks for condensed session notes a follow-up session can
// be seeded from.
func ClosingNotesPrompt(transcript string) string {
	return fmt.Sprintf(`You are a therapist writing session notes after a completed session.
Summarize the key themes, progress, and agreed next steps from the transcript below in a short paragraph addressed to the client ("you").

Transcript:
%s

Respond in JSON with a single key 'session_notes'.`, transcript)
}

func joinPrompt(instruction, examples string, input map[string]any) string {
	encoded, _ := json.Marshal(input)
	return fmt.Sprintf("%s\n\nHere are a few examples:\n%s\n\nNow, generate the output for the following input:\n%s",
		instruction, examples, string(encoded))
}
