package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type staticOracle struct {
	output string
	err    error
}

func (o staticOracle) GenerateText(ctx context.Context, prompt string) (string, error) {
	return o.output, o.err
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare json", `{"a":1}`, `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripFences(tc.raw); got != tc.want {
				t.Fatalf("strip fences = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestGenerateJSONDecodesFencedOutput(t *testing.T) {
	o := staticOracle{output: "```json\n{\"session_title\": \"A Fresh Start\"}\n```"}

	var title TitleResponse
	if err := GenerateJSON(context.Background(), o, "generate a title", &title); err != nil {
		t.Fatalf("generate json: %v", err)
	}
	if title.SessionTitle != "A Fresh Start" {
		t.Fatalf("session title = %q, want %q", title.SessionTitle, "A Fresh Start")
	}
}

func TestGenerateJSONRejectsNonJSON(t *testing.T) {
	o := staticOracle{output: "I cannot answer that."}

	var decision DecisionResponse
	if err := GenerateJSON(context.Background(), o, "decide", &decision); err == nil {
		t.Fatal("expected decode error for non-JSON output")
	}
}

func TestOpenAIGenerateText(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"output": []map[string]any{
				{"content": []map[string]any{{"type": "output_text", "text": "How does that make you feel?"}}},
			},
		})
	}))
	defer server.Close()

	o := NewOpenAI(OpenAIConfig{
		ResponsesURL: server.URL,
		APIKey:       "secret-key",
		Model:        "gpt-4o-mini",
		HTTPClient:   server.Client(),
	})

	text, err := o.GenerateText(context.Background(), "Say something therapeutic.")
	if err != nil {
		t.Fatalf("generate text: %v", err)
	}
	if text != "How does that make you feel?" {
		t.Fatalf("text = %q, want output text", text)
	}
	if gotAuth != "Bearer secret-key" {
		t.Fatalf("authorization = %q, want bearer token", gotAuth)
	}
	if gotBody["model"] != "gpt-4o-mini" {
		t.Fatalf("model = %v, want gpt-4o-mini", gotBody["model"])
	}
}

func TestOpenAIGenerateTextErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	o := NewOpenAI(OpenAIConfig{ResponsesURL: server.URL, APIKey: "secret-key", HTTPClient: server.Client()})
	if _, err := o.GenerateText(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
	if _, err := o.GenerateText(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty prompt")
	}

	missingKey := NewOpenAI(OpenAIConfig{ResponsesURL: server.URL, HTTPClient: server.Client()})
	if _, err := missingKey.GenerateText(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestPromptBuildersVaryOnSessionNotes(t *testing.T) {
	fresh := SessionBrief{
		SessionForm:    "I have been feeling anxious lately.",
		TreatmentGoals: "Reduce anxiety",
		Expectations:   "Guidance on managing anxiety",
	}
	returning := fresh
	returning.SessionNotes = "Last session covered workplace triggers."

	if !strings.Contains(TitlePrompt(fresh), "session_form") {
		t.Fatal("fresh title prompt should reference the session form")
	}
	if !strings.Contains(TitlePrompt(returning), "session_notes") {
		t.Fatal("follow-up title prompt should reference session notes")
	}
	if !strings.Contains(OpeningPrompt(returning), "returning patient") {
		t.Fatal("follow-up opening prompt should address a returning patient")
	}

	classification := ClassificationPrompt(fresh, []string{"Cognitive & Behavioral", "Trauma-Focused"})
	if !strings.Contains(classification, "Cognitive & Behavioral") {
		t.Fatal("classification prompt should list supported models")
	}

	decision := DecisionPrompt(DecisionInput{
		CurrentPhase:  "Intake Phase",
		PhaseIntent:   "Collect detailed information.",
		Situation:     "The user is described as having an emotional state of \"anxious\".",
		UserInput:     "Work has been rough.",
		TimeRemaining: "12 minutes left in this phase",
	})
	for _, want := range []string{"'advance'", "'more_questions'", "'crisis'", "12 minutes left", "anxious"} {
		if !strings.Contains(decision, want) {
			t.Fatalf("decision prompt missing %q", want)
		}
	}
}

func TestSituationSummaryDefaults(t *testing.T) {
	full := SituationResponse{EmotionalState: "anxious", CurrentIssues: "work stress"}
	if got := full.Summary(); !strings.Contains(got, "anxious") || !strings.Contains(got, "work stress") {
		t.Fatalf("summary = %q, want state and issues", got)
	}
	empty := SituationResponse{}
	if got := empty.Summary(); !strings.Contains(got, "unclear") || !strings.Contains(got, "an undefined challenge") {
		t.Fatalf("empty summary = %q, want safe defaults", got)
	}
}
