package conversation

import (
	"fmt"
	"strings"

	"github.com/sakshi-health/sakshi/internal/therapy/domain"
)

// DefaultMaxContextTokens bounds how much conversation history is replayed
// to the oracle on each turn.
const DefaultMaxContextTokens = 4096

// BuildContext renders the conversation record as one line per turn and
// truncates the result to at most maxTokens whitespace-delimited tokens.
// Truncation is idempotent: truncating an already-truncated context returns
// it unchanged.
func BuildContext(entries []domain.PhaseLog, maxTokens int) string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("%s - User: %s | AI: %s", entry.Phase, entry.UserInput, entry.Response))
	}
	return TruncateTokens(strings.Join(lines, " "), maxTokens)
}

// TruncateTokens keeps the first maxTokens whitespace-delimited tokens of
// text. A non-positive maxTokens returns the empty string.
func TruncateTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	tokens := strings.Fields(text)
	if len(tokens) <= maxTokens {
		return strings.Join(tokens, " ")
	}
	return strings.Join(tokens[:maxTokens], " ")
}
