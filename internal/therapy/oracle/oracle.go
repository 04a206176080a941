// Package oracle generates model-backed guidance for therapy sessions.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Oracle produces free-form text for a prompt. Implementations wrap a
// hosted language model behind a single blocking call.
type Oracle interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// GenerateJSON runs the prompt and decodes the response into out. Models
// frequently wrap JSON in markdown code fences; those are stripped before
// decoding.
func GenerateJSON(ctx context.Context, o Oracle, prompt string, out any) error {
	raw, err := o.GenerateText(ctx, prompt)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(StripFences(raw)), out); err != nil {
		return fmt.Errorf("decode oracle response: %w", err)
	}
	return nil
}

// StripFences removes a surrounding markdown code fence, with or without a
// json language tag, from model output.
func StripFences(raw string) string {
	value := strings.TrimSpace(raw)
	if strings.HasPrefix(value, "```") {
		value = strings.TrimPrefix(value, "```")
		value = strings.TrimPrefix(value, "json")
		value = strings.TrimSuffix(strings.TrimSpace(value), "```")
	}
	return strings.TrimSpace(value)
}
