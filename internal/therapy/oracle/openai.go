package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OpenAIConfig configures the OpenAI responses endpoint and HTTP behavior.
type OpenAIConfig struct {
	ResponsesURL string
	APIKey       string
	Model        string
	HTTPClient   *http.Client
}

type openAIOracle struct {
	cfg OpenAIConfig
}

// NewOpenAI builds an Oracle backed by the OpenAI responses endpoint.
func NewOpenAI(cfg OpenAIConfig) Oracle {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.ResponsesURL) == "" {
		cfg.ResponsesURL = "https://api.openai.com/v1/responses"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return &openAIOracle{cfg: cfg}
}

func (o *openAIOracle) GenerateText(ctx context.Context, prompt string) (string, error) {
	apiKey := strings.TrimSpace(o.cfg.APIKey)
	prompt = strings.TrimSpace(prompt)
	if apiKey == "" {
		return "", fmt.Errorf("api key is required")
	}
	if prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}

	requestBody, err := json.Marshal(map[string]any{
		"model": o.cfg.Model,
		"input": prompt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.ResponsesURL, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Credential material is sent only as an Authorization header and is never
	// echoed in errors or response payloads.
	req.Header.Set("Authorization", "Bearer "+apiKey)

	res, err := o.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, err := io.ReadAll(io.LimitReader(res.Body, 4096))
		if err != nil {
			return "", fmt.Errorf("read generate error body: %w", err)
		}
		return "", fmt.Errorf("generate request status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	outputText := strings.TrimSpace(payload.OutputText)
	if outputText == "" {
		for _, item := range payload.Output {
			for _, content := range item.Content {
				if strings.TrimSpace(content.Text) != "" {
					outputText = strings.TrimSpace(content.Text)
					break
				}
			}
			if outputText != "" {
				break
			}
		}
	}
	if outputText == "" {
		return "", fmt.Errorf("generate response missing output text")
	}
	return outputText, nil
}
