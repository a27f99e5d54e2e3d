package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultAnthropicModel is used when no model is configured.
	DefaultAnthropicModel = "claude-sonnet-4-5"

	anthropicVersion = "2023-06-01"
	anthropicBaseURL = "https://api.anthropic.com"
)

// AnthropicProvider talks to the Anthropic messages API.
type AnthropicProvider struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	httpClient  *http.Client
}

// NewAnthropicProvider creates an Anthropic client. An empty baseURL selects
// the public API.
func NewAnthropicProvider(apiKey, model, baseURL string) *AnthropicProvider {
	if model == "" {
		model = DefaultAnthropicModel
	}
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	return &AnthropicProvider{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Name returns the provider identifier.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// ListModels returns the supported model aliases.
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]string, error) {
	return []string{
		"claude-sonnet-4-5",
		"claude-opus-4-5",
		"claude-haiku-4-5",
	}, nil
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate posts a single-turn message. JSON mode is requested through the
// system prompt, which already demands a JSON document.
func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (string, error) {
	temp := p.temperature
	body, err := json.Marshal(anthropicRequest{
		Model:       p.model,
		MaxTokens:   4096,
		Messages:    []anthropicMessage{{Role: "user", Content: req.User}},
		System:      req.System,
		Temperature: &temp,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read anthropic response: %w", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil && resp.StatusCode == http.StatusOK {
		return "", fmt.Errorf("parse anthropic response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Provider: p.Name(), StatusCode: resp.StatusCode}
		if parsed.Error != nil {
			apiErr.Message = parsed.Error.Message
		}
		return "", apiErr
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

// SetTemperature sets the sampling temperature for subsequent calls.
func (p *AnthropicProvider) SetTemperature(t float32) { p.temperature = float64(t) }

// Close is a no-op.
func (p *AnthropicProvider) Close() error { return nil }
