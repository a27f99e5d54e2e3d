package oracle

import (
	"context"
	"errors"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider talks to the OpenAI chat completions API.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIProvider creates an OpenAI client. A non-empty baseURL points it
// at a compatible server.
func NewOpenAIProvider(apiKey, model, baseURL string) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), model: model}
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string { return "openai" }

// ListModels lists chat-capable models.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]string, error) {
	list, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, p.wrap(err)
	}
	var models []string
	for _, m := range list.Models {
		if strings.HasPrefix(m.ID, "gpt") || strings.HasPrefix(m.ID, "o") {
			models = append(models, m.ID)
		}
	}
	return models, nil
}

// Generate runs a single chat completion.
func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.User})

	temp := p.temperature
	if temp == 0 {
		// zero is dropped by omitempty and the API would default to 1
		temp = math.SmallestNonzeroFloat32
	}
	creq := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: temp,
	}
	if req.JSON {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := p.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return "", p.wrap(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// SetTemperature sets the sampling temperature for subsequent calls.
func (p *OpenAIProvider) SetTemperature(t float32) { p.temperature = t }

func (p *OpenAIProvider) wrap(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Provider: p.Name(), StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{Provider: p.Name(), StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	return err
}

// Close is a no-op; the HTTP client holds no dedicated resources.
func (p *OpenAIProvider) Close() error { return nil }
