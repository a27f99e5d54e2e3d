package oracle

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider talks to the Gemini API with one API key.
type GeminiProvider struct {
	client      *genai.Client
	modelName   string
	temperature float32
}

// NewGeminiProvider creates a Gemini client for apiKey.
func NewGeminiProvider(ctx context.Context, apiKey, modelName string, opts ...option.ClientOption) (*GeminiProvider, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &GeminiProvider{client: client, modelName: modelName}, nil
}

// Name returns the provider identifier.
func (g *GeminiProvider) Name() string { return "gemini" }

// ListModels lists the Gemini models available to the key.
func (g *GeminiProvider) ListModels(ctx context.Context) ([]string, error) {
	iter := g.client.ListModels(ctx)
	var names []string
	for {
		m, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		if strings.Contains(m.Name, "gemini") {
			names = append(names, strings.TrimPrefix(m.Name, "models/"))
		}
	}
	return names, nil
}

// Generate runs a single-turn request. A model is built per call so that
// concurrent requests never share system instructions.
func (g *GeminiProvider) Generate(ctx context.Context, req Request) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(g.temperature)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.User))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

// SetTemperature sets the sampling temperature for subsequent calls.
func (g *GeminiProvider) SetTemperature(t float32) { g.temperature = t }

// Client exposes the underlying SDK client for embeddings.
func (g *GeminiProvider) Client() *genai.Client {
	return g.client
}

// Close releases the SDK client.
func (g *GeminiProvider) Close() error {
	return g.client.Close()
}
