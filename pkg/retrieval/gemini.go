package retrieval

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

// DefaultEmbeddingModel is the Gemini embedding model used for the QA index.
const DefaultEmbeddingModel = "text-embedding-004"

// batchLimit is the maximum number of texts per batch embedding request.
const batchLimit = 100

// GeminiEmbedder embeds text with a Gemini embedding model.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

var _ Embedder = (*GeminiEmbedder)(nil)

// NewGeminiEmbedder wraps an existing SDK client.
func NewGeminiEmbedder(client *genai.Client, model string) *GeminiEmbedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &GeminiEmbedder{client: client, model: model}
}

// Model returns the embedding model name.
func (e *GeminiEmbedder) Model() string { return e.model }

// EmbedQuery implements Embedder.
func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalQuery
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if res.Embedding == nil {
		return nil, fmt.Errorf("empty embedding for query")
	}
	return res.Embedding.Values, nil
}

// EmbedDocuments implements Embedder.
func (e *GeminiEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalDocument

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchLimit {
		end := start + batchLimit
		if end > len(texts) {
			end = len(texts)
		}
		batch := em.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}
		res, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embed documents %d-%d: %w", start, end, err)
		}
		if len(res.Embeddings) != end-start {
			return nil, fmt.Errorf("embed documents %d-%d: got %d embeddings", start, end, len(res.Embeddings))
		}
		for _, emb := range res.Embeddings {
			out = append(out, emb.Values)
		}
	}
	return out, nil
}
