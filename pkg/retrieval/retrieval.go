// Package retrieval finds NDPA passages relevant to a question.
package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// DefaultK is the number of passages handed to the answer step.
const DefaultK = 3

// Document is one indexed passage.
type Document struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Source    string    `json:"source,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
	// Score is set on search results only.
	Score float64 `json:"-"`
}

// Searcher is the similarity-search capability used by the QA path.
type Searcher interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]Document, error)
}

// Embedder turns text into vectors.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Index is the persisted passage collection.
type Index struct {
	Model     string     `json:"model,omitempty"`
	BuiltAt   time.Time  `json:"built_at"`
	Documents []Document `json:"documents"`
}

// ErrEmptyIndex is returned when an index holds no documents.
var ErrEmptyIndex = errors.New("index has no documents")

// HasEmbeddings reports whether every document carries a vector.
func (ix *Index) HasEmbeddings() bool {
	if len(ix.Documents) == 0 {
		return false
	}
	for _, d := range ix.Documents {
		if len(d.Embedding) == 0 {
			return false
		}
	}
	return true
}

// LoadIndex reads an index written by Save.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ix Index
	if err := json.Unmarshal(data, &ix); err != nil {
		return nil, fmt.Errorf("parse index %s: %w", path, err)
	}
	if len(ix.Documents) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyIndex)
	}
	return &ix, nil
}

// Save writes the index as JSON.
func (ix *Index) Save(path string) error {
	data, err := json.Marshal(ix)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// NewSearcher picks vector search when the index and an embedder allow it,
// and lexical search otherwise.
func NewSearcher(ix *Index, embedder Embedder) Searcher {
	if embedder != nil && ix.HasEmbeddings() {
		return NewVectorSearcher(ix, embedder)
	}
	return NewLexicalSearcher(ix.Documents)
}
