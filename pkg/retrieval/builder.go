package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/0x-stone/clauseguard/pkg/chunker"
)

// BuildIndex chunks corpus into passages and embeds them when embedder is
// set. Without an embedder the index serves lexical search only.
func BuildIndex(ctx context.Context, corpus, source string, c *chunker.Chunker, embedder Embedder, model string) (*Index, error) {
	chunks := c.Split(corpus)
	if len(chunks) == 0 {
		return nil, ErrEmptyIndex
	}

	ix := &Index{BuiltAt: time.Now().UTC(), Documents: make([]Document, len(chunks))}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		ix.Documents[i] = Document{
			ID:      fmt.Sprintf("ndpa-%04d", i),
			Content: ch.Content,
			Source:  source,
		}
		texts[i] = ch.Content
	}

	if embedder == nil {
		return ix, nil
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d passages", len(vectors), len(texts))
	}
	for i := range ix.Documents {
		ix.Documents[i].Embedding = vectors[i]
	}
	ix.Model = model
	return ix, nil
}
