package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// VectorSearcher ranks documents by cosine similarity to the query embedding.
type VectorSearcher struct {
	docs     []Document
	embedder Embedder
}

var _ Searcher = (*VectorSearcher)(nil)

// NewVectorSearcher creates a searcher over the embedded documents of ix.
func NewVectorSearcher(ix *Index, embedder Embedder) *VectorSearcher {
	return &VectorSearcher{docs: ix.Documents, embedder: embedder}
}

// SimilaritySearch implements Searcher.
func (s *VectorSearcher) SimilaritySearch(ctx context.Context, query string, k int) ([]Document, error) {
	if k <= 0 {
		k = DefaultK
	}
	qv, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored := make([]Document, 0, len(s.docs))
	for _, d := range s.docs {
		d.Score = cosine(qv, d.Embedding)
		scored = append(scored, d)
	}
	return topK(scored, k), nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// topK sorts by descending score, keeping index order for ties.
func topK(docs []Document, k int) []Document {
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })
	if len(docs) > k {
		docs = docs[:k]
	}
	return docs
}
