package retrieval

import (
	"context"
	"math"
	"strings"
	"unicode"
)

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "can": true, "do": true, "does": true, "for": true,
	"from": true, "how": true, "i": true, "if": true, "in": true, "is": true,
	"it": true, "its": true, "my": true, "of": true, "on": true, "or": true,
	"should": true, "that": true, "the": true, "their": true, "this": true,
	"to": true, "under": true, "what": true, "when": true, "which": true,
	"who": true, "will": true, "with": true, "you": true, "your": true,
}

// LexicalSearcher ranks documents by TF-IDF term overlap. It needs no
// embedding model.
type LexicalSearcher struct {
	docs  []Document
	terms []map[string]int
	idf   map[string]float64
}

var _ Searcher = (*LexicalSearcher)(nil)

// NewLexicalSearcher indexes docs.
func NewLexicalSearcher(docs []Document) *LexicalSearcher {
	s := &LexicalSearcher{
		docs:  docs,
		terms: make([]map[string]int, len(docs)),
		idf:   make(map[string]float64),
	}
	df := make(map[string]int)
	for i, d := range docs {
		tf := make(map[string]int)
		for _, tok := range tokenize(d.Content) {
			tf[tok]++
		}
		s.terms[i] = tf
		for tok := range tf {
			df[tok]++
		}
	}
	n := float64(len(docs))
	for tok, c := range df {
		s.idf[tok] = math.Log(1 + n/float64(c))
	}
	return s
}

// SimilaritySearch implements Searcher. Documents sharing no query term are
// not returned.
func (s *LexicalSearcher) SimilaritySearch(_ context.Context, query string, k int) ([]Document, error) {
	if k <= 0 {
		k = DefaultK
	}
	qterms := tokenize(query)

	var scored []Document
	for i, d := range s.docs {
		var score float64
		for _, q := range qterms {
			if tf := s.terms[i][q]; tf > 0 {
				score += (1 + math.Log(float64(tf))) * s.idf[q]
			}
		}
		if score > 0 {
			d.Score = score
			scored = append(scored, d)
		}
	}
	return topK(scored, k), nil
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 1 && !stopwords[f] {
			out = append(out, f)
		}
	}
	return out
}
