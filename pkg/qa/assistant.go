// Package qa answers NDPA questions from retrieved passages.
package qa

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/0x-stone/clauseguard/pkg/dispatch"
	"github.com/0x-stone/clauseguard/pkg/oracle"
	"github.com/0x-stone/clauseguard/pkg/retrieval"
)

const (
	// FallbackAnswer is returned when the passages do not cover the question.
	FallbackAnswer = "I do not have a definitive answer to that based on the provided NDPA documents."
	// GreetingReply is returned for greetings and small talk.
	GreetingReply = "Hello! Do you have any NDPA or privacy questions I can help with?"
)

// Assistant runs rewrite, retrieve and answer for one question.
type Assistant struct {
	dispatcher *dispatch.Dispatcher
	searcher   retrieval.Searcher
	k          int
	logger     *zap.Logger

	rewritePrompt string
	answerPrompt  string
}

// NewAssistant creates an Assistant. k <= 0 selects retrieval.DefaultK.
func NewAssistant(d *dispatch.Dispatcher, s retrieval.Searcher, k int, logger *zap.Logger) *Assistant {
	if k <= 0 {
		k = retrieval.DefaultK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{
		dispatcher:    d,
		searcher:      s,
		k:             k,
		logger:        logger,
		rewritePrompt: oracle.RewritePrompt(),
		answerPrompt:  oracle.AnswerPrompt(FallbackAnswer),
	}
}

// Ask answers question end to end.
func (a *Assistant) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if IsGreeting(question) {
		return GreetingReply, nil
	}

	query, err := a.Rewrite(ctx, question)
	if err != nil {
		return "", fmt.Errorf("rewrite question: %w", err)
	}
	docs, err := a.Retrieve(ctx, query)
	if err != nil {
		return "", fmt.Errorf("retrieve passages: %w", err)
	}
	a.logger.Debug("retrieved passages",
		zap.String("query", query),
		zap.Int("count", len(docs)))

	return a.Answer(ctx, docs, question)
}

// Rewrite turns a question into a retrieval query. Greetings pass through.
// An empty rewrite falls back to the question itself.
func (a *Assistant) Rewrite(ctx context.Context, question string) (string, error) {
	if IsGreeting(question) {
		return question, nil
	}
	out, err := dispatch.Call(ctx, a.dispatcher, "rewrite", func(ctx context.Context, o oracle.Oracle) (string, error) {
		return o.Complete(ctx, a.rewritePrompt, question)
	})
	if err != nil {
		return "", err
	}
	out = strings.Trim(strings.TrimSpace(out), `"`)
	if out == "" {
		return question, nil
	}
	return out, nil
}

// Retrieve returns the top passages for query.
func (a *Assistant) Retrieve(ctx context.Context, query string) ([]retrieval.Document, error) {
	return a.searcher.SimilaritySearch(ctx, query, a.k)
}

// Answer replies to question using only docs.
func (a *Assistant) Answer(ctx context.Context, docs []retrieval.Document, question string) (string, error) {
	if IsGreeting(question) {
		return GreetingReply, nil
	}
	if len(docs) == 0 {
		return FallbackAnswer, nil
	}

	out, err := dispatch.Call(ctx, a.dispatcher, "answer", func(ctx context.Context, o oracle.Oracle) (string, error) {
		return o.Complete(ctx, a.answerPrompt, buildAnswerInput(docs, question))
	})
	if err != nil {
		return "", err
	}
	if out = strings.TrimSpace(out); out == "" {
		return FallbackAnswer, nil
	}
	return out, nil
}

func buildAnswerInput(docs []retrieval.Document, question string) string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	for i, d := range docs {
		fmt.Fprintf(&sb, "\n[%d] %s\n", i+1, strings.TrimSpace(d.Content))
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	return sb.String()
}
