package qa

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x-stone/clauseguard/pkg/dispatch"
	"github.com/0x-stone/clauseguard/pkg/oracle"
	"github.com/0x-stone/clauseguard/pkg/oracle/oracletest"
	"github.com/0x-stone/clauseguard/pkg/retrieval"
)

type stubSearcher struct {
	docs    []retrieval.Document
	err     error
	queries []string
}

func (s *stubSearcher) SimilaritySearch(_ context.Context, query string, k int) ([]retrieval.Document, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.docs) > k {
		return s.docs[:k], nil
	}
	return s.docs, nil
}

func newAssistant(t *testing.T, mock *oracletest.MockOracle, s retrieval.Searcher) *Assistant {
	t.Helper()
	pool, err := oracle.NewPool(mock)
	require.NoError(t, err)
	dc := dispatch.NewDispatcherContext(pool, 2, dispatch.RetryPolicy{Attempts: 2, BaseDelay: time.Millisecond})
	return NewAssistant(dispatch.New(dc, nil), s, 0, nil)
}

func TestIsGreeting(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"hi", true},
		{"Hello!", true},
		{"hey there", true},
		{"Good morning", true},
		{"thank you", true},
		{"", false},
		{"hello, what is a data controller?", false},
		{"What is consent?", false},
		{"good practice for retention", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsGreeting(tt.in), tt.in)
	}
}

func TestAskGreetingSkipsOracle(t *testing.T) {
	mock := &oracletest.MockOracle{}
	s := &stubSearcher{}
	a := newAssistant(t, mock, s)

	got, err := a.Ask(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, GreetingReply, got)
	assert.Zero(t, mock.CompleteCalls())
	assert.Empty(t, s.queries)
}

func TestAskAnswersFromContext(t *testing.T) {
	mock := &oracletest.MockOracle{
		Completions: []string{"  \"consent withdrawal\"  ", "Under Section 35 you may withdraw consent at any time."},
	}
	s := &stubSearcher{docs: []retrieval.Document{
		{ID: "s35", Content: "Section 35: A data subject may withdraw consent at any time."},
	}}
	a := newAssistant(t, mock, s)

	got, err := a.Ask(context.Background(), "Can I take back my consent?")
	require.NoError(t, err)
	assert.Equal(t, "Under Section 35 you may withdraw consent at any time.", got)
	assert.Equal(t, []string{"consent withdrawal"}, s.queries)

	inputs := mock.Inputs()
	require.Len(t, inputs, 2)
	assert.Equal(t, "Can I take back my consent?", inputs[0])
	assert.True(t, strings.HasPrefix(inputs[1], "Context:"))
	assert.Contains(t, inputs[1], "[1] Section 35")
	assert.Contains(t, inputs[1], "Question: Can I take back my consent?")
}

func TestAnswerFallbacks(t *testing.T) {
	mock := &oracletest.MockOracle{Completions: []string{"   "}}
	a := newAssistant(t, mock, &stubSearcher{})

	got, err := a.Answer(context.Background(), nil, "What is a DPO?")
	require.NoError(t, err)
	assert.Equal(t, FallbackAnswer, got)
	assert.Zero(t, mock.CompleteCalls())

	got, err = a.Answer(context.Background(), []retrieval.Document{{Content: "x"}}, "What is a DPO?")
	require.NoError(t, err)
	assert.Equal(t, FallbackAnswer, got)
	assert.Equal(t, 1, mock.CompleteCalls())
}

func TestRewriteEmptyKeepsQuestion(t *testing.T) {
	mock := &oracletest.MockOracle{Completions: []string{""}}
	a := newAssistant(t, mock, &stubSearcher{})

	got, err := a.Rewrite(context.Background(), "cross-border transfer")
	require.NoError(t, err)
	assert.Equal(t, "cross-border transfer", got)
}

func TestAskPropagatesFailures(t *testing.T) {
	mock := &oracletest.MockOracle{Err: errors.New("quota exceeded")}
	a := newAssistant(t, mock, &stubSearcher{})

	_, err := a.Ask(context.Background(), "What is a data processor?")
	require.Error(t, err)
	assert.ErrorContains(t, err, "quota exceeded")
	assert.Equal(t, 2, mock.CompleteCalls())

	ok := &oracletest.MockOracle{Completions: []string{"processor"}}
	a = newAssistant(t, ok, &stubSearcher{err: errors.New("index unavailable")})
	_, err = a.Ask(context.Background(), "What is a data processor?")
	assert.ErrorContains(t, err, "index unavailable")
}
