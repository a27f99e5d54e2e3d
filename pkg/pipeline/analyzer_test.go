package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x-stone/clauseguard/pkg/cache"
	"github.com/0x-stone/clauseguard/pkg/chunker"
	"github.com/0x-stone/clauseguard/pkg/dispatch"
	"github.com/0x-stone/clauseguard/pkg/engine"
	"github.com/0x-stone/clauseguard/pkg/events"
	"github.com/0x-stone/clauseguard/pkg/fetch"
	"github.com/0x-stone/clauseguard/pkg/oracle"
	"github.com/0x-stone/clauseguard/pkg/oracle/oracletest"
)

const policyURL = "https://example.com/privacy"

type stubFetcher struct {
	text  string
	err   error
	calls int
}

func (f *stubFetcher) FetchPage(context.Context, string) (string, error) {
	f.calls++
	return f.text, f.err
}

type countingRecorder struct {
	mu       sync.Mutex
	hits     int
	misses   int
	outcomes []string
}

func (r *countingRecorder) ObserveCacheLookup(hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func (r *countingRecorder) ObserveAnalysis(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

type capturePublisher struct {
	events []events.VerdictEvent
}

func (p *capturePublisher) PublishVerdict(_ context.Context, ev events.VerdictEvent) error {
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func policyText(paragraphs int) string {
	parts := make([]string, paragraphs)
	for i := range parts {
		parts[i] = fmt.Sprintf("Paragraph %d: %s", i, strings.Repeat("we process personal data lawfully ", 20))
	}
	return strings.Join(parts, "\n\n")
}

func newAnalyzer(t *testing.T, f PageFetcher, mock *oracletest.MockOracle, opts ...Option) *Analyzer {
	t.Helper()
	pool, err := oracle.NewPool(mock)
	require.NoError(t, err)
	dc := dispatch.NewDispatcherContext(pool, 4, dispatch.RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond})
	return NewAnalyzer(f, chunker.NewDefault(), dispatch.New(dc, nil), engine.NewEngine(nil, nil), opts...)
}

func TestAnalyzeNoContentSkipsOracle(t *testing.T) {
	mock := &oracletest.MockOracle{}
	rec := &countingRecorder{}
	a := newAnalyzer(t, &stubFetcher{err: fmt.Errorf("%w: HTTP 404", fetch.ErrNoContent)}, mock, WithRecorder(rec))

	_, err := a.AnalyzeURL(context.Background(), policyURL)
	require.ErrorIs(t, err, ErrNoContent)
	assert.Equal(t, "no_content", OutcomeCode(err))
	assert.Zero(t, mock.EvaluateCalls())
	assert.Equal(t, []string{"no_content"}, rec.outcomes)
}

func TestAnalyzeCaptcha(t *testing.T) {
	mock := &oracletest.MockOracle{}
	a := newAnalyzer(t, &stubFetcher{err: fetch.ErrCaptchaDetected}, mock)

	_, err := a.AnalyzeURL(context.Background(), policyURL)
	assert.Equal(t, "captcha_detected", OutcomeCode(err))
	assert.Zero(t, mock.EvaluateCalls())
}

func TestAnalyzeNoChunks(t *testing.T) {
	mock := &oracletest.MockOracle{}
	a := newAnalyzer(t, &stubFetcher{text: `\\ `}, mock)

	_, err := a.AnalyzeURL(context.Background(), policyURL)
	assert.ErrorIs(t, err, ErrNoChunks)
	assert.Zero(t, mock.EvaluateCalls())
}

func TestAnalyzeNoFindingsWhenAllBatchesFail(t *testing.T) {
	mock := &oracletest.MockOracle{Err: errors.New("rate limited")}
	a := newAnalyzer(t, &stubFetcher{text: policyText(3)}, mock)

	_, err := a.AnalyzeURL(context.Background(), policyURL)
	assert.ErrorIs(t, err, ErrNoFindings)
	assert.Equal(t, "no_findings", OutcomeCode(err))
	assert.Equal(t, 3, mock.EvaluateCalls())
}

func TestAnalyzeNoFindingsWhenOracleReturnsNothing(t *testing.T) {
	mock := &oracletest.MockOracle{Findings: []engine.RawFinding{}}
	a := newAnalyzer(t, &stubFetcher{text: policyText(2)}, mock)

	_, err := a.AnalyzeURL(context.Background(), policyURL)
	assert.ErrorIs(t, err, ErrNoFindings)
}

func TestAnalyzeScoresAndCaches(t *testing.T) {
	titles := engine.DefaultRegistry().Titles()
	mock := &oracletest.MockOracle{Findings: []engine.RawFinding{
		{Title: titles[0], Status: engine.StatusCompliant, Confidence: 0.9},
		{Title: titles[1], Status: engine.StatusPartial, Confidence: 0.7},
	}}
	f := &stubFetcher{text: policyText(12)}
	store := cache.NewMemoryStore()
	rec := &countingRecorder{}
	pub := &capturePublisher{}
	a := newAnalyzer(t, f, mock,
		WithCache(cache.New(store, 0)),
		WithRecorder(rec),
		WithPublisher(pub),
		WithBatchSize(5))

	res, err := a.AnalyzeURL(context.Background(), policyURL)
	require.NoError(t, err)
	require.NotNil(t, res.Verdict)
	assert.False(t, res.Cached)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, mock.EvaluateCalls(), res.Batches)
	assert.Len(t, res.Verdict.Findings, 2)
	assert.Len(t, res.Verdict.Missing, len(titles)-2)
	assert.Equal(t, 1, store.Len())
	require.Len(t, pub.events, 1)
	assert.Equal(t, res.RunID, pub.events[0].RunID)

	again, err := a.AnalyzeURL(context.Background(), policyURL)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, res.Verdict.ComplianceScore, again.Verdict.ComplianceScore)
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 1, rec.misses)
	assert.Equal(t, []string{"ok", "cached"}, rec.outcomes)
}

func TestAnalyzeDropsFailedBatches(t *testing.T) {
	title := engine.DefaultRegistry().Titles()[0]
	var mu sync.Mutex
	seen := 0
	mock := &oracletest.MockOracle{
		EvaluateFunc: func(_ context.Context, text string) ([]engine.RawFinding, error) {
			if strings.Contains(text, "Paragraph 0:") {
				return nil, errors.New("model overloaded")
			}
			mu.Lock()
			seen++
			mu.Unlock()
			return []engine.RawFinding{{Title: title, Status: engine.StatusCompliant, Confidence: 1}}, nil
		},
	}
	a := newAnalyzer(t, &stubFetcher{text: policyText(12)}, mock)

	res, err := a.AnalyzeURL(context.Background(), policyURL)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FailedBatches)
	assert.Contains(t, res.Verdict.Findings, title)
	assert.Equal(t, res.Batches-1, seen)
}

func TestAnalyzeInvalidURL(t *testing.T) {
	mock := &oracletest.MockOracle{}
	f := &stubFetcher{}
	a := newAnalyzer(t, f, mock)

	_, err := a.AnalyzeURL(context.Background(), "ftp://example.com")
	assert.ErrorIs(t, err, fetch.ErrInvalidURL)
	assert.Empty(t, OutcomeCode(err))
	assert.Zero(t, f.calls)
}

func TestOutcomeCode(t *testing.T) {
	assert.Equal(t, "no_chunks", OutcomeCode(fmt.Errorf("wrapped: %w", ErrNoChunks)))
	assert.Empty(t, OutcomeCode(errors.New("other")))
	assert.Empty(t, OutcomeCode(nil))
}
