// Package pipeline runs a privacy policy URL through fetch, chunking,
// evaluation, reduction and scoring.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/0x-stone/clauseguard/pkg/chunker"
	"github.com/0x-stone/clauseguard/pkg/dispatch"
	"github.com/0x-stone/clauseguard/pkg/engine"
	"github.com/0x-stone/clauseguard/pkg/events"
	"github.com/0x-stone/clauseguard/pkg/fetch"
)

// DefaultBatchSize is the number of chunks sent to the oracle per call.
const DefaultBatchSize = 5

// PageFetcher returns the text of a policy page.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// VerdictCache is the cache the analyzer reads before and writes after a run.
type VerdictCache interface {
	Lookup(ctx context.Context, url string) (*engine.Verdict, bool, error)
	Store(ctx context.Context, url string, v *engine.Verdict) error
}

// Recorder receives per-analysis observations. pkg/metrics implements it.
type Recorder interface {
	ObserveCacheLookup(hit bool)
	ObserveAnalysis(outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCacheLookup(bool) {}

func (nopRecorder) ObserveAnalysis(string, time.Duration) {}

// Result is a finished analysis.
type Result struct {
	RunID         string
	URL           string
	Verdict       *engine.Verdict
	Cached        bool
	Batches       int
	FailedBatches int
	Elapsed       time.Duration
}

// Analyzer orchestrates one analysis per call. It is safe for concurrent use.
type Analyzer struct {
	fetcher    PageFetcher
	chunker    *chunker.Chunker
	dispatcher *dispatch.Dispatcher
	engine     *engine.Engine

	batchSize int
	cache     VerdictCache
	publisher events.Publisher
	recorder  Recorder
	logger    *zap.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithBatchSize sets the chunks per oracle call.
func WithBatchSize(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.batchSize = n
		}
	}
}

// WithCache enables verdict caching.
func WithCache(c VerdictCache) Option {
	return func(a *Analyzer) { a.cache = c }
}

// WithPublisher publishes every fresh verdict.
func WithPublisher(p events.Publisher) Option {
	return func(a *Analyzer) {
		if p != nil {
			a.publisher = p
		}
	}
}

// WithRecorder reports analysis outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(a *Analyzer) {
		if r != nil {
			a.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(f PageFetcher, c *chunker.Chunker, d *dispatch.Dispatcher, e *engine.Engine, opts ...Option) *Analyzer {
	a := &Analyzer{
		fetcher:    f,
		chunker:    c,
		dispatcher: d,
		engine:     e,
		batchSize:  DefaultBatchSize,
		publisher:  events.Noop{},
		recorder:   nopRecorder{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeURL returns the verdict for the policy at url. Terminal outcomes are
// returned as *Outcome errors; use OutcomeCode to read them.
func (a *Analyzer) AnalyzeURL(ctx context.Context, url string) (*Result, error) {
	if err := fetch.ValidateURL(url); err != nil {
		return nil, err
	}

	start := time.Now()
	res := &Result{RunID: uuid.NewString(), URL: url}
	log := a.logger.With(zap.String("run_id", res.RunID), zap.String("url", url))

	res, err := a.analyze(ctx, res, log)
	res.Elapsed = time.Since(start)

	outcome := "ok"
	switch {
	case err != nil && OutcomeCode(err) != "":
		outcome = OutcomeCode(err)
		log.Info("analysis ended without verdict", zap.String("outcome", outcome))
	case err != nil:
		outcome = "error"
		log.Error("analysis failed", zap.Error(err))
	case res.Cached:
		outcome = "cached"
	default:
		log.Info("analysis complete",
			zap.Float64("score", res.Verdict.ComplianceScore),
			zap.String("level", string(res.Verdict.ComplianceLevel)),
			zap.Int("batches", res.Batches),
			zap.Int("failed_batches", res.FailedBatches),
			zap.Duration("elapsed", res.Elapsed))
	}
	a.recorder.ObserveAnalysis(outcome, res.Elapsed)

	if err != nil {
		return nil, err
	}
	return res, nil
}

func (a *Analyzer) analyze(ctx context.Context, res *Result, log *zap.Logger) (*Result, error) {
	if a.cache != nil {
		v, ok, err := a.cache.Lookup(ctx, res.URL)
		if err != nil {
			log.Warn("cache lookup failed, analyzing anyway", zap.Error(err))
		}
		a.recorder.ObserveCacheLookup(ok)
		if ok {
			log.Debug("serving cached verdict")
			res.Verdict, res.Cached = v, true
			return res, nil
		}
	}

	text, err := a.fetcher.FetchPage(ctx, res.URL)
	switch {
	case errors.Is(err, fetch.ErrCaptchaDetected):
		return res, ErrCaptchaDetected
	case errors.Is(err, fetch.ErrNoContent):
		return res, ErrNoContent
	case err != nil:
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		log.Warn("fetch failed", zap.Error(err))
		return res, ErrNoContent
	}

	chunks := a.chunker.Split(text)
	if len(chunks) == 0 {
		return res, ErrNoChunks
	}
	batches := chunker.Batch(chunks, a.batchSize)
	res.Batches = len(batches)
	log.Debug("dispatching batches", zap.Int("chunks", len(chunks)), zap.Int("batches", len(batches)))

	results := a.dispatcher.DispatchAll(ctx, batches)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	succeeded := make([][]engine.RawFinding, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			res.FailedBatches++
			log.Warn("dropping failed batch",
				zap.Int("batch", r.Index),
				zap.Int("attempts", r.Attempts),
				zap.Error(r.Err))
			continue
		}
		succeeded = append(succeeded, r.Findings)
	}

	reduced, err := a.engine.Reduce(succeeded)
	if errors.Is(err, engine.ErrNoFindings) {
		return res, ErrNoFindings
	}
	if err != nil {
		return res, fmt.Errorf("reduce findings: %w", err)
	}
	res.Verdict = a.engine.Score(reduced)

	if a.cache != nil {
		if err := a.cache.Store(ctx, res.URL, res.Verdict); err != nil {
			log.Warn("cache store failed", zap.Error(err))
		}
	}
	ev := events.VerdictEvent{RunID: res.RunID, URL: res.URL, AnalyzedAt: time.Now().UTC(), Verdict: res.Verdict}
	if err := a.publisher.PublishVerdict(ctx, ev); err != nil {
		log.Warn("publish verdict failed", zap.Error(err))
	}
	return res, nil
}
