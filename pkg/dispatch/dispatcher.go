// Package dispatch fans policy batches out to the oracle pool under a shared
// concurrency limit, retrying each call with backoff.
package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/0x-stone/clauseguard/pkg/chunker"
	"github.com/0x-stone/clauseguard/pkg/engine"
	"github.com/0x-stone/clauseguard/pkg/oracle"
)

// DefaultMaxConcurrent bounds in-flight oracle calls.
const DefaultMaxConcurrent = 4

// Recorder receives per-call outcomes. pkg/metrics implements it.
type Recorder interface {
	ObserveOracleCall(operation string, attempts int, elapsed time.Duration, err error)
	ObserveOracleRetry(operation string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOracleCall(string, int, time.Duration, error) {}

func (nopRecorder) ObserveOracleRetry(string) {}

// DispatcherContext is the state shared by every call a Dispatcher makes.
type DispatcherContext struct {
	Pool  *oracle.Pool
	Sem   *semaphore.Weighted
	Retry RetryPolicy
}

// NewDispatcherContext builds the shared state. maxConcurrent <= 0 selects
// DefaultMaxConcurrent.
func NewDispatcherContext(pool *oracle.Pool, maxConcurrent int, retry RetryPolicy) *DispatcherContext {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &DispatcherContext{
		Pool:  pool,
		Sem:   semaphore.NewWeighted(int64(maxConcurrent)),
		Retry: retry.normalized(),
	}
}

// BatchResult is the outcome of one batch. Exactly one of Findings and Err
// is meaningful.
type BatchResult struct {
	Index    int
	Findings []engine.RawFinding
	Err      error
	Attempts int
}

// Dispatcher sends batches and single calls through a DispatcherContext.
type Dispatcher struct {
	dc       *DispatcherContext
	logger   *zap.Logger
	recorder Recorder
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRecorder reports call outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

// New creates a Dispatcher.
func New(dc *DispatcherContext, logger *zap.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{dc: dc, logger: logger, recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DispatchAll evaluates every batch concurrently and returns one result per
// batch in input order. A failing batch never affects its siblings.
func (d *Dispatcher) DispatchAll(ctx context.Context, batches [][]chunker.Chunk) []BatchResult {
	results := make([]BatchResult, len(batches))

	var g errgroup.Group
	for i, batch := range batches {
		i, text := i, chunker.JoinBatch(batch)
		g.Go(func() error {
			findings, attempts, err := call(ctx, d, "evaluate", func(ctx context.Context, o oracle.Oracle) ([]engine.RawFinding, error) {
				return o.Evaluate(ctx, text)
			})
			results[i] = BatchResult{Index: i, Findings: findings, Err: err, Attempts: attempts}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Call runs one oracle operation under the dispatcher's semaphore and retry
// policy, using a single client for all attempts.
func Call[T any](ctx context.Context, d *Dispatcher, operation string, fn func(ctx context.Context, o oracle.Oracle) (T, error)) (T, error) {
	out, _, err := call(ctx, d, operation, fn)
	return out, err
}

func call[T any](ctx context.Context, d *Dispatcher, operation string, fn func(ctx context.Context, o oracle.Oracle) (T, error)) (T, int, error) {
	var zero T
	if err := d.dc.Sem.Acquire(ctx, 1); err != nil {
		return zero, 0, err
	}
	defer d.dc.Sem.Release(1)

	client := d.dc.Pool.Next()
	policy := d.dc.Retry
	onRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		d.logger.Warn("oracle call failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", policy.Attempts),
			zap.Duration("wait", wait),
			zap.Error(err))
		d.recorder.ObserveOracleRetry(operation)
		if onRetry != nil {
			onRetry(attempt, wait, err)
		}
	}

	start := time.Now()
	var out T
	attempts, err := policy.Do(ctx, func(ctx context.Context) error {
		res, err := fn(ctx, client)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	d.recorder.ObserveOracleCall(operation, attempts, time.Since(start), err)
	if err != nil {
		d.logger.Error("oracle call exhausted retries",
			zap.String("operation", operation),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return zero, attempts, err
	}
	return out, attempts, nil
}
