package cmd

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/0x-stone/clauseguard/pkg/cache"
	"github.com/0x-stone/clauseguard/pkg/chunker"
	"github.com/0x-stone/clauseguard/pkg/config"
	"github.com/0x-stone/clauseguard/pkg/dispatch"
	"github.com/0x-stone/clauseguard/pkg/engine"
	"github.com/0x-stone/clauseguard/pkg/events"
	"github.com/0x-stone/clauseguard/pkg/fetch"
	"github.com/0x-stone/clauseguard/pkg/logging"
	"github.com/0x-stone/clauseguard/pkg/metrics"
	"github.com/0x-stone/clauseguard/pkg/oracle"
	"github.com/0x-stone/clauseguard/pkg/pipeline"
	"github.com/0x-stone/clauseguard/pkg/qa"
	"github.com/0x-stone/clauseguard/pkg/retrieval"
)

// runtime holds the wired components shared by serve, analyze and ask.
type runtime struct {
	cfg        *config.Config
	logger     *zap.Logger
	engine     *engine.Engine
	pool       *oracle.Pool
	dispatcher *dispatch.Dispatcher
	metrics    *metrics.Metrics

	cache     *cache.Cache
	publisher events.Publisher
	embedder  *oracle.GeminiProvider
}

func newRuntime(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry := engine.DefaultRegistry()
	if cfg.RegistryPath != "" {
		r, err := engine.LoadRegistry(cfg.RegistryPath)
		if err != nil {
			return nil, err
		}
		registry = r
	}

	provider := cfg.SelectedProvider
	keys := cfg.APIKeys(provider)
	if len(keys) == 0 {
		return nil, fmt.Errorf("no API keys for %s; run 'clauseguard config setup' or set the provider's *_API_KEYS variable", provider)
	}
	pool, err := oracle.NewPoolFromKeys(ctx, oracle.ProviderConfig{
		Name:        provider,
		Model:       cfg.SelectedModel,
		BaseURL:     cfg.Providers[provider].BaseURL,
		Temperature: cfg.Analysis.Temperature,
	}, keys, registry)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:       cfg,
		logger:    logger,
		engine:    engine.NewEngine(registry, logging.Named(logger, "engine")),
		pool:      pool,
		metrics:   metrics.New(),
		publisher: events.Noop{},
	}
	dc := dispatch.NewDispatcherContext(pool, cfg.Analysis.MaxConcurrentLLM, dispatch.RetryPolicy{
		Attempts:  cfg.Analysis.RetryAttempts,
		BaseDelay: cfg.Analysis.RetryBase(),
	})
	rt.dispatcher = dispatch.New(dc, logging.Named(logger, "dispatch"), dispatch.WithRecorder(rt.metrics))
	logger.Debug("oracle pool ready",
		zap.String("provider", provider),
		zap.String("model", cfg.SelectedModel),
		zap.Int("credentials", pool.Len()))
	return rt, nil
}

// analyzer opens the cache and event publisher and builds the pipeline.
func (rt *runtime) analyzer(ctx context.Context) (*pipeline.Analyzer, error) {
	cc := rt.cfg.Cache
	store, err := cache.OpenStore(ctx, cache.StoreConfig{
		Backend:    cc.Backend,
		SQLitePath: cc.SQLitePath,
		Arango: cache.ArangoConfig{
			URL:      cc.ArangoURL,
			User:     cc.ArangoUser,
			Password: cc.ArangoPassword,
			Database: cc.ArangoDatabase,
		},
	}, logging.Named(rt.logger, "cache"))
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	rt.cache = cache.New(store, cc.TTL, cache.WithLogger(logging.Named(rt.logger, "cache")))

	if url := rt.cfg.Events.NATSURL; url != "" {
		p, err := events.NewNATSPublisher(url, rt.cfg.Events.Subject, logging.Named(rt.logger, "events"))
		if err != nil {
			rt.logger.Warn("verdict events disabled", zap.Error(err))
		} else {
			rt.publisher = p
		}
	}

	ch, err := chunker.New(chunker.Config{
		ChunkSize:    rt.cfg.Analysis.ChunkSize,
		ChunkOverlap: rt.cfg.Analysis.ChunkOverlap,
	})
	if err != nil {
		return nil, err
	}
	fetcher := fetch.NewFetcher(fetch.Config{
		Timeout:   rt.cfg.Fetch.Timeout,
		UserAgent: rt.cfg.Fetch.UserAgent,
		MaxBytes:  rt.cfg.Fetch.MaxBytes,
	}, logging.Named(rt.logger, "fetch"))

	return pipeline.NewAnalyzer(fetcher, ch, rt.dispatcher, rt.engine,
		pipeline.WithBatchSize(rt.cfg.Analysis.BatchSize),
		pipeline.WithCache(rt.cache),
		pipeline.WithPublisher(rt.publisher),
		pipeline.WithRecorder(rt.metrics),
		pipeline.WithLogger(logging.Named(rt.logger, "pipeline")),
	), nil
}

// assistant loads the QA index. Vector search is used when the index carries
// embeddings and a Gemini key is available; lexical search otherwise.
func (rt *runtime) assistant(ctx context.Context) (*qa.Assistant, error) {
	path := rt.cfg.Retrieval.IndexPath
	if path == "" {
		return nil, errors.New("no QA index configured; set retrieval.index_path or NDPA_QA_INDEX_PATH")
	}
	ix, err := retrieval.LoadIndex(path)
	if err != nil {
		return nil, err
	}

	var embedder retrieval.Embedder
	if ix.HasEmbeddings() {
		if e, err := rt.geminiEmbedder(ctx, ix.Model); err != nil {
			rt.logger.Warn("falling back to lexical search", zap.Error(err))
		} else {
			embedder = e
		}
	}
	searcher := retrieval.NewSearcher(ix, embedder)
	return qa.NewAssistant(rt.dispatcher, searcher, rt.cfg.Retrieval.TopK, logging.Named(rt.logger, "qa")), nil
}

func (rt *runtime) geminiEmbedder(ctx context.Context, model string) (*retrieval.GeminiEmbedder, error) {
	if model == "" {
		model = rt.cfg.Retrieval.EmbeddingModel
	}
	keys := rt.cfg.APIKeys("gemini")
	if len(keys) == 0 {
		return nil, errors.New("embeddings need a gemini API key")
	}
	p, err := oracle.NewGeminiProvider(ctx, keys[0], "")
	if err != nil {
		return nil, err
	}
	rt.embedder = p
	return retrieval.NewGeminiEmbedder(p.Client(), model), nil
}

func (rt *runtime) Close() error {
	var errs []error
	if rt.cache != nil {
		errs = append(errs, rt.cache.Close())
	}
	if rt.embedder != nil {
		errs = append(errs, rt.embedder.Close())
	}
	errs = append(errs, rt.publisher.Close(), rt.pool.Close())
	return errors.Join(errs...)
}
