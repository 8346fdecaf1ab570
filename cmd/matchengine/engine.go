package matchengine

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openincentives/matchengine"
	"github.com/openincentives/matchengine/pkg/cache"
	"github.com/openincentives/matchengine/pkg/config"
	"github.com/openincentives/matchengine/pkg/costs"
	"github.com/openincentives/matchengine/pkg/embedder"
	"github.com/openincentives/matchengine/pkg/llm"
	"github.com/openincentives/matchengine/pkg/logger"
	"github.com/openincentives/matchengine/pkg/refiner"
	"github.com/openincentives/matchengine/pkg/scorer"
	"github.com/openincentives/matchengine/pkg/telemetry"
)

// engine bundles everything the commands need to run and tear down.
type engine struct {
	matcher *matchengine.HybridMatcher
	tracker *costs.Tracker
	store   cache.Store
	llm     llm.Client
	logger  *slog.Logger
	parquet *telemetry.ParquetHandler
}

func (e *engine) close() {
	if err := e.matcher.Close(); err != nil {
		e.logger.Warn("closing embedder", "error", err)
	}
	if err := e.llm.Close(); err != nil {
		e.logger.Warn("closing llm client", "error", err)
	}
	if err := e.store.Close(); err != nil {
		e.logger.Warn("closing cache store", "error", err)
	}
	if e.parquet != nil {
		if err := e.parquet.Flush(); err != nil {
			e.logger.Warn("flushing telemetry", "error", err)
		}
	}
}

// buildEngine assembles the full pipeline from configuration.
func buildEngine(cfg *config.Config) (*engine, error) {
	log := logger.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	var parquetHandler *telemetry.ParquetHandler
	if cfg.Telemetry.ParquetPath != "" {
		h, err := telemetry.NewParquetHandler(log.Handler(), cfg.Telemetry.ParquetPath)
		if err != nil {
			return nil, fmt.Errorf("telemetry handler: %w", err)
		}
		parquetHandler = h
		log = slog.New(h)
	}

	store, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	tracker := costs.NewTracker(nil, log)

	embClient, err := embedder.NewOpenAIEmbedder(&embedder.Config{
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimensions: cfg.Embedding.Dimensions,
		BatchSize:  cfg.Embedding.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding client: %w", err)
	}
	keyed := cache.NewKeyed(store)
	cachingEmbedder := embedder.NewCachingClient(embClient, keyed, tracker, cfg.Embedding.Model)

	llmClient, err := llm.NewOpenAIClient(&llm.Config{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		MaxRetries:  cfg.LLM.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}

	var chatClient llm.Client = llmClient
	if cfg.CircuitBreaker.Enabled {
		chatClient = llm.NewCircuitBreakerClient(llmClient, llm.BreakerConfig{
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         cfg.CircuitBreaker.Interval,
			Timeout:          cfg.CircuitBreaker.Timeout,
			ReadyToTripRatio: cfg.CircuitBreaker.ReadyToTripRatio,
		}, log, "generative-refiner")
	}

	rubric := scorer.DefaultRubric()
	if cfg.RubricPath != "" {
		rubric, err = scorer.LoadRubric(cfg.RubricPath)
		if err != nil {
			return nil, fmt.Errorf("rubric: %w", err)
		}
	}

	sel := refiner.New(chatClient, keyed, tracker, cfg.LLM.Model, log)

	matcher, err := matchengine.New(&matchengine.Config{
		K1:               cfg.Pipeline.K1,
		K2:               cfg.Pipeline.K2,
		K3:               cfg.Pipeline.K3,
		MinSimilarity:    cfg.Pipeline.MinSimilarity,
		FullPoolOnNoHits: cfg.Pipeline.FullPoolOnNoHits,
		Weights: matchengine.Weights{
			Semantic:      cfg.Pipeline.Weights.Semantic,
			Deterministic: cfg.Pipeline.Weights.Deterministic,
			Generative:    cfg.Pipeline.Weights.Generative,
		},
		Parallelism: cfg.Pipeline.Parallelism,
		CallTimeout: time.Duration(cfg.Pipeline.CallTimeoutSeconds) * time.Second,
	}, cachingEmbedder, sel, scorer.New(rubric), tracker, log)
	if err != nil {
		return nil, err
	}

	return &engine{
		matcher: matcher,
		tracker: tracker,
		store:   store,
		llm:     chatClient,
		logger:  log,
		parquet: parquetHandler,
	}, nil
}

// buildStore picks the cache backend: badger on disk, badger in memory,
// or a plain map when persistence is disabled.
func buildStore(cfg *config.Config) (cache.Store, error) {
	if cfg.Cache.InMemory {
		return cache.NewBadger(cache.BadgerOptions{InMemory: true})
	}
	if cfg.Cache.Dir != "" {
		return cache.NewBadger(cache.BadgerOptions{
			Dir:        cfg.Cache.Dir,
			SyncWrites: cfg.Cache.SyncWrites,
		})
	}
	return cache.NewMemory(), nil
}
