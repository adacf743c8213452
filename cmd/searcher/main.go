package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/document"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/feedback"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/evaluator"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/similarity"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/internal/searcher/suggest"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/retrieval-models/pkg/redis"
)

const snapshotInterval = time.Minute

func main() {
	configPath := pflag.StringP("config", "c", "configs/development.yaml", "path to config file")
	corpusDir := pflag.String("corpus", "", "corpus directory (overrides corpus.dir)")
	port := pflag.IntP("port", "p", 0, "HTTP port (overrides server.port)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *corpusDir != "" {
		cfg.Corpus.Dir = *corpusDir
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "corpus", cfg.Corpus.Dir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	snap, err := indexer.NewEngine(cfg.Tracing).Load(ctx, cfg.Corpus)
	if err != nil {
		slog.Error("failed to build index", "error", err)
		os.Exit(1)
	}
	stats := snap.Stats()
	m.DocsIndexed.Set(float64(stats.Documents))
	for _, f := range document.Fields {
		m.IndexTerms.WithLabelValues(string(f)).Set(float64(stats.Terms[f]))
	}
	if took, err := time.ParseDuration(stats.BuildDuration); err == nil {
		m.IndexBuildDuration.Observe(took.Seconds())
	}

	match, err := ranker.ParseMatchPolicy(cfg.Search.DefaultMatch)
	if err != nil {
		slog.Error("invalid search.defaultMatch", "error", err)
		os.Exit(1)
	}
	defaultModel, err := ranker.ParseModel(cfg.Search.DefaultModel)
	if err != nil {
		slog.Error("invalid search.defaultModel", "error", err)
		os.Exit(1)
	}
	registry := ranker.NewRegistry(ranker.Options{
		FuzzyThreshold:    cfg.Search.FuzzyThreshold,
		ApproximateCutoff: cfg.Search.ApproximateCutoff,
		ApproximateTopN:   cfg.Search.ApproximateTopN,
		MaxVocabularyScan: cfg.Search.MaxVocabularyScan,
		DefaultMatch:      match,
	})
	exec := executor.New(registry, executor.Config{
		DefaultLimit:  cfg.Search.DefaultLimit,
		MaxResults:    cfg.Search.MaxResults,
		SnippetLength: cfg.Search.SnippetLength,
		Timeout:       cfg.Search.QueryTimeout,
	}, m)

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		if snap.NumDocuments() > 0 {
			return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents", snap.NumDocuments())}
		}
		return health.ComponentHealth{Status: health.StatusDegraded, Message: "empty corpus"}
	})

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis, cache.CorpusVersion(snap.Documents()), m)
			checker.Register("redis", health.PingCheck(redisClient, false))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	store, db, err := feedback.OpenStore(ctx, cfg.Feedback)
	if err != nil {
		slog.Error("failed to open feedback store", "driver", cfg.Feedback.Driver, "error", err)
		os.Exit(1)
	}
	var snapshots *aggregator.Store
	if db != nil {
		checker.Register("feedback_db", health.PingCheck(db, true))
		if snapshots, err = aggregator.NewStore(ctx, db); err != nil {
			slog.Warn("analytics snapshots disabled", "error", err)
		}
	}
	feedbackSvc, err := feedback.NewService(ctx, store, m)
	if err != nil {
		slog.Error("failed to load feedback", "error", err)
		os.Exit(1)
	}
	defer feedbackSvc.Close()

	agg := analytics.NewAggregator()
	trackers := analytics.Fanout{agg}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		collector := analytics.NewBatchCollector(producer, cfg.Kafka.BatchSize, cfg.Kafka.FlushInterval)
		collector.Start(ctx)
		defer collector.Close()
		trackers = append(trackers, collector)
		slog.Info("analytics publishing enabled", "topic", cfg.Kafka.Topic)
	}
	if snapshots != nil {
		go snapshots.Run(ctx, agg, snapshotInterval)
	}

	h := handler.New(handler.Deps{
		Snapshot: snap,
		Executor: exec,
		Cache:    queryCache,
		Suggester: suggest.Suggester{
			Max:     cfg.Search.SuggestionMax,
			Cutoff:  cfg.Search.ApproximateCutoff,
			TopN:    cfg.Search.ApproximateTopN,
			Matcher: similarity.Matcher{Limit: cfg.Search.MaxVocabularyScan},
		},
		Feedback:     feedbackSvc,
		Evaluator:    evaluator.New(registry, feedbackSvc),
		Tracker:      trackers,
		Metrics:      m,
		DefaultModel: defaultModel,
	})

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	limiter := ratelimit.New(cfg.Server.RateLimit, cfg.Server.RateWindow)
	defer limiter.Close()

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins)),
		middleware.RateLimit(limiter),
		middleware.Metrics(m),
		middleware.Timeout(cfg.Server.RequestTimeout),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
