package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/concierge-labs/member-qa/internal/analytics"
	"github.com/concierge-labs/member-qa/internal/corpus"
	"github.com/concierge-labs/member-qa/internal/qa"
	"github.com/concierge-labs/member-qa/internal/qa/cache"
	"github.com/concierge-labs/member-qa/internal/qa/handler"
	"github.com/concierge-labs/member-qa/pkg/config"
	"github.com/concierge-labs/member-qa/pkg/health"
	"github.com/concierge-labs/member-qa/pkg/kafka"
	"github.com/concierge-labs/member-qa/pkg/logger"
	"github.com/concierge-labs/member-qa/pkg/metrics"
	"github.com/concierge-labs/member-qa/pkg/postgres"
	pkgredis "github.com/concierge-labs/member-qa/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting member-qa service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := corpus.Resolve(cfg.Corpus)
	if err != nil {
		slog.Error("failed to resolve corpus source", "error", err)
		os.Exit(1)
	}
	svc := qa.NewService(cfg, source, slog.Default().With("component", "qa-service"))

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	if cfg.Corpus.LoadOnStart {
		snap, err := svc.Refresh(ctx)
		if err != nil {
			slog.Warn("initial corpus load failed, starting with an empty snapshot", "error", err)
		} else {
			slog.Info("corpus loaded", "documents", snap.Documents(), "version", snap.Version)
			if m != nil {
				m.SnapshotDocuments.Set(float64(snap.Documents()))
				m.SnapshotTerms.Set(float64(snap.Index.Terms()))
			}
		}
	}

	var answerCache *cache.AnswerCache
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, answer caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		answerCache = cache.New(redisClient, cfg.Redis.CacheTTL, slog.Default().With("component", "answer-cache"))
		slog.Info("answer cache enabled",
			"addr", cfg.Redis.Addr,
			"ttl", cfg.Redis.CacheTTL,
		)
	}

	var tracker analytics.Tracker = analytics.NopTracker{}
	var analyticsH *analytics.Handler
	var pgClient *postgres.Client

	if cfg.Analytics.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QuestionEvents)
		defer producer.Close()

		if cfg.Analytics.BatchSize > 0 {
			batch := analytics.NewBatchCollector(producer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
			batch.Start(ctx)
			defer batch.Close()
			tracker = batch
		} else {
			collector := analytics.NewCollector(producer, cfg.Analytics.BufferSize)
			collector.Start(ctx)
			defer collector.Close()
			tracker = collector
		}
		slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.QuestionEvents)

		aggregator := analytics.NewAggregator()
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.QuestionEvents, analytics.HandleEvent(aggregator))
		defer consumer.Close()
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("analytics consumer error", "error", err)
			}
		}()
		slog.Info("analytics aggregator started")

		var store *analytics.Store
		if cfg.Analytics.PersistSnapshots {
			pg, err := postgres.New(cfg.Postgres)
			if err != nil {
				slog.Warn("postgres unavailable, snapshot persistence disabled", "error", err)
			} else {
				defer pg.Close()
				pgClient = pg
				store = analytics.NewStore(pg)
				go store.StartPeriodicSave(ctx, aggregator, cfg.Analytics.SnapshotInterval)
				slog.Info("analytics snapshot persistence enabled", "interval", cfg.Analytics.SnapshotInterval)
			}
		}
		analyticsH = analytics.NewHandler(aggregator, store)
	}

	checker := health.NewChecker()
	checker.Register("snapshot", func(ctx context.Context) health.ComponentHealth {
		snap := svc.Snapshot()
		if snap.Version == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "no corpus snapshot loaded"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents", snap.Documents())}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if pgClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := pgClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := handler.New(svc, answerCache, tracker, m)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.Router(cfg.Server, h, analyticsH, checker, m),
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

	slog.Info("member-qa service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("member-qa service stopped")
}
