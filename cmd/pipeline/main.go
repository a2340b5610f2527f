package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"conversation-ai-core/pkg/analyzer"
	"conversation-ai-core/pkg/config"
	"conversation-ai-core/pkg/escalation"
	"conversation-ai-core/pkg/events"
	"conversation-ai-core/pkg/memory"
	"conversation-ai-core/pkg/metrics"
	"conversation-ai-core/pkg/pipeline"
	"conversation-ai-core/pkg/redisclient"
	"conversation-ai-core/pkg/server"
)

func main() {
	// Local development overrides; missing .env is fine
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithField("port", cfg.Port).Info("Starting conversation AI pipeline service")

	prom := metrics.NewMetrics()
	bus := events.NewBus(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.EnableKafkaEvents {
		sink := events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaEventsTopic, logger)
		defer sink.Close()
		go sink.Run(ctx, bus.Subscribe(256))
		logger.WithField("topic", cfg.KafkaEventsTopic).Info("Forwarding pipeline events to Kafka")
	}

	var store memory.Store
	if cfg.MemoryBackend == "redis" {
		redisCfg := redisclient.DefaultConnectionConfig()
		redisCfg.URL = cfg.RedisURL

		rdb, err := redisclient.Connect(redisCfg, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer rdb.Close()

		store = memory.NewRedisStore(rdb, logger)
	} else {
		store = memory.NewInMemoryStore()
	}

	engine := escalation.NewEngine(store, bus, prom, cfg.MonitorInterval(), logger)

	orchestrator := pipeline.NewOrchestrator(cfg, pipeline.Collaborators{
		Sentiment: analyzer.NewSentimentAnalyzer(cfg.MaxConcurrent),
		Intent:    analyzer.NewIntentClassifier(cfg.MaxConcurrent),
		Responder: analyzer.NewTemplateResponder(cfg.MaxConcurrent),
		Memory:    store,
		Risk:      engine,
	}, bus, prom, logger)

	initCtx, initCancel := context.WithTimeout(ctx, 30*time.Second)
	defer initCancel()
	if err := orchestrator.Initialize(initCtx); err != nil {
		logger.WithError(err).Fatal("Failed to initialize pipeline")
	}

	srv := server.NewHTTPServer(cfg, orchestrator, engine, logger)
	go func() {
		logger.WithField("port", cfg.Port).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}
	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error during pipeline shutdown")
	}

	logger.Info("Service shutdown complete")
}
