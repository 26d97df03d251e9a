// Command worker consumes evaluation jobs from the queue and runs the
// evaluation pipeline.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/ai/real"
	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/observability"
	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/cv-match-advisor/internal/config"
	"github.com/fairyhunter13/cv-match-advisor/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	observability.SetupLogger(cfg, "worker")
	observability.InitMetrics()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9090", mux); err != nil {
			slog.Error("worker metrics server error", slog.Any("error", err))
		}
	}()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	slog.Info("starting worker", slog.String("env", cfg.AppEnv))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("database connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	upRepo := postgres.NewUploadRepo(pool)
	jobRepo := postgres.NewJobRepo(pool)
	resRepo := postgres.NewResultRepo(pool)

	guidance, err := config.LoadArchetypeGuidance()
	if err != nil {
		slog.Error("archetype guidance load failed", slog.Any("error", err))
		os.Exit(1)
	}

	runner := pipeline.NewRunner(real.New(cfg), cfg, guidance)
	handler := redpanda.NewEvaluationHandler(upRepo, jobRepo, resRepo, runner)

	consumer, err := redpanda.NewConsumer(cfg.KafkaBrokers, "cv-match-advisor-workers", handler, cfg.ConsumerMaxConcurrency)
	if err != nil {
		slog.Error("redpanda consumer init failed", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("worker started, waiting for jobs")
	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("consumer stopped", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("worker stopped")
}
