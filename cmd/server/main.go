// Command server starts the CV match advisor HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/ai/real"
	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/docrender"
	httpserver "github.com/fairyhunter13/cv-match-advisor/internal/adapter/httpserver"
	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/observability"
	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/session"
	tikaext "github.com/fairyhunter13/cv-match-advisor/internal/adapter/textextractor/tika"
	"github.com/fairyhunter13/cv-match-advisor/internal/app"
	"github.com/fairyhunter13/cv-match-advisor/internal/config"
	"github.com/fairyhunter13/cv-match-advisor/internal/rewrite"
	"github.com/fairyhunter13/cv-match-advisor/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	observability.SetupLogger(cfg, "server")
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer func() { _ = rdb.Close() }()

	upRepo := postgres.NewUploadRepo(pool)
	jobRepo := postgres.NewJobRepo(pool)
	resRepo := postgres.NewResultRepo(pool)
	sessions := session.New(rdb, cfg.SessionTTL)

	producer, err := redpanda.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		slog.Error("redpanda producer connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer producer.Close()

	aiClient := real.New(cfg)
	ext := tikaext.New(cfg.TikaURL)

	engine := &rewrite.Engine{
		AI:              aiClient,
		Renderer:        docrender.New(),
		OutputDir:       cfg.RewriteOutputDir,
		MaxRounds:       cfg.MaxFeedbackRounds,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}

	ingestSvc := usecase.NewIngestService(upRepo, ext, cfg.MaxUploadMB)
	evalSvc := usecase.NewEvaluateService(jobRepo, producer)
	resultSvc := usecase.NewResultService(jobRepo, resRepo)
	rewriteSvc := usecase.NewRewriteService(jobRepo, resRepo, sessions, engine)

	dbCheck, redisCheck, tikaCheck := app.BuildReadinessChecks(cfg, pool, rdb)
	srv := httpserver.NewServer(cfg, ingestSvc, evalSvc, resultSvc, rewriteSvc, dbCheck, redisCheck, tikaCheck)
	handler := otelhttp.NewHandler(app.BuildRouter(cfg, srv), "http.server")

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
