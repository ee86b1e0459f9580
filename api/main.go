package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/ai-news-radar/backend/internal/anthropic"
	"github.com/DeafMist/ai-news-radar/backend/internal/app"
	"github.com/DeafMist/ai-news-radar/backend/internal/config"
	"github.com/DeafMist/ai-news-radar/backend/internal/events"
	"github.com/DeafMist/ai-news-radar/backend/internal/logger"
	"github.com/DeafMist/ai-news-radar/backend/internal/metrics"
	"github.com/DeafMist/ai-news-radar/backend/internal/pipeline"
	"github.com/DeafMist/ai-news-radar/backend/internal/scheduler"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	client := anthropic.New(anthropic.Config{
		BaseURL:   cfg.APIURL,
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		Version:   cfg.APIVersion,
		MaxTokens: cfg.MaxTokens,
		RateEvery: cfg.RateInterval,
		RateBurst: cfg.RateBurst,
	}, nil, log)
	if cfg.APIKey == "" {
		log.Warn("ANTHROPIC_API_KEY is empty, requests go out unauthenticated")
	}

	opts := []pipeline.Option{
		pipeline.WithTimeout(cfg.Timeout),
		pipeline.WithObserver(metrics.New(prometheus.DefaultRegisterer)),
	}

	var (
		runsWriter    *kafka.Writer
		runsPublisher *events.Publisher
	)
	if len(cfg.KafkaBrokers) > 0 {
		runsWriter = events.NewWriter(cfg.KafkaBrokers, cfg.RunsTopic)
		runsPublisher = events.NewPublisher(runsWriter, log)
		opts = append(opts, pipeline.WithObserver(runsPublisher))
		log.Info("publishing run events", slog.String("topic", cfg.RunsTopic))
	}

	store := app.NewStore(app.State{
		Query:     cfg.DefaultQuery,
		Selection: app.Selection{Period: cfg.DefaultPeriod},
	})
	svc := app.NewService(pipeline.New(client, log, opts...), store, log)

	srv := &server{log: log, svc: svc, now: time.Now}
	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           newRouter(srv, promhttp.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// POST /news/refresh waits for the search to settle.
		WriteTimeout: cfg.Timeout + 15*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if cfg.RefreshOnStart {
		go svc.Refresh(ctx, "")
	}

	sched := scheduler.New(log)
	if cfg.RefreshSchedule != "" {
		if err := sched.Schedule(cfg.RefreshSchedule, func() { svc.Refresh(ctx, "") }); err != nil {
			log.Error("schedule refresh", slog.Any("err", err))
			os.Exit(1)
		}
		sched.Start()
	}

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
	sched.Stop(shutdownCtx)
	if runsWriter != nil {
		runsPublisher.Wait()
		if err := runsWriter.Close(); err != nil {
			log.Error("close run event writer", slog.Any("err", err))
		}
	}
}
