package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"channel-insight/internal/config"
	"channel-insight/internal/domain/ports/adapter"
	"channel-insight/internal/domain/ports/repository"
	"channel-insight/internal/infra/adapters/youtube"
	pg "channel-insight/internal/infra/db/postgres"
	"channel-insight/internal/infra/logging"
	"channel-insight/internal/infra/metrics"
	"channel-insight/internal/infra/rabbitmq"
	red "channel-insight/internal/infra/redis"
	"channel-insight/internal/infra/store"
	"channel-insight/internal/infra/web"
	"channel-insight/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (fake video source)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Job store ----
	var jobs repository.JobStore
	switch cfg.Store.Backend {
	case "redis":
		cli, err := red.NewClient(ctx, &cfg.Store.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer cli.Close()
		jobs = red.NewJobStore(cli, cfg.Store.Redis.TTL)
	case "postgres":
		pool, err := pg.NewPgxPool(ctx, cfg.Store.Postgres.URL, 10)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()
		pgStore := pg.NewJobStore(pool)
		if err := pgStore.Schema(ctx); err != nil {
			log.Fatalf("postgres schema: %v", err)
		}
		jobs = pgStore
	default:
		jobs = store.NewMemoryJobStore()
	}
	logger.Info().Str("backend", cfg.Store.Backend).Msg("job store ready")

	// ---- Broker ----
	mq, err := rabbitmq.Dial(cfg.AMQP.URL, cfg.AMQP.PublishTimeout, cfg.AMQP.MaxRetries, logger)
	if err != nil {
		log.Fatalf("rabbitmq: %v", err)
	}
	defer mq.Close()

	// ---- Video source ----
	var source adapter.VideoSource
	if cfg.Runtime.Dev && cfg.YouTube.APIKey == "" {
		logger.Info().Msg("video source: noop (dev mode)")
		source = youtube.NewNoopSource(3)
	} else {
		source, err = youtube.NewDataAPISource(cfg.YouTube.APIKey, cfg.YouTube.MaxVideos, cfg.YouTube.MaxComments)
		if err != nil {
			log.Fatalf("youtube source: %v", err)
		}
	}

	// ---- Use cases ----
	uc := usecase.NewAnalysisUseCase(jobs, source, mq, cfg.AMQP.WorkQueue, logger)
	agg := usecase.NewAggregator(jobs, mq, cfg.AMQP.ResultsQueue, logger)

	// The aggregator owns all event-driven job mutation; keep exactly one.
	go func() {
		for {
			err := agg.Run(ctx)
			if ctx.Err() != nil {
				return
			}
			logger.Error().Err(err).Msg("aggregator stopped, restarting")
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				return
			}
		}
	}()

	// ---- HTTP ----
	srv := web.NewServer(uc, cfg.HTTP.BaseURL, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}
