package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"channel-insight/internal/config"
	"channel-insight/internal/infra/adapters/ai"
	"channel-insight/internal/infra/logging"
	"channel-insight/internal/infra/metrics"
	"channel-insight/internal/infra/rabbitmq"
	"channel-insight/internal/infra/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop analyzer fallback)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Analyzer provider (OpenAI -> Gemini failover) ----
	var providers []ai.Provider
	if cfg.AI.OpenAIKey != "" {
		p, err := ai.NewOpenAIProvider(cfg.AI.OpenAIKey, cfg.AI.DefaultModel)
		if err != nil {
			log.Fatalf("openai provider: %v", err)
		}
		providers = append(providers, p)
	}
	if cfg.AI.GeminiKey != "" {
		geminiModel := ""
		if strings.HasPrefix(cfg.AI.DefaultModel, "gemini") {
			geminiModel = cfg.AI.DefaultModel
		}
		p, err := ai.NewGeminiProvider(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, geminiModel)
		if err != nil {
			log.Fatalf("gemini provider: %v", err)
		}
		providers = append(providers, p)
	}

	var provider ai.Provider
	switch len(providers) {
	case 0:
		if !cfg.Runtime.Dev {
			log.Fatalf("no AI provider configured: set ai.openai_key or ai.gemini_key in %s", *cfgPath)
		}
		logger.Info().Msg("analyzer: noop (dev mode)")
		provider = ai.NewNoopProvider()
	case 1:
		provider = providers[0]
	default:
		provider = ai.NewFailover(providers...)
	}
	provider = ai.NewLimited(provider, cfg.AI.ConcurrentLimit)
	analyzer := ai.NewAnalyzer(provider, cfg.AI.DefaultModel, cfg.AI.PromptBudget, logger)

	// ---- Graceful shutdown ----
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		<-sigc
		logger.Info().Msg("shutdown requested")
		cancel()
	}()

	// ---- Consume loop with broker reconnect ----
	for {
		mq, err := rabbitmq.Dial(cfg.AMQP.URL, cfg.AMQP.PublishTimeout, cfg.AMQP.MaxRetries, logger)
		if err != nil {
			logger.Error().Err(err).Msg("broker dial failed, retrying")
		} else {
			proc := worker.NewProcessor(cfg.AMQP.WorkQueue, cfg.AMQP.ResultsQueue, mq, mq, analyzer, logger)
			err = proc.Run(ctx)
			_ = mq.Close()
			if ctx.Err() != nil {
				logger.Info().Msg("worker stopped")
				return
			}
			logger.Error().Err(err).Msg("consume loop ended, reconnecting")
		}
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
			return
		}
	}
}
