package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/api"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/blacklist"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/config"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/extract"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/fetcher"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/monitoring"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/output"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/pipeline"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/robots"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/search"
	"github.com/Adit-Jain-srm/AI-Agent-Weekly-Discovery/internal/storage"
)

const robotsUserAgent = "Mozilla/5.0 (compatible; ai-tool-discovery/1.0)"

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}

	// Load persistent blacklist; an unreadable file is fatal before any
	// work begins.
	bl, err := blacklist.Open(cfg.BlacklistPath, cfg.BlacklistThreshold)
	if err != nil {
		logger.Fatal("could not load blacklist", zap.Error(err))
	}

	metrics := monitoring.NewMetrics()

	// Search providers, in priority order.
	searchClient := &http.Client{Timeout: 30 * time.Second}
	var providers []search.Provider
	if cfg.SerperAPIKey != "" {
		providers = append(providers, search.NewSerperProvider(cfg.SerperAPIKey, searchClient))
	}
	if cfg.SerpAPIKey != "" {
		providers = append(providers, search.NewSerpAPIProvider(cfg.SerpAPIKey, searchClient))
	}
	if len(cfg.RSSFeeds) > 0 {
		providers = append(providers, search.NewRSSProvider(cfg.RSSFeeds))
	}
	aggregator := search.NewAggregator(providers, logger)

	// Fetch layer.
	robotsCache := robots.NewCache(&http.Client{Timeout: 10 * time.Second}, robotsUserAgent, logger)
	fetchClient := &http.Client{Timeout: time.Duration(cfg.FetchTimeoutSec) * time.Second}
	fetch := fetcher.New(fetchClient, cfg.BatchSize, cfg.MaxRetries,
		time.Duration(cfg.RetryBackoffSec)*time.Second, robotsCache, bl, metrics, logger)

	// Model extraction.
	aiCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		aiCfg.BaseURL = cfg.OpenAIBaseURL
	}
	extractor := extract.New(openai.NewClientWithConfig(aiCfg), extract.Options{
		Model:       cfg.OpenAIModel,
		TruncLimit:  cfg.HTMLTruncationLen,
		Concurrency: cfg.LLMConcurrency,
		MaxRetries:  cfg.MaxRetries,
		CallTimeout: time.Duration(cfg.LLMTimeoutSec) * time.Second,
	}, metrics, logger)

	pipe := pipeline.New(aggregator, fetch, extractor, bl,
		cfg.DateWindowDays, cfg.ExcludedDomains, metrics, logger)

	// Optional storage layer.
	var pgStore *storage.PostgresStore
	if cfg.PostgresURL != "" {
		pgStore, err = storage.NewPostgresStore(cfg.PostgresURL)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pgStore.Close()
		pipe.WithSink(pgStore)
	}
	var redisStore *storage.RedisStore
	if cfg.RedisAddr != "" {
		redisStore = storage.NewRedisStore(cfg.RedisAddr)
		pipe.WithSeenStore(redisStore, time.Duration(cfg.DeduplicationDays)*24*time.Hour)
	}

	// Optional metrics/health server for interval mode.
	var server *api.Server
	if cfg.MetricsAddr != "" {
		server = api.NewServer(cfg.MetricsAddr, pgStore, redisStore, logger)
		go func() {
			if err := server.Start(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("could not start server", zap.Error(err))
			}
		}()
		logger.Info("metrics server started", zap.String("addr", cfg.MetricsAddr))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("shutting down...")
		cancel()
	}()

	runOnce := func() {
		tools, summary, err := pipe.Run(ctx)
		if err != nil {
			metrics.IncRun("error")
		} else {
			metrics.IncRun("ok")
		}
		if server != nil {
			server.SetLastRun(summary)
		}
		output.PrintSummary(os.Stdout, tools, summary)
		if cfg.TeamsWebhookURL != "" {
			sender := output.NewWebhookSender(cfg.TeamsWebhookURL, nil, logger)
			sender.SendAll(ctx, tools)
		}
	}

	runOnce()
	if cfg.RunIntervalHours > 0 {
		ticker := time.NewTicker(time.Duration(cfg.RunIntervalHours) * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				runOnce()
			case <-ctx.Done():
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				if server != nil {
					if err := server.Shutdown(shutdownCtx); err != nil {
						logger.Error("server forced to shutdown", zap.Error(err))
					}
				}
				logger.Info("discovery loop exiting")
				return
			}
		}
	}
}
