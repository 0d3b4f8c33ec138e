package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/jaelee191/interview-app-sub001/internal/ai"
	"github.com/jaelee191/interview-app-sub001/internal/cache"
	"github.com/jaelee191/interview-app-sub001/internal/config"
	"github.com/jaelee191/interview-app-sub001/internal/crawl"
	"github.com/jaelee191/interview-app-sub001/internal/model"
	"github.com/jaelee191/interview-app-sub001/internal/notifier"
	"github.com/jaelee191/interview-app-sub001/internal/ratelimit"
	"github.com/jaelee191/interview-app-sub001/internal/retry"
	"github.com/jaelee191/interview-app-sub001/internal/telemetry"
)

var (
	cfgPath string
	debug   bool
	apiURL  string
)

var rootCmd = &cobra.Command{
	Use:   "interview",
	Short: "AI interview-prep analysis pipeline",
	Long:  "Runs and talks to the async analysis pipeline: cover letter, job posting and company analyses with live progress.",
	// Default to `serve` so the bare binary runs the server.
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: INTERVIEW_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", envOr("INTERVIEW_API", "http://localhost:8080"), "API base URL for client commands")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > INTERVIEW_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = envOr("INTERVIEW_CONFIG", "config.yaml")
	}
	return config.Load(path)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// setupTelemetry installs the OTel providers when enabled and returns the
// logger to use from then on along with the flush func.
func setupTelemetry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*slog.Logger, telemetry.ShutdownFunc, error) {
	if !cfg.Telemetry.Enabled {
		return logger, func(context.Context) error { return nil }, nil
	}
	shutdown, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName:    cfg.Telemetry.ServiceName,
		MetricInterval: cfg.Telemetry.MetricInterval,
		Writer:         os.Stdout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("setting up telemetry: %w", err)
	}
	return telemetry.Logger(cfg.Telemetry.ServiceName), shutdown, nil
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

func setupEngine(cfg *config.Config, logger *slog.Logger) model.AnalysisEngine {
	if !cfg.AI.Enabled {
		logger.Info("ai disabled, using placeholder analysis")
		return ai.NewNopEngine()
	}
	httpClient := &http.Client{Timeout: cfg.AI.Timeout}
	provider := ai.NewOpenAIProvider(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, httpClient)
	logger.Info("ai enabled", "model", cfg.AI.Model, "base_url", cfg.AI.BaseURL)
	return ai.NewLLMEngine(provider, ai.Prompts, logger)
}

// buildFetcher wraps the HTTP fetcher with per-host rate limiting and retries.
func buildFetcher(cfg *config.Config, logger *slog.Logger) model.PageFetcher {
	httpClient := &http.Client{Timeout: cfg.Crawler.Timeout}
	var fetcher model.PageFetcher = crawl.NewHTTPFetcher(httpClient, cfg.Crawler.UserAgent)
	fetcher = ratelimit.NewRateLimitedFetcher(fetcher, ratelimit.NewHostRateLimiter(cfg.Crawler.MinDelay))
	if cfg.Crawler.MaxRetries > 0 {
		fetcher = retry.NewRetryFetcher(fetcher, cfg.Crawler.MaxRetries, cfg.Dispatcher.BaseDelay, logger)
	}
	return fetcher
}

func buildCrawler(cfg *config.Config, items model.ItemStore, logger *slog.Logger) *crawl.Worker {
	logger.Info("crawler configured", "min_delay", cfg.Crawler.MinDelay.String(), "max_retries", cfg.Crawler.MaxRetries)
	return crawl.NewWorker(buildFetcher(cfg, logger), items, cfg.Crawler.Retention, logger)
}

func buildCaches(cfg *config.Config, backend model.CacheBackend, logger *slog.Logger) (*cache.JobPostingCache, *cache.CompanyCache) {
	return cache.NewJobPostingCache(backend, cfg.Cache.JobPostingTTL, logger),
		cache.NewCompanyCache(backend, cfg.Cache.CompanyTTL, logger)
}
