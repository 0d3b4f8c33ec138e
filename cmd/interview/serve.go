package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jaelee191/interview-app-sub001/internal/analysis"
	"github.com/jaelee191/interview-app-sub001/internal/api"
	"github.com/jaelee191/interview-app-sub001/internal/broadcast"
	"github.com/jaelee191/interview-app-sub001/internal/dispatch"
	"github.com/jaelee191/interview-app-sub001/internal/jobs"
	"github.com/jaelee191/interview-app-sub001/internal/model"
	"github.com/jaelee191/interview-app-sub001/internal/retry"
	"github.com/jaelee191/interview-app-sub001/internal/scheduler"
	"github.com/jaelee191/interview-app-sub001/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API, job dispatcher and scheduler",
	Long:  "Start the HTTP API, the queue workers and the maintenance scheduler; blocks until SIGINT/SIGTERM.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, flushTelemetry, err := setupTelemetry(ctx, cfg, logger)
	if err != nil {
		setupLogger(debug).Error("failed to set up telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := flushTelemetry(flushCtx); err != nil {
			logger.Error("telemetry shutdown", "error", err)
		}
	}()

	logger.Info("config loaded",
		"addr", cfg.Server.Addr,
		"queues", cfg.Dispatcher.Queues,
		"max_attempts", cfg.Dispatcher.MaxAttempts,
		"sources", len(cfg.EnabledSources()),
		"broadcast", cfg.Broadcast.Backend,
	)

	sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	n := setupNotifier(cfg, httpClient, logger)

	disp, err := dispatch.New(cfg.Dispatcher.Queues, retry.Policy{
		MaxAttempts: cfg.Dispatcher.MaxAttempts,
		BaseDelay:   cfg.Dispatcher.BaseDelay,
	}, n, logger)
	if err != nil {
		logger.Error("failed to create dispatcher", "error", err)
		os.Exit(1)
	}

	hub := broadcast.NewHub(cfg.Broadcast.Buffer, logger)
	var publisher model.Publisher = hub
	var relay *broadcast.PGRelay
	if cfg.Broadcast.Backend == "postgres" {
		relay, err = broadcast.NewPGRelay(cfg.Broadcast.PostgresDSN, cfg.Broadcast.Channel, hub, cfg.Broadcast.Buffer, logger)
		if err != nil {
			logger.Error("failed to create postgres relay", "error", err)
			os.Exit(1)
		}
		defer relay.Close()
		publisher = relay
	}

	postings, companies := buildCaches(cfg, sqlStore, logger)
	crawler := buildCrawler(cfg, sqlStore, logger)
	orch := analysis.New(analysis.Deps{
		Tasks:     sqlStore,
		Publisher: publisher,
		Engine:    setupEngine(cfg, logger),
		Postings:  postings,
		Companies: companies,
		Crawler:   crawler,
	}, cfg.RedirectPattern, logger)

	handlers := jobs.NewHandlers(sqlStore, orch, crawler, cfg.EnabledSources(),
		[]jobs.Sweeper{postings, companies}, disp, logger)
	if err := handlers.Register(disp); err != nil {
		logger.Error("failed to register job handlers", "error", err)
		os.Exit(1)
	}

	sched := scheduler.NewScheduler([]scheduler.Entry{
		{JobType: jobs.TypeCacheSweep, Interval: cfg.Schedule.CacheSweep},
		{JobType: jobs.TypeCrawlScheduled, Interval: cfg.Schedule.ScheduledCrawl},
	}, disp, logger)

	server := api.NewServer(jobs.NewSubmitter(sqlStore, disp, logger), sqlStore,
		broadcast.NewWSServer(hub, logger).Handler(), logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return disp.Run(gctx) })
	g.Go(func() error { return sched.Run(gctx) })
	if relay != nil {
		g.Go(func() error { return relay.Run(gctx) })
	}
	g.Go(func() error {
		logger.Info("api listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
