package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jaelee191/interview-app-sub001/internal/crawl"
	"github.com/jaelee191/interview-app-sub001/internal/jobs"
	"github.com/jaelee191/interview-app-sub001/internal/store"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired cache entries and old crawled items",
	RunE:  runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	out := cmd.OutOrStdout()
	postings, companies := buildCaches(cfg, sqlStore, logger)
	for _, c := range []jobs.Sweeper{postings, companies} {
		n, err := c.Sweep(ctx)
		if err != nil {
			logger.Error("sweep failed", "class", c.Class(), "error", err)
			continue
		}
		fmt.Fprintf(out, "%s: removed %d expired entries\n", c.Class(), n)
	}

	// Purging needs no fetcher.
	purged, err := crawl.NewWorker(nil, sqlStore, cfg.Crawler.Retention, logger).Purge(ctx)
	if err != nil {
		return err
	}
	remaining, err := sqlStore.CountItems(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "crawled items: removed %d, %d remaining\n", purged, remaining)
	return nil
}
