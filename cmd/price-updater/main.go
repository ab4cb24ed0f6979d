package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/wattlab/price-updater/internal/catalog"
	"github.com/wattlab/price-updater/internal/config"
	"github.com/wattlab/price-updater/internal/models"
	"github.com/wattlab/price-updater/internal/output"
	"github.com/wattlab/price-updater/internal/pipeline"
	"github.com/wattlab/price-updater/internal/upstream"
	"github.com/wattlab/price-updater/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("invalid configuration: %v", err)
		return 1
	}

	runID := uuid.NewString()
	logg := logger.New(cfg.Logging.Level, cfg.Logging.Format).With("run_id", runID)
	logg.Info("starting price updater", "mode", cfg.Mode, "catalog", cfg.Catalog.Path)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	entries, err := catalog.NewLoader(cfg.Catalog, logg).Load()
	if err != nil {
		logg.Error("catalog unusable", "error", err)
		return 1
	}

	queries := catalog.BuildQueries(entries, logg)
	if len(queries) == 0 {
		logg.Error("no entries with a resolvable identifier")
		return 1
	}
	logg.Info("queries resolved", "usable", len(queries), "dropped", len(entries)-len(queries))

	scheduler := pipeline.NewScheduler(cfg.Fetcher, cfg.API, logg)

	var results []models.PriceResult
	switch cfg.Mode {
	case config.ModeAPI:
		client := upstream.NewAPIClient(cfg.API, nil, logg)
		results = scheduler.RunBatches(ctx, queries, client)
	default:
		client := upstream.NewPageFetcher(cfg.Fetcher, nil, logg)
		results = scheduler.RunPages(ctx, queries, client)
	}

	rs, err := pipeline.Aggregate(queries, results)
	if err != nil {
		logg.Error("aggregation failed", "error", err)
		return 1
	}

	now := time.Now()
	feed := output.BuildFeed(rs, runID, now)
	if err := output.WriteFeed(cfg.Output.FeedPath, feed); err != nil {
		logg.Error("failed to write feed", "error", err)
		return 1
	}
	logg.Info("feed written", "path", cfg.Output.FeedPath, "products", len(feed.Products))

	if cfg.Output.HTMLPath != "" {
		if err := output.PatchHTML(cfg.Output.HTMLPath, rs, now, logg); err != nil {
			logg.Error("failed to update html", "error", err)
			return 1
		}
	}

	logSummary(logg, rs)

	if rs.Summary.Total == 0 {
		return 1
	}
	return 0
}

func logSummary(logg *slog.Logger, rs models.ResultSet) {
	unpriced := rs.Summary.Total - rs.Summary.Succeeded - rs.Summary.Failed
	logg.Info("run complete",
		"total", rs.Summary.Total,
		"succeeded", rs.Summary.Succeeded,
		"unpriced", unpriced,
		"failed", rs.Summary.Failed,
	)

	for reason, count := range pipeline.ErrorHistogram(rs) {
		logg.Warn("failure reason", "reason", reason, "count", count)
	}
}
