package pipeline

import (
	"context"
	"log/slog"

	"github.com/wattlab/price-updater/internal/config"
	"github.com/wattlab/price-updater/internal/models"
	"github.com/wattlab/price-updater/internal/normalize"
	"github.com/wattlab/price-updater/internal/ratelimit"
)

// PageClient fetches one product page, applying its own pacing and retry
// budget internally.
type PageClient interface {
	Fetch(ctx context.Context, asin, directURL string) ([]byte, error)
}

// BatchClient fetches one batch of identifiers in a single upstream call.
type BatchClient interface {
	FetchBatch(ctx context.Context, asins []string) ([]byte, error)
}

// Scheduler drives an upstream client over the full ordered query sequence.
// It never parallelizes: one in-flight request at a time is the point, not
// a limitation. Every query yields exactly one result, in catalog order.
type Scheduler struct {
	fetcher config.FetcherConfig
	api     config.APIConfig
	logger  *slog.Logger
}

func NewScheduler(fetcher config.FetcherConfig, api config.APIConfig, logger *slog.Logger) *Scheduler {
	return &Scheduler{fetcher: fetcher, api: api, logger: logger}
}

// RunPages processes queries one at a time against the page fetcher. After
// every CourtesyEvery-th item an extended courtesy pause is inserted,
// independent of the fetcher's per-attempt delays. Cancellation is checked
// before each request and each pause; remaining queries degrade to Failed
// so counts stay conserved.
func (s *Scheduler) RunPages(ctx context.Context, queries []models.PriceQuery, client PageClient) []models.PriceResult {
	results := make([]models.PriceResult, 0, len(queries))

	for i, q := range queries {
		if ctx.Err() != nil {
			return s.fillCancelled(ctx, queries, results)
		}

		s.logger.Info("processing product", "asin", q.ASIN, "position", i+1, "total", len(queries))

		body, err := client.Fetch(ctx, q.ASIN, q.Entry.SourceURL)
		if err != nil {
			s.logger.Error("fetch failed after retries", "asin", q.ASIN, "error", err)
			results = append(results, models.Failed(err.Error()))
		} else {
			results = append(results, normalize.FromHTML(body, q.Entry.Attr("title")))
		}

		if (i+1)%s.fetcher.CourtesyEvery == 0 && i+1 < len(queries) {
			pause := ratelimit.Jitter(s.fetcher.CourtesyMin, s.fetcher.CourtesyMax)
			s.logger.Info("courtesy pause", "after_items", i+1, "pause", pause)
			if err := ratelimit.Sleep(ctx, pause); err != nil {
				return s.fillCancelled(ctx, queries, results)
			}
		}
	}

	return results
}

// RunBatches groups queries into fixed-size batches in catalog order. A
// batch-level failure yields a Failed result for every identifier in that
// batch; a parsed response is normalized per item, so partial batch success
// is preserved.
func (s *Scheduler) RunBatches(ctx context.Context, queries []models.PriceQuery, client BatchClient) []models.PriceResult {
	results := make([]models.PriceResult, 0, len(queries))

	batches := Partition(queries, s.api.BatchSize)
	for bi, batch := range batches {
		if ctx.Err() != nil {
			return s.fillCancelled(ctx, queries, results)
		}

		asins := make([]string, len(batch))
		fallbackTitles := make(map[string]string, len(batch))
		for i, q := range batch {
			asins[i] = q.ASIN
			fallbackTitles[q.ASIN] = q.Entry.Attr("title")
		}

		s.logger.Info("processing batch", "batch", bi+1, "batches", len(batches), "items", len(batch))

		body, err := client.FetchBatch(ctx, asins)
		if err != nil {
			s.logger.Error("batch failed", "batch", bi+1, "error", err)
			for range batch {
				results = append(results, models.Failed(err.Error()))
			}
		} else {
			perItem := normalize.FromAPIResponse(body, asins, fallbackTitles)
			for _, q := range batch {
				results = append(results, perItem[q.ASIN])
			}
		}

		if bi+1 < len(batches) {
			if err := ratelimit.Sleep(ctx, s.api.BatchDelay); err != nil {
				return s.fillCancelled(ctx, queries, results)
			}
		}
	}

	return results
}

// Partition splits queries into ordered batches of at most size items.
func Partition(queries []models.PriceQuery, size int) [][]models.PriceQuery {
	if size < 1 {
		size = 1
	}
	var batches [][]models.PriceQuery
	for start := 0; start < len(queries); start += size {
		end := start + size
		if end > len(queries) {
			end = len(queries)
		}
		batches = append(batches, queries[start:end])
	}
	return batches
}

func (s *Scheduler) fillCancelled(ctx context.Context, queries []models.PriceQuery, results []models.PriceResult) []models.PriceResult {
	reason := "run cancelled"
	if err := ctx.Err(); err != nil {
		reason = "run cancelled: " + err.Error()
	}
	for len(results) < len(queries) {
		results = append(results, models.Failed(reason))
	}
	return results
}
