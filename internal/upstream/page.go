package upstream

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/wattlab/price-updater/internal/config"
	"github.com/wattlab/price-updater/internal/ratelimit"
)

// PageFetcher retrieves product-detail pages over plain HTTP. Every attempt
// rotates a realistic browser header profile and is preceded by a jittered
// pacing delay; 503 responses get a longer throttle delay before the next
// attempt. The raw document body is returned untouched.
type PageFetcher struct {
	cfg    config.FetcherConfig
	client *http.Client
	pacing ratelimit.Limiter
	logger *slog.Logger
	rng    *rand.Rand
}

func NewPageFetcher(cfg config.FetcherConfig, client *http.Client, logger *slog.Logger) *PageFetcher {
	if client == nil {
		client = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   cfg.Timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}

	return &PageFetcher{
		cfg:    cfg,
		client: client,
		pacing: ratelimit.NewJitterLimiter(cfg.DelayMin, cfg.DelayMax),
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Fetch retrieves the product page for asin. A non-empty directURL (the
// affiliate link) takes precedence over the canonical product-page URL.
func (f *PageFetcher) Fetch(ctx context.Context, asin, directURL string) ([]byte, error) {
	url := directURL
	if url == "" {
		url = fmt.Sprintf("%s/dp/%s", f.cfg.BaseURL, asin)
	}

	var (
		lastErr    error
		lastStatus int
	)
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		if err := f.pacing.Wait(ctx); err != nil {
			return nil, &FetchError{Category: Transient, Err: err}
		}

		body, status, err := f.attempt(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		lastStatus = status

		if ctx.Err() != nil {
			break
		}
		if attempt == f.cfg.MaxAttempts {
			break
		}

		var delay time.Duration
		if status == http.StatusServiceUnavailable {
			delay = ratelimit.Jitter(f.cfg.ThrottleDelayMin, f.cfg.ThrottleDelayMax)
			f.logger.Warn("service unavailable, throttling", "asin", asin, "attempt", attempt, "delay", delay)
		} else {
			delay = ratelimit.Jitter(f.cfg.RetryDelayMin, f.cfg.RetryDelayMax)
			f.logger.Warn("fetch attempt failed", "asin", asin, "attempt", attempt, "error", err)
		}
		if err := ratelimit.Sleep(ctx, delay); err != nil {
			break
		}
	}

	return nil, &FetchError{Category: Transient, StatusCode: lastStatus, Err: lastErr}
}

func (f *PageFetcher) attempt(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	f.applyHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, fmt.Errorf("http status %d", resp.StatusCode)
	}

	// Accept-Encoding is set explicitly for the browser profile, so the
	// transport does not decompress for us.
	reader := io.Reader(resp.Body)
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, resp.StatusCode, fmt.Errorf("gzip body: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (f *PageFetcher) applyHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.cfg.UserAgents[f.rng.Intn(len(f.cfg.UserAgents))])
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}
