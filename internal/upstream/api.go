package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/wattlab/price-updater/internal/config"
)

const (
	apiPath      = "/paapi5/getitems"
	apiTarget    = "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.GetItems"
	apiService   = "ProductAdvertisingAPI"
	maxBatchSize = 10
)

// defaultResources are the response fields requested per batch: enough for
// price and title resolution, nothing more.
var defaultResources = []string{
	"ItemInfo.Title",
	"Offers.Listings.Price",
	"Offers.Summaries.LowestPrice",
}

// getItemsRequest is the GetItems request body.
type getItemsRequest struct {
	ItemIds     []string `json:"ItemIds"`
	Resources   []string `json:"Resources"`
	PartnerTag  string   `json:"PartnerTag"`
	PartnerType string   `json:"PartnerType"`
	Marketplace string   `json:"Marketplace"`
}

// APIClient issues signed Product Advertising API batch requests. Unlike
// the page fetcher it performs no retries: a failed signed call must not be
// replayed with a stale timestamp, so batch-level retry policy belongs to
// the scheduler.
type APIClient struct {
	cfg    config.APIConfig
	client *http.Client
	signer signer
	logger *slog.Logger
	now    func() time.Time
}

func NewAPIClient(cfg config.APIConfig, client *http.Client, logger *slog.Logger) *APIClient {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &APIClient{
		cfg:    cfg,
		client: client,
		signer: signer{
			accessKey: cfg.AccessKey,
			secretKey: cfg.SecretKey,
			region:    cfg.Region,
			service:   apiService,
		},
		logger: logger,
		now:    time.Now,
	}
}

// FetchBatch requests up to 10 identifiers in one signed call and returns
// the raw response body for the normalizer.
func (c *APIClient) FetchBatch(ctx context.Context, asins []string) ([]byte, error) {
	if len(asins) == 0 {
		return nil, fmt.Errorf("empty batch")
	}
	if len(asins) > maxBatchSize {
		return nil, fmt.Errorf("batch of %d exceeds the upstream limit of %d", len(asins), maxBatchSize)
	}

	payload, err := json.Marshal(getItemsRequest{
		ItemIds:     asins,
		Resources:   defaultResources,
		PartnerTag:  c.cfg.PartnerTag,
		PartnerType: "Associates",
		Marketplace: c.cfg.Marketplace,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("https://%s%s", c.cfg.Host, apiPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	t := c.now()
	req.Host = c.cfg.Host
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Content-Encoding", "amz-1.0")
	req.Header.Set("X-Amz-Target", apiTarget)
	req.Header.Set("X-Amz-Date", t.UTC().Format("20060102T150405Z"))
	c.signer.sign(req, payload, t)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{Category: Transient, Err: fmt.Errorf("request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Category: Transient, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		category := Permanent
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			category = Transient
		}
		c.logger.Warn("api batch failed", "status", resp.StatusCode, "items", len(asins))
		return nil, &FetchError{
			Category:   category,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("http status %d: %s", resp.StatusCode, truncate(body, 200)),
		}
	}

	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
