package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wattlab/price-updater/internal/models"
)

// Feed is the JSON feed's documented, stable shape: a top-level object with
// run metadata, the summary, and one products entry per pipeline query.
// Failed items are included and tagged, never dropped.
type Feed struct {
	RunID       string         `json:"run_id"`
	GeneratedAt string         `json:"generated_at"`
	Summary     models.Summary `json:"summary"`
	Products    []FeedProduct  `json:"products"`
}

type FeedProduct struct {
	ASIN         string            `json:"asin"`
	Title        string            `json:"title"`
	Price        *float64          `json:"price"` // null when not resolved
	DisplayPrice string            `json:"display_price,omitempty"`
	Currency     string            `json:"currency,omitempty"`
	Status       string            `json:"status"`
	Error        string            `json:"error,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	LastUpdated  string            `json:"last_updated"`
}

// BuildFeed converts a ResultSet to the feed shape. Timestamps are UTC
// ISO-8601.
func BuildFeed(rs models.ResultSet, runID string, now time.Time) Feed {
	stamp := now.UTC().Format(time.RFC3339)

	feed := Feed{
		RunID:       runID,
		GeneratedAt: stamp,
		Summary:     rs.Summary,
		Products:    make([]FeedProduct, len(rs.Rows)),
	}

	for i, row := range rs.Rows {
		p := FeedProduct{
			ASIN:        row.ASIN,
			Title:       row.Result.Title,
			Status:      string(row.Result.Status),
			Attributes:  row.Entry.Attributes,
			LastUpdated: stamp,
		}
		switch row.Result.Status {
		case models.StatusResolved:
			amount := row.Result.Amount
			p.Price = &amount
			p.DisplayPrice = row.Result.DisplayAmount
			p.Currency = row.Result.Currency
		case models.StatusFailed:
			p.Error = row.Result.Reason
			p.Title = row.Entry.Attr("title")
		}
		if p.Title == "" {
			p.Title = "Product " + row.ASIN
		}
		feed.Products[i] = p
	}

	return feed
}

// WriteFeed serializes the feed to path, creating parent directories as
// needed. A valid artifact is always produced, even when every item failed.
func WriteFeed(path string, feed Feed) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(feed, "", "  ")
	if err != nil {
		return fmt.Errorf("encode feed: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write feed: %w", err)
	}
	return nil
}
