package output

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wattlab/price-updater/internal/models"
)

// basicTemplate is synthesized when no HTML document exists yet, so the
// patcher always has a valid target.
const basicTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Price Comparison Site</title>
</head>
<body>
    <div class="container">
        <h1>Generator Price Comparison</h1>
        <p>Last updated: <span id="update-timestamp"></span></p>
        <p>Products with current prices: <span id="product-count"></span></p>
        <div id="products-container">
        </div>
    </div>
</body>
</html>
`

var numericPrice = regexp.MustCompile(`[\d.]+`)

// PatchHTML updates the static page in place: the timestamp slot, the
// product-count slot, and per-product rows located by their affiliate link.
// Only text content of the targeted elements is replaced; everything else
// in the document is left as-is.
func PatchHTML(path string, rs models.ResultSet, now time.Time, logger *slog.Logger) error {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Info("html document missing, synthesizing template", "path", path)
		content = []byte(basicTemplate)
	} else if err != nil {
		return fmt.Errorf("read html: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(content)))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}

	ensureContainer(doc)

	doc.Find("#update-timestamp").SetText(now.UTC().Format("2006-01-02 15:04:05"))

	patched := 0
	for _, row := range rs.Rows {
		if row.Result.Status != models.StatusResolved {
			continue
		}
		link := row.Entry.Attr("affiliate_link")
		if link == "" {
			link = row.Entry.SourceURL
		}
		if link == "" {
			continue
		}
		if patchRow(doc, link, row.Result) {
			patched++
		}
	}

	doc.Find("#product-count").SetText(strconv.Itoa(patched))

	html, err := doc.Html()
	if err != nil {
		return fmt.Errorf("render html: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("write html: %w", err)
	}

	logger.Info("html updated", "path", path, "patched_rows", patched)
	return nil
}

// patchRow finds the table row whose buy link matches the affiliate link
// and rewrites its price cells. Returns false when the document has no such
// row.
func patchRow(doc *goquery.Document, link string, result models.PriceResult) bool {
	var tr *goquery.Selection
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if href, ok := a.Attr("href"); ok && href == link {
			if parent := a.Closest("tr"); parent.Length() > 0 {
				tr = parent
				return false
			}
		}
		return true
	})
	if tr == nil {
		return false
	}

	if cell := tr.Find("td.price"); cell.Length() > 0 {
		cell.SetText(result.DisplayAmount)
	}

	if cell := tr.Find("td.price-per-watt"); cell.Length() > 0 {
		cell.SetText(pricePerWatt(result, tr.AttrOr("data-wattage", "")))
	}

	return true
}

// pricePerWatt derives the per-watt figure from the row's data-wattage
// attribute. Anything unparsable or zero renders as N/A.
func pricePerWatt(result models.PriceResult, wattage string) string {
	watts, err := strconv.ParseFloat(strings.TrimSpace(wattage), 64)
	if err != nil || watts <= 0 {
		return "N/A"
	}

	amount := result.Amount
	if amount == 0 {
		match := numericPrice.FindString(result.DisplayAmount)
		amount, _ = strconv.ParseFloat(match, 64)
	}
	if amount <= 0 {
		return "N/A"
	}

	return fmt.Sprintf("$%.3f", amount/watts)
}

// ensureContainer synthesizes the products container when the document
// lacks one, preferring the page's main container as the parent.
func ensureContainer(doc *goquery.Document) {
	if doc.Find("#products-container").Length() > 0 {
		return
	}

	parent := doc.Find(".container").First()
	if parent.Length() == 0 {
		parent = doc.Find("body").First()
	}
	if parent.Length() > 0 {
		parent.AppendHtml(`<div id="products-container"></div>`)
	}
}
