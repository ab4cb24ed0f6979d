package normalize

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wattlab/price-updater/internal/models"
)

// Ordered price selectors covering the known product-page layout variants.
// The first selector that yields text wins; the order matters because the
// earlier ones are the more specific current layouts.
var priceSelectors = []string{
	".a-price-whole",
	".a-price .a-offscreen",
	".a-price-current .a-offscreen",
	"#priceblock_dealprice",
	"#priceblock_ourprice",
	".a-price.a-text-price.a-size-medium.apexPriceToPay .a-offscreen",
	".a-price-symbol + .a-price-whole",
	"[data-a-price-whole]",
	".a-price-range .a-offscreen",
}

var titleSelectors = []string{
	"#productTitle",
	".product-title",
	"h1.a-size-large",
}

var (
	numberPattern   = regexp.MustCompile(`\d+\.?\d*`)
	currencyPattern = regexp.MustCompile(`[£€$¥]`)
)

// FromHTML maps a raw product page to a PriceResult. A page the selectors
// cannot read is Unpriced, not Failed: the upstream did answer, the layout
// just stopped matching.
func FromHTML(raw []byte, fallbackTitle string) models.PriceResult {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return models.Failed(fmt.Sprintf("parse document: %v", err))
	}

	title := extractTitle(doc, fallbackTitle)

	for _, selector := range priceSelectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text == "" {
			continue
		}
		amount, currency, ok := parsePriceText(text)
		if ok {
			return models.Resolved(amount, currency, formatDisplay(amount, currency), title)
		}
	}

	return models.Unpriced(title)
}

func extractTitle(doc *goquery.Document, fallback string) string {
	for _, selector := range titleSelectors {
		if title := strings.TrimSpace(doc.Find(selector).First().Text()); title != "" {
			return title
		}
	}
	if fallback != "" {
		return fallback
	}
	return "Unknown Product"
}

// parsePriceText extracts the first decimal-number-shaped substring after
// stripping thousands separators, plus any leading currency symbol.
func parsePriceText(text string) (float64, string, bool) {
	cleaned := strings.ReplaceAll(text, ",", "")
	match := numberPattern.FindString(cleaned)
	if match == "" {
		return 0, "", false
	}

	amount, err := strconv.ParseFloat(match, 64)
	if err != nil || amount <= 0 {
		return 0, "", false
	}

	currency := "$"
	if sym := currencyPattern.FindString(text); sym != "" {
		currency = sym
	}
	return amount, currency, true
}

func formatDisplay(amount float64, currency string) string {
	return fmt.Sprintf("%s%.2f", currency, amount)
}
