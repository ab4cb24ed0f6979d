package catalog

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/wattlab/price-updater/internal/models"
)

// URL shapes an ASIN can be extracted from, in precedence order: direct
// product path, legacy product-group path, query-parameter form, generic
// product path. First match wins.
var asinPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/dp/([A-Z0-9]{10})`),
	regexp.MustCompile(`/gp/product/([A-Z0-9]{10})`),
	regexp.MustCompile(`asin=([A-Z0-9]{10})`),
	regexp.MustCompile(`/product/([A-Z0-9]{10})`),
}

// IsValidASIN reports whether s is exactly 10 alphanumeric characters.
// Callers are expected to trim whitespace first.
func IsValidASIN(s string) bool {
	if len(s) != 10 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
			return false
		}
	}
	return true
}

// ExtractASIN pulls an ASIN out of a product URL. Returns "" when no
// pattern matches.
func ExtractASIN(url string) string {
	if url == "" {
		return ""
	}
	for _, pattern := range asinPatterns {
		if m := pattern.FindStringSubmatch(url); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

// Resolve determines the identifier for one catalog entry: the explicit
// ASIN field when valid, else extraction from the source URL. The second
// return value is false when neither rule yields an identifier; that is
// not an error, the caller drops the entry.
func Resolve(entry models.CatalogEntry) (string, bool) {
	if asin := strings.TrimSpace(entry.ASIN); IsValidASIN(asin) {
		return asin, true
	}
	if asin := ExtractASIN(entry.SourceURL); asin != "" {
		return asin, true
	}
	return "", false
}

// BuildQueries resolves every entry into a PriceQuery, logging and dropping
// entries without a resolvable identifier.
func BuildQueries(entries []models.CatalogEntry, logger *slog.Logger) []models.PriceQuery {
	queries := make([]models.PriceQuery, 0, len(entries))
	for i, entry := range entries {
		asin, ok := Resolve(entry)
		if !ok {
			logger.Warn("no resolvable identifier, dropping entry",
				"row", i+1,
				"asin_field", entry.ASIN,
				"source_url", entry.SourceURL,
			)
			continue
		}
		queries = append(queries, models.PriceQuery{ASIN: asin, Entry: entry})
	}
	return queries
}
