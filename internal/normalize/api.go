package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/wattlab/price-updater/internal/models"
)

// priceValue is a successfully extracted price before formatting.
type priceValue struct {
	amount   float64
	currency string
	display  string
}

// priceStrategy probes one known response shape for a price. Strategies
// run in order; the first one that finds a value wins.
type priceStrategy struct {
	name    string
	extract func(item map[string]any) (priceValue, bool)
}

var priceStrategies = []priceStrategy{
	{"top-level fields", func(item map[string]any) (priceValue, bool) {
		return firstField(item, "price", "current_price", "list_price", "sale_price")
	}},
	{"pricing object", func(item map[string]any) (priceValue, bool) {
		pricing, ok := item["pricing"].(map[string]any)
		if !ok {
			return priceValue{}, false
		}
		return firstField(pricing, "price", "current_price", "list_price", "sale_price")
	}},
	{"offer listing", func(item map[string]any) (priceValue, bool) {
		price, ok := dig(item, "Offers", "Listings", 0, "Price")
		if !ok {
			return priceValue{}, false
		}
		return fromPriceObject(price)
	}},
	{"offer summary lowest", func(item map[string]any) (priceValue, bool) {
		price, ok := dig(item, "Offers", "Summaries", 0, "LowestPrice")
		if !ok {
			return priceValue{}, false
		}
		return fromPriceObject(price)
	}},
}

// FromAPIResponse maps one raw GetItems response to a result per requested
// identifier. Items and Errors may both be present; each identifier gets
// the outcome of whichever list mentions it, and identifiers mentioned by
// neither are Failed. A response without a recognizable envelope fails the
// whole batch.
func FromAPIResponse(raw []byte, asins []string, fallbackTitles map[string]string) map[string]models.PriceResult {
	results := make(map[string]models.PriceResult, len(asins))

	var envelope map[string]any
	if err := json.Unmarshal(raw, &envelope); err != nil {
		for _, asin := range asins {
			results[asin] = models.Failed(fmt.Sprintf("malformed response: %v", err))
		}
		return results
	}

	itemsResult, ok := envelope["ItemsResult"].(map[string]any)
	if !ok {
		for _, asin := range asins {
			results[asin] = models.Failed("response has no ItemsResult")
		}
		return results
	}

	if items, ok := itemsResult["Items"].([]any); ok {
		for _, raw := range items {
			item, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			asin, _ := item["ASIN"].(string)
			if asin == "" {
				continue
			}
			results[asin] = normalizeItem(item, fallbackTitles[asin], asin)
		}
	}

	errorReasons := collectErrors(itemsResult)
	for _, asin := range asins {
		if _, done := results[asin]; done {
			continue
		}
		if reason, ok := errorReasons[asin]; ok {
			results[asin] = models.Failed(reason)
		} else {
			results[asin] = models.Failed("no item returned for identifier")
		}
	}

	return results
}

func normalizeItem(item map[string]any, fallbackTitle, asin string) models.PriceResult {
	title := itemTitle(item, fallbackTitle, asin)

	for _, strategy := range priceStrategies {
		if pv, ok := strategy.extract(item); ok {
			if pv.display == "" {
				pv.display = formatDisplay(pv.amount, pv.currency)
			}
			return models.Resolved(pv.amount, pv.currency, pv.display, title)
		}
	}

	return models.Unpriced(title)
}

// itemTitle resolves the display title: upstream title first, then the
// catalog-supplied fallback, then a placeholder derived from the ASIN.
func itemTitle(item map[string]any, fallback, asin string) string {
	if v, ok := dig(item, "ItemInfo", "Title", "DisplayValue"); ok {
		if title, ok := v.(string); ok && title != "" {
			return title
		}
	}
	if fallback != "" {
		return fallback
	}
	return "Product " + asin
}

// collectErrors maps each requested identifier mentioned in an Errors entry
// to that entry's reason. The API reports errors by message text, not by a
// structured identifier field.
func collectErrors(itemsResult map[string]any) map[string]string {
	reasons := make(map[string]string)
	errs, ok := itemsResult["Errors"].([]any)
	if !ok {
		return reasons
	}

	for _, raw := range errs {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		code, _ := entry["Code"].(string)
		message, _ := entry["Message"].(string)
		reason := strings.TrimSpace(code + ": " + message)

		for _, word := range strings.Fields(message) {
			candidate := strings.Trim(word, ".,;\"'")
			if looksLikeASIN(candidate) {
				reasons[candidate] = reason
			}
		}
	}
	return reasons
}

func looksLikeASIN(s string) bool {
	if len(s) != 10 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'A' <= c && c <= 'Z') {
			return false
		}
	}
	return true
}

func firstField(obj map[string]any, names ...string) (priceValue, bool) {
	for _, name := range names {
		if v, ok := obj[name]; ok {
			if pv, ok := parsePriceAny(v); ok {
				return pv, true
			}
		}
	}
	return priceValue{}, false
}

// fromPriceObject handles the structured Price shape: DisplayAmount
// preferred, Amount (+ Currency) as the fallback.
func fromPriceObject(v any) (priceValue, bool) {
	price, ok := v.(map[string]any)
	if !ok {
		return parsePriceAny(v)
	}

	if display, ok := price["DisplayAmount"].(string); ok && display != "" {
		if amount, currency, ok := parsePriceText(display); ok {
			return priceValue{amount: amount, currency: currency, display: display}, true
		}
	}
	if amount, ok := toFloat(price["Amount"]); ok && amount > 0 {
		currency := "$"
		if c, ok := price["Currency"].(string); ok && c != "" {
			currency = c
		}
		return priceValue{amount: amount, currency: currency}, true
	}
	return priceValue{}, false
}

// parsePriceAny accepts a bare number or a display string like "$59.99".
func parsePriceAny(v any) (priceValue, bool) {
	switch t := v.(type) {
	case float64:
		if t > 0 {
			return priceValue{amount: t, currency: "$"}, true
		}
	case string:
		if amount, currency, ok := parsePriceText(t); ok {
			return priceValue{amount: amount, currency: currency, display: t}, true
		}
	case map[string]any:
		return fromPriceObject(t)
	}
	return priceValue{}, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

// dig walks a nested structure by map keys and slice indexes.
func dig(v any, path ...any) (any, bool) {
	current := v
	for _, step := range path {
		switch key := step.(type) {
		case string:
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			current, ok = obj[key]
			if !ok {
				return nil, false
			}
		case int:
			list, ok := current.([]any)
			if !ok || key >= len(list) {
				return nil, false
			}
			current = list[key]
		}
	}
	return current, true
}
