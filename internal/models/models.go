package models

// CatalogEntry is one row from the external catalog. Attributes carry every
// column verbatim; the pipeline never interprets them.
type CatalogEntry struct {
	ASIN       string            `json:"asin,omitempty"`
	SourceURL  string            `json:"source_url,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Attr returns the named attribute or "" when absent.
func (e CatalogEntry) Attr(key string) string {
	if e.Attributes == nil {
		return ""
	}
	return e.Attributes[key]
}

// PriceQuery is one validated identifier queued for resolution. Derived 1:1
// from a CatalogEntry whose ASIN passed validation.
type PriceQuery struct {
	ASIN  string
	Entry CatalogEntry
}

type ResultStatus string

const (
	StatusResolved ResultStatus = "resolved"
	StatusUnpriced ResultStatus = "unpriced"
	StatusFailed   ResultStatus = "failed"
)

// PriceResult is the outcome for one identifier. Exactly one of the three
// statuses applies: Resolved carries a price, Unpriced means the upstream
// answered but no price was extractable, Failed carries the error reason
// after retries were exhausted.
type PriceResult struct {
	Status        ResultStatus `json:"status"`
	Amount        float64      `json:"amount,omitempty"`
	Currency      string       `json:"currency,omitempty"`
	DisplayAmount string       `json:"display_amount,omitempty"`
	Title         string       `json:"title,omitempty"`
	Reason        string       `json:"reason,omitempty"`
}

func Resolved(amount float64, currency, display, title string) PriceResult {
	return PriceResult{
		Status:        StatusResolved,
		Amount:        amount,
		Currency:      currency,
		DisplayAmount: display,
		Title:         title,
	}
}

func Unpriced(title string) PriceResult {
	return PriceResult{Status: StatusUnpriced, Title: title}
}

func Failed(reason string) PriceResult {
	return PriceResult{Status: StatusFailed, Reason: reason}
}

// ResultRow pairs a catalog entry with its outcome. ASIN is the resolved
// identifier, which may differ from the entry's raw ASIN field when it was
// extracted from a URL.
type ResultRow struct {
	ASIN   string
	Entry  CatalogEntry
	Result PriceResult
}

type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ResultSet is the pipeline's final output. Rows keep the catalog order;
// Summary.Succeeded counts Resolved rows only, so
// Succeeded + unpriced + Failed == Total.
type ResultSet struct {
	Rows    []ResultRow
	Summary Summary
}
