package pipeline

import (
	"fmt"
	"sort"

	"github.com/wattlab/price-updater/internal/models"
)

// Aggregate pairs every query with its outcome, preserving catalog order,
// and computes the summary counts. The count conservation invariant is
// enforced here: a result count mismatch is a programming error upstream.
func Aggregate(queries []models.PriceQuery, results []models.PriceResult) (models.ResultSet, error) {
	if len(queries) != len(results) {
		return models.ResultSet{}, fmt.Errorf("result count %d does not match query count %d", len(results), len(queries))
	}

	rs := models.ResultSet{
		Rows:    make([]models.ResultRow, len(queries)),
		Summary: models.Summary{Total: len(queries)},
	}
	for i, q := range queries {
		rs.Rows[i] = models.ResultRow{ASIN: q.ASIN, Entry: q.Entry, Result: results[i]}
		switch results[i].Status {
		case models.StatusResolved:
			rs.Summary.Succeeded++
		case models.StatusFailed:
			rs.Summary.Failed++
		}
	}
	return rs, nil
}

// SortedView returns a presentation ordering: priced rows first, ascending
// by amount, then unpriced, then failed; ties keep catalog order. The
// canonical row order in the ResultSet is not touched.
func SortedView(rs models.ResultSet) []models.ResultRow {
	view := make([]models.ResultRow, len(rs.Rows))
	copy(view, rs.Rows)

	rank := func(r models.PriceResult) int {
		switch r.Status {
		case models.StatusResolved:
			return 0
		case models.StatusUnpriced:
			return 1
		default:
			return 2
		}
	}

	sort.SliceStable(view, func(i, j int) bool {
		ri, rj := rank(view[i].Result), rank(view[j].Result)
		if ri != rj {
			return ri < rj
		}
		if ri == 0 {
			return view[i].Result.Amount < view[j].Result.Amount
		}
		return false
	})
	return view
}

// ErrorHistogram counts failed rows by reason, for the end-of-run summary.
func ErrorHistogram(rs models.ResultSet) map[string]int {
	hist := make(map[string]int)
	for _, row := range rs.Rows {
		if row.Result.Status == models.StatusFailed {
			reason := row.Result.Reason
			if len(reason) > 80 {
				reason = reason[:80] + "..."
			}
			hist[reason]++
		}
	}
	return hist
}
