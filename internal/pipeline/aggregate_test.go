package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wattlab/price-updater/internal/models"
)

func TestAggregateConservation(t *testing.T) {
	queries := makeQueries(6)
	results := []models.PriceResult{
		models.Resolved(10, "$", "$10.00", "A"),
		models.Unpriced("B"),
		models.Failed("timeout"),
		models.Resolved(20, "$", "$20.00", "D"),
		models.Failed("blocked"),
		models.Unpriced("F"),
	}

	rs, err := Aggregate(queries, results)
	require.NoError(t, err)

	assert.Equal(t, 6, rs.Summary.Total)
	assert.Equal(t, 2, rs.Summary.Succeeded)
	assert.Equal(t, 2, rs.Summary.Failed)

	unpriced := 0
	for _, row := range rs.Rows {
		if row.Result.Status == models.StatusUnpriced {
			unpriced++
		}
	}
	assert.Equal(t, rs.Summary.Total, rs.Summary.Succeeded+unpriced+rs.Summary.Failed)

	// Canonical order follows the queries, and resolved identifiers are
	// carried onto the rows.
	for i, row := range rs.Rows {
		assert.Equal(t, queries[i].ASIN, row.ASIN)
	}
}

func TestAggregateCountMismatch(t *testing.T) {
	_, err := Aggregate(makeQueries(3), []models.PriceResult{models.Failed("x")})
	assert.Error(t, err)
}

func TestSortedViewPricedFirstAscending(t *testing.T) {
	queries := makeQueries(5)
	results := []models.PriceResult{
		models.Failed("err"),
		models.Resolved(300, "$", "$300.00", "C"),
		models.Unpriced("U"),
		models.Resolved(100, "$", "$100.00", "A"),
		models.Resolved(200, "$", "$200.00", "B"),
	}

	rs, err := Aggregate(queries, results)
	require.NoError(t, err)

	view := SortedView(rs)
	require.Len(t, view, 5)

	assert.Equal(t, 100.0, view[0].Result.Amount)
	assert.Equal(t, 200.0, view[1].Result.Amount)
	assert.Equal(t, 300.0, view[2].Result.Amount)
	assert.Equal(t, models.StatusUnpriced, view[3].Result.Status)
	assert.Equal(t, models.StatusFailed, view[4].Result.Status)

	// The canonical order in the ResultSet is untouched.
	assert.Equal(t, models.StatusFailed, rs.Rows[0].Result.Status)
}

func TestErrorHistogram(t *testing.T) {
	queries := makeQueries(4)
	results := []models.PriceResult{
		models.Failed("timeout"),
		models.Failed("timeout"),
		models.Failed("blocked"),
		models.Resolved(10, "$", "$10.00", "A"),
	}

	rs, err := Aggregate(queries, results)
	require.NoError(t, err)

	hist := ErrorHistogram(rs)
	assert.Equal(t, 2, hist["timeout"])
	assert.Equal(t, 1, hist["blocked"])
	assert.Len(t, hist, 2)
}
