package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wattlab/price-updater/internal/models"
)

func TestFromAPIResponsePriceShapes(t *testing.T) {
	tests := []struct {
		name     string
		item     string
		amount   float64
		currency string
	}{
		{
			name:   "top-level price field",
			item:   `{"ASIN":"B0C5HYBQM1","price":"$59.99"}`,
			amount: 59.99, currency: "$",
		},
		{
			name:   "top-level current_price",
			item:   `{"ASIN":"B0C5HYBQM1","current_price":129.5}`,
			amount: 129.5, currency: "$",
		},
		{
			name:   "nested pricing object",
			item:   `{"ASIN":"B0C5HYBQM1","pricing":{"sale_price":"$89.00"}}`,
			amount: 89.0, currency: "$",
		},
		{
			name:   "offer listing display amount",
			item:   `{"ASIN":"B0C5HYBQM1","Offers":{"Listings":[{"Price":{"DisplayAmount":"$449.99","Amount":449.99}}]}}`,
			amount: 449.99, currency: "$",
		},
		{
			name:   "offer listing amount only",
			item:   `{"ASIN":"B0C5HYBQM1","Offers":{"Listings":[{"Price":{"Amount":449.99,"Currency":"USD"}}]}}`,
			amount: 449.99, currency: "USD",
		},
		{
			name:   "offer summary lowest price",
			item:   `{"ASIN":"B0C5HYBQM1","Offers":{"Summaries":[{"LowestPrice":{"DisplayAmount":"$399.00"}}]}}`,
			amount: 399.0, currency: "$",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := `{"ItemsResult":{"Items":[` + tt.item + `]}}`
			results := FromAPIResponse([]byte(raw), []string{"B0C5HYBQM1"}, nil)

			result := results["B0C5HYBQM1"]
			require.Equal(t, models.StatusResolved, result.Status)
			assert.Equal(t, tt.amount, result.Amount)
			assert.Equal(t, tt.currency, result.Currency)
		})
	}
}

func TestFromAPIResponseShapeOrder(t *testing.T) {
	// The top-level field wins over everything nested below it.
	raw := `{"ItemsResult":{"Items":[{
		"ASIN":"B0C5HYBQM1",
		"price":"$10.00",
		"pricing":{"price":"$20.00"},
		"Offers":{"Listings":[{"Price":{"DisplayAmount":"$30.00"}}]}
	}]}}`

	results := FromAPIResponse([]byte(raw), []string{"B0C5HYBQM1"}, nil)
	assert.Equal(t, 10.0, results["B0C5HYBQM1"].Amount)
}

func TestFromAPIResponsePartialBatch(t *testing.T) {
	// Items and Errors present simultaneously: one resolved, one failed,
	// never two failures.
	raw := `{"ItemsResult":{
		"Items":[{"ASIN":"B0C5HYBQM1","Offers":{"Listings":[{"Price":{"DisplayAmount":"$100.00"}}]}}],
		"Errors":[{"Code":"InvalidParameterValue","Message":"The ItemId B0CL66FYLQ provided in the request is invalid."}]
	}}`

	results := FromAPIResponse([]byte(raw), []string{"B0C5HYBQM1", "B0CL66FYLQ"}, nil)
	require.Len(t, results, 2)

	assert.Equal(t, models.StatusResolved, results["B0C5HYBQM1"].Status)

	failed := results["B0CL66FYLQ"]
	require.Equal(t, models.StatusFailed, failed.Status)
	assert.Contains(t, failed.Reason, "InvalidParameterValue")
}

func TestFromAPIResponseItemWithoutPriceIsUnpriced(t *testing.T) {
	raw := `{"ItemsResult":{"Items":[{"ASIN":"B0C5HYBQM1","ItemInfo":{"Title":{"DisplayValue":"Generator"}}}]}}`

	results := FromAPIResponse([]byte(raw), []string{"B0C5HYBQM1"}, nil)
	result := results["B0C5HYBQM1"]

	assert.Equal(t, models.StatusUnpriced, result.Status)
	assert.Equal(t, "Generator", result.Title)
}

func TestFromAPIResponseTitleFallback(t *testing.T) {
	raw := `{"ItemsResult":{"Items":[{"ASIN":"B0C5HYBQM1","price":"$5.00"}]}}`

	withFallback := FromAPIResponse([]byte(raw), []string{"B0C5HYBQM1"},
		map[string]string{"B0C5HYBQM1": "Catalog Generator"})
	assert.Equal(t, "Catalog Generator", withFallback["B0C5HYBQM1"].Title)

	without := FromAPIResponse([]byte(raw), []string{"B0C5HYBQM1"}, nil)
	assert.Equal(t, "Product B0C5HYBQM1", without["B0C5HYBQM1"].Title)
}

func TestFromAPIResponseMalformed(t *testing.T) {
	asins := []string{"B0C5HYBQM1", "B0CL66FYLQ"}

	for _, raw := range []string{"not json at all", `{"something":"else"}`, `""`} {
		results := FromAPIResponse([]byte(raw), asins, nil)
		require.Len(t, results, len(asins), "raw=%s", raw)
		for _, asin := range asins {
			assert.Equal(t, models.StatusFailed, results[asin].Status, "raw=%s asin=%s", raw, asin)
		}
	}
}

func TestFromAPIResponseIdempotent(t *testing.T) {
	raw := `{"ItemsResult":{"Items":[{"ASIN":"B0C5HYBQM1","price":"$5.00"}]}}`

	first := FromAPIResponse([]byte(raw), []string{"B0C5HYBQM1"}, nil)
	second := FromAPIResponse([]byte(raw), []string{"B0C5HYBQM1"}, nil)

	assert.Equal(t, first, second)
}

func TestFromAPIResponseMissingItemNoError(t *testing.T) {
	raw := `{"ItemsResult":{"Items":[]}}`

	results := FromAPIResponse([]byte(raw), []string{"B0C5HYBQM1"}, nil)
	result := results["B0C5HYBQM1"]

	require.Equal(t, models.StatusFailed, result.Status)
	assert.Contains(t, result.Reason, "no item returned")
}
