package market

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func listing(price float64, qty float64, merchant bool) Listing {
	return Listing{
		Price:            decimal.NewFromFloat(price),
		TradableQuantity: decimal.NewFromFloat(qty),
		Merchant:         merchant,
	}
}

func TestEligibleOffers(t *testing.T) {
	in := []Listing{
		listing(600, 2000, false), // eligible: quantity
		listing(610, 50, true),    // eligible: merchant
		listing(620, 1000, false), // not eligible: exactly at the floor
		listing(630, 999, false),  // not eligible
		listing(640, 0, true),     // eligible: merchant with zero quantity
	}

	out := EligibleOffers(in)

	assert.Len(t, out, 3)
	for _, l := range out {
		assert.True(t, l.Merchant || l.TradableQuantity.GreaterThan(decimal.NewFromInt(1000)),
			"retained listing must satisfy the predicate")
	}
}

func TestEligibleOffersEmpty(t *testing.T) {
	assert.Empty(t, EligibleOffers(nil))
	assert.Empty(t, EligibleOffers([]Listing{listing(1, 1, false)}))
}

func TestAveragePriceEmptyIsZero(t *testing.T) {
	assert.True(t, AveragePrice(nil).IsZero())
	assert.True(t, AveragePrice([]Listing{}).IsZero())
}

func TestAveragePriceScenario(t *testing.T) {
	offers := []Listing{
		listing(600, 2000, false),
		listing(610, 50, true),
	}
	eligible := EligibleOffers(offers)
	assert.Len(t, eligible, 2)
	assert.Equal(t, "605", AveragePrice(eligible).String())
}

func TestAveragePriceOrderInvariant(t *testing.T) {
	a := []Listing{listing(100, 0, true), listing(200, 0, true), listing(430, 0, true)}
	b := []Listing{a[2], a[0], a[1]}

	assert.True(t, AveragePrice(a).Equal(AveragePrice(b)))
}

func TestAveragePriceUnweighted(t *testing.T) {
	offers := []Listing{
		listing(100, 1_000_000, true),
		listing(300, 1, true),
	}
	assert.Equal(t, "200", AveragePrice(offers).String())
}
