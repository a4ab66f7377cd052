package market

import "github.com/shopspring/decimal"

// eligibleQuantity is the tradable-quantity floor for non-merchant listings.
var eligibleQuantity = decimal.NewFromInt(1000)

// EligibleOffers keeps listings posted by a merchant or carrying more
// than 1000 units of tradable quantity. Listings whose quantity failed
// to parse carry zero and only pass on the merchant flag.
func EligibleOffers(listings []Listing) []Listing {
	var out []Listing
	for _, l := range listings {
		if l.Merchant || l.TradableQuantity.GreaterThan(eligibleQuantity) {
			out = append(out, l)
		}
	}
	return out
}

// AveragePrice is the unweighted mean of the listings' unit prices.
// An empty set averages to zero; callers pair it with the offer count
// to tell "no data" apart from a true zero price.
func AveragePrice(listings []Listing) decimal.Decimal {
	if len(listings) == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, l := range listings {
		total = total.Add(l.Price)
	}
	return total.Div(decimal.NewFromInt(int64(len(listings))))
}
