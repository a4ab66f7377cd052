package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeLayout is the second-precision wall-clock format used for
// snapshot timestamps and the persisted history file.
const TimeLayout = "2006-01-02 15:04:05"

// TopOffers is how many listings per side a snapshot keeps for display.
const TopOffers = 5

// Side is the trade direction of a listing from the taker's view.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Listing is one normalized P2P advertisement. Immutable once fetched;
// listings are never persisted, only the derived history points are.
type Listing struct {
	Advertiser       string          `json:"advertiser"`
	Merchant         bool            `json:"is_merchant"`
	Price            decimal.Decimal `json:"price"`
	TradableQuantity decimal.Decimal `json:"tradable_quantity"`
	MinOrder         string          `json:"min_order"`
	MaxOrder         string          `json:"max_order"`
	PaymentMethods   []string        `json:"payment_methods"`
	Side             Side            `json:"side"`
}

// AssetSnapshot is a point-in-time measurement for one asset/fiat pair.
type AssetSnapshot struct {
	Timestamp       string    `json:"timestamp"`
	Asset           string    `json:"asset"`
	Fiat            string    `json:"fiat"`
	BuyPrice        float64   `json:"buy_price"`
	SellPrice       float64   `json:"sell_price"`
	Spread          float64   `json:"spread"`
	BuyOffersCount  int       `json:"buy_offers_count"`
	SellOffersCount int       `json:"sell_offers_count"`
	BuyOffers       []Listing `json:"buy_offers"`
	SellOffers      []Listing `json:"sell_offers"`
}

// HistoryPoint is the minimal persisted form of an AssetSnapshot.
type HistoryPoint struct {
	Timestamp string  `json:"timestamp"`
	BuyPrice  float64 `json:"buy_price"`
	SellPrice float64 `json:"sell_price"`
	Spread    float64 `json:"spread"`
}

// HistoryPoint strips the snapshot down to what the rolling store keeps.
func (s AssetSnapshot) HistoryPoint() HistoryPoint {
	return HistoryPoint{
		Timestamp: s.Timestamp,
		BuyPrice:  s.BuyPrice,
		SellPrice: s.SellPrice,
		Spread:    s.Spread,
	}
}

// MultiSnapshot bundles per-asset snapshots taken in one pass.
type MultiSnapshot struct {
	Timestamp    string                   `json:"timestamp"`
	Assets       map[string]AssetSnapshot `json:"assets_data"`
	PrimaryAsset string                   `json:"primary_asset"`
}

// FormatTime renders t in the snapshot timestamp layout.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}
