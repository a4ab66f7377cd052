package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/muj89/usdt-p2p-moniter/internal/logging"
)

// ErrListingFormat marks listings that came back in an unexpected
// shape. Sources wrap it so the composer can treat a malformed
// response as an empty result set instead of a hard failure; a dead
// network stays a hard failure.
var ErrListingFormat = errors.New("malformed listing response")

// ListingSource fetches raw listings for one asset/fiat/side tuple.
// Implemented by the Binance P2P client.
type ListingSource interface {
	Listings(ctx context.Context, asset, fiat string, side Side, rows int) ([]Listing, error)
}

// Composer turns raw listings into snapshots.
type Composer struct {
	source ListingSource
	rows   int
	now    func() time.Time
}

// NewComposer builds a composer fetching up to rows listings per side.
func NewComposer(source ListingSource, rows int) *Composer {
	if rows <= 0 {
		rows = 20
	}
	return &Composer{source: source, rows: rows, now: time.Now}
}

// Snapshot fetches and filters both sides for one asset/fiat pair and
// reduces them to a single timestamped measurement. The first 5
// eligible listings per side are kept for display, in fetch order.
func (c *Composer) Snapshot(ctx context.Context, asset, fiat string) (AssetSnapshot, error) {
	buy, err := c.sideListings(ctx, asset, fiat, SideBuy)
	if err != nil {
		return AssetSnapshot{}, fmt.Errorf("fetch %s/%s buy listings: %w", asset, fiat, err)
	}
	sell, err := c.sideListings(ctx, asset, fiat, SideSell)
	if err != nil {
		return AssetSnapshot{}, fmt.Errorf("fetch %s/%s sell listings: %w", asset, fiat, err)
	}

	eligibleBuy := EligibleOffers(buy)
	eligibleSell := EligibleOffers(sell)

	avgBuy := AveragePrice(eligibleBuy)
	avgSell := AveragePrice(eligibleSell)

	return AssetSnapshot{
		Timestamp:       FormatTime(c.now()),
		Asset:           asset,
		Fiat:            fiat,
		BuyPrice:        avgBuy.InexactFloat64(),
		SellPrice:       avgSell.InexactFloat64(),
		Spread:          avgSell.Sub(avgBuy).InexactFloat64(),
		BuyOffersCount:  len(eligibleBuy),
		SellOffersCount: len(eligibleSell),
		BuyOffers:       topOffers(eligibleBuy),
		SellOffers:      topOffers(eligibleSell),
	}, nil
}

// MultiSnapshot composes each asset independently. A failing asset
// yields a zero-valued placeholder so one bad fetch never sinks the
// whole batch.
func (c *Composer) MultiSnapshot(ctx context.Context, assets []string, fiat, primary string) MultiSnapshot {
	ts := FormatTime(c.now())
	data := make(map[string]AssetSnapshot, len(assets))
	for _, asset := range assets {
		snap, err := c.Snapshot(ctx, asset, fiat)
		if err != nil {
			logging.Errorf("[compose] %s/%s: %v", asset, fiat, err)
			snap = placeholderSnapshot(ts, asset, fiat)
		}
		data[asset] = snap
	}
	return MultiSnapshot{
		Timestamp:    ts,
		Assets:       data,
		PrimaryAsset: primary,
	}
}

// sideListings fetches one side. A malformed response is logged and
// degraded to no listings so the snapshot still composes with zero
// counts and prices; other failures propagate.
func (c *Composer) sideListings(ctx context.Context, asset, fiat string, side Side) ([]Listing, error) {
	listings, err := c.source.Listings(ctx, asset, fiat, side, c.rows)
	if err != nil {
		if errors.Is(err, ErrListingFormat) {
			logging.Errorf("[compose] %s/%s %s listings malformed, treating as empty: %v", asset, fiat, side, err)
			return nil, nil
		}
		return nil, err
	}
	return listings, nil
}

func placeholderSnapshot(ts, asset, fiat string) AssetSnapshot {
	return AssetSnapshot{
		Timestamp:  ts,
		Asset:      asset,
		Fiat:       fiat,
		BuyOffers:  []Listing{},
		SellOffers: []Listing{},
	}
}

func topOffers(listings []Listing) []Listing {
	if len(listings) > TopOffers {
		listings = listings[:TopOffers]
	}
	out := make([]Listing, len(listings))
	copy(out, listings)
	return out
}
