package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muj89/usdt-p2p-moniter/internal/market"
)

func testClient(url string) *Client {
	return NewClient(Config{SearchURL: url})
}

func TestListingsSendsSearchPayload(t *testing.T) {
	var got searchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).Listings(context.Background(), "USDT", "SDG", market.SideBuy, 30)
	require.NoError(t, err)

	assert.Equal(t, searchRequest{
		Asset:         "USDT",
		Fiat:          "SDG",
		MerchantCheck: false,
		Page:          1,
		Rows:          30,
		TradeType:     "BUY",
	}, got)
}

func TestListingsNormalizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [
			{
				"adv": {
					"price": "605.50",
					"tradableQuantity": "2500.00",
					"minSingleTransAmount": "10000",
					"maxSingleTransAmount": "500000",
					"tradeMethods": [{"payType": "BANK", "tradeMethodName": "Bank Transfer"}]
				},
				"advertiser": {"nickName": "trader1", "userType": "merchant"}
			},
			{
				"adv": {"price": "610", "tradableQuantity": "not-a-number"},
				"advertiser": {"nickName": "trader2", "userType": "user"}
			}
		]}`))
	}))
	defer server.Close()

	listings, err := testClient(server.URL).Listings(context.Background(), "USDT", "SDG", market.SideSell, 20)
	require.NoError(t, err)
	require.Len(t, listings, 2)

	first := listings[0]
	assert.Equal(t, "trader1", first.Advertiser)
	assert.True(t, first.Merchant)
	assert.Equal(t, "605.5", first.Price.String())
	assert.Equal(t, "2500", first.TradableQuantity.String())
	assert.Equal(t, "10000", first.MinOrder)
	assert.Equal(t, "500000", first.MaxOrder)
	assert.Equal(t, []string{"BANK"}, first.PaymentMethods)
	assert.Equal(t, market.SideSell, first.Side)

	// Unparsable quantity degrades to zero rather than failing.
	second := listings[1]
	assert.False(t, second.Merchant)
	assert.True(t, second.TradableQuantity.IsZero())
}

func TestListingsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Listings(context.Background(), "USDT", "SDG", market.SideBuy, 20)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestListingsNetworkFailureIsTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	_, err := testClient(server.URL).Listings(context.Background(), "USDT", "SDG", market.SideBuy, 20)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestListingsMissingDataIsFormatError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "000000", "message": null}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).Listings(context.Background(), "USDT", "SDG", market.SideBuy, 20)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFormat)
	assert.ErrorIs(t, err, market.ErrListingFormat)
}

func TestComposeOverMissingDataYieldsZeroSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "000000"}`))
	}))
	defer server.Close()

	composer := market.NewComposer(testClient(server.URL), 20)
	snap, err := composer.Snapshot(context.Background(), "USDT", "SDG")
	require.NoError(t, err)

	assert.NotEmpty(t, snap.Timestamp)
	assert.Zero(t, snap.BuyPrice)
	assert.Zero(t, snap.SellPrice)
	assert.Zero(t, snap.BuyOffersCount)
	assert.Zero(t, snap.SellOffersCount)
	assert.Empty(t, snap.BuyOffers)
	assert.Empty(t, snap.SellOffers)
}

func TestListingsEmptyDataIsEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	listings, err := testClient(server.URL).Listings(context.Background(), "USDT", "SDG", market.SideBuy, 20)
	require.NoError(t, err)
	assert.Empty(t, listings)
}
