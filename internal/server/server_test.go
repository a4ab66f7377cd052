package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muj89/usdt-p2p-moniter/internal/export"
	"github.com/muj89/usdt-p2p-moniter/internal/history"
	"github.com/muj89/usdt-p2p-moniter/internal/market"
)

type stubSource struct {
	fail bool
}

func (s *stubSource) Listings(_ context.Context, _, _ string, side market.Side, _ int) ([]market.Listing, error) {
	if s.fail {
		return nil, errors.New("marketplace down")
	}
	price := decimal.NewFromInt(605)
	if side == market.SideSell {
		price = decimal.NewFromInt(630)
	}
	return []market.Listing{{
		Advertiser:       "trader1",
		Merchant:         true,
		Price:            price,
		TradableQuantity: decimal.NewFromInt(2500),
		Side:             side,
	}}, nil
}

func testServer(t *testing.T, source market.ListingSource) (*Server, *history.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := history.Open(filepath.Join(dir, "history.json"))
	require.NoError(t, err)

	return New(Deps{
		Composer:     market.NewComposer(source, 20),
		History:      store,
		Exporter:     export.NewBuilder(store, filepath.Join(dir, "exports")),
		Assets:       []string{"USDT", "BTC"},
		PrimaryAsset: "USDT",
		Fiat:         "SDG",
	}), store
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestLatestData(t *testing.T) {
	srv, _ := testServer(t, &stubSource{})

	rec := get(t, srv, "/api/latest-data")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap market.AssetSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "USDT", snap.Asset)
	assert.Equal(t, "SDG", snap.Fiat)
	assert.Equal(t, 605.0, snap.BuyPrice)
	assert.Equal(t, 630.0, snap.SellPrice)
}

func TestLatestDataFetchFailureIs500(t *testing.T) {
	srv, _ := testServer(t, &stubSource{fail: true})

	rec := get(t, srv, "/api/latest-data")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "marketplace down")
}

func TestMultiAssetDataNeverFails(t *testing.T) {
	srv, _ := testServer(t, &stubSource{fail: true})

	rec := get(t, srv, "/api/multi-asset-data")
	require.Equal(t, http.StatusOK, rec.Code)

	var multi market.MultiSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &multi))
	assert.Equal(t, "USDT", multi.PrimaryAsset)
	require.Len(t, multi.Assets, 2)
	assert.Zero(t, multi.Assets["USDT"].BuyPrice)
	assert.Zero(t, multi.Assets["BTC"].BuyPrice)
}

func TestPriceHistory(t *testing.T) {
	srv, store := testServer(t, &stubSource{})
	require.NoError(t, store.Append(market.HistoryPoint{
		Timestamp: "2026-08-30 12:00:00", BuyPrice: 605, SellPrice: 630, Spread: 25,
	}))

	rec := get(t, srv, "/api/price-history")
	require.Equal(t, http.StatusOK, rec.Code)

	var points []market.HistoryPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	require.Len(t, points, 1)
	assert.Equal(t, 605.0, points[0].BuyPrice)
}

func TestPriceHistoryEmpty(t *testing.T) {
	srv, _ := testServer(t, &stubSource{})

	rec := get(t, srv, "/api/price-history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestDownloadExcel(t *testing.T) {
	srv, _ := testServer(t, &stubSource{})

	rec := get(t, srv, "/api/download-excel?period=hour")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])

	path, _ := body["path"].(string)
	require.NotEmpty(t, path)
	assert.Contains(t, filepath.Base(path), "hourly")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestDriveUploadUnconfigured(t *testing.T) {
	srv, _ := testServer(t, &stubSource{})

	rec := get(t, srv, "/api/upload-to-drive")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "not configured")
}

func TestSendMailUnconfigured(t *testing.T) {
	srv, _ := testServer(t, &stubSource{})

	rec := get(t, srv, "/api/send-email")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
