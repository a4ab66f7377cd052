package binance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/muj89/usdt-p2p-moniter/internal/market"
)

const (
	defaultSearchURL = "https://p2p.binance.com/bapi/c2c/v2/friendly/c2c/adv/search"
	userAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Error kinds for callers that need to tell a dead network apart from
// a response that came back in an unexpected shape. ErrFormat wraps
// market.ErrListingFormat so the composer degrades it to an empty
// result set.
var (
	ErrTransport = errors.New("binance: transport failure")
	ErrFormat    = fmt.Errorf("binance: unexpected response format: %w", market.ErrListingFormat)
)

// Client talks to the Binance P2P merchant-search API.
type Client struct {
	searchURL  string
	httpClient *http.Client
}

// Config provides optional overrides.
type Config struct {
	SearchURL string
	Timeout   time.Duration
}

// NewClient builds a configured P2P search client. Fetches carry a
// bounded timeout; retry policy is left to callers.
func NewClient(cfg Config) *Client {
	searchURL := cfg.SearchURL
	if searchURL == "" {
		searchURL = defaultSearchURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		searchURL: searchURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Listings fetches one page of advertisements for the given tuple and
// normalizes them. A response without the data array is a format
// error, not an empty result.
func (c *Client) Listings(ctx context.Context, asset, fiat string, side market.Side, rows int) ([]market.Listing, error) {
	if rows <= 0 {
		rows = 20
	}
	payload := searchRequest{
		Asset:         asset,
		Fiat:          fiat,
		MerchantCheck: false,
		Page:          1,
		Rows:          rows,
		TradeType:     string(side),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal search payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.searchURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	var out searchResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, fmt.Errorf("%w: response has no data array", ErrFormat)
	}

	listings := make([]market.Listing, 0, len(*out.Data))
	for _, ad := range *out.Data {
		listings = append(listings, normalizeAd(ad, side))
	}
	return listings, nil
}

func (c *Client) do(req *http.Request, dst any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: binance API %s: %s", ErrTransport, resp.Status, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode body: %v", ErrFormat, err)
	}
	return nil
}

func normalizeAd(ad advertisement, side market.Side) market.Listing {
	price, err := decimal.NewFromString(ad.Adv.Price)
	if err != nil {
		price = decimal.Zero
	}
	// Quantity parse failures count as zero, which fails the
	// quantity branch of the eligibility predicate.
	qty, err := decimal.NewFromString(ad.Adv.TradableQuantity)
	if err != nil {
		qty = decimal.Zero
	}

	var methods []string
	for _, tm := range ad.Adv.TradeMethods {
		name := tm.PayType
		if name == "" {
			name = tm.TradeMethodName
		}
		if name != "" {
			methods = append(methods, name)
		}
	}

	return market.Listing{
		Advertiser:       ad.Advertiser.NickName,
		Merchant:         ad.Advertiser.UserType == "merchant",
		Price:            price,
		TradableQuantity: qty,
		MinOrder:         ad.Adv.MinSingleTransAmount,
		MaxOrder:         ad.Adv.MaxSingleTransAmount,
		PaymentMethods:   methods,
		Side:             side,
	}
}

type searchRequest struct {
	Asset         string `json:"asset"`
	Fiat          string `json:"fiat"`
	MerchantCheck bool   `json:"merchantCheck"`
	Page          int    `json:"page"`
	Rows          int    `json:"rows"`
	TradeType     string `json:"tradeType"`
}

// Data is a pointer so a present-but-empty array decodes to an empty
// slice while a missing key stays nil and is flagged as ErrFormat.
type searchResponse struct {
	Data *[]advertisement `json:"data"`
}

type advertisement struct {
	Adv        advDetail  `json:"adv"`
	Advertiser advertiser `json:"advertiser"`
}

type advDetail struct {
	Price                string        `json:"price"`
	TradableQuantity     string        `json:"tradableQuantity"`
	MinSingleTransAmount string        `json:"minSingleTransAmount"`
	MaxSingleTransAmount string        `json:"maxSingleTransAmount"`
	TradeType            string        `json:"tradeType"`
	TradeMethods         []tradeMethod `json:"tradeMethods"`
}

type tradeMethod struct {
	PayType         string `json:"payType"`
	TradeMethodName string `json:"tradeMethodName"`
}

type advertiser struct {
	NickName string `json:"nickName"`
	UserType string `json:"userType"`
}
