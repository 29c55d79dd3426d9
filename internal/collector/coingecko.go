package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"CycleDCA/internal/model"
)

const coinGeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoProvider implements Provider using the CoinGecko REST API.
type CoinGeckoProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	CoinIDs map[string]string // maps internal symbol to CoinGecko coin id
}

// NewCoinGeckoProvider creates a new provider with optional proxy support.
func NewCoinGeckoProvider(apiKey, proxyURL string, timeout time.Duration) *CoinGeckoProvider {
	return &CoinGeckoProvider{
		BaseURL: coinGeckoBaseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL, timeout),
		CoinIDs: map[string]string{
			"BTC": "bitcoin",
			"ETH": "ethereum",
		},
	}
}

func (f *CoinGeckoProvider) Name() string { return "coingecko" }

func (f *CoinGeckoProvider) coinID(symbol string) string {
	if id, ok := f.CoinIDs[symbol]; ok {
		return id
	}
	return strings.ToLower(symbol)
}

func (f *CoinGeckoProvider) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if f.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("coingecko fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("coingecko: status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("coingecko decode: %w", err)
	}
	return nil
}

// FetchRange uses /coins/{id}/market_chart/range. Prices arrive as
// [unix-millis, price] pairs.
func (f *CoinGeckoProvider) FetchRange(ctx context.Context, symbol string, start, end time.Time) (model.PriceSeries, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("from", fmt.Sprint(model.DayOf(start).Unix()))
	q.Set("to", fmt.Sprint(model.DayOf(end).AddDate(0, 0, 1).Unix()-1))
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart/range?%s", f.BaseURL, url.PathEscape(f.coinID(symbol)), q.Encode())

	var chart struct {
		Prices [][2]float64 `json:"prices"`
	}
	if err := f.get(ctx, endpoint, &chart); err != nil {
		return nil, err
	}
	raw := make([]model.PricePoint, 0, len(chart.Prices))
	for _, pair := range chart.Prices {
		raw = append(raw, model.NewPricePoint(time.UnixMilli(int64(pair[0])), pair[1]))
	}
	series := dailySeries(raw, start, end)
	if len(series) == 0 {
		return nil, fmt.Errorf("coingecko: %w", ErrEmptySeries)
	}
	return series, nil
}

func (f *CoinGeckoProvider) FetchCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	id := f.coinID(symbol)
	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", f.BaseURL, url.QueryEscape(id))
	var result map[string]struct {
		USD float64 `json:"usd"`
	}
	if err := f.get(ctx, endpoint, &result); err != nil {
		return 0, err
	}
	quote, ok := result[id]
	if !ok || quote.USD <= 0 {
		return 0, fmt.Errorf("coingecko: no price for %s", id)
	}
	return quote.USD, nil
}
