package collector

import (
	"context"
	"fmt"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	json "github.com/goccy/go-json"

	"CycleDCA/internal/model"
)

// bybitKlineLimit is the maximum number of candles per kline request.
const bybitKlineLimit = 1000

// BybitProvider reads spot daily klines and tickers from Bybit's public v5 market API.
type BybitProvider struct {
	client    *bybit_api.Client
	SymbolMap map[string]string
}

// NewBybitProvider creates a provider against baseURL (bybit_api.MAINNET when empty).
// Market endpoints are public, so the credentials may be empty.
func NewBybitProvider(apiKey, apiSecret, baseURL string) *BybitProvider {
	if baseURL == "" {
		baseURL = bybit_api.MAINNET
	}
	return &BybitProvider{
		client: bybit_api.NewBybitHttpClient(apiKey, apiSecret, bybit_api.WithBaseURL(baseURL)),
		SymbolMap: map[string]string{
			"BTC": "BTCUSDT",
			"ETH": "ETHUSDT",
		},
	}
}

func (b *BybitProvider) Name() string { return "bybit" }

func (b *BybitProvider) bybitSymbol(symbol string) string {
	if mapped, ok := b.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol + "USDT"
}

// FetchRange pages through daily candles bybitKlineLimit days at a time and
// keeps each candle's close.
func (b *BybitProvider) FetchRange(ctx context.Context, symbol string, start, end time.Time) (model.PriceSeries, error) {
	from, to := model.DayOf(start), model.DayOf(end)
	var raw []model.PricePoint
	for pageStart := from; !pageStart.After(to); pageStart = pageStart.AddDate(0, 0, bybitKlineLimit) {
		pageEnd := pageStart.AddDate(0, 0, bybitKlineLimit-1)
		if pageEnd.After(to) {
			pageEnd = to
		}
		params := map[string]interface{}{
			"category": "spot",
			"symbol":   b.bybitSymbol(symbol),
			"interval": "D",
			"limit":    bybitKlineLimit,
			"start":    pageStart.UnixMilli(),
			"end":      pageEnd.AddDate(0, 0, 1).UnixMilli() - 1,
		}
		result, err := b.client.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
		if err != nil {
			return nil, fmt.Errorf("bybit klines: %w", err)
		}
		points, err := parseBybitKlines(result)
		if err != nil {
			return nil, err
		}
		raw = append(raw, points...)
	}
	series := dailySeries(raw, from, to)
	if len(series) == 0 {
		return nil, fmt.Errorf("bybit: %w", ErrEmptySeries)
	}
	return series, nil
}

func (b *BybitProvider) FetchCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	params := map[string]interface{}{
		"category": "spot",
		"symbol":   b.bybitSymbol(symbol),
	}
	result, err := b.client.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return 0, fmt.Errorf("bybit tickers: %w", err)
	}
	return parseBybitTicker(result)
}

// bybitResult unwraps a ServerResponse into out.
func bybitResult(response interface{}, out any) error {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok || serverResp == nil {
		return fmt.Errorf("bybit: invalid response type %T", response)
	}
	if serverResp.RetCode != 0 {
		return fmt.Errorf("bybit api error: %s (code: %d)", serverResp.RetMsg, serverResp.RetCode)
	}
	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return fmt.Errorf("bybit marshal result: %w", err)
	}
	if err := json.Unmarshal(resultBytes, out); err != nil {
		return fmt.Errorf("bybit decode result: %w", err)
	}
	return nil
}

// parseBybitKlines reads rows of [startMs, open, high, low, close, volume, turnover].
// Bybit lists candles newest first.
func parseBybitKlines(response interface{}) ([]model.PricePoint, error) {
	var kr struct {
		List [][]string `json:"list"`
	}
	if err := bybitResult(response, &kr); err != nil {
		return nil, err
	}
	points := make([]model.PricePoint, 0, len(kr.List))
	for _, row := range kr.List {
		if len(row) < 5 {
			continue
		}
		ms, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bybit kline time %q: %w", row[0], err)
		}
		closePrice, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("bybit kline close %q: %w", row[4], err)
		}
		points = append(points, model.NewPricePoint(time.UnixMilli(ms), closePrice))
	}
	return points, nil
}

func parseBybitTicker(response interface{}) (float64, error) {
	var tr struct {
		List []struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	}
	if err := bybitResult(response, &tr); err != nil {
		return 0, err
	}
	if len(tr.List) == 0 {
		return 0, fmt.Errorf("bybit: no ticker data")
	}
	price, err := strconv.ParseFloat(tr.List[0].LastPrice, 64)
	if err != nil {
		return 0, fmt.Errorf("bybit ticker price %q: %w", tr.List[0].LastPrice, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("bybit: non-positive ticker price")
	}
	return price, nil
}
