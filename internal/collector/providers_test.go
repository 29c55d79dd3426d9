package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYahooProvider_FetchRange(t *testing.T) {
	var gotPath, gotP1, gotP2 string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotP1 = r.URL.Query().Get("period1")
		gotP2 = r.URL.Query().Get("period2")
		fmt.Fprintf(w, `{"chart":{"result":[{"meta":{"regularMarketPrice":0},
			"timestamp":[%d,%d,%d],
			"indicators":{"quote":[{"close":[7200.17,null,7344.88]}]}}],"error":null}}`,
			day(2020, 1, 1).Unix(), day(2020, 1, 2).Unix(), day(2020, 1, 3).Unix())
	}))
	defer srv.Close()

	y := NewYahooProvider("", time.Second)
	y.BaseURL = srv.URL

	s, err := y.FetchRange(context.Background(), "BTC", day(2020, 1, 1), day(2020, 1, 3))
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/BTC-USD", gotPath)
	assert.Equal(t, fmt.Sprint(day(2020, 1, 1).Unix()), gotP1)
	assert.Equal(t, fmt.Sprint(day(2020, 1, 4).Unix()), gotP2)
	require.Len(t, s, 2)
	assert.Equal(t, "2020-01-01", s[0].Date)
	assert.Equal(t, 7344.88, s[1].Price)
}

func TestYahooProvider_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
	}))
	defer srv.Close()

	y := NewYahooProvider("", time.Second)
	y.BaseURL = srv.URL
	_, err := y.FetchRange(context.Background(), "BTC", day(2020, 1, 1), day(2020, 1, 3))
	assert.ErrorContains(t, err, "No data found")
}

func TestCoinGeckoProvider(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-cg-demo-api-key")
		switch r.URL.Path {
		case "/coins/bitcoin/market_chart/range":
			fmt.Fprintf(w, `{"prices":[[%d,29000.5],[%d,29100.25],[%d,30000]]}`,
				day(2021, 1, 1).UnixMilli(), day(2021, 1, 1).Add(12*time.Hour).UnixMilli(), day(2021, 1, 2).UnixMilli())
		case "/simple/price":
			fmt.Fprint(w, `{"bitcoin":{"usd":65000.12}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cg := NewCoinGeckoProvider("demo-key", "", time.Second)
	cg.BaseURL = srv.URL

	s, err := cg.FetchRange(context.Background(), "BTC", day(2021, 1, 1), day(2021, 1, 2))
	require.NoError(t, err)
	require.Len(t, s, 2)
	assert.Equal(t, 29100.25, s[0].Price)
	assert.Equal(t, "demo-key", gotKey)

	price, err := cg.FetchCurrentPrice(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, 65000.12, price)
}

func TestCoinGeckoProvider_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cg := NewCoinGeckoProvider("", "", time.Second)
	cg.BaseURL = srv.URL
	_, err := cg.FetchCurrentPrice(context.Background(), "BTC")
	assert.ErrorContains(t, err, "status 429")
}

func TestParseBybitKlines(t *testing.T) {
	resp := &bybit_api.ServerResponse{
		RetCode: 0,
		Result: map[string]interface{}{
			"list": [][]string{
				{fmt.Sprint(day(2024, 3, 2).UnixMilli()), "62000", "63000", "61000", "62500.5", "10", "1"},
				{fmt.Sprint(day(2024, 3, 1).UnixMilli()), "61000", "62100", "60000", "62000", "10", "1"},
			},
		},
	}
	points, err := parseBybitKlines(resp)
	require.NoError(t, err)
	require.Len(t, points, 2)

	s := dailySeries(points, day(2024, 3, 1), day(2024, 3, 2))
	assert.Equal(t, "2024-03-01", s[0].Date)
	assert.Equal(t, 62500.5, s[1].Price)
}

func TestParseBybitResponses_Errors(t *testing.T) {
	_, err := parseBybitKlines(&bybit_api.ServerResponse{RetCode: 10001, RetMsg: "params error"})
	assert.ErrorContains(t, err, "params error")

	_, err = parseBybitKlines("unexpected")
	assert.Error(t, err)

	price, err := parseBybitTicker(&bybit_api.ServerResponse{
		Result: map[string]interface{}{"list": []map[string]string{{"symbol": "BTCUSDT", "lastPrice": "67123.4"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 67123.4, price)
}
