package kalshi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/ports"
)

func TestClient_GetBalanceCents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/portfolio/balance", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]int64{"balance": 123456})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	balance, err := c.GetBalanceCents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(123456), balance)
}

func TestClient_NegativeBalanceIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]int64{"balance": -5})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).GetBalanceCents(context.Background())
	assert.Error(t, err)
}

func TestClient_GetQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/KXBTC15M-A/orderbook", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("depth"))
		json.NewEncoder(w).Encode(orderbookResponse{Orderbook: apiOrderbook{
			Yes: [][]int{{43, 80}, {44, 120}},
			No:  [][]int{{52, 200}, {54, 60}},
		}})
	}))
	defer srv.Close()

	q, err := NewClient(srv.URL, nil).GetQuote(context.Background(), "KXBTC15M-A", 5)
	require.NoError(t, err)
	assert.Equal(t, 44, q.BestYesBid())
	assert.Equal(t, 54, q.BestNoBid())
}

func TestClient_SubmitOrder(t *testing.T) {
	var got createOrderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/portfolio/orders", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		taker, fees := int64(100), int64(2)
		json.NewEncoder(w).Encode(createOrderResponse{Order: apiOrder{
			OrderID:       "ord-9",
			Status:        "executed",
			FillCount:     4,
			TakerFillCost: &taker,
			TakerFees:     &fees,
		}})
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, nil).SubmitOrder(context.Background(), ports.OrderRequest{
		Ticker:          "KXBTC15M-A",
		Side:            domain.SideYes,
		Action:          domain.ActionBuy,
		PriceCents:      25,
		Count:           4,
		BuyMaxCostCents: 110,
		TimeInForce:     ports.FillOrKill,
	})
	require.NoError(t, err)

	assert.Equal(t, "ord-9", res.OrderID)
	assert.Equal(t, 4, res.FillCount)
	assert.True(t, res.HasCosts)
	assert.Equal(t, int64(100), res.TakerFillCostCents)
	assert.Equal(t, int64(2), res.TakerFeesCents)

	// el precio va en el campo del lado, el resto en el cuerpo estándar
	assert.Equal(t, "limit", got.Type)
	assert.Equal(t, 25, got.YesPrice)
	assert.Equal(t, 0, got.NoPrice)
	assert.Equal(t, int64(110), got.BuyMaxCost)
	assert.Equal(t, string(ports.FillOrKill), got.TimeInForce)
	assert.NotEmpty(t, got.ClientOrderID)
}

func TestClient_SubmitOrderValidation(t *testing.T) {
	c := NewClient("http://unused.invalid", nil)

	// solo FOK/IOC
	_, err := c.SubmitOrder(context.Background(), ports.OrderRequest{
		Ticker: "X", Side: domain.SideYes, Action: domain.ActionBuy,
		PriceCents: 25, Count: 1, TimeInForce: "good_till_cancelled",
	})
	assert.Error(t, err)

	// precio fuera de [1,99]
	_, err = c.SubmitOrder(context.Background(), ports.OrderRequest{
		Ticker: "X", Side: domain.SideYes, Action: domain.ActionBuy,
		PriceCents: 0, Count: 1, TimeInForce: ports.FillOrKill,
	})
	assert.Error(t, err)
}

func TestClient_ClientErrorIsExchangeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).GetBalanceCents(context.Background())
	var exchErr *ports.ExchangeError
	require.ErrorAs(t, err, &exchErr)
	assert.Equal(t, http.StatusUnauthorized, exchErr.StatusCode)
	assert.True(t, exchErr.Fatal())
}

func TestClient_TradingActive(t *testing.T) {
	active := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/exchange/status", r.URL.Path)
		json.NewEncoder(w).Encode(exchangeStatusResponse{ExchangeActive: true, TradingActive: active})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)

	ok, err := c.TradingActive(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	active = false
	ok, err = c.TradingActive(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_GetOpenMarketsPaginates(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "open", r.URL.Query().Get("status"))
		switch calls {
		case 1:
			json.NewEncoder(w).Encode(marketsResponse{
				Markets: []apiMarket{{Ticker: "KXBTC15M-A"}},
				Cursor:  "next",
			})
		default:
			assert.Equal(t, "next", r.URL.Query().Get("cursor"))
			json.NewEncoder(w).Encode(marketsResponse{
				Markets: []apiMarket{{Ticker: "KXBTC15M-B"}},
			})
		}
	}))
	defer srv.Close()

	markets, err := NewClient(srv.URL, nil).GetOpenMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 2)
	assert.Equal(t, "KXBTC15M-A", markets[0].Ticker)
	assert.Equal(t, "KXBTC15M-B", markets[1].Ticker)
	assert.Equal(t, 2, calls)
}
