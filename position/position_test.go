package position

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/perpdesk/perpdesk/exchanges/hyperliquid"
	"github.com/perpdesk/perpdesk/fault"
	"github.com/perpdesk/perpdesk/wallet"
)

const testPrivateKey = "0x4f3edf983ac636a65a842ce7c78d9aa706d3b113b37ad5dee0c90c0f0da58c16"

type exchangeStub struct {
	metaAndCtxs   string
	userState     string
	userStateCode int
	allMids       string
	orderResponse string
	orders        []map[string]any
	leverageCalls int
}

func newStub() *exchangeStub {
	return &exchangeStub{
		metaAndCtxs: `[
			{"universe":[{"name":"BTC","szDecimals":5,"maxLeverage":40},{"name":"ETH","szDecimals":4,"maxLeverage":25},{"name":"OLD","szDecimals":1,"maxLeverage":10,"isDelisted":true}]},
			[{"funding":"0.0000125","markPx":"50000","midPx":"50000"},{"funding":"-0.0000055","markPx":"3000","midPx":"3000"},{"funding":"0","markPx":"1","midPx":"1"}]
		]`,
		userState:     `{"withdrawable":"100.0","marginSummary":{"accountValue":"100.0"},"assetPositions":[]}`,
		allMids:       `{"BTC":"50000","ETH":"3000"}`,
		orderResponse: `{"status":"ok","response":{"type":"order","data":{"statuses":[{"filled":{"oid":321,"totalSz":"0.02","avgPx":"50000"}}]}}}`,
	}
}

func (s *exchangeStub) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/info":
			switch payload["type"] {
			case "meta":
				_, _ = w.Write([]byte(`{"universe":[{"name":"BTC","szDecimals":5,"maxLeverage":40},{"name":"ETH","szDecimals":4,"maxLeverage":25}]}`))
			case "metaAndAssetCtxs":
				_, _ = w.Write([]byte(s.metaAndCtxs))
			case "clearinghouseState":
				if s.userStateCode != 0 {
					w.WriteHeader(s.userStateCode)
					return
				}
				_, _ = w.Write([]byte(s.userState))
			case "allMids":
				_, _ = w.Write([]byte(s.allMids))
			default:
				t.Fatalf("unexpected info type %v", payload["type"])
			}
		case "/exchange":
			action := payload["action"].(map[string]any)
			switch action["type"] {
			case "updateLeverage":
				s.leverageCalls++
				_, _ = w.Write([]byte(`{"status":"ok"}`))
			case "order":
				s.orders = append(s.orders, action)
				_, _ = w.Write([]byte(s.orderResponse))
			default:
				t.Fatalf("unexpected action type %v", action["type"])
			}
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}
}

func newTestAdapter(t *testing.T, stub *exchangeStub, fallback decimal.Decimal) *Adapter {
	t.Helper()
	server := httptest.NewServer(stub.handler(t))
	t.Cleanup(server.Close)

	w, err := wallet.NewFromHex(testPrivateKey)
	require.NoError(t, err)
	client := hyperliquid.New(hyperliquid.Config{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Wallet:     w,
	})
	return NewAdapter(client, fallback, zerolog.Nop())
}

func firstOrder(t *testing.T, stub *exchangeStub) map[string]any {
	t.Helper()
	require.NotEmpty(t, stub.orders)
	orders := stub.orders[0]["orders"].([]any)
	require.Len(t, orders, 1)
	return orders[0].(map[string]any)
}

func TestOpenSizesFromCollateral(t *testing.T) {
	stub := newStub()
	adapter := newTestAdapter(t, stub, decimal.Zero)

	result := adapter.Open(context.Background(), OpenParams{Coin: "BTC", IsLong: true, Leverage: 10})
	require.Nil(t, result.Fault)
	require.Equal(t, StateFilled, result.State)
	require.Equal(t, int64(321), result.OrderID)
	require.Equal(t, "0.02", result.Size.String())
	require.False(t, result.Approximate)
	require.Equal(t, 1, stub.leverageCalls)

	order := firstOrder(t, stub)
	require.Equal(t, true, order["b"])
	require.Equal(t, "0.02", order["s"])
	tif := order["t"].(map[string]any)["limit"].(map[string]any)["tif"]
	require.Equal(t, "FrontendMarket", tif)
}

func TestOpenLeverageValidation(t *testing.T) {
	stub := newStub()
	adapter := newTestAdapter(t, stub, decimal.Zero)

	for _, leverage := range []int64{0, -1, 101} {
		result := adapter.Open(context.Background(), OpenParams{Coin: "BTC", IsLong: true, Leverage: leverage})
		require.Equal(t, StateRejected, result.State)
		require.ErrorIs(t, result.Fault, &fault.Fault{Kind: fault.InvalidOrderParams})
	}

	// Within [1,100] but above the market's own cap.
	result := adapter.Open(context.Background(), OpenParams{Coin: "BTC", IsLong: true, Leverage: 50})
	require.Equal(t, StateRejected, result.State)
	require.ErrorIs(t, result.Fault, &fault.Fault{Kind: fault.InvalidOrderParams})
	require.Zero(t, stub.leverageCalls)
}

func TestOpenUnknownMarket(t *testing.T) {
	stub := newStub()
	adapter := newTestAdapter(t, stub, decimal.Zero)

	for _, coin := range []string{"DOGE", "OLD"} {
		result := adapter.Open(context.Background(), OpenParams{Coin: coin, IsLong: true, Leverage: 2})
		require.Equal(t, StateRejected, result.State)
		require.ErrorIs(t, result.Fault, &fault.Fault{Kind: fault.InvalidOrderParams})
	}
}

func TestOpenFallbackCollateralFlagsApproximate(t *testing.T) {
	stub := newStub()
	stub.userStateCode = http.StatusInternalServerError
	adapter := newTestAdapter(t, stub, decimal.NewFromInt(100))

	result := adapter.Open(context.Background(), OpenParams{Coin: "BTC", IsLong: true, Leverage: 10})
	require.Nil(t, result.Fault)
	require.True(t, result.Approximate)
	require.Equal(t, "0.02", result.Size.String())
}

func TestOpenNoFallbackFails(t *testing.T) {
	stub := newStub()
	stub.userStateCode = http.StatusInternalServerError
	adapter := newTestAdapter(t, stub, decimal.Zero)

	result := adapter.Open(context.Background(), OpenParams{Coin: "BTC", IsLong: true, Leverage: 10})
	require.Equal(t, StateRejected, result.State)
	require.NotNil(t, result.Fault)
}

func TestOpenBelowMinimumNotional(t *testing.T) {
	stub := newStub()
	stub.userState = `{"withdrawable":"0.04","marginSummary":{"accountValue":"0.04"},"assetPositions":[]}`
	adapter := newTestAdapter(t, stub, decimal.Zero)

	result := adapter.Open(context.Background(), OpenParams{Coin: "BTC", IsLong: true, Leverage: 10})
	require.Equal(t, StateRejected, result.State)
	require.ErrorIs(t, result.Fault, &fault.Fault{Kind: fault.InvalidOrderParams})
	require.Empty(t, stub.orders)
}

func TestOpenRejectedOrderSurfacesRawPayload(t *testing.T) {
	stub := newStub()
	stub.orderResponse = `{"status":"ok","response":{"type":"order","data":{"statuses":[{"error":"Insufficient margin to place order"}]}}}`
	adapter := newTestAdapter(t, stub, decimal.Zero)

	result := adapter.Open(context.Background(), OpenParams{Coin: "BTC", IsLong: true, Leverage: 10})
	require.Equal(t, StateRejected, result.State)
	require.ErrorIs(t, result.Fault, &fault.Fault{Kind: fault.ExchangeRejectedOrder})
	require.Contains(t, result.Fault.Message, "Insufficient margin")
}

func TestOpenRestingOrder(t *testing.T) {
	stub := newStub()
	stub.orderResponse = `{"status":"ok","response":{"type":"order","data":{"statuses":[{"resting":{"oid":654}}]}}}`
	adapter := newTestAdapter(t, stub, decimal.Zero)

	result := adapter.Open(context.Background(), OpenParams{Coin: "BTC", IsLong: true, Leverage: 10})
	require.Equal(t, StateResting, result.State)
	require.Equal(t, int64(654), result.OrderID)
}

func TestCloseDerivesSideFromPosition(t *testing.T) {
	for _, tc := range []struct {
		name    string
		szi     string
		wantBuy bool
	}{
		{name: "long closed with sell", szi: "0.02", wantBuy: false},
		{name: "short closed with buy", szi: "-0.02", wantBuy: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			stub := newStub()
			stub.userState = `{"withdrawable":"10","marginSummary":{"accountValue":"100"},"assetPositions":[{"type":"oneWay","position":{"coin":"BTC","szi":"` + tc.szi + `","entryPx":"49000","leverage":{"type":"cross","value":10}}}]}`
			adapter := newTestAdapter(t, stub, decimal.Zero)

			result := adapter.Close(context.Background(), "BTC")
			require.Nil(t, result.Fault)
			require.Equal(t, "0.02", result.Size.String())

			order := firstOrder(t, stub)
			require.Equal(t, tc.wantBuy, order["b"])
			require.Equal(t, true, order["r"])
			tif := order["t"].(map[string]any)["limit"].(map[string]any)["tif"]
			require.Equal(t, "Ioc", tif)
		})
	}
}

func TestClosePricesThroughMid(t *testing.T) {
	stub := newStub()
	stub.userState = `{"withdrawable":"10","marginSummary":{"accountValue":"100"},"assetPositions":[{"type":"oneWay","position":{"coin":"BTC","szi":"0.02","entryPx":"49000","leverage":{"type":"cross","value":10}}}]}`
	adapter := newTestAdapter(t, stub, decimal.Zero)

	result := adapter.Close(context.Background(), "BTC")
	require.Nil(t, result.Fault)

	order := firstOrder(t, stub)
	// Selling 0.5% through a 50000 mid.
	require.Equal(t, "49750", order["p"])
}

func TestCloseWithoutPosition(t *testing.T) {
	stub := newStub()
	adapter := newTestAdapter(t, stub, decimal.Zero)

	result := adapter.Close(context.Background(), "BTC")
	require.Equal(t, StateRejected, result.State)
	require.ErrorIs(t, result.Fault, &fault.Fault{Kind: fault.InvalidOrderParams})
	require.Empty(t, stub.orders)
}

func TestGuardPrice(t *testing.T) {
	t.Parallel()

	mark := decimal.NewFromInt(50000)
	buy := guardPrice(mark, true, decimal.New(5, -2), 5)
	require.Equal(t, "52500", buy.String())
	sell := guardPrice(mark, false, decimal.New(5, -2), 5)
	require.Equal(t, "47500", sell.String())

	mid := decimal.NewFromFloat(3000.5)
	sell = guardPrice(mid, false, decimal.New(50, -4), 4)
	// 3000.5 − 0.5% = 2985.4975, trimmed to five significant figures.
	require.Equal(t, "2985.5", sell.String())
}
