package hyperliquid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/perpdesk/perpdesk/wallet"
)

const (
	testPrivateKey = "0x4f3edf983ac636a65a842ce7c78d9aa706d3b113b37ad5dee0c90c0f0da58c16"
	testAddress    = "0x90f8bf6a479f320ead074411a4b0e7944ea8c9c1"
	testVault      = "0x1111111111111111111111111111111111111111"
	metaPayload    = `{"universe":[{"name":"BTC","szDecimals":5,"maxLeverage":40,"marginTableId":1,"onlyIsolated":false,"isDelisted":false}]}`
)

func requireMap(t *testing.T, value any) map[string]any {
	t.Helper()
	m, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", value)
	}
	return m
}

func requireSlice(t *testing.T, value any) []any {
	t.Helper()
	s, ok := value.([]any)
	if !ok {
		t.Fatalf("expected []any, got %T", value)
	}
	return s
}

func requireString(t *testing.T, value any) string {
	t.Helper()
	s, ok := value.(string)
	if !ok {
		t.Fatalf("expected string, got %T", value)
	}
	return s
}

func createSignedClient(t *testing.T, onExchange func(map[string]any)) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		switch r.URL.Path {
		case infoPath:
			if payload["type"] != "meta" {
				t.Fatalf("expected meta request type, got %v", payload["type"])
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(metaPayload))
		case exchangePath:
			onExchange(payload)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)

	w, err := wallet.NewFromHex(testPrivateKey)
	require.NoError(t, err)
	c := New(Config{
		BaseURL:      server.URL,
		HTTPClient:   server.Client(),
		Wallet:       w,
		VaultAddress: testVault,
	})
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return c
}

func capturePayload(t *testing.T, fn func(*Client) (*ExchangeResponse, error)) map[string]any {
	t.Helper()
	var captured map[string]any
	c := createSignedClient(t, func(payload map[string]any) { captured = payload })
	resp, err := fn(c)
	require.NoError(t, err)
	require.NotNil(t, captured)
	require.NotNil(t, resp)
	require.Equal(t, "ok", resp.Status)
	return captured
}

func ptrToInt64(v int64) *int64 {
	return &v
}

func TestEnsureExchangeResponseOK(t *testing.T) {
	t.Parallel()

	require.NoError(t, ensureExchangeResponseOK(&ExchangeResponse{Status: "ok"}))
	require.ErrorIs(t, ensureExchangeResponseOK(nil), errResponseMissing)
	require.ErrorIs(t, ensureExchangeResponseOK(&ExchangeResponse{Status: "failure"}), errActionStatusNotOK)
}

func TestPlaceOrders(t *testing.T) {
	captured := capturePayload(t, func(c *Client) (*ExchangeResponse, error) {
		orderReq := OrderRequest{
			Coin:       "BTC",
			IsBuy:      true,
			Size:       0.5,
			LimitPrice: 123.45,
			OrderType:  OrderType{Limit: &LimitOrderType{TimeInForce: "Gtc"}},
		}
		return c.PlaceOrders(context.Background(), []OrderRequest{orderReq}, nil)
	})

	action := requireMap(t, captured["action"])
	require.Equal(t, "order", action["type"])
	require.Equal(t, "na", action["grouping"])
	orders := requireSlice(t, action["orders"])
	require.Len(t, orders, 1)
	orderWire := requireMap(t, orders[0])
	require.Equal(t, float64(0), orderWire["a"])
	require.Equal(t, true, orderWire["b"])
	require.Equal(t, "123.45", orderWire["p"])
	require.Equal(t, "0.5", orderWire["s"])
	require.Equal(t, strings.ToLower(testVault), requireString(t, captured["vaultAddress"]))
	sig := requireMap(t, captured["signature"])
	require.Contains(t, sig, "r")
	require.Contains(t, sig, "s")
	require.Contains(t, sig, "v")
}

func TestPlaceOrdersEmpty(t *testing.T) {
	c := createSignedClient(t, func(map[string]any) {})
	_, err := c.PlaceOrders(context.Background(), nil, nil)
	require.ErrorIs(t, err, errNoOrdersSupplied)
}

func TestCancelOrdersByID(t *testing.T) {
	captured := capturePayload(t, func(c *Client) (*ExchangeResponse, error) {
		req := CancelRequest{Coin: "BTC", OrderID: ptrToInt64(42)}
		return c.CancelOrdersByID(context.Background(), []CancelRequest{req})
	})

	action := requireMap(t, captured["action"])
	require.Equal(t, "cancel", action["type"])
	cancels := requireSlice(t, action["cancels"])
	require.Len(t, cancels, 1)
	entry := requireMap(t, cancels[0])
	require.Equal(t, float64(0), entry["a"])
	require.Equal(t, float64(42), entry["o"])
}

func TestCancelOrdersByIDValidation(t *testing.T) {
	c := createSignedClient(t, func(map[string]any) {})
	_, err := c.CancelOrdersByID(context.Background(), nil)
	require.ErrorIs(t, err, errCancelBatchNoRequests)
	_, err = c.CancelOrdersByID(context.Background(), []CancelRequest{{Coin: "BTC"}})
	require.ErrorIs(t, err, errCancelRequestMissingOrderID)
}

func TestUpdateLeverage(t *testing.T) {
	captured := capturePayload(t, func(c *Client) (*ExchangeResponse, error) {
		return c.UpdateLeverage(context.Background(), "BTC", 20, true)
	})

	action := requireMap(t, captured["action"])
	require.Equal(t, "updateLeverage", action["type"])
	require.Equal(t, float64(0), action["asset"])
	require.Equal(t, float64(20), action["leverage"])
	require.Equal(t, true, action["isCross"])
}

func TestUpdateLeverageOutOfRange(t *testing.T) {
	c := createSignedClient(t, func(map[string]any) {})
	_, err := c.UpdateLeverage(context.Background(), "BTC", 0, true)
	require.ErrorIs(t, err, errLeverageOutOfRange)
}

func TestUSDSend(t *testing.T) {
	captured := capturePayload(t, func(c *Client) (*ExchangeResponse, error) {
		return c.USDSend(context.Background(), &USDSendRequest{Destination: "0xABCDEF", Amount: 12.34})
	})

	action := requireMap(t, captured["action"])
	require.Equal(t, "usdSend", action["type"])
	require.Equal(t, "0xabcdef", action["destination"])
	require.Equal(t, "12.34", action["amount"])
	require.Equal(t, "0x18bcfe56800", action["time"])
	require.Equal(t, "Mainnet", action["hyperliquidChain"])
	require.Equal(t, defaultSignatureChainID, action["signatureChainId"])
	require.Nil(t, captured["vaultAddress"])
}

func TestWithdrawFromBridge(t *testing.T) {
	captured := capturePayload(t, func(c *Client) (*ExchangeResponse, error) {
		return c.WithdrawFromBridge(context.Background(), &WithdrawFromBridgeRequest{Destination: testAddress, Amount: 100})
	})

	action := requireMap(t, captured["action"])
	require.Equal(t, "withdraw3", action["type"])
	require.Equal(t, testAddress, action["destination"])
	require.Equal(t, "100", action["amount"])
	require.Equal(t, "0x18bcfe56800", action["time"])
}

func TestWithdrawFromBridgeValidation(t *testing.T) {
	c := createSignedClient(t, func(map[string]any) {})
	_, err := c.WithdrawFromBridge(context.Background(), nil)
	require.ErrorIs(t, err, errWithdrawRequestNil)
	_, err = c.WithdrawFromBridge(context.Background(), &WithdrawFromBridgeRequest{Amount: 5})
	require.ErrorIs(t, err, errDestinationRequired)
}

func TestSignedActionRequiresWallet(t *testing.T) {
	c := New(Config{BaseURL: TestnetAPIURL})
	_, err := c.PlaceOrders(context.Background(), []OrderRequest{{Coin: "BTC"}}, nil)
	require.ErrorIs(t, err, errPrivateKeyRequiredForSignedAction)
}
