package hyperliquid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func createInfoClient(t *testing.T, wantType string, response string) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		require.Equal(t, infoPath, r.URL.Path)
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, wantType, payload["type"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return New(Config{BaseURL: server.URL, HTTPClient: server.Client()})
}

func TestMeta(t *testing.T) {
	c := createInfoClient(t, "meta", metaPayload)
	meta, err := c.Meta(context.Background())
	require.NoError(t, err)
	require.Len(t, meta.Universe, 1)
	require.Equal(t, "BTC", meta.Universe[0].Name)
	require.Equal(t, int64(5), meta.Universe[0].SzDecimals)
	require.Equal(t, int64(40), meta.Universe[0].MaxLeverage)
}

func TestAllMids(t *testing.T) {
	c := createInfoClient(t, "allMids", `{"BTC":"50000.5","ETH":"3000"}`)
	mids, err := c.AllMids(context.Background())
	require.NoError(t, err)
	require.Equal(t, 50000.5, mids["BTC"].Float64())
	require.Equal(t, float64(3000), mids["ETH"].Float64())
}

func TestUserState(t *testing.T) {
	payload := `{
		"withdrawable": "100.0",
		"marginSummary": {"accountValue": "150.0", "totalMarginUsed": "50.0"},
		"assetPositions": [{"type": "oneWay", "position": {"coin": "BTC", "szi": "-0.02", "entryPx": "50000", "leverage": {"type": "cross", "value": 10}}}]
	}`
	c := createInfoClient(t, "clearinghouseState", payload)
	state, err := c.UserState(context.Background(), testAddress)
	require.NoError(t, err)
	require.Equal(t, float64(100), state.Withdrawable.Float64())
	require.Len(t, state.AssetPositions, 1)
	require.Equal(t, "BTC", state.AssetPositions[0].Position.Coin)
	require.Equal(t, -0.02, state.AssetPositions[0].Position.Szi.Float64())
}

func TestOrderStatusByOID(t *testing.T) {
	c := createInfoClient(t, "orderStatus", `{"status":"order","order":{"order":{"coin":"BTC","oid":42},"status":"filled"}}`)
	status, err := c.OrderStatusByOID(context.Background(), testAddress, 42)
	require.NoError(t, err)
	require.NotNil(t, status)
}
