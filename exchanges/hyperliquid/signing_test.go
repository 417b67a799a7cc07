package hyperliquid

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/perpdesk/perpdesk/wallet"
)

func TestFloatToWire(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		in   float64
		want string
	}{
		{123.45, "123.45"},
		{0.5, "0.5"},
		{100, "100"},
		{0.020000, "0.02"},
		{1e-8, "0.00000001"},
	} {
		got, err := floatToWire(tc.in)
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}
}

func TestOrderRequestToOrderWire(t *testing.T) {
	t.Parallel()

	req := &OrderRequest{
		Coin:       "BTC",
		IsBuy:      true,
		Size:       0.5,
		LimitPrice: 123.45,
		ReduceOnly: true,
		OrderType:  OrderType{Limit: &LimitOrderType{TimeInForce: "Ioc"}},
	}
	wire, err := orderRequestToOrderWire(req, 3)
	require.NoError(t, err)
	require.Equal(t, int64(3), wire["a"])
	require.Equal(t, true, wire["b"])
	require.Equal(t, "123.45", wire["p"])
	require.Equal(t, "0.5", wire["s"])
	require.Equal(t, true, wire["r"])
	orderType := requireMap(t, wire["t"])
	limit := requireMap(t, orderType["limit"])
	require.Equal(t, "Ioc", limit["tif"])

	_, err = orderRequestToOrderWire(&OrderRequest{Coin: "BTC"}, 0)
	require.ErrorIs(t, err, errInvalidOrderType)
}

func TestActionHashDeterministic(t *testing.T) {
	t.Parallel()

	action := map[string]any{
		"type":     "order",
		"orders":   []map[string]any{{"a": int64(0), "b": true, "p": "123.45", "s": "0.5", "r": false, "t": map[string]any{"limit": map[string]any{"tif": "Gtc"}}}},
		"grouping": "na",
	}
	first, err := actionHash(action, nil, 1700000000000, nil)
	require.NoError(t, err)
	second, err := actionHash(action, nil, 1700000000000, nil)
	require.NoError(t, err)
	require.Equal(t, hex.EncodeToString(first), hex.EncodeToString(second))
	require.Len(t, first, 32)

	vault := testVault
	withVault, err := actionHash(action, &vault, 1700000000000, nil)
	require.NoError(t, err)
	require.NotEqual(t, hex.EncodeToString(first), hex.EncodeToString(withVault))

	expires := uint64(1700000060000)
	withExpiry, err := actionHash(action, nil, 1700000000000, &expires)
	require.NoError(t, err)
	require.NotEqual(t, hex.EncodeToString(first), hex.EncodeToString(withExpiry))
}

func TestConstructPhantomAgent(t *testing.T) {
	t.Parallel()

	hash := make([]byte, 32)
	mainnet := constructPhantomAgent(hash, true)
	require.Equal(t, "a", mainnet["source"])
	testnet := constructPhantomAgent(hash, false)
	require.Equal(t, "b", testnet["source"])
}

func TestSignL1ActionRecoverable(t *testing.T) {
	t.Parallel()

	w, err := wallet.NewFromHex(testPrivateKey)
	require.NoError(t, err)
	action := map[string]any{"type": "updateLeverage", "asset": int64(0), "isCross": true, "leverage": int64(10)}
	sig, err := signL1Action(w, action, nil, 1700000000000, nil, true)
	require.NoError(t, err)
	require.Contains(t, sig, "r")
	require.Contains(t, sig, "s")
	v, ok := sig["v"].(int)
	require.True(t, ok)
	require.Contains(t, []int{27, 28}, v)
}
