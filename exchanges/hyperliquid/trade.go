package hyperliquid

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/perpdesk/perpdesk/wallet"
)

func (c *Client) requireWallet() error {
	c.walletMu.Lock()
	defer c.walletMu.Unlock()
	if c.wallet == nil {
		return errPrivateKeyRequiredForSignedAction
	}
	return nil
}

func (c *Client) assetID(ctx context.Context, coin string) (int64, error) {
	coin = strings.ToUpper(coin)
	c.assetCacheMu.RLock()
	if id, ok := c.assetCache[coin]; ok {
		c.assetCacheMu.RUnlock()
		return id, nil
	}
	c.assetCacheMu.RUnlock()

	meta, err := c.Meta(ctx)
	if err != nil {
		return 0, err
	}
	if meta == nil || len(meta.Universe) == 0 {
		return 0, errPerpMetaNoMarkets
	}

	c.assetCacheMu.Lock()
	defer c.assetCacheMu.Unlock()
	c.assetCache = make(map[string]int64, len(meta.Universe))
	for idx, market := range meta.Universe {
		if market.IsDelisted {
			continue
		}
		c.assetCache[strings.ToUpper(market.Name)] = int64(idx)
	}
	id, ok := c.assetCache[coin]
	if !ok {
		return 0, fmt.Errorf("hyperliquid: unknown coin %s", coin)
	}
	return id, nil
}

func (c *Client) nextNonce() (uint64, error) {
	millis := c.now().UnixMilli()
	if millis < 0 {
		return 0, errNegativeNonceTimestamp
	}
	return uint64(millis), nil
}

func ensureExchangeResponseOK(resp *ExchangeResponse) error {
	if resp == nil {
		return errResponseMissing
	}
	if !strings.EqualFold(resp.Status, "ok") {
		return fmt.Errorf("%w: %s", errActionStatusNotOK, strings.TrimSpace(string(resp.Raw)))
	}
	return nil
}

func (c *Client) executeL1Action(ctx context.Context, action map[string]any, useVault bool) (*ExchangeResponse, error) {
	if err := c.requireWallet(); err != nil {
		return nil, err
	}
	nonce, err := c.nextNonce()
	if err != nil {
		return nil, err
	}
	c.walletMu.Lock()
	w := c.wallet
	expiresAfter := c.expiresAfter
	var vault *string
	if useVault && c.vaultAddress != "" {
		addr := c.vaultAddress
		vault = &addr
	}
	c.walletMu.Unlock()

	signature, err := signL1Action(w, action, vault, nonce, expiresAfter, c.IsMainnet())
	if err != nil {
		return nil, err
	}
	return c.postSignedAction(ctx, action, signature, nonce, vault, expiresAfter)
}

func (c *Client) postSignedAction(ctx context.Context, action, signature map[string]any, nonce uint64, vaultAddress *string, expiresAfter *uint64) (*ExchangeResponse, error) {
	payload := map[string]any{
		"action":       action,
		"nonce":        nonce,
		"signature":    signature,
		"expiresAfter": expiresAfter,
	}
	if vaultAddress != nil && *vaultAddress != "" {
		payload["vaultAddress"] = strings.ToLower(*vaultAddress)
	} else {
		payload["vaultAddress"] = nil
	}
	var resp ExchangeResponse
	if err := c.sendExchange(ctx, payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) executeUserSignedAction(ctx context.Context, action map[string]any, signer userActionSigner, nonceKey string) (*ExchangeResponse, error) {
	if err := c.requireWallet(); err != nil {
		return nil, err
	}
	c.walletMu.Lock()
	w := c.wallet
	expiresAfter := c.expiresAfter
	c.walletMu.Unlock()
	if expiresAfter != nil {
		return nil, errExpiresAfterUnsupported
	}
	nonce, err := c.nextNonce()
	if err != nil {
		return nil, err
	}
	action[nonceKey] = hexOrDecimalFromUint64(nonce)
	signature, err := signer(w, action, c.IsMainnet())
	if err != nil {
		return nil, err
	}
	return c.postSignedAction(ctx, action, signature, nonce, nil, nil)
}

type userActionSigner func(w *wallet.Wallet, action map[string]any, isMainnet bool) (map[string]any, error)

func formatAmountString(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

// PlaceOrders submits one or more orders as a single signed action.
func (c *Client) PlaceOrders(ctx context.Context, orders []OrderRequest, builder *BuilderInfo) (*ExchangeResponse, error) {
	if len(orders) == 0 {
		return nil, errNoOrdersSupplied
	}
	if err := c.requireWallet(); err != nil {
		return nil, err
	}
	orderWires := make([]map[string]any, len(orders))
	for i := range orders {
		asset, err := c.assetID(ctx, orders[i].Coin)
		if err != nil {
			return nil, err
		}
		wire, err := orderRequestToOrderWire(&orders[i], asset)
		if err != nil {
			return nil, err
		}
		orderWires[i] = wire
	}
	action := orderWiresToOrderAction(orderWires, builder)
	resp, err := c.executeL1Action(ctx, action, true)
	if err != nil {
		return nil, err
	}
	return resp, ensureExchangeResponseOK(resp)
}

// PlaceOrder submits a single order.
func (c *Client) PlaceOrder(ctx context.Context, order OrderRequest, builder *BuilderInfo) (*ExchangeResponse, error) {
	return c.PlaceOrders(ctx, []OrderRequest{order}, builder)
}

// CancelOrdersByID cancels orders by order ID.
func (c *Client) CancelOrdersByID(ctx context.Context, requests []CancelRequest) (*ExchangeResponse, error) {
	if len(requests) == 0 {
		return nil, errCancelBatchNoRequests
	}
	if err := c.requireWallet(); err != nil {
		return nil, err
	}
	cancels := make([]map[string]any, len(requests))
	for i := range requests {
		if requests[i].OrderID == nil {
			return nil, errCancelRequestMissingOrderID
		}
		asset, err := c.assetID(ctx, requests[i].Coin)
		if err != nil {
			return nil, err
		}
		cancels[i] = map[string]any{
			"a": asset,
			"o": *requests[i].OrderID,
		}
	}
	action := map[string]any{
		"type":    "cancel",
		"cancels": cancels,
	}
	resp, err := c.executeL1Action(ctx, action, true)
	if err != nil {
		return nil, err
	}
	return resp, ensureExchangeResponseOK(resp)
}

// UpdateLeverage updates leverage for the given asset.
func (c *Client) UpdateLeverage(ctx context.Context, coin string, leverage int64, isCross bool) (*ExchangeResponse, error) {
	if leverage < 1 {
		return nil, errLeverageOutOfRange
	}
	if err := c.requireWallet(); err != nil {
		return nil, err
	}
	asset, err := c.assetID(ctx, coin)
	if err != nil {
		return nil, err
	}
	action := map[string]any{
		"type":     "updateLeverage",
		"asset":    asset,
		"isCross":  isCross,
		"leverage": leverage,
	}
	resp, err := c.executeL1Action(ctx, action, true)
	if err != nil {
		return nil, err
	}
	return resp, ensureExchangeResponseOK(resp)
}

// WithdrawFromBridge withdraws USDC from the Hyperliquid bridge to an
// Arbitrum address.
func (c *Client) WithdrawFromBridge(ctx context.Context, req *WithdrawFromBridgeRequest) (*ExchangeResponse, error) {
	if req == nil {
		return nil, errWithdrawRequestNil
	}
	destination := strings.ToLower(req.Destination)
	if destination == "" {
		return nil, errDestinationRequired
	}
	action := map[string]any{
		"type":        "withdraw3",
		"destination": destination,
		"amount":      formatAmountString(req.Amount),
	}
	resp, err := c.executeUserSignedAction(ctx, action, signWithdrawFromBridgeAction, "time")
	if err != nil {
		return nil, err
	}
	return resp, ensureExchangeResponseOK(resp)
}

// USDSend sends USDC to another Hyperliquid address.
func (c *Client) USDSend(ctx context.Context, req *USDSendRequest) (*ExchangeResponse, error) {
	if req == nil {
		return nil, errUSDSendRequestNil
	}
	destination := strings.ToLower(req.Destination)
	if destination == "" {
		return nil, errDestinationRequired
	}
	action := map[string]any{
		"type":        "usdSend",
		"destination": destination,
		"amount":      formatAmountString(req.Amount),
	}
	resp, err := c.executeUserSignedAction(ctx, action, signUSDSendAction, "time")
	if err != nil {
		return nil, err
	}
	return resp, ensureExchangeResponseOK(resp)
}
