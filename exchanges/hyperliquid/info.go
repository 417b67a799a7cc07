package hyperliquid

import (
	"context"

	"github.com/perpdesk/perpdesk/types"
)

// Meta retrieves futures metadata.
func (c *Client) Meta(ctx context.Context) (*MetaResponse, error) {
	req := struct {
		Type string `json:"type"`
	}{
		Type: "meta",
	}
	resp := new(MetaResponse)
	if err := c.sendInfo(ctx, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// MetaAndAssetContexts retrieves futures metadata and asset contexts,
// including funding and mark prices per market.
func (c *Client) MetaAndAssetContexts(ctx context.Context) (*MetaAndAssetContextsResponse, error) {
	req := struct {
		Type string `json:"type"`
	}{
		Type: "metaAndAssetCtxs",
	}
	resp := new(MetaAndAssetContextsResponse)
	if err := c.sendInfo(ctx, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// AllMids retrieves mid prices for all coins.
func (c *Client) AllMids(ctx context.Context) (map[string]types.Number, error) {
	req := struct {
		Type string `json:"type"`
	}{
		Type: "allMids",
	}
	var resp map[string]types.Number
	if err := c.sendInfo(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// UserState retrieves perpetual clearinghouse state for a user including the
// withdrawable collateral balance and open positions.
func (c *Client) UserState(ctx context.Context, user string) (*UserStateResponse, error) {
	req := struct {
		Type string `json:"type"`
		User string `json:"user"`
	}{
		Type: "clearinghouseState",
		User: user,
	}
	resp := new(UserStateResponse)
	if err := c.sendInfo(ctx, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// OpenOrders retrieves open orders for a user.
func (c *Client) OpenOrders(ctx context.Context, user string) ([]OpenOrderResponse, error) {
	req := struct {
		Type string `json:"type"`
		User string `json:"user"`
	}{
		Type: "openOrders",
		User: user,
	}
	var resp []OpenOrderResponse
	if err := c.sendInfo(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// OrderStatusByOID retrieves order status by order ID.
func (c *Client) OrderStatusByOID(ctx context.Context, user string, oid int64) (*OrderStatusResponse, error) {
	req := struct {
		Type string `json:"type"`
		User string `json:"user"`
		OID  int64  `json:"oid"`
	}{
		Type: "orderStatus",
		User: user,
		OID:  oid,
	}
	resp := new(OrderStatusResponse)
	if err := c.sendInfo(ctx, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
