package hyperliquid

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/perpdesk/perpdesk/types"
)

// MetaResponse defines the universe of perpetual markets returned by the
// info endpoint.
type MetaResponse struct {
	Universe []PerpetualMarket `json:"universe"`
}

// PerpetualMarket describes a single perpetual contract listing.
type PerpetualMarket struct {
	Name         string `json:"name"`
	SzDecimals   int64  `json:"szDecimals"`
	MaxLeverage  int64  `json:"maxLeverage"`
	MarginTable  int64  `json:"marginTableId"`
	OnlyIsolated bool   `json:"onlyIsolated"`
	IsDelisted   bool   `json:"isDelisted"`
}

// PerpetualAssetContext contains funding, mark and volume information for a
// perpetual contract.
type PerpetualAssetContext struct {
	Funding        types.Number  `json:"funding"`
	OpenInterest   types.Number  `json:"openInterest"`
	PrevDayPrice   types.Number  `json:"prevDayPx"`
	DayNotionalVol types.Number  `json:"dayNtlVlm"`
	Premium        *types.Number `json:"premium"`
	OraclePrice    types.Number  `json:"oraclePx"`
	MarkPrice      types.Number  `json:"markPx"`
	MidPrice       *types.Number `json:"midPx"`
}

// MetaAndAssetContextsResponse holds meta data with associated asset contexts.
type MetaAndAssetContextsResponse struct {
	Meta          MetaResponse            `json:"meta"`
	AssetContexts []PerpetualAssetContext `json:"assetContexts"`
}

// UnmarshalJSON decodes the two-element array payload returned by the
// metaAndAssetCtxs endpoint.
func (r *MetaAndAssetContextsResponse) UnmarshalJSON(data []byte) error {
	var payload []json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("hyperliquid: decode meta contexts: %w", err)
	}
	if len(payload) < 2 {
		return errMetaAndAssetContextsMalformed
	}
	if err := json.Unmarshal(payload[0], &r.Meta); err != nil {
		return fmt.Errorf("hyperliquid: decode meta: %w", err)
	}
	if err := json.Unmarshal(payload[1], &r.AssetContexts); err != nil {
		return fmt.Errorf("hyperliquid: decode asset contexts: %w", err)
	}
	return nil
}

// UserStateResponse represents perpetual clearinghouse state for a user.
type UserStateResponse struct {
	Withdrawable  types.Number `json:"withdrawable"`
	MarginSummary struct {
		AccountValue    types.Number `json:"accountValue"`
		TotalMarginUsed types.Number `json:"totalMarginUsed"`
	} `json:"marginSummary"`
	AssetPositions []AssetPosition `json:"assetPositions"`
}

// AssetPosition wraps a single open position entry.
type AssetPosition struct {
	Position struct {
		Coin       string       `json:"coin"`
		Szi        types.Number `json:"szi"`
		EntryPrice types.Number `json:"entryPx"`
		MarginUsed types.Number `json:"marginUsed"`
		Leverage   struct {
			Type  string       `json:"type"`
			Value types.Number `json:"value"`
		} `json:"leverage"`
	} `json:"position"`
}

// OpenOrderResponse mirrors the structure provided by the info open order
// endpoints.
type OpenOrderResponse struct {
	Coin       string       `json:"coin"`
	LimitPrice types.Number `json:"limitPx"`
	OrderID    int64        `json:"oid"`
	Side       string       `json:"side"`
	Size       types.Number `json:"sz"`
	Timestamp  types.Time   `json:"timestamp"`
	ReduceOnly bool         `json:"reduceOnly"`
	ClientOID  *string      `json:"cloid"`
}

// OrderStatusResponse models the orderStatus info payload.
type OrderStatusResponse struct {
	Status   string `json:"status"`
	Response *struct {
		Statuses []struct {
			Status string `json:"status"`
		} `json:"statuses"`
	} `json:"response,omitempty"`
}

// Exchange status values for order responses.
const (
	ExchangeStatusSuccess = "success"
	ExchangeStatusResting = "resting"
	ExchangeStatusError   = "error"
	ExchangeStatusFilled  = "filled"
)

// ExchangeResponse encapsulates the standard exchange endpoint response
// payload.
type ExchangeResponse struct {
	Status   string                `json:"status"`
	Response *ExchangeResponseBody `json:"response,omitempty"`
	Raw      json.RawMessage       `json:"-"`
}

// UnmarshalJSON decodes the response and retains the raw payload for
// diagnosis when the exchange rejects an action.
func (r *ExchangeResponse) UnmarshalJSON(data []byte) error {
	type alias ExchangeResponse
	var base alias
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}
	*r = ExchangeResponse(base)
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// ExchangeResponseBody captures the nested response payload.
type ExchangeResponseBody struct {
	Type string               `json:"type"`
	Data ExchangeResponseData `json:"data"`
}

// ExchangeResponseData holds order statuses for order related responses.
type ExchangeResponseData struct {
	Statuses []ExchangeStatusEntry `json:"statuses"`
}

// ExchangeStatusEntry represents a single outcome entry. The wire format is
// either a bare string ("success", "waitingForTrigger") or an object keyed by
// outcome kind.
type ExchangeStatusEntry struct {
	Kind    string              `json:"-"`
	Text    string              `json:"-"`
	Success bool                `json:"success,omitempty"`
	Resting *ExchangeOrderState `json:"resting,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// UnmarshalJSON decodes flexible status payloads (string or object).
func (e *ExchangeStatusEntry) UnmarshalJSON(data []byte) error {
	strValue := string(data)
	if strValue == "" {
		return nil
	}
	if strValue[0] == '"' {
		var status string
		if err := json.Unmarshal(data, &status); err != nil {
			return err
		}
		e.Kind = strings.ToLower(status)
		e.Text = status
		e.Success = strings.EqualFold(status, ExchangeStatusSuccess)
		if e.Success {
			e.Kind = ExchangeStatusSuccess
		}
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		switch strings.ToLower(key) {
		case ExchangeStatusFilled:
			e.Kind = ExchangeStatusFilled
			e.Text = key
			e.Resting = new(ExchangeOrderState)
			if err := json.Unmarshal(value, e.Resting); err != nil {
				return err
			}
		case ExchangeStatusResting:
			e.Kind = ExchangeStatusResting
			e.Text = key
			e.Resting = new(ExchangeOrderState)
			if err := json.Unmarshal(value, e.Resting); err != nil {
				return err
			}
		case ExchangeStatusError:
			e.Kind = ExchangeStatusError
			e.Text = key
			if err := json.Unmarshal(value, &e.Error); err != nil {
				return err
			}
		case ExchangeStatusSuccess:
			e.Kind = ExchangeStatusSuccess
			e.Text = key
			if err := json.Unmarshal(value, &e.Success); err != nil {
				return err
			}
		}
	}
	return nil
}

// ExchangeOrderState contains the resting or filled order metadata.
type ExchangeOrderState struct {
	OrderID   int64        `json:"oid"`
	TotalSize types.Number `json:"totalSz"`
	AvgPrice  types.Number `json:"avgPx"`
}

// OrderOutcome is the normalized interpretation of an order response.
type OrderOutcome struct {
	OrderID int64
	Filled  bool
	Resting bool
}

// ExtractOrderOutcome extracts the primary order id and fill state from an
// order response. Rejections come back as an error carrying the entry text.
func (r *ExchangeResponse) ExtractOrderOutcome() (*OrderOutcome, error) {
	if r == nil || r.Response == nil {
		return nil, errResponseMissing
	}
	statuses := r.Response.Data.Statuses
	if len(statuses) == 0 {
		return nil, errResponseStatusesEmpty
	}
	for i := range statuses {
		entry := statuses[i]
		switch entry.Kind {
		case ExchangeStatusFilled:
			return &OrderOutcome{OrderID: entry.Resting.OrderID, Filled: true}, nil
		case ExchangeStatusResting:
			return &OrderOutcome{OrderID: entry.Resting.OrderID, Resting: true}, nil
		case ExchangeStatusError:
			return nil, fmt.Errorf("%w: %s", errExchangeStatusEntryError, entry.Error)
		}
	}
	return nil, fmt.Errorf("%w: %s", errExchangeStatusEntryError, statuses[0].Text)
}

// OrderIDString renders the order id for display.
func (o *OrderOutcome) OrderIDString() string {
	return strconv.FormatInt(o.OrderID, 10)
}

// LimitOrderType describes limit order configuration details.
type LimitOrderType struct {
	TimeInForce string
}

// TriggerOrderType captures trigger order settings.
type TriggerOrderType struct {
	TriggerPrice float64
	IsMarket     bool
	TPSL         string
}

// OrderType specifies either limit or trigger order details.
type OrderType struct {
	Limit   *LimitOrderType
	Trigger *TriggerOrderType
}

// OrderRequest represents the payload for placing an order.
type OrderRequest struct {
	Coin          string
	IsBuy         bool
	Size          float64
	LimitPrice    float64
	OrderType     OrderType
	ReduceOnly    bool
	ClientOrderID string
}

// BuilderInfo carries optional builder address information.
type BuilderInfo struct {
	Address string
	Fee     int
}

// CancelRequest references an order to cancel by ID.
type CancelRequest struct {
	Coin    string
	OrderID *int64
}

// WithdrawFromBridgeRequest withdraws USDC from the Hyperliquid bridge back
// to an address on Arbitrum.
type WithdrawFromBridgeRequest struct {
	Destination string
	Amount      float64
}

// USDSendRequest sends USDC to another Hyperliquid address.
type USDSendRequest struct {
	Destination string
	Amount      float64
}
