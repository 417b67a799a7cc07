// Package position opens and closes leveraged perpetual positions on
// Hyperliquid. Each open call walks a fixed pipeline: validate, size, submit,
// interpret. Sizing reads the withdrawable collateral from clearinghouse
// state; when that read fails an explicit fallback policy value is used and
// the result is flagged approximate.
package position

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/perpdesk/perpdesk/exchanges/hyperliquid"
	"github.com/perpdesk/perpdesk/fault"
)

// Pipeline states reported on results and in logs.
const (
	StateValidating = "validating"
	StateSizing     = "sizing"
	StateSubmitting = "submitting"
	StateFilled     = "filled"
	StateResting    = "resting"
	StateRejected   = "rejected"
)

const (
	minLeverage = 1
	maxLeverage = 100

	// tifFrontendMarket is a limit order that behaves like a market order
	// with a slippage guard.
	tifFrontendMarket = "FrontendMarket"
	tifIOC            = "Ioc"

	// openSlippage bounds how far through the mark an open order may fill;
	// closeSlippage prices the close 0.5% through mid to bias toward a fill.
	openSlippagePct  = 5
	closeSlippageBps = 50

	// minNotionalUSD is the exchange's minimum order value.
	minNotionalUSD = 10
)

// OpenParams describes an open intent. Size is always computed, never
// supplied.
type OpenParams struct {
	Coin     string `json:"coin"`
	IsLong   bool   `json:"isLong"`
	Leverage int64  `json:"leverage"`
}

// Result is the discriminated outcome of an open or close call.
type Result struct {
	State       string          `json:"state"`
	OrderID     int64           `json:"orderId,omitempty"`
	Size        decimal.Decimal `json:"size"`
	Approximate bool            `json:"approximate,omitempty"`
	Fault       *fault.Fault    `json:"fault,omitempty"`
}

// Adapter submits orders through the exchange client.
type Adapter struct {
	client             *hyperliquid.Client
	fallbackCollateral decimal.Decimal
	logger             zerolog.Logger
}

// NewAdapter wires an adapter. fallbackCollateral is substituted when the
// withdrawable balance cannot be read; pass zero to disable the fallback and
// fail instead.
func NewAdapter(client *hyperliquid.Client, fallbackCollateral decimal.Decimal, logger zerolog.Logger) *Adapter {
	return &Adapter{
		client:             client,
		fallbackCollateral: fallbackCollateral,
		logger:             logger.With().Str("component", "position").Logger(),
	}
}

func rejected(f *fault.Fault) *Result {
	return &Result{State: StateRejected, Fault: f}
}

// Open opens a leveraged position. The order size is
// leverage × withdrawable ÷ mark price, rounded down to the market's size
// decimals.
func (a *Adapter) Open(ctx context.Context, p OpenParams) *Result {
	if a.client == nil {
		return rejected(fault.New(fault.WalletNotConnected, "no exchange client configured"))
	}
	if p.Leverage < minLeverage || p.Leverage > maxLeverage {
		return rejected(fault.New(fault.InvalidOrderParams, "leverage must be an integer in [%d,%d], got %d", minLeverage, maxLeverage, p.Leverage))
	}

	a.logger.Debug().Str("coin", p.Coin).Str("state", StateValidating).Msg("open position")
	market, markPrice, f := a.lookupMarket(ctx, p.Coin)
	if f != nil {
		return rejected(f)
	}
	if p.Leverage > market.MaxLeverage {
		return rejected(fault.New(fault.InvalidOrderParams, "leverage %d exceeds %s max %d", p.Leverage, market.Name, market.MaxLeverage))
	}

	if _, err := a.client.UpdateLeverage(ctx, market.Name, p.Leverage, true); err != nil {
		return rejected(fault.Classify(fmt.Errorf("update leverage: %w", err)))
	}

	a.logger.Debug().Str("coin", p.Coin).Str("state", StateSizing).Msg("open position")
	collateral, approximate, f := a.availableCollateral(ctx)
	if f != nil {
		return rejected(f)
	}
	size := collateral.Mul(decimal.NewFromInt(p.Leverage)).
		Div(markPrice).
		RoundFloor(int32(market.SzDecimals))
	if size.Mul(markPrice).LessThan(decimal.NewFromInt(minNotionalUSD)) {
		return rejected(fault.New(fault.InvalidOrderParams, "order size %s %s is below the %d USD minimum", size.String(), market.Name, minNotionalUSD))
	}

	limitPrice := guardPrice(markPrice, p.IsLong, decimal.New(openSlippagePct, -2), market.SzDecimals)
	order := hyperliquid.OrderRequest{
		Coin:       market.Name,
		IsBuy:      p.IsLong,
		Size:       size.InexactFloat64(),
		LimitPrice: limitPrice.InexactFloat64(),
		OrderType:  hyperliquid.OrderType{Limit: &hyperliquid.LimitOrderType{TimeInForce: tifFrontendMarket}},
	}
	result := a.submit(ctx, order)
	result.Size = size
	result.Approximate = approximate
	return result
}

// Close flattens the open position for a coin with an IOC reduce-only order
// priced 0.5% through the current mid. The order side is derived from the
// actual position sign.
func (a *Adapter) Close(ctx context.Context, coin string) *Result {
	if a.client == nil {
		return rejected(fault.New(fault.WalletNotConnected, "no exchange client configured"))
	}
	coin = strings.ToUpper(coin)

	state, err := a.client.UserState(ctx, a.client.AccountAddress())
	if err != nil {
		return rejected(fault.Classify(fmt.Errorf("read position state: %w", err)))
	}
	var szi decimal.Decimal
	found := false
	for i := range state.AssetPositions {
		if strings.EqualFold(state.AssetPositions[i].Position.Coin, coin) {
			szi = decimal.NewFromFloat(state.AssetPositions[i].Position.Szi.Float64())
			found = true
			break
		}
	}
	if !found || szi.IsZero() {
		return rejected(fault.New(fault.InvalidOrderParams, "no open %s position", coin))
	}

	mids, err := a.client.AllMids(ctx)
	if err != nil {
		return rejected(fault.Classify(fmt.Errorf("read mid price: %w", err)))
	}
	mid := decimal.NewFromFloat(mids[coin].Float64())
	if !mid.IsPositive() {
		return rejected(fault.New(fault.Unknown, "no mid price for %s", coin))
	}

	market, _, f := a.lookupMarket(ctx, coin)
	if f != nil {
		return rejected(f)
	}

	isBuy := szi.IsNegative()
	limitPrice := guardPrice(mid, isBuy, decimal.New(closeSlippageBps, -4), market.SzDecimals)
	order := hyperliquid.OrderRequest{
		Coin:       coin,
		IsBuy:      isBuy,
		Size:       szi.Abs().InexactFloat64(),
		LimitPrice: limitPrice.InexactFloat64(),
		ReduceOnly: true,
		OrderType:  hyperliquid.OrderType{Limit: &hyperliquid.LimitOrderType{TimeInForce: tifIOC}},
	}
	result := a.submit(ctx, order)
	result.Size = szi.Abs()
	return result
}

func (a *Adapter) lookupMarket(ctx context.Context, coin string) (*hyperliquid.PerpetualMarket, decimal.Decimal, *fault.Fault) {
	contexts, err := a.client.MetaAndAssetContexts(ctx)
	if err != nil {
		return nil, decimal.Zero, fault.Classify(fmt.Errorf("read market meta: %w", err))
	}
	for i := range contexts.Meta.Universe {
		market := &contexts.Meta.Universe[i]
		if !strings.EqualFold(market.Name, coin) || market.IsDelisted {
			continue
		}
		if i >= len(contexts.AssetContexts) {
			break
		}
		markPrice := decimal.NewFromFloat(contexts.AssetContexts[i].MarkPrice.Float64())
		if !markPrice.IsPositive() {
			return nil, decimal.Zero, fault.New(fault.Unknown, "no mark price for %s", coin)
		}
		return market, markPrice, nil
	}
	return nil, decimal.Zero, fault.New(fault.InvalidOrderParams, "unknown market %q", coin)
}

// availableCollateral reads the withdrawable balance, substituting the
// fallback policy value when the read fails.
func (a *Adapter) availableCollateral(ctx context.Context) (decimal.Decimal, bool, *fault.Fault) {
	state, err := a.client.UserState(ctx, a.client.AccountAddress())
	if err == nil {
		withdrawable := decimal.NewFromFloat(state.Withdrawable.Float64())
		if withdrawable.IsPositive() {
			return withdrawable, false, nil
		}
		err = fmt.Errorf("withdrawable balance is %s", withdrawable.String())
	}
	if a.fallbackCollateral.IsPositive() {
		a.logger.Warn().Err(err).Str("fallback", a.fallbackCollateral.String()).
			Msg("collateral unreadable, using fallback")
		return a.fallbackCollateral, true, nil
	}
	return decimal.Zero, false, fault.Classify(fmt.Errorf("read collateral: %w", err))
}

func (a *Adapter) submit(ctx context.Context, order hyperliquid.OrderRequest) *Result {
	a.logger.Debug().Str("coin", order.Coin).Str("state", StateSubmitting).Msg("submit order")
	resp, err := a.client.PlaceOrder(ctx, order, nil)
	if err != nil {
		return rejected(fault.Classify(err))
	}
	outcome, err := resp.ExtractOrderOutcome()
	if err != nil {
		return rejected(fault.Wrap(fault.ExchangeRejectedOrder, err, "exchange rejected order: %s", strings.TrimSpace(string(resp.Raw))))
	}
	state := StateResting
	if outcome.Filled {
		state = StateFilled
	}
	a.logger.Info().Str("coin", order.Coin).Int64("oid", outcome.OrderID).Str("state", state).Msg("order accepted")
	return &Result{State: state, OrderID: outcome.OrderID}
}

// guardPrice offsets a reference price by slippage in the adverse direction
// and trims it to the px precision the exchange accepts (five significant
// figures, at most 6−szDecimals decimal places).
func guardPrice(reference decimal.Decimal, isBuy bool, slippage decimal.Decimal, szDecimals int64) decimal.Decimal {
	offset := reference.Mul(slippage)
	price := reference.Sub(offset)
	if isBuy {
		price = reference.Add(offset)
	}
	maxDecimals := int32(6 - szDecimals)
	if maxDecimals < 0 {
		maxDecimals = 0
	}
	rounded := roundSignificant(price, 5)
	if -rounded.Exponent() > maxDecimals {
		rounded = rounded.Round(maxDecimals)
	}
	return rounded
}

func roundSignificant(d decimal.Decimal, figures int32) decimal.Decimal {
	if d.IsZero() {
		return d
	}
	digits := int32(len(d.Coefficient().String())) + d.Exponent()
	return d.Round(figures - digits)
}
