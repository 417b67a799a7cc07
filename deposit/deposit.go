// Package deposit turns a "deposit N units to exchange E" intent into either
// a direct permit-based bridge-contract call on the venue chain, or a
// bridge-and-execute through the liquidity aggregator when crossing chains.
// Venues are data; the flow is shared.
package deposit

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/perpdesk/perpdesk/bridge"
	"github.com/perpdesk/perpdesk/fault"
	"github.com/perpdesk/perpdesk/wallet"
)

// Params is one deposit intent.
type Params struct {
	Venue         string `json:"venue"`
	Amount        string `json:"amount"`
	Token         string `json:"token,omitempty"`
	IsMainnet     bool   `json:"isMainnet"`
	SourceChainID uint64 `json:"sourceChainId,omitempty"`
	Confirmations uint64 `json:"confirmations,omitempty"`
}

// Result is the discriminated outcome. Confirmed=false with Success=true
// means the transaction was submitted but the confirmation wait failed;
// callers should check the chain directly before retrying.
type Result struct {
	Success   bool         `json:"success"`
	TxHash    string       `json:"txHash,omitempty"`
	Confirmed bool         `json:"confirmed"`
	Fault     *fault.Fault `json:"fault,omitempty"`
}

// Submitter broadcasts a prepared deposit call on the venue chain and waits
// for the requested confirmation count.
type Submitter interface {
	SubmitDeposit(ctx context.Context, chainID uint64, to common.Address, calldata []byte, confirmations uint64) (txHash string, confirmed bool, err error)
}

// Adapter runs the generic permit+deposit flow. Calls are not serialized or
// deduplicated; callers must not run two deposits for the same intent
// concurrently.
type Adapter struct {
	wallet    *wallet.Wallet
	provider  wallet.Provider
	bridge    *bridge.Client
	submitter Submitter
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAdapter wires the adapter. The bridge client may be nil when only
// same-chain deposits are needed.
func NewAdapter(w *wallet.Wallet, provider wallet.Provider, bridgeClient *bridge.Client, submitter Submitter, logger zerolog.Logger) *Adapter {
	return &Adapter{
		wallet:    w,
		provider:  provider,
		bridge:    bridgeClient,
		submitter: submitter,
		logger:    logger.With().Str("component", "deposit").Logger(),
		now:       time.Now,
	}
}

func failure(f *fault.Fault) *Result {
	return &Result{Success: false, Fault: f}
}

// Deposit executes one deposit intent end to end. It never returns a nil
// result; failures are carried in Result.Fault.
func (a *Adapter) Deposit(ctx context.Context, p Params) *Result {
	venue, ok := VenueByName(p.Venue)
	if !ok {
		return failure(fault.New(fault.UnsupportedToken, "unknown venue %q", p.Venue))
	}
	if a.wallet == nil {
		return failure(fault.New(fault.WalletNotConnected, "no wallet configured"))
	}
	if a.provider == nil {
		return failure(fault.New(fault.WalletNotConnected, "on-chain access not configured"))
	}
	if p.Token != "" && p.Token != venue.Settlement.Symbol {
		return failure(fault.New(fault.UnsupportedToken, "%s deposits settle in %s, got %s", venue.Name, venue.Settlement.Symbol, p.Token))
	}

	amount, err := decimal.NewFromString(p.Amount)
	if err != nil || !amount.IsPositive() {
		return failure(fault.New(fault.InvalidOrderParams, "invalid deposit amount %q", p.Amount))
	}
	if amount.LessThan(venue.Minimum) {
		return failure(fault.New(fault.BelowMinimumAmount, "minimum deposit amount is %s %s", venue.Minimum.String(), venue.Settlement.Symbol))
	}

	net := venue.Net(p.IsMainnet)
	crossChain := p.SourceChainID != 0 && p.SourceChainID != net.ChainID

	balanceChain := net.ChainID
	if crossChain {
		balanceChain = p.SourceChainID
	}
	if f := a.ensureChain(ctx, balanceChain); f != nil {
		return failure(f)
	}
	units := amount.Shift(venue.Settlement.Decimals).BigInt()
	if f := a.checkBalance(ctx, venue, balanceChain, units, amount); f != nil {
		return failure(f)
	}

	if crossChain {
		// The permit nonce lives on the destination-chain token contract.
		if f := a.ensureChain(ctx, net.ChainID); f != nil {
			return failure(f)
		}
	}
	permit, f := a.signPermit(ctx, venue, p.IsMainnet, units)
	if f != nil {
		return failure(f)
	}

	if crossChain {
		return a.submitViaBridge(ctx, venue, net, p, amount, units, permit)
	}
	return a.submitDirect(ctx, venue, net, p, units, permit)
}

// ensureChain verifies the provider chain and makes exactly one switch
// attempt on mismatch.
func (a *Adapter) ensureChain(ctx context.Context, required uint64) *fault.Fault {
	current, err := a.provider.ChainID(ctx)
	if err != nil {
		return fault.Wrap(fault.WrongNetwork, err, "read active chain")
	}
	if current == required {
		return nil
	}
	if err := a.provider.SwitchChain(ctx, required); err != nil {
		return fault.Wrap(fault.WrongNetwork, err, "switch to chain %d failed", required)
	}
	return nil
}

func (a *Adapter) checkBalance(ctx context.Context, venue *Venue, chainID uint64, units *big.Int, amount decimal.Decimal) *fault.Fault {
	tokenAddr, ok := venue.Settlement.Address(chainID)
	if !ok {
		return fault.New(fault.UnsupportedToken, "no %s contract on chain %d", venue.Settlement.Symbol, chainID)
	}
	balance, err := a.provider.TokenBalance(ctx, tokenAddr, a.wallet.Address())
	if err != nil {
		return fault.Classify(fmt.Errorf("read %s balance: %w", venue.Settlement.Symbol, err))
	}
	if balance.Cmp(units) < 0 {
		available := decimal.NewFromBigInt(balance, -venue.Settlement.Decimals)
		return fault.New(fault.InsufficientBalance, "insufficient %s balance: required %s, available %s",
			venue.Settlement.Symbol, amount.String(), available.String())
	}
	return nil
}

func (a *Adapter) signPermit(ctx context.Context, venue *Venue, isMainnet bool, units *big.Int) (*wallet.Permit, *fault.Fault) {
	domain, err := venue.PermitDomain(isMainnet)
	if err != nil {
		return nil, fault.New(fault.UnsupportedToken, "%s", err)
	}
	nonce, err := a.provider.TokenNonce(ctx, domain.VerifyingContract, a.wallet.Address())
	if err != nil {
		return nil, fault.Classify(fmt.Errorf("read permit nonce: %w", err))
	}
	permit, err := a.wallet.SignPermit(domain, venue.Net(isMainnet).BridgeAddress, units, nonce, a.now())
	if err != nil {
		return nil, fault.Classify(fmt.Errorf("sign permit: %w", err))
	}
	return permit, nil
}

func (a *Adapter) submitDirect(ctx context.Context, venue *Venue, net Network, p Params, units *big.Int, permit *wallet.Permit) *Result {
	if a.submitter == nil {
		return failure(fault.New(fault.WalletNotConnected, "no transaction submitter configured"))
	}
	calldata, err := venue.DepositCalldata(units, permit)
	if err != nil {
		return failure(fault.Classify(err))
	}
	txHash, confirmed, err := a.submitter.SubmitDeposit(ctx, net.ChainID, net.BridgeAddress, calldata, p.Confirmations)
	if err != nil {
		if txHash != "" {
			// Submitted on chain, only the confirmation wait failed.
			a.logger.Warn().Err(err).Str("tx", txHash).Str("venue", venue.Name).
				Msg("deposit submitted but confirmation wait failed")
			return &Result{Success: true, TxHash: txHash, Confirmed: false}
		}
		return failure(fault.Classify(err))
	}
	a.logger.Info().Str("venue", venue.Name).Str("tx", txHash).Bool("confirmed", confirmed).
		Msg("deposit submitted")
	return &Result{Success: true, TxHash: txHash, Confirmed: confirmed}
}

func (a *Adapter) submitViaBridge(ctx context.Context, venue *Venue, net Network, p Params, amount decimal.Decimal, units *big.Int, permit *wallet.Permit) *Result {
	if a.bridge == nil {
		return failure(fault.New(fault.Unknown, "no bridge client configured for cross-chain deposit"))
	}
	result, err := a.bridge.BridgeAndExecute(ctx, bridge.ExecuteRequest{
		Request: bridge.Request{
			Token:       venue.Settlement.Symbol,
			Amount:      amount,
			FromChainID: int64(p.SourceChainID),
			ToChainID:   int64(net.ChainID),
			Owner:       a.wallet.HexAddress(),
		},
		Execute: bridge.ExecuteSpec{
			ContractAddress: net.BridgeAddress.Hex(),
			ABI:             venue.depositABI,
			FunctionName:    venue.depositFunction,
			BuildParams: func() ([]any, error) {
				return venue.buildParams(units, permit)
			},
			TokenApproval: &bridge.TokenApproval{
				Token:  venue.Settlement.Symbol,
				Amount: amount,
			},
		},
		WaitForReceipt:        true,
		RequiredConfirmations: p.Confirmations,
	})
	if err != nil {
		return failure(fault.Classify(err))
	}
	if !result.Success {
		return failure(fault.Classify(fmt.Errorf("bridge and execute: %s", result.Error)))
	}
	return &Result{Success: true, TxHash: result.ExecuteTxHash, Confirmed: result.Confirmed}
}
