package bridge

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/shopspring/decimal"
)

// Request describes a plain token bridge between chains.
type Request struct {
	Token       string          `json:"token"`
	Amount      decimal.Decimal `json:"amount"`
	FromChainID int64           `json:"fromChainId"`
	ToChainID   int64           `json:"toChainId"`
	Owner       string          `json:"owner"`
}

// TokenApproval describes the approval the aggregator needs before moving
// funds on the destination chain.
type TokenApproval struct {
	Token  string          `json:"token"`
	Amount decimal.Decimal `json:"amount"`
}

// ExecuteSpec describes the destination-chain contract call chained after the
// bridge leg. BuildParams is invoked once, right before submission, so the
// caller can bind fresh values such as permit signatures.
type ExecuteSpec struct {
	ContractAddress string
	ABI             *abi.ABI
	FunctionName    string
	BuildParams     func() ([]any, error)
	TokenApproval   *TokenApproval
}

// ExecuteRequest bundles a bridge with a destination-chain execution.
type ExecuteRequest struct {
	Request
	Execute               ExecuteSpec
	WaitForReceipt        bool
	RequiredConfirmations uint64
}

// Result is the discriminated outcome of a bridge call.
type Result struct {
	Success     bool   `json:"success"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ExecuteResult is the discriminated outcome of a bridge-and-execute call.
type ExecuteResult struct {
	Success       bool   `json:"success"`
	ExecuteTxHash string `json:"executeTransactionHash,omitempty"`
	Confirmed     bool   `json:"confirmed,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Simulation is the fee/ETA preview for a prospective bridge.
type Simulation struct {
	Fee              decimal.Decimal `json:"fee"`
	FeeToken         string          `json:"feeToken"`
	EstimatedSeconds int64           `json:"estimatedSeconds"`
	ReceivedAmount   decimal.Decimal `json:"receivedAmount"`
}

// Balance is one entry of the aggregated multi-chain balance view.
type Balance struct {
	Token    string          `json:"token"`
	ChainID  int64           `json:"chainId"`
	Amount   decimal.Decimal `json:"amount"`
	Decimals int32           `json:"decimals"`
}

// UnifiedBalances groups balances per token symbol with a cross-chain total.
type UnifiedBalances struct {
	Owner    string                     `json:"owner"`
	Totals   map[string]decimal.Decimal `json:"totals"`
	Balances []Balance                  `json:"balances"`
}
