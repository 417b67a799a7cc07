// Package chains holds the static chain and token catalog. Entries are
// constructed at package load and are read-only thereafter.
package chains

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Chain describes an EVM network.
type Chain struct {
	ID             uint64
	Name           string
	NativeSymbol   string
	NativeDecimals int32
	RPCURL         string
	ExplorerURL    string
}

// Token describes an asset that may exist on several chains. Addresses maps
// chain id to the token contract; native tokens have no entries.
type Token struct {
	Symbol    string
	Decimals  int32
	Native    bool
	Addresses map[uint64]common.Address
}

// Well-known chain ids.
const (
	EthereumID = 1
	OptimismID = 10
	BSCID      = 56
	BaseID     = 8453
	ArbitrumID = 42161

	ArbitrumSepoliaID = 421614
)

var catalog = map[uint64]Chain{
	EthereumID: {
		ID: EthereumID, Name: "Ethereum", NativeSymbol: "ETH", NativeDecimals: 18,
		RPCURL: "https://eth.llamarpc.com", ExplorerURL: "https://etherscan.io",
	},
	OptimismID: {
		ID: OptimismID, Name: "Optimism", NativeSymbol: "ETH", NativeDecimals: 18,
		RPCURL: "https://mainnet.optimism.io", ExplorerURL: "https://optimistic.etherscan.io",
	},
	BSCID: {
		ID: BSCID, Name: "BNB Smart Chain", NativeSymbol: "BNB", NativeDecimals: 18,
		RPCURL: "https://bsc-dataseed.binance.org", ExplorerURL: "https://bscscan.com",
	},
	BaseID: {
		ID: BaseID, Name: "Base", NativeSymbol: "ETH", NativeDecimals: 18,
		RPCURL: "https://mainnet.base.org", ExplorerURL: "https://basescan.org",
	},
	ArbitrumID: {
		ID: ArbitrumID, Name: "Arbitrum One", NativeSymbol: "ETH", NativeDecimals: 18,
		RPCURL: "https://arb1.arbitrum.io/rpc", ExplorerURL: "https://arbiscan.io",
	},
	ArbitrumSepoliaID: {
		ID: ArbitrumSepoliaID, Name: "Arbitrum Sepolia", NativeSymbol: "ETH", NativeDecimals: 18,
		RPCURL: "https://sepolia-rollup.arbitrum.io/rpc", ExplorerURL: "https://sepolia.arbiscan.io",
	},
}

// USDC is the canonical settlement token for the supported venues.
var USDC = Token{
	Symbol:   "USDC",
	Decimals: 6,
	Addresses: map[uint64]common.Address{
		EthereumID:        common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		OptimismID:        common.HexToAddress("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85"),
		BSCID:             common.HexToAddress("0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d"),
		BaseID:            common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
		ArbitrumID:        common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"),
		ArbitrumSepoliaID: common.HexToAddress("0x75faf114eafb1BDbe2F0316DF893fd58CE46AA4d"),
	},
}

// USDT is carried for venues settling in Tether.
var USDT = Token{
	Symbol:   "USDT",
	Decimals: 6,
	Addresses: map[uint64]common.Address{
		EthereumID: common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"),
		ArbitrumID: common.HexToAddress("0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9"),
		BSCID:      common.HexToAddress("0x55d398326f99059fF775485246999027B3197955"),
	},
}

// ETH is the native gas token used by the refuel flow.
var ETH = Token{Symbol: "ETH", Decimals: 18, Native: true}

var tokens = map[string]Token{
	"USDC": USDC,
	"USDT": USDT,
	"ETH":  ETH,
}

// ByID returns the chain definition for an id.
func ByID(id uint64) (Chain, bool) {
	c, ok := catalog[id]
	return c, ok
}

// All returns every catalogued chain.
func All() []Chain {
	out := make([]Chain, 0, len(catalog))
	for _, c := range catalog {
		out = append(out, c)
	}
	return out
}

// TokenBySymbol returns a catalogued token by its symbol, case-insensitive.
func TokenBySymbol(symbol string) (Token, bool) {
	t, ok := tokens[strings.ToUpper(symbol)]
	return t, ok
}

// Address returns the token contract on the given chain.
func (t Token) Address(chainID uint64) (common.Address, bool) {
	addr, ok := t.Addresses[chainID]
	return addr, ok
}
