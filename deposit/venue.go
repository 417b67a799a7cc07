package deposit

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/perpdesk/perpdesk/chains"
	"github.com/perpdesk/perpdesk/wallet"
)

// Network holds the per-deployment constants of a venue.
type Network struct {
	ChainID       uint64
	BridgeAddress common.Address
	PermitName    string
	PermitVersion string
}

// Venue describes one exchange deposit target as data. The deposit flow
// itself is venue-agnostic; everything exchange-specific lives here.
type Venue struct {
	Name       string
	Mainnet    Network
	Testnet    Network
	Settlement chains.Token
	Minimum    decimal.Decimal

	depositABI      *abi.ABI
	depositFunction string
	buildParams     func(amount *big.Int, permit *wallet.Permit) ([]any, error)
}

// Net selects the deployment constants for the requested network.
func (v *Venue) Net(isMainnet bool) Network {
	if isMainnet {
		return v.Mainnet
	}
	return v.Testnet
}

// PermitDomain builds the settlement token's EIP-2612 domain for a network.
func (v *Venue) PermitDomain(isMainnet bool) (wallet.PermitDomain, error) {
	net := v.Net(isMainnet)
	tokenAddr, ok := v.Settlement.Address(net.ChainID)
	if !ok {
		return wallet.PermitDomain{}, fmt.Errorf("no %s address on chain %d", v.Settlement.Symbol, net.ChainID)
	}
	return wallet.PermitDomain{
		Name:              net.PermitName,
		Version:           net.PermitVersion,
		ChainID:           net.ChainID,
		VerifyingContract: tokenAddr,
	}, nil
}

// DepositCalldata packs the venue bridge-contract call carrying the permit.
func (v *Venue) DepositCalldata(amount *big.Int, permit *wallet.Permit) ([]byte, error) {
	params, err := v.buildParams(amount, permit)
	if err != nil {
		return nil, err
	}
	calldata, err := v.depositABI.Pack(v.depositFunction, params...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", v.depositFunction, err)
	}
	return calldata, nil
}

func mustParseABI(raw string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("parse deposit abi: %v", err))
	}
	return &parsed
}

// Hyperliquid bridge2 takes batched deposits with the permit signature as a
// (r, s, v) uint256 tuple and the amount in USDC base units as uint64.
const hyperliquidBridgeABI = `[{
	"name": "batchedDepositWithPermit",
	"type": "function",
	"stateMutability": "nonpayable",
	"inputs": [{
		"name": "deposits",
		"type": "tuple[]",
		"components": [
			{"name": "user", "type": "address"},
			{"name": "usd", "type": "uint64"},
			{"name": "deadline", "type": "uint64"},
			{"name": "signature", "type": "tuple", "components": [
				{"name": "r", "type": "uint256"},
				{"name": "s", "type": "uint256"},
				{"name": "v", "type": "uint8"}
			]}
		]
	}],
	"outputs": []
}]`

const flatDepositABI = `[{
	"name": "depositWithPermit",
	"type": "function",
	"stateMutability": "nonpayable",
	"inputs": [
		{"name": "user", "type": "address"},
		{"name": "amount", "type": "uint256"},
		{"name": "deadline", "type": "uint256"},
		{"name": "v", "type": "uint8"},
		{"name": "r", "type": "bytes32"},
		{"name": "s", "type": "bytes32"}
	],
	"outputs": []
}]`

type hyperliquidPermitSig struct {
	R *big.Int
	S *big.Int
	V uint8
}

type hyperliquidDepositEntry struct {
	User      common.Address
	Usd       uint64
	Deadline  uint64
	Signature hyperliquidPermitSig
}

func hyperliquidDepositParams(amount *big.Int, permit *wallet.Permit) ([]any, error) {
	if !amount.IsUint64() || !permit.Deadline.IsUint64() {
		return nil, fmt.Errorf("deposit amount %s out of uint64 range", amount)
	}
	entry := hyperliquidDepositEntry{
		User:     permit.Owner,
		Usd:      amount.Uint64(),
		Deadline: permit.Deadline.Uint64(),
		Signature: hyperliquidPermitSig{
			R: new(big.Int).SetBytes(permit.Sig.R[:]),
			S: new(big.Int).SetBytes(permit.Sig.S[:]),
			V: permit.Sig.V,
		},
	}
	return []any{[]hyperliquidDepositEntry{entry}}, nil
}

func flatDepositParams(amount *big.Int, permit *wallet.Permit) ([]any, error) {
	return []any{
		permit.Owner,
		amount,
		permit.Deadline,
		permit.Sig.V,
		permit.Sig.R,
		permit.Sig.S,
	}, nil
}

var minimumDeposit = decimal.NewFromInt(5)

// Venues is the static catalog of supported deposit targets.
var Venues = map[string]*Venue{
	"hyperliquid": {
		Name: "hyperliquid",
		Mainnet: Network{
			ChainID:       chains.ArbitrumID,
			BridgeAddress: common.HexToAddress("0x2Df1c51E09aECF9cacB7bc98cB1742757f163dF7"),
			PermitName:    "USD Coin",
			PermitVersion: "2",
		},
		Testnet: Network{
			ChainID:       chains.ArbitrumSepoliaID,
			BridgeAddress: common.HexToAddress("0x08cfc1B6b2dCF36A1480b99353A354AA8AC56f89"),
			PermitName:    "USDC2",
			PermitVersion: "1",
		},
		Settlement:      chains.USDC,
		Minimum:         minimumDeposit,
		depositABI:      mustParseABI(hyperliquidBridgeABI),
		depositFunction: "batchedDepositWithPermit",
		buildParams:     hyperliquidDepositParams,
	},
	"aster": {
		Name: "aster",
		Mainnet: Network{
			ChainID:       chains.BSCID,
			BridgeAddress: common.HexToAddress("0x128463A60784c4D3f46c23Af3f65eD859Ba87974"),
			PermitName:    "USD Coin",
			PermitVersion: "2",
		},
		Testnet: Network{
			ChainID:       chains.BSCID,
			BridgeAddress: common.HexToAddress("0x128463A60784c4D3f46c23Af3f65eD859Ba87974"),
			PermitName:    "USD Coin",
			PermitVersion: "2",
		},
		Settlement:      chains.USDC,
		Minimum:         minimumDeposit,
		depositABI:      mustParseABI(flatDepositABI),
		depositFunction: "depositWithPermit",
		buildParams:     flatDepositParams,
	},
	"lighter": {
		Name: "lighter",
		Mainnet: Network{
			ChainID:       chains.EthereumID,
			BridgeAddress: common.HexToAddress("0x3B4D794a66304F130a4Db8F2551B0070dfCf5ca7"),
			PermitName:    "USD Coin",
			PermitVersion: "2",
		},
		Testnet: Network{
			ChainID:       chains.EthereumID,
			BridgeAddress: common.HexToAddress("0x3B4D794a66304F130a4Db8F2551B0070dfCf5ca7"),
			PermitName:    "USD Coin",
			PermitVersion: "2",
		},
		Settlement:      chains.USDC,
		Minimum:         decimal.NewFromInt(10),
		depositABI:      mustParseABI(flatDepositABI),
		depositFunction: "depositWithPermit",
		buildParams:     flatDepositParams,
	},
}

// VenueByName resolves a venue by case-insensitive name.
func VenueByName(name string) (*Venue, bool) {
	v, ok := Venues[strings.ToLower(name)]
	return v, ok
}
