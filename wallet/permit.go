package wallet

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// permitValidity bounds how long a signed permit stays usable.
const permitValidity = time.Hour

// PermitDomain identifies the EIP-2612 signing domain of a settlement token.
// Name and version are declared per venue; tokens differ ("USD Coin" v2 on
// most chains, "USDC" v1 on some testnets).
type PermitDomain struct {
	Name              string
	Version           string
	ChainID           uint64
	VerifyingContract common.Address
}

// Permit is a signed EIP-2612 transfer authorization ready for submission.
type Permit struct {
	Owner    common.Address
	Spender  common.Address
	Value    *big.Int
	Deadline *big.Int
	Sig      Signature
}

var permitTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"Permit": {
		{Name: "owner", Type: "address"},
		{Name: "spender", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
	},
}

// PermitTypedData builds the EIP-712 payload for a token permit.
func PermitTypedData(domain PermitDomain, owner, spender common.Address, value, nonce, deadline *big.Int) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       permitTypes,
		PrimaryType: "Permit",
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           ethmath.NewHexOrDecimal256(int64(domain.ChainID)),
			VerifyingContract: domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"owner":    owner.Hex(),
			"spender":  spender.Hex(),
			"value":    value.String(),
			"nonce":    nonce.String(),
			"deadline": deadline.String(),
		},
	}
}

// SignPermit signs a permit for spender over value with a deadline one hour
// out from now.
func (w *Wallet) SignPermit(domain PermitDomain, spender common.Address, value, nonce *big.Int, now time.Time) (*Permit, error) {
	deadline := big.NewInt(now.Add(permitValidity).Unix())
	td := PermitTypedData(domain, w.address, spender, value, nonce, deadline)
	sig, err := w.SignTypedData(&td)
	if err != nil {
		return nil, err
	}
	return &Permit{
		Owner:    w.address,
		Spender:  spender,
		Value:    new(big.Int).Set(value),
		Deadline: deadline,
		Sig:      sig,
	}, nil
}
