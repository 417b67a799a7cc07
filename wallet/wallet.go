// Package wallet provides the local signing key and the on-chain provider
// used by the deposit and position adapters. Both are injected explicitly;
// there is no ambient global signer.
package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var (
	errPrivateKeyNotProvided   = errors.New("private key not provided")
	errTypedDataPayloadMissing = errors.New("typed data payload missing")
)

// Signature is a split secp256k1 signature in the (v, r, s) form contract
// calls and exchange payloads expect.
type Signature struct {
	V uint8
	R [32]byte
	S [32]byte
}

// RHex returns the r component as a 0x-prefixed hex string.
func (s Signature) RHex() string {
	return "0x" + hex.EncodeToString(s.R[:])
}

// SHex returns the s component as a 0x-prefixed hex string.
func (s Signature) SHex() string {
	return "0x" + hex.EncodeToString(s.S[:])
}

// Wallet wraps a local ECDSA key.
type Wallet struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewFromHex constructs a wallet from a hex-encoded private key, with or
// without the 0x prefix.
func NewFromHex(hexKey string) (*Wallet, error) {
	key := strings.TrimPrefix(hexKey, "0x")
	if key == "" {
		return nil, errPrivateKeyNotProvided
	}
	keyBytes, err := hex.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("invalid private key length %d", len(keyBytes))
	}
	priv, err := crypto.ToECDSA(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("construct private key: %w", err)
	}
	return &Wallet{
		privateKey: priv,
		address:    crypto.PubkeyToAddress(priv.PublicKey),
	}, nil
}

// Address returns the wallet's address.
func (w *Wallet) Address() common.Address {
	return w.address
}

// HexAddress returns the lower-cased hex address, the form exchange payloads
// use.
func (w *Wallet) HexAddress() string {
	return strings.ToLower(w.address.Hex())
}

// SignTx signs an on-chain transaction for the given chain with EIP-155
// replay protection.
func (w *Wallet) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if tx == nil {
		return nil, errors.New("transaction missing")
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), w.privateKey)
}

// SignTypedData hashes and signs an EIP-712 payload, returning the split
// signature with v normalised to 27/28.
func (w *Wallet) SignTypedData(td *apitypes.TypedData) (Signature, error) {
	if td == nil {
		return Signature{}, errTypedDataPayloadMissing
	}
	hash, _, err := apitypes.TypedDataAndHash(*td)
	if err != nil {
		return Signature{}, fmt.Errorf("typed data hash: %w", err)
	}
	sig, err := crypto.Sign(hash, w.privateKey)
	if err != nil {
		return Signature{}, fmt.Errorf("sign typed data: %w", err)
	}
	var out Signature
	copy(out.R[:], sig[:32])
	copy(out.S[:], sig[32:64])
	out.V = sig[64] + 27
	return out, nil
}
