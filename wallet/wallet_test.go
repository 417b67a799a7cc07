package wallet

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPrivateKey = "0x4f3edf983ac636a65a842ce7c78d9aa706d3b113b37ad5dee0c90c0f0da58c16"
	testAddress    = "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1"
)

func TestNewFromHex(t *testing.T) {
	t.Parallel()

	w, err := NewFromHex(testPrivateKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddress), w.Address())
	assert.Equal(t, "0x90f8bf6a479f320ead074411a4b0e7944ea8c9c1", w.HexAddress())

	// same key without prefix
	w2, err := NewFromHex(testPrivateKey[2:])
	require.NoError(t, err)
	assert.Equal(t, w.Address(), w2.Address())

	_, err = NewFromHex("")
	require.ErrorIs(t, err, errPrivateKeyNotProvided)
	_, err = NewFromHex("0xdeadbeef")
	require.Error(t, err)
	_, err = NewFromHex("0xzz")
	require.Error(t, err)
}

func TestSignTypedDataRecovers(t *testing.T) {
	t.Parallel()

	w, err := NewFromHex(testPrivateKey)
	require.NoError(t, err)

	domain := PermitDomain{
		Name:              "USD Coin",
		Version:           "2",
		ChainID:           42161,
		VerifyingContract: common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"),
	}
	spender := common.HexToAddress("0x2Df1c51E09aECF9cacB7bc98cB1742757f163dF7")
	td := PermitTypedData(domain, w.Address(), spender, big.NewInt(5_000_000), big.NewInt(0), big.NewInt(1_700_003_600))

	sig, err := w.SignTypedData(&td)
	require.NoError(t, err)
	require.Contains(t, []uint8{27, 28}, sig.V)

	hash, _, err := apitypes.TypedDataAndHash(td)
	require.NoError(t, err)

	raw := make([]byte, 65)
	copy(raw[:32], sig.R[:])
	copy(raw[32:64], sig.S[:])
	raw[64] = sig.V - 27
	pub, err := crypto.SigToPub(hash, raw)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), crypto.PubkeyToAddress(*pub))
}

func TestSignTypedDataNil(t *testing.T) {
	t.Parallel()

	w, err := NewFromHex(testPrivateKey)
	require.NoError(t, err)
	_, err = w.SignTypedData(nil)
	require.ErrorIs(t, err, errTypedDataPayloadMissing)
}

func TestSignPermitDeadline(t *testing.T) {
	t.Parallel()

	w, err := NewFromHex(testPrivateKey)
	require.NoError(t, err)

	domain := PermitDomain{Name: "USD Coin", Version: "2", ChainID: 42161, VerifyingContract: common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")}
	now := time.Unix(1_700_000_000, 0)
	p, err := w.SignPermit(domain, common.HexToAddress("0x2Df1c51E09aECF9cacB7bc98cB1742757f163dF7"), big.NewInt(5_000_000), big.NewInt(3), now)
	require.NoError(t, err)

	assert.Equal(t, w.Address(), p.Owner)
	assert.Equal(t, now.Add(time.Hour).Unix(), p.Deadline.Int64())
	assert.NotEmpty(t, p.Sig.RHex())
	assert.NotEmpty(t, p.Sig.SHex())
}
