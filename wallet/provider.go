package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Provider abstracts the connected network: the active chain, a one-shot
// chain switch, and the ERC-20 reads the deposit flow needs. A fake provider
// backs the adapter tests.
type Provider interface {
	ChainID(ctx context.Context) (uint64, error)
	SwitchChain(ctx context.Context, chainID uint64) error
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
	TokenNonce(ctx context.Context, token, owner common.Address) (*big.Int, error)
}

var errNoEndpointForChain = errors.New("no RPC endpoint configured for chain")

const erc20ABIJSON = `[
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"nonces","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

var erc20ABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic(fmt.Sprintf("parse erc20 abi: %v", err))
	}
	return parsed
}()

// RPCProvider implements Provider over go-ethereum JSON-RPC clients. A server
// side signer has no wallet_switchEthereumChain; switching selects among the
// configured per-chain endpoints instead.
type RPCProvider struct {
	mu        sync.Mutex
	endpoints map[uint64]string
	active    uint64
	client    *ethclient.Client
	dial      func(ctx context.Context, url string) (*ethclient.Client, error)
}

// NewRPCProvider builds a provider from a chain id to RPC URL map and
// connects to the initial chain.
func NewRPCProvider(ctx context.Context, endpoints map[uint64]string, initial uint64) (*RPCProvider, error) {
	p := &RPCProvider{
		endpoints: endpoints,
		dial: func(ctx context.Context, url string) (*ethclient.Client, error) {
			return ethclient.DialContext(ctx, url)
		},
	}
	if err := p.SwitchChain(ctx, initial); err != nil {
		return nil, err
	}
	return p, nil
}

// ChainID reports the chain the provider is currently connected to.
func (p *RPCProvider) ChainID(_ context.Context) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return 0, errNoEndpointForChain
	}
	return p.active, nil
}

// SwitchChain reconnects the provider to the endpoint configured for the
// target chain. Fails without side effects when no endpoint is configured.
func (p *RPCProvider) SwitchChain(ctx context.Context, chainID uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == chainID && p.client != nil {
		return nil
	}
	url, ok := p.endpoints[chainID]
	if !ok {
		return fmt.Errorf("%w: %d", errNoEndpointForChain, chainID)
	}
	client, err := p.dial(ctx, url)
	if err != nil {
		return fmt.Errorf("dial chain %d: %w", chainID, err)
	}
	if p.client != nil {
		p.client.Close()
	}
	p.client = client
	p.active = chainID
	return nil
}

// TokenBalance reads balanceOf(owner) on the token contract.
func (p *RPCProvider) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return p.callUint256(ctx, token, "balanceOf", owner)
}

// TokenNonce reads the EIP-2612 nonces(owner) counter on the token contract.
func (p *RPCProvider) TokenNonce(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return p.callUint256(ctx, token, "nonces", owner)
}

func (p *RPCProvider) callUint256(ctx context.Context, token common.Address, method string, owner common.Address) (*big.Int, error) {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	if client == nil {
		return nil, errNoEndpointForChain
	}
	input, err := erc20ABI.Pack(method, owner)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	results, err := erc20ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("unexpected %s result arity %d", method, len(results))
	}
	value, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result type %T", method, results[0])
	}
	return value, nil
}
