// Package hyperliquid implements a self-contained REST and websocket client
// for the Hyperliquid info and exchange endpoints: market metadata, account
// state, signed L1 actions (orders, leverage) and user-signed transfers.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/perpdesk/perpdesk/wallet"
)

// Public API endpoints.
const (
	MainnetAPIURL = "https://api.hyperliquid.xyz"
	TestnetAPIURL = "https://api.hyperliquid-testnet.xyz"
	MainnetWSURL  = "wss://api.hyperliquid.xyz/ws"
	TestnetWSURL  = "wss://api.hyperliquid-testnet.xyz/ws"

	infoPath     = "/info"
	exchangePath = "/exchange"

	infoRequestsPerSecond     = 10
	exchangeRequestsPerSecond = 10
)

// Config parameterizes a Client. Wallet may be nil for read-only use; signed
// actions then fail with errPrivateKeyRequiredForSignedAction.
type Config struct {
	BaseURL        string
	HTTPClient     *http.Client
	Wallet         *wallet.Wallet
	AccountAddress string
	VaultAddress   string
}

// Client talks to one Hyperliquid deployment (mainnet or testnet).
type Client struct {
	baseURL    string
	httpClient *http.Client

	walletMu     sync.Mutex
	wallet       *wallet.Wallet
	accountAddr  string
	vaultAddress string
	expiresAfter *uint64

	now func() time.Time

	infoLimiter     *rate.Limiter
	exchangeLimiter *rate.Limiter

	assetCacheMu sync.RWMutex
	assetCache   map[string]int64
}

// New constructs a client. An empty BaseURL selects mainnet.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = MainnetAPIURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	accountAddr := strings.ToLower(cfg.AccountAddress)
	if accountAddr == "" && cfg.Wallet != nil {
		accountAddr = cfg.Wallet.HexAddress()
	}
	return &Client{
		baseURL:         strings.TrimSuffix(baseURL, "/"),
		httpClient:      httpClient,
		wallet:          cfg.Wallet,
		accountAddr:     accountAddr,
		vaultAddress:    strings.ToLower(cfg.VaultAddress),
		now:             time.Now,
		infoLimiter:     rate.NewLimiter(rate.Limit(infoRequestsPerSecond), infoRequestsPerSecond),
		exchangeLimiter: rate.NewLimiter(rate.Limit(exchangeRequestsPerSecond), exchangeRequestsPerSecond),
		assetCache:      make(map[string]int64),
	}
}

// AccountAddress returns the address queried for account state.
func (c *Client) AccountAddress() string {
	c.walletMu.Lock()
	defer c.walletMu.Unlock()
	return c.accountAddr
}

// SetVaultAddress overrides the vault address used when signing actions.
func (c *Client) SetVaultAddress(address string) {
	c.walletMu.Lock()
	c.vaultAddress = strings.ToLower(address)
	c.walletMu.Unlock()
}

// SetExpiresAfter configures an optional expiresAfter timestamp in
// milliseconds since epoch for future L1 actions.
func (c *Client) SetExpiresAfter(expires *uint64) {
	c.walletMu.Lock()
	c.expiresAfter = expires
	c.walletMu.Unlock()
}

// IsMainnet reports whether the client targets the mainnet deployment.
func (c *Client) IsMainnet() bool {
	return !strings.Contains(strings.ToLower(c.baseURL), "testnet")
}

func (c *Client) sendInfo(ctx context.Context, payload, result any) error {
	return c.sendPOST(ctx, infoPath, payload, result, c.infoLimiter)
}

func (c *Client) sendExchange(ctx context.Context, payload, result any) error {
	return c.sendPOST(ctx, exchangePath, payload, result, c.exchangeLimiter)
}

func (c *Client) sendPOST(ctx context.Context, path string, payload, result any, limiter *rate.Limiter) error {
	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hyperliquid %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s %d: %s", errUnexpectedHTTPStatus, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
