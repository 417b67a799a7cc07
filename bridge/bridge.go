// Package bridge implements an HTTP client for the cross-chain liquidity
// aggregator: plain bridging, bridge-and-execute, fee simulation and the
// unified multi-chain balance view. Results follow the discriminated-result
// contract used by the deposit adapters.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
)

const (
	bridgePath   = "/v2/bridge"
	executePath  = "/v2/bridge/execute"
	simulatePath = "/v2/bridge/simulate"
	balancesPath = "/v2/balances"

	defaultConfirmations = 2
)

var (
	errBaseURLRequired       = errors.New("bridge: base URL is required")
	errAmountNotPositive     = errors.New("bridge: amount must be positive")
	errExecuteSpecIncomplete = errors.New("bridge: execute spec requires contract address, abi and function name")
	errOwnerRequired         = errors.New("bridge: owner address is required")
)

// Client talks to one aggregator deployment.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// New constructs a Client.
func New(baseURL string, httpClient *http.Client, logger zerolog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.With().Str("component", "bridge").Logger(),
	}, nil
}

type bridgeAPIResponse struct {
	Success       bool   `json:"success"`
	ExplorerURL   string `json:"explorerUrl"`
	ExecuteTxHash string `json:"executeTransactionHash"`
	Confirmed     bool   `json:"confirmed"`
	Error         string `json:"error"`
}

// Bridge moves a token amount between chains without a follow-up call.
func (c *Client) Bridge(ctx context.Context, req Request) (*Result, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	var resp bridgeAPIResponse
	if err := c.post(ctx, bridgePath, req, &resp); err != nil {
		return nil, err
	}
	return &Result{Success: resp.Success, ExplorerURL: resp.ExplorerURL, Error: resp.Error}, nil
}

type executeAPIRequest struct {
	Request
	Execute struct {
		ContractAddress string         `json:"contractAddress"`
		FunctionName    string         `json:"functionName"`
		Calldata        string         `json:"calldata"`
		TokenApproval   *TokenApproval `json:"tokenApproval,omitempty"`
	} `json:"execute"`
	WaitForReceipt        bool   `json:"waitForReceipt"`
	RequiredConfirmations uint64 `json:"requiredConfirmations"`
}

// BridgeAndExecute bridges and then invokes the destination-chain contract
// call described by req.Execute as one user-facing action. The calldata is
// packed locally right before submission so permit signatures stay fresh.
func (c *Client) BridgeAndExecute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	if err := validateRequest(&req.Request); err != nil {
		return nil, err
	}
	if req.Execute.ContractAddress == "" || req.Execute.ABI == nil || req.Execute.FunctionName == "" {
		return nil, errExecuteSpecIncomplete
	}
	params, err := req.Execute.BuildParams()
	if err != nil {
		return nil, fmt.Errorf("build execute params: %w", err)
	}
	calldata, err := req.Execute.ABI.Pack(req.Execute.FunctionName, params...)
	if err != nil {
		return nil, fmt.Errorf("pack %s calldata: %w", req.Execute.FunctionName, err)
	}

	apiReq := executeAPIRequest{
		Request:               req.Request,
		WaitForReceipt:        req.WaitForReceipt,
		RequiredConfirmations: req.RequiredConfirmations,
	}
	if apiReq.RequiredConfirmations == 0 {
		apiReq.RequiredConfirmations = defaultConfirmations
	}
	apiReq.Execute.ContractAddress = strings.ToLower(req.Execute.ContractAddress)
	apiReq.Execute.FunctionName = req.Execute.FunctionName
	apiReq.Execute.Calldata = hexutil.Encode(calldata)
	apiReq.Execute.TokenApproval = req.Execute.TokenApproval

	var resp bridgeAPIResponse
	if err := c.post(ctx, executePath, apiReq, &resp); err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("token", req.Token).
		Int64("to_chain", req.ToChainID).
		Bool("success", resp.Success).
		Msg("bridge and execute submitted")
	return &ExecuteResult{
		Success:       resp.Success,
		ExecuteTxHash: resp.ExecuteTxHash,
		Confirmed:     resp.Confirmed,
		Error:         resp.Error,
	}, nil
}

// SimulateBridge previews fees and timing without moving funds.
func (c *Client) SimulateBridge(ctx context.Context, req Request) (*Simulation, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	sim := new(Simulation)
	if err := c.post(ctx, simulatePath, req, sim); err != nil {
		return nil, err
	}
	return sim, nil
}

// UnifiedBalances aggregates the owner's token balances across chains.
func (c *Client) UnifiedBalances(ctx context.Context, owner string) (*UnifiedBalances, error) {
	if owner == "" {
		return nil, errOwnerRequired
	}
	balances := new(UnifiedBalances)
	if err := c.get(ctx, balancesPath+"/"+strings.ToLower(owner), balances); err != nil {
		return nil, err
	}
	return balances, nil
}

func validateRequest(req *Request) error {
	if req.Owner == "" {
		return errOwnerRequired
	}
	if !req.Amount.IsPositive() {
		return errAmountNotPositive
	}
	req.Owner = strings.ToLower(req.Owner)
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload, result any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, result)
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bridge %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge %s: unexpected status %d: %s", req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
