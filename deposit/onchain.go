package deposit

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/perpdesk/perpdesk/wallet"
)

const (
	receiptPollInterval = 3 * time.Second
	receiptWaitTimeout  = 2 * time.Minute
	gasLimitMargin      = 120 // percent of the estimate
)

var errNoClientForChain = errors.New("deposit: no RPC client for chain")

// OnchainSubmitter broadcasts deposit calls through per-chain ethclient
// connections and waits for confirmations by polling receipts.
type OnchainSubmitter struct {
	wallet  *wallet.Wallet
	clients map[uint64]*ethclient.Client
	logger  zerolog.Logger
}

// NewOnchainSubmitter wires a submitter over already-dialed clients.
func NewOnchainSubmitter(w *wallet.Wallet, clients map[uint64]*ethclient.Client, logger zerolog.Logger) *OnchainSubmitter {
	return &OnchainSubmitter{
		wallet:  w,
		clients: clients,
		logger:  logger.With().Str("component", "onchain").Logger(),
	}
}

// SubmitDeposit signs and broadcasts the calldata against the venue bridge
// contract, then waits for the requested confirmation depth. A non-empty
// txHash alongside an error means the transaction went out but the
// confirmation wait failed.
func (s *OnchainSubmitter) SubmitDeposit(ctx context.Context, chainID uint64, to common.Address, calldata []byte, confirmations uint64) (string, bool, error) {
	client, ok := s.clients[chainID]
	if !ok {
		return "", false, fmt.Errorf("%w %d", errNoClientForChain, chainID)
	}

	from := s.wallet.Address()
	nonce, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", false, fmt.Errorf("read account nonce: %w", err)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return "", false, fmt.Errorf("suggest gas price: %w", err)
	}
	gasLimit, err := client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: calldata})
	if err != nil {
		return "", false, fmt.Errorf("estimate gas: %w", err)
	}
	gasLimit = gasLimit * gasLimitMargin / 100

	tx := ethtypes.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, calldata)
	signed, err := s.wallet.SignTx(tx, new(big.Int).SetUint64(chainID))
	if err != nil {
		return "", false, fmt.Errorf("sign transaction: %w", err)
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return "", false, fmt.Errorf("broadcast transaction: %w", err)
	}

	txHash := signed.Hash().Hex()
	s.logger.Info().Str("tx", txHash).Uint64("chain", chainID).Msg("deposit transaction broadcast")

	confirmed, err := s.waitForConfirmations(ctx, client, signed.Hash(), confirmations)
	return txHash, confirmed, err
}

func (s *OnchainSubmitter) waitForConfirmations(ctx context.Context, client *ethclient.Client, hash common.Hash, confirmations uint64) (bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, receiptWaitTimeout)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	var minedAt uint64
	for {
		select {
		case <-waitCtx.Done():
			return false, fmt.Errorf("confirmation wait: %w", waitCtx.Err())
		case <-ticker.C:
		}

		if minedAt == 0 {
			receipt, err := client.TransactionReceipt(waitCtx, hash)
			if err != nil {
				continue
			}
			if receipt.Status != ethtypes.ReceiptStatusSuccessful {
				return false, fmt.Errorf("transaction %s reverted", hash.Hex())
			}
			minedAt = receipt.BlockNumber.Uint64()
		}
		if confirmations <= 1 && minedAt != 0 {
			return true, nil
		}
		head, err := client.BlockNumber(waitCtx)
		if err != nil {
			continue
		}
		if head >= minedAt+confirmations-1 {
			return true, nil
		}
	}
}
