package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/trash2cash/backend/internal/config"
)

type OutcomeStatus string

const (
	StatusConfirmed OutcomeStatus = "confirmed"
	StatusRejected  OutcomeStatus = "rejected"
	StatusPending   OutcomeStatus = "pending"
)

// Outcome is the terminal (or still-pending) state of a submitted mint.
// Pending is distinct from Rejected: a transaction that has not confirmed
// within the caller's deadline may still land later.
type Outcome struct {
	Status OutcomeStatus
	TxHash string
	Reason string
}

// Gateway submits mint transactions on the T2C manager contract and reports
// their fate. Implementations own retry and fee behavior; callers only see
// the three outcome states.
type Gateway interface {
	SubmitMint(ctx context.Context, userID, walletAddress string, amount int64) (txHash string, err error)
	AwaitOutcome(ctx context.Context, txHash string) (Outcome, error)
	TxOutcome(ctx context.Context, txHash string) (Outcome, error)
	MintEvents(ctx context.Context, fromBlock, toBlock uint64) ([]MintEvent, error)
	LatestBlock(ctx context.Context) (uint64, error)
}

type MintEvent struct {
	TxHash      string
	BlockNumber uint64
}

// managerABI covers the slice of the T2C manager contract this service
// touches: the mint entry point and its event.
const managerABI = `[
	{"type":"function","name":"mintTokens","stateMutability":"nonpayable","inputs":[{"name":"userId","type":"string"},{"name":"wallet","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"event","name":"TokensMinted","inputs":[{"name":"userId","type":"string","indexed":false},{"name":"wallet","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}],"anonymous":false}
]`

const mintGasLimit = 200000

// weiPerToken converts whole T2C tokens to the contract's 18-decimal unit.
var weiPerToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

type EthGateway struct {
	client        *ethclient.Client
	key           *ecdsa.PrivateKey
	from          common.Address
	contract      common.Address
	chainID       *big.Int
	confirmations uint64
	parsedABI     abi.ABI
	pollInterval  time.Duration
}

func NewEthGateway(cfg *config.Config) (*EthGateway, error) {
	if cfg.ChainRPCURL == "" {
		return nil, errors.New("CHAIN_RPC_URL is not set")
	}
	if cfg.ContractAddress == "" {
		return nil, errors.New("T2C_CONTRACT_ADDRESS is not set")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.OperatorPrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse operator key: %w", err)
	}
	client, err := ethclient.Dial(cfg.ChainRPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(managerABI))
	if err != nil {
		return nil, err
	}
	return &EthGateway{
		client:        client,
		key:           key,
		from:          crypto.PubkeyToAddress(key.PublicKey),
		contract:      common.HexToAddress(cfg.ContractAddress),
		chainID:       big.NewInt(cfg.ChainID),
		confirmations: cfg.ConfirmationBlocks,
		parsedABI:     parsed,
		pollInterval:  3 * time.Second,
	}, nil
}

func (g *EthGateway) Close() {
	g.client.Close()
}

func (g *EthGateway) SubmitMint(ctx context.Context, userID, walletAddress string, amount int64) (string, error) {
	nonce, err := g.client.PendingNonceAt(ctx, g.from)
	if err != nil {
		return "", fmt.Errorf("fetch nonce: %w", err)
	}
	gasPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("suggest gas price: %w", err)
	}
	wei := new(big.Int).Mul(big.NewInt(amount), weiPerToken)
	data, err := g.parsedABI.Pack("mintTokens", userID, common.HexToAddress(walletAddress), wei)
	if err != nil {
		return "", fmt.Errorf("pack mintTokens: %w", err)
	}

	tx := types.NewTransaction(nonce, g.contract, big.NewInt(0), mintGasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(g.chainID), g.key)
	if err != nil {
		return "", fmt.Errorf("sign mint tx: %w", err)
	}
	if err := g.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send mint tx: %w", err)
	}
	return signed.Hash().Hex(), nil
}

// AwaitOutcome polls for a receipt until the transaction confirms with the
// configured block depth, reverts, or ctx expires. Expiry yields a Pending
// outcome, never an error: the mint may still land on-chain later.
func (g *EthGateway) AwaitOutcome(ctx context.Context, txHash string) (Outcome, error) {
	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for {
		out, err := g.TxOutcome(ctx, txHash)
		if err != nil {
			return Outcome{}, err
		}
		if out.Status != StatusPending {
			return out, nil
		}
		select {
		case <-ctx.Done():
			return Outcome{Status: StatusPending, TxHash: txHash}, nil
		case <-ticker.C:
		}
	}
}

// TxOutcome is a single-shot receipt check, shared with the reconciler.
func (g *EthGateway) TxOutcome(ctx context.Context, txHash string) (Outcome, error) {
	receipt, err := g.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return Outcome{Status: StatusPending, TxHash: txHash}, nil
		}
		if ctx.Err() != nil {
			return Outcome{Status: StatusPending, TxHash: txHash}, nil
		}
		return Outcome{}, fmt.Errorf("fetch receipt: %w", err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return Outcome{Status: StatusRejected, TxHash: txHash, Reason: "transaction reverted"}, nil
	}

	head, err := g.client.BlockNumber(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetch head: %w", err)
	}
	if head < receipt.BlockNumber.Uint64()+g.confirmations-1 {
		return Outcome{Status: StatusPending, TxHash: txHash}, nil
	}
	return Outcome{Status: StatusConfirmed, TxHash: txHash}, nil
}

// MintEvents lists TokensMinted logs emitted by the manager contract in the
// given block range. The reconciler cross-checks these against the ledger to
// spot mints with no matching completed claim.
func (g *EthGateway) MintEvents(ctx context.Context, fromBlock, toBlock uint64) ([]MintEvent, error) {
	mintedSig := g.parsedABI.Events["TokensMinted"].ID

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{g.contract},
		Topics:    [][]common.Hash{{mintedSig}},
	}
	logs, err := g.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("filter mint logs: %w", err)
	}

	events := make([]MintEvent, 0, len(logs))
	for _, lg := range logs {
		events = append(events, MintEvent{
			TxHash:      lg.TxHash.Hex(),
			BlockNumber: lg.BlockNumber,
		})
	}
	return events, nil
}

func (g *EthGateway) LatestBlock(ctx context.Context) (uint64, error) {
	return g.client.BlockNumber(ctx)
}
