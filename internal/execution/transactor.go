package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/zkevm-ops/zkadmin/internal/codec"
	clierr "github.com/zkevm-ops/zkadmin/internal/errors"
	"github.com/zkevm-ops/zkadmin/internal/network"
)

// Signer signs transactions for one account. *identity.Identity satisfies it.
type Signer interface {
	Address() common.Address
	SignTx(chainID *big.Int, tx *types.Transaction) (*types.Transaction, error)
}

type Options struct {
	Simulate           bool
	GasMultiplier      float64
	MaxFeeGwei         string
	MaxPriorityFeeGwei string
}

func DefaultOptions() Options {
	return Options{Simulate: true, GasMultiplier: 1.2}
}

// Transactor builds, signs and broadcasts EIP-1559 transactions for a single
// signer and tracks its nonce locally, so several transactions can be in
// flight at once.
type Transactor struct {
	backend network.Backend
	signer  Signer
	chainID *big.Int
	poll    time.Duration
	opts    Options
	logger  *slog.Logger

	mu        sync.Mutex
	nextNonce uint64
	haveNonce bool
}

func NewTransactor(conn *network.Connection, signer Signer, opts Options, logger *slog.Logger) *Transactor {
	if opts.GasMultiplier <= 1 {
		opts.GasMultiplier = 1.2
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Transactor{
		backend: conn.Backend(),
		signer:  signer,
		chainID: conn.ChainID(),
		poll:    conn.PollInterval(),
		opts:    opts,
		logger:  logger,
	}
}

func (t *Transactor) From() common.Address {
	return t.signer.Address()
}

// Send simulates, prices, signs and broadcasts one transaction. A nil to
// creates a contract.
func (t *Transactor) Send(ctx context.Context, to *common.Address, data []byte, value *big.Int) (*types.Transaction, error) {
	if value == nil {
		value = new(big.Int)
	}
	msg := ethereum.CallMsg{From: t.From(), To: to, Value: value, Data: data}

	if t.opts.Simulate {
		if _, err := t.backend.CallContract(ctx, msg, nil); err != nil {
			return nil, wrapEVMExecutionError(clierr.CodeStepFailed, "simulate transaction (eth_call)", err)
		}
	}

	gasLimit, err := t.backend.EstimateGas(ctx, msg)
	if err != nil {
		return nil, wrapEVMExecutionError(clierr.CodeStepFailed, "estimate gas", err)
	}
	gasLimit = uint64(float64(gasLimit) * t.opts.GasMultiplier)

	tipCap, err := t.resolveTipCap(ctx)
	if err != nil {
		return nil, err
	}
	header, err := t.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "fetch latest header", err)
	}
	baseFee := header.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(1_000_000_000)
	}
	feeCap, err := resolveFeeCap(baseFee, tipCap, t.opts.MaxFeeGwei)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.haveNonce {
		nonce, err := t.backend.PendingNonceAt(ctx, t.From())
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeUnavailable, "fetch nonce", err)
		}
		t.nextNonce = nonce
		t.haveNonce = true
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   t.chainID,
		Nonce:     t.nextNonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        to,
		Value:     value,
		Data:      data,
	})
	signed, err := t.signer.SignTx(t.chainID, tx)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeNoSigner, "sign transaction", err)
	}
	if err := t.backend.SendTransaction(ctx, signed); err != nil {
		// Re-read the pending nonce next time; the node may have seen it.
		t.haveNonce = false
		return nil, wrapEVMExecutionError(clierr.CodeUnavailable, "broadcast transaction", err)
	}
	t.nextNonce++
	t.logger.Debug("transaction broadcast", "tx", signed.Hash().Hex(), "nonce", signed.Nonce(), "gas", gasLimit)
	return signed, nil
}

// Wait polls for the receipt at the connection's poll interval until ctx is
// done. Transient RPC errors are retried.
func (t *Transactor) Wait(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()
	for {
		receipt, err := t.backend.TransactionReceipt(ctx, tx.Hash())
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusSuccessful {
				return receipt, nil
			}
			return receipt, clierr.New(clierr.CodeStepFailed, fmt.Sprintf("transaction %s reverted in block %s", tx.Hash().Hex(), receipt.BlockNumber))
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) && ctx.Err() == nil {
			t.logger.Debug("receipt poll failed", "tx", tx.Hash().Hex(), "err", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (t *Transactor) resolveTipCap(ctx context.Context) (*big.Int, error) {
	if strings.TrimSpace(t.opts.MaxPriorityFeeGwei) != "" {
		v, err := parseGwei(t.opts.MaxPriorityFeeGwei)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeInvalidAmount, "parse --max-priority-fee-gwei", err)
		}
		return v, nil
	}
	tipCap, err := t.backend.SuggestGasTipCap(ctx)
	if err != nil {
		fallback := big.NewInt(2_000_000_000)
		t.logger.Warn("gas tip suggestion failed; using fallback", "tip_gwei", codec.FormatUnits(fallback, gweiDecimals), "err", err)
		return fallback, nil
	}
	return tipCap, nil
}

func resolveFeeCap(baseFee, tipCap *big.Int, overrideGwei string) (*big.Int, error) {
	if strings.TrimSpace(overrideGwei) != "" {
		v, err := parseGwei(overrideGwei)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeInvalidAmount, "parse --max-fee-gwei", err)
		}
		if v.Cmp(tipCap) < 0 {
			return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("--max-fee-gwei %s is below the priority fee tip of %s gwei", strings.TrimSpace(overrideGwei), codec.FormatUnits(tipCap, gweiDecimals)))
		}
		return v, nil
	}
	feeCap := new(big.Int).Mul(baseFee, big.NewInt(2))
	feeCap.Add(feeCap, tipCap)
	return feeCap, nil
}

const gweiDecimals = 9

func parseGwei(v string) (*big.Int, error) {
	clean := strings.TrimSpace(v)
	if clean == "" {
		return nil, fmt.Errorf("empty gwei value")
	}
	rat, ok := new(big.Rat).SetString(clean)
	if !ok {
		return nil, fmt.Errorf("invalid numeric value %q", v)
	}
	if rat.Sign() < 0 {
		return nil, fmt.Errorf("value must be non-negative")
	}
	rat.Mul(rat, big.NewRat(1_000_000_000, 1))
	if !rat.IsInt() {
		return nil, fmt.Errorf("value must resolve to an integer wei amount")
	}
	return new(big.Int).Set(rat.Num()), nil
}
