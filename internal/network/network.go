package network

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	clierr "github.com/zkevm-ops/zkadmin/internal/errors"
)

const (
	DefaultPollInterval = 2 * time.Second
	LocalPollInterval   = 100 * time.Millisecond
)

var localNetworks = map[string]struct{}{
	"localhost": {},
	"hardhat":   {},
}

// Backend is the read/write JSON-RPC surface shared by every contract handle
// of one invocation. *ethclient.Client satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type Config struct {
	URL  string
	Name string
	// PollInterval overrides the network-derived interval when positive.
	PollInterval time.Duration
}

// Connection is immutable after Dial.
type Connection struct {
	name         string
	chainID      *big.Int
	pollInterval time.Duration
	backend      Backend
	closeFn      func()
}

// IsLocal reports whether name is a local development network.
func IsLocal(name string) bool {
	_, ok := localNetworks[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// PollIntervalFor returns the receipt polling interval for a network.
func PollIntervalFor(name string, override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	if IsLocal(name) {
		return LocalPollInterval
	}
	return DefaultPollInterval
}

// Dial connects to cfg.URL and reads the chain id once.
func Dial(ctx context.Context, cfg Config) (*Connection, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, clierr.New(clierr.CodeMissingNetworkConfig, "missing rpc url: pass --rpc-url or set ETH_CLIENT_WEB3_URL")
	}
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "connect rpc", err)
	}
	conn, err := NewConnection(ctx, cfg, client)
	if err != nil {
		client.Close()
		return nil, err
	}
	conn.closeFn = client.Close
	return conn, nil
}

// NewConnection wraps an already-open backend.
func NewConnection(ctx context.Context, cfg Config, backend Backend) (*Connection, error) {
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "read chain id", err)
	}
	return &Connection{
		name:         strings.TrimSpace(cfg.Name),
		chainID:      new(big.Int).Set(chainID),
		pollInterval: PollIntervalFor(cfg.Name, cfg.PollInterval),
		backend:      backend,
	}, nil
}

func (c *Connection) Name() string { return c.name }

func (c *Connection) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

func (c *Connection) PollInterval() time.Duration { return c.pollInterval }

func (c *Connection) Backend() Backend { return c.backend }

func (c *Connection) Close() {
	if c != nil && c.closeFn != nil {
		c.closeFn()
	}
}
