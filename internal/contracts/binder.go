package contracts

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/zkevm-ops/zkadmin/internal/codec"
	clierr "github.com/zkevm-ops/zkadmin/internal/errors"
)

// Caller executes read-only calls. *ethclient.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Sender submits a state-changing transaction on behalf of one signer. A nil
// to address deploys data as init code.
type Sender interface {
	From() common.Address
	Send(ctx context.Context, to *common.Address, data []byte, value *big.Int) (*types.Transaction, error)
}

// Binder produces contract handles that share one connection and signer.
type Binder struct {
	caller Caller
	sender Sender
}

// NewBinder returns a binder. sender may be nil for read-only use.
func NewBinder(caller Caller, sender Sender) *Binder {
	return &Binder{caller: caller, sender: sender}
}

// Handle is a bound contract: name, address, method set and the shared
// caller/sender.
type Handle struct {
	name    string
	address common.Address
	methods MethodSet
	caller  Caller
	sender  Sender
}

// Bind resolves a contract by name at address. No network round-trip is made,
// so a handle for an address without code fails only on first use.
func (b *Binder) Bind(name, address string) (*Handle, error) {
	methods, err := Lookup(strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	addr, err := codec.ParseAddress(address)
	if err != nil {
		return nil, err
	}
	return b.bindAddress(methods, addr), nil
}

func (b *Binder) bindAddress(methods MethodSet, address common.Address) *Handle {
	return &Handle{
		name:    methods.Contract(),
		address: address,
		methods: methods,
		caller:  b.caller,
		sender:  b.sender,
	}
}

// Deploy submits init code plus encoded constructor arguments.
func (b *Binder) Deploy(ctx context.Context, artifact *Artifact, args ...any) (*types.Transaction, error) {
	if b.sender == nil {
		return nil, clierr.New(clierr.CodeNoSigner, fmt.Sprintf("deploying %s requires a signer", artifact.ContractName))
	}
	data, err := artifact.DeployData(args...)
	if err != nil {
		return nil, err
	}
	return b.sender.Send(ctx, nil, data, nil)
}

func (h *Handle) Name() string { return h.name }

func (h *Handle) Address() common.Address { return h.address }

// Call runs a view method and decodes its return values into returns.
func (h *Handle) Call(ctx context.Context, method string, args []any, returns ...any) error {
	m, err := h.methods.Method(method)
	if err != nil {
		return err
	}
	if !m.View {
		return clierr.New(clierr.CodeInternal, fmt.Sprintf("%s.%s is state-changing; use Transact", h.name, method))
	}
	data, err := m.fn.EncodeArgs(args...)
	if err != nil {
		return clierr.Wrap(clierr.CodeUsage, fmt.Sprintf("encode %s.%s arguments", h.name, method), err)
	}
	msg := ethereum.CallMsg{To: &h.address, Data: data}
	if h.sender != nil {
		msg.From = h.sender.From()
	}
	out, err := h.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("call %s.%s at %s", h.name, method, h.address.Hex()), err)
	}
	if len(out) == 0 {
		return clierr.New(clierr.CodeUnavailable, fmt.Sprintf("call %s.%s at %s returned no data; is the contract deployed?", h.name, method, h.address.Hex()))
	}
	if err := m.fn.DecodeReturns(out, returns...); err != nil {
		return clierr.Wrap(clierr.CodeInternal, fmt.Sprintf("decode %s.%s result", h.name, method), err)
	}
	return nil
}

// Transact submits a state-changing method through the shared sender.
func (h *Handle) Transact(ctx context.Context, method string, value *big.Int, args ...any) (*types.Transaction, error) {
	m, err := h.methods.Method(method)
	if err != nil {
		return nil, err
	}
	if m.View {
		return nil, clierr.New(clierr.CodeInternal, fmt.Sprintf("%s.%s is read-only; use Call", h.name, method))
	}
	if h.sender == nil {
		return nil, clierr.New(clierr.CodeNoSigner, fmt.Sprintf("%s.%s requires a signer", h.name, method))
	}
	data, err := h.Calldata(method, args...)
	if err != nil {
		return nil, err
	}
	to := h.address
	return h.sender.Send(ctx, &to, data, value)
}

// Calldata encodes a method call without sending it.
func (h *Handle) Calldata(method string, args ...any) ([]byte, error) {
	m, err := h.methods.Method(method)
	if err != nil {
		return nil, err
	}
	data, err := m.fn.EncodeArgs(args...)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, fmt.Sprintf("encode %s.%s arguments", h.name, method), err)
	}
	return data, nil
}
