package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// FeeParams mirrors the admin contract's fee parameter struct. Field order
// and widths match the on-chain tuple.
type FeeParams struct {
	PubdataPricingMode   uint8
	BatchOverheadL1Gas   uint32
	MaxPubdataPerBatch   uint32
	MaxL2GasPerBatch     uint32
	PriorityTxMaxPubdata uint32
	MinimalL2GasPrice    uint64
}

type Admin struct{ *Handle }

func (b *Binder) Admin(address string) (*Admin, error) {
	h, err := b.Bind(AdminContract, address)
	if err != nil {
		return nil, err
	}
	return &Admin{h}, nil
}

func (a *Admin) SetPendingAdmin(ctx context.Context, pending common.Address) (*types.Transaction, error) {
	return a.Transact(ctx, "setPendingAdmin", nil, pending)
}

func (a *Admin) AcceptAdmin(ctx context.Context) (*types.Transaction, error) {
	return a.Transact(ctx, "acceptAdmin", nil)
}

func (a *Admin) ChangeFeeParams(ctx context.Context, params FeeParams) (*types.Transaction, error) {
	return a.Transact(ctx, "changeFeeParams", nil, params)
}

func (a *Admin) SetTokenMultiplier(ctx context.Context, nominator, denominator *big.Int) (*types.Transaction, error) {
	return a.Transact(ctx, "setTokenMultiplier", nil, nominator, denominator)
}

func (a *Admin) SetTransactionFilterer(ctx context.Context, filterer common.Address) (*types.Transaction, error) {
	return a.Transact(ctx, "setTransactionFilterer", nil, filterer)
}

func (a *Admin) SetOracle(ctx context.Context, oracle common.Address) (*types.Transaction, error) {
	return a.Transact(ctx, "setOracle", nil, oracle)
}

type DenyList struct{ *Handle }

func (b *Binder) DenyList(address string) (*DenyList, error) {
	h, err := b.Bind(DenyListContract, address)
	if err != nil {
		return nil, err
	}
	return &DenyList{h}, nil
}

func (d *DenyList) UpdateDenyList(ctx context.Context, addresses []common.Address, add bool) (*types.Transaction, error) {
	return d.Transact(ctx, "updateDenyList", nil, addresses, add)
}

// IsAllowed checks a transaction where the address is sender, L2 target and
// refund recipient, with zero values and empty calldata. The older operator
// scripts passed a single zero byte (0x00) as l2Calldata instead; a filterer
// that inspects calldata may answer differently for the two.
func (d *DenyList) IsAllowed(ctx context.Context, addr common.Address) (bool, error) {
	var allowed bool
	err := d.Call(ctx, "isTransactionAllowed", []any{addr, addr, new(big.Int), new(big.Int), []byte{}, addr}, &allowed)
	return allowed, err
}

type Getters struct{ *Handle }

func (b *Binder) Getters(address string) (*Getters, error) {
	h, err := b.Bind(GettersContract, address)
	if err != nil {
		return nil, err
	}
	return &Getters{h}, nil
}

func (g *Getters) Admin(ctx context.Context) (common.Address, error) {
	var admin common.Address
	err := g.Call(ctx, "getAdmin", nil, &admin)
	return admin, err
}

func (g *Getters) PendingAdmin(ctx context.Context) (common.Address, error) {
	var pending common.Address
	err := g.Call(ctx, "getPendingAdmin", nil, &pending)
	return pending, err
}

type Middleware struct{ *Handle }

func (b *Binder) Middleware(address string) (*Middleware, error) {
	h, err := b.Bind(MiddlewareContract, address)
	if err != nil {
		return nil, err
	}
	return &Middleware{h}, nil
}

func (m *Middleware) SetBridgeParameters(ctx context.Context, bridgehub, sharedBridge common.Address) (*types.Transaction, error) {
	return m.Transact(ctx, "setBridgeParameters", nil, bridgehub, sharedBridge)
}

func (m *Middleware) SetCronosZkEVM(ctx context.Context, diamondProxy common.Address) (*types.Transaction, error) {
	return m.Transact(ctx, "setCronosZkEVM", nil, diamondProxy)
}

func (m *Middleware) SetChainParameters(ctx context.Context, chainID, l2GasPerPubdata *big.Int) (*types.Transaction, error) {
	return m.Transact(ctx, "setChainParameters", nil, chainID, l2GasPerPubdata)
}

func (m *Middleware) ApproveToken(ctx context.Context, token common.Address, amount *big.Int) (*types.Transaction, error) {
	return m.Transact(ctx, "approveToken", nil, token, amount)
}

func (m *Middleware) SetEthReceivers(ctx context.Context, receivers []common.Address) (*types.Transaction, error) {
	return m.Transact(ctx, "setEthReceivers", nil, receivers)
}

// DepositArgs are shared by both deposit entrypoints.
type DepositArgs struct {
	Destination common.Address
	Token       common.Address
	Amount      *big.Int
	L2GasLimit  *big.Int
	Fee         *big.Int
}

// Deposit calls method ("approvalAndDeposit" or "deposit") with the fee as
// transaction value.
func (m *Middleware) Deposit(ctx context.Context, method string, args DepositArgs) (*types.Transaction, error) {
	return m.Transact(ctx, method, args.Fee, args.Destination, args.Token, args.Amount, args.L2GasLimit)
}

type ERC20 struct{ *Handle }

func (b *Binder) ERC20(address string) (*ERC20, error) {
	h, err := b.Bind(ERC20Contract, address)
	if err != nil {
		return nil, err
	}
	return &ERC20{h}, nil
}

func (e *ERC20) Approve(ctx context.Context, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	return e.Transact(ctx, "approve", nil, spender, amount)
}

func (e *ERC20) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	var allowance *big.Int
	if err := e.Call(ctx, "allowance", []any{owner, spender}, &allowance); err != nil {
		return nil, err
	}
	return allowance, nil
}
