package app

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/zkevm-ops/zkadmin/internal/codec"
	"github.com/zkevm-ops/zkadmin/internal/command"
	"github.com/zkevm-ops/zkadmin/internal/contracts"
	clierr "github.com/zkevm-ops/zkadmin/internal/errors"
	"github.com/zkevm-ops/zkadmin/internal/execution"
	"github.com/zkevm-ops/zkadmin/internal/model"
)

// wiringBatch groups the middleware configuration calls. None of them reads
// state written by another, so they are submitted back-to-back.
const wiringBatch = "wiring"

// planMiddlewareDeploy deploys the middleware (unless --middleware names an
// existing one) and wires it to the bridge contracts. Re-running with
// --middleware repeats only the idempotent wiring calls.
func (s *runtimeState) planMiddlewareDeploy(sess *session, args command.Args, op *execution.Operation) error {
	bridgehub := args.Address("bridgehub")
	sharedBridge := args.Address("shared-bridge")
	diamond := args.Address(flagDiamondProxy)
	chainID := args.BigUint("chain-id")
	gasPerPubdata := args.BigUint("l2-gas-per-pubdata")
	token := args.Address(flagToken)
	allowance := args.Amount("token-allowance")
	receivers := []common.Address{args.Address("commit-operator"), args.Address("blobs-operator")}

	// middleware resolves once the deploy step (if any) is confirmed.
	middleware := func() common.Address { return args.Address(flagMiddleware) }
	target := "<deployed " + contracts.MiddlewareContract + ">"
	if args.Has(flagMiddleware) {
		target = args.Address(flagMiddleware).Hex()
	} else {
		artifact, err := contracts.LoadArtifact(s.settings.ArtifactsDir, contracts.MiddlewareContract)
		if err != nil {
			return err
		}
		ctorArgs, err := contracts.ConstructorArgs(contracts.MiddlewareContract, sess.signer.Address(), nil)
		if err != nil {
			return err
		}
		deployed, err := sess.deploy(op, artifact, ctorArgs)
		if err != nil {
			return err
		}
		middleware = deployed.Deployed
	}

	wire := func(method string, callArgs []any, send func(ctx context.Context, mw *contracts.Middleware) (*types.Transaction, error)) {
		c := execution.Call{Contract: contracts.MiddlewareContract, Target: target, Method: method, Args: formatArgs(callArgs)}
		op.Transact(c, func(ctx context.Context) (*types.Transaction, error) {
			mw, err := sess.binder.Middleware(middleware().Hex())
			if err != nil {
				return nil, err
			}
			return send(ctx, mw)
		}).InBatch(wiringBatch)
	}
	wire("setBridgeParameters", []any{bridgehub, sharedBridge}, func(ctx context.Context, mw *contracts.Middleware) (*types.Transaction, error) {
		return mw.SetBridgeParameters(ctx, bridgehub, sharedBridge)
	})
	wire("setCronosZkEVM", []any{diamond}, func(ctx context.Context, mw *contracts.Middleware) (*types.Transaction, error) {
		return mw.SetCronosZkEVM(ctx, diamond)
	})
	wire("setChainParameters", []any{chainID, gasPerPubdata}, func(ctx context.Context, mw *contracts.Middleware) (*types.Transaction, error) {
		return mw.SetChainParameters(ctx, chainID, gasPerPubdata)
	})
	wire("approveToken", []any{token, allowance}, func(ctx context.Context, mw *contracts.Middleware) (*types.Transaction, error) {
		return mw.ApproveToken(ctx, token, allowance)
	})
	wire("setEthReceivers", []any{receivers}, func(ctx context.Context, mw *contracts.Middleware) (*types.Transaction, error) {
		return mw.SetEthReceivers(ctx, receivers)
	})
	return nil
}

func (s *runtimeState) planApproveToken(sess *session, args command.Args, op *execution.Operation) error {
	target := args.Address(flagMiddleware)
	token := args.Address(flagToken)
	amount := args.Amount(flagAmount)
	op.Transact(call(contracts.MiddlewareContract, target, "approveToken", token, amount), func(ctx context.Context) (*types.Transaction, error) {
		mw, err := sess.binder.Middleware(target.Hex())
		if err != nil {
			return nil, err
		}
		return mw.ApproveToken(ctx, token, amount)
	})
	return nil
}

// planDeposit grants the middleware an allowance, verifies it is visible
// on-chain and only then deposits.
func (s *runtimeState) planDeposit(sess *session, args command.Args, op *execution.Operation) error {
	target := args.Address(flagMiddleware)
	token := args.Address(flagToken)
	owner := sess.signer.Address()
	method := codec.DepositMethod.Name(args.Enum("method"))
	deposit := contracts.DepositArgs{
		Destination: args.Address("destination"),
		Token:       token,
		Amount:      args.Amount(flagAmount),
		L2GasLimit:  args.BigUint("l2-gas-limit"),
		Fee:         args.Amount("fee"),
	}

	op.Transact(call(contracts.ERC20Contract, token, "approve", target, deposit.Amount), func(ctx context.Context) (*types.Transaction, error) {
		erc20, err := sess.binder.ERC20(token.Hex())
		if err != nil {
			return nil, err
		}
		return erc20.Approve(ctx, target, deposit.Amount)
	})
	check := model.TokenAllowance{
		Token:    token.Hex(),
		Owner:    owner.Hex(),
		Spender:  target.Hex(),
		Required: codec.FormatUnits(deposit.Amount, codec.EtherDecimals),
	}
	op.Read(call(contracts.ERC20Contract, token, "allowance", owner, target), func(ctx context.Context) (any, error) {
		erc20, err := sess.binder.ERC20(token.Hex())
		if err != nil {
			return nil, err
		}
		allowance, err := erc20.Allowance(ctx, owner, target)
		if err != nil {
			return nil, err
		}
		check.Allowance = codec.FormatUnits(allowance, codec.EtherDecimals)
		if allowance.Cmp(deposit.Amount) < 0 {
			return nil, clierr.New(clierr.CodeStepFailed, fmt.Sprintf("allowance %s is below the deposit amount %s", check.Allowance, check.Required))
		}
		return check, nil
	})
	op.Transact(call(contracts.MiddlewareContract, target, method, deposit.Destination, token, deposit.Amount, deposit.L2GasLimit), func(ctx context.Context) (*types.Transaction, error) {
		mw, err := sess.binder.Middleware(target.Hex())
		if err != nil {
			return nil, err
		}
		return mw.Deposit(ctx, method, deposit)
	})
	return nil
}

func (s *runtimeState) planDeploy(sess *session, args command.Args, op *execution.Operation) error {
	name := args.String(flagContract)
	artifact, err := contracts.LoadArtifact(s.settings.ArtifactsDir, name)
	if err != nil {
		return err
	}
	ctorArgs, err := contracts.ConstructorArgs(name, sess.signer.Address(), args.Addresses("args"))
	if err != nil {
		return err
	}
	if want := artifact.ConstructorInputs(); len(ctorArgs) != want {
		return clierr.New(clierr.CodeUsage, fmt.Sprintf("%s constructor takes %d arguments, got %d", name, want, len(ctorArgs))).WithFields("--args")
	}
	_, err = sess.deploy(op, artifact, ctorArgs)
	return err
}
