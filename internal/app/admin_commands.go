package app

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/zkevm-ops/zkadmin/internal/command"
	"github.com/zkevm-ops/zkadmin/internal/contracts"
	clierr "github.com/zkevm-ops/zkadmin/internal/errors"
	"github.com/zkevm-ops/zkadmin/internal/execution"
	"github.com/zkevm-ops/zkadmin/internal/model"
)

func (s *runtimeState) planAdminDeploy(sess *session, args command.Args, op *execution.Operation) error {
	admin := sess.signer.Address()
	if args.Has("admin") {
		admin = args.Address("admin")
	}
	artifact, err := contracts.LoadArtifact(s.settings.ArtifactsDir, contracts.AdminContract)
	if err != nil {
		return err
	}
	ctorArgs, err := contracts.ConstructorArgs(contracts.AdminContract, admin, []common.Address{args.Address(flagDiamondProxy)})
	if err != nil {
		return err
	}
	_, err = sess.deploy(op, artifact, ctorArgs)
	return err
}

// planAdminChange hands the diamond proxy to a new admin contract. The new
// contract accepts only after the pending admin is confirmed, and the result
// is read back from the proxy.
func (s *runtimeState) planAdminChange(sess *session, args command.Args, op *execution.Operation) error {
	current := args.Address(flagAdminContract)
	next := args.Address("new-admin-contract")
	diamond := args.Address(flagDiamondProxy)

	op.Transact(call(contracts.AdminContract, current, "setPendingAdmin", next), func(ctx context.Context) (*types.Transaction, error) {
		admin, err := sess.binder.Admin(current.Hex())
		if err != nil {
			return nil, err
		}
		return admin.SetPendingAdmin(ctx, next)
	})
	op.Transact(call(contracts.AdminContract, next, "acceptAdmin"), func(ctx context.Context) (*types.Transaction, error) {
		admin, err := sess.binder.Admin(next.Hex())
		if err != nil {
			return nil, err
		}
		return admin.AcceptAdmin(ctx)
	})
	state := &model.AdminState{DiamondProxy: diamond.Hex()}
	op.Read(call(contracts.GettersContract, diamond, "getAdmin"), func(ctx context.Context) (any, error) {
		getters, err := sess.binder.Getters(diamond.Hex())
		if err != nil {
			return nil, err
		}
		got, err := getters.Admin(ctx)
		if err != nil {
			return nil, err
		}
		state.Admin = got.Hex()
		if got != next {
			return nil, clierr.New(clierr.CodeStepFailed, fmt.Sprintf("diamond proxy admin is %s, expected %s", got.Hex(), next.Hex()))
		}
		return got.Hex(), nil
	})
	op.Result = state
	return nil
}

func (s *runtimeState) planFeeParams(sess *session, args command.Args, op *execution.Operation) error {
	target := args.Address(flagAdminContract)
	params := contracts.FeeParams{
		PubdataPricingMode:   args.Enum("pubdata-pricing-mode"),
		BatchOverheadL1Gas:   uint32(args.Uint("batch-overhead-l1-gas")),
		MaxPubdataPerBatch:   uint32(args.Uint("max-pubdata-per-batch")),
		MaxL2GasPerBatch:     uint32(args.Uint("max-l2-gas-per-batch")),
		PriorityTxMaxPubdata: uint32(args.Uint("priority-tx-max-pubdata")),
		MinimalL2GasPrice:    args.Uint("minimal-l2-gas-price"),
	}
	op.Transact(call(contracts.AdminContract, target, "changeFeeParams", params), func(ctx context.Context) (*types.Transaction, error) {
		admin, err := sess.binder.Admin(target.Hex())
		if err != nil {
			return nil, err
		}
		return admin.ChangeFeeParams(ctx, params)
	})
	return nil
}

func (s *runtimeState) planTokenMultiplier(sess *session, args command.Args, op *execution.Operation) error {
	target := args.Address(flagAdminContract)
	nominator := args.BigUint("nominator")
	denominator := args.BigUint("denominator")
	if denominator.Sign() == 0 {
		return clierr.New(clierr.CodeInvalidAmount, "--denominator must be greater than zero").WithFields("--denominator")
	}
	op.Transact(call(contracts.AdminContract, target, "setTokenMultiplier", nominator, denominator), func(ctx context.Context) (*types.Transaction, error) {
		admin, err := sess.binder.Admin(target.Hex())
		if err != nil {
			return nil, err
		}
		return admin.SetTokenMultiplier(ctx, nominator, denominator)
	})
	return nil
}

func (s *runtimeState) planSetOracle(sess *session, args command.Args, op *execution.Operation) error {
	target := args.Address(flagAdminContract)
	oracle := args.Address("oracle")
	op.Transact(call(contracts.AdminContract, target, "setOracle", oracle), func(ctx context.Context) (*types.Transaction, error) {
		admin, err := sess.binder.Admin(target.Hex())
		if err != nil {
			return nil, err
		}
		return admin.SetOracle(ctx, oracle)
	})
	return nil
}

func (s *runtimeState) planSetFilterer(sess *session, args command.Args, op *execution.Operation) error {
	target := args.Address(flagAdminContract)
	filterer := args.Address("filterer")
	op.Transact(call(contracts.AdminContract, target, "setTransactionFilterer", filterer), func(ctx context.Context) (*types.Transaction, error) {
		admin, err := sess.binder.Admin(target.Hex())
		if err != nil {
			return nil, err
		}
		return admin.SetTransactionFilterer(ctx, filterer)
	})
	return nil
}

func (s *runtimeState) planAdminShow(sess *session, args command.Args, op *execution.Operation) error {
	diamond := args.Address(flagDiamondProxy)
	state := &model.AdminState{DiamondProxy: diamond.Hex()}
	op.Read(call(contracts.GettersContract, diamond, "getAdmin"), func(ctx context.Context) (any, error) {
		getters, err := sess.binder.Getters(diamond.Hex())
		if err != nil {
			return nil, err
		}
		admin, err := getters.Admin(ctx)
		if err != nil {
			return nil, err
		}
		state.Admin = admin.Hex()
		return state.Admin, nil
	})
	op.Read(call(contracts.GettersContract, diamond, "getPendingAdmin"), func(ctx context.Context) (any, error) {
		getters, err := sess.binder.Getters(diamond.Hex())
		if err != nil {
			return nil, err
		}
		pending, err := getters.PendingAdmin(ctx)
		if err != nil {
			return nil, err
		}
		state.PendingAdmin = pending.Hex()
		return state.PendingAdmin, nil
	})
	op.Result = state
	return nil
}
