package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/zkevm-ops/zkadmin/internal/codec"
	"github.com/zkevm-ops/zkadmin/internal/command"
	"github.com/zkevm-ops/zkadmin/internal/contracts"
	"github.com/zkevm-ops/zkadmin/internal/execution"
	"github.com/zkevm-ops/zkadmin/internal/model"
)

func (s *runtimeState) planDenyListDeploy(sess *session, args command.Args, op *execution.Operation) error {
	artifact, err := contracts.LoadArtifact(s.settings.ArtifactsDir, contracts.DenyListContract)
	if err != nil {
		return err
	}
	ctorArgs, err := contracts.ConstructorArgs(contracts.DenyListContract, sess.signer.Address(), args.Addresses(flagList))
	if err != nil {
		return err
	}
	_, err = sess.deploy(op, artifact, ctorArgs)
	return err
}

// planDenyListUpdate adds (or removes) the addresses in one call and then
// checks each address against the filterer.
func (s *runtimeState) planDenyListUpdate(sess *session, args command.Args, op *execution.Operation) error {
	target := args.Address(flagContract)
	list := args.Addresses(flagList)
	add := !args.Bool("remove")
	op.Transact(call(contracts.DenyListContract, target, "updateDenyList", list, add), func(ctx context.Context) (*types.Transaction, error) {
		denyList, err := sess.binder.DenyList(target.Hex())
		if err != nil {
			return nil, err
		}
		return denyList.UpdateDenyList(ctx, list, add)
	})
	planAllowanceChecks(sess, target, list, op)
	return nil
}

func (s *runtimeState) planDenyListCheck(sess *session, args command.Args, op *execution.Operation) error {
	planAllowanceChecks(sess, args.Address(flagContract), args.Addresses(flagList), op)
	return nil
}

func planAllowanceChecks(sess *session, target common.Address, list []common.Address, op *execution.Operation) {
	checks := make([]model.AllowanceCheck, len(list))
	for i, addr := range list {
		checks[i] = model.AllowanceCheck{Address: addr.Hex()}
		op.Read(call(contracts.DenyListContract, target, "isTransactionAllowed", addr, addr, "0", "0", []byte{}, addr), func(ctx context.Context) (any, error) {
			denyList, err := sess.binder.DenyList(target.Hex())
			if err != nil {
				return nil, err
			}
			allowed, err := denyList.IsAllowed(ctx, addr)
			if err != nil {
				return nil, err
			}
			checks[i].Allowed = allowed
			checks[i].Verdict = codec.FormatAllowed(allowed)
			return checks[i], nil
		})
	}
	op.Result = checks
}
