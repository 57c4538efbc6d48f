package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/zkevm-ops/zkadmin/internal/command"
	"github.com/zkevm-ops/zkadmin/internal/contracts"
	clierr "github.com/zkevm-ops/zkadmin/internal/errors"
	"github.com/zkevm-ops/zkadmin/internal/execution"
	"github.com/zkevm-ops/zkadmin/internal/identity"
	"github.com/zkevm-ops/zkadmin/internal/model"
	"github.com/zkevm-ops/zkadmin/internal/network"
)

const signerLockWait = 10 * time.Second

// session is everything one command invocation runs against. It is created
// per command and never shared.
type session struct {
	state  *runtimeState
	signer *identity.Identity

	conn   *network.Connection
	binder *contracts.Binder
	orch   *execution.Orchestrator
	lock   *execution.SignerLock
}

// planFunc appends a command's steps to op. Contract handles are bound inside
// the step closures, after the session is connected.
type planFunc func(sess *session, args command.Args, op *execution.Operation) error

// operation turns a plan into a registry handler: resolve the signer, build
// the plan, then connect and run it unless --dry-run is set.
func (s *runtimeState) operation(cmd command.Command, plan planFunc) command.Command {
	cmd.Run = func(ctx context.Context, args command.Args) (any, error) {
		sess, err := s.newSession(cmd.Role, args)
		if err != nil {
			return nil, err
		}
		defer sess.close()
		s.logInputs(cmd, args)

		op := execution.NewOperation(cmd.Name())
		if sess.signer != nil {
			op.Signer = sess.signer.Address().Hex()
		}
		if err := plan(sess, args, op); err != nil {
			return nil, err
		}
		if s.settings.DryRun {
			s.lastMeta.DryRun = true
			return op, nil
		}

		if err := sess.connect(ctx); err != nil {
			return nil, err
		}
		op.ChainID = sess.conn.ChainID().String()
		s.lastMeta.ChainID = op.ChainID
		if err := sess.orch.Run(ctx, op); err != nil {
			if !op.Pending() {
				s.lastOperation = op
			}
			return nil, err
		}
		return op, nil
	}
	return cmd
}

// logInputs records where each resolved flag came from. Secrets are never
// logged.
func (s *runtimeState) logInputs(cmd command.Command, args command.Args) {
	for _, f := range cmd.Flags {
		if f.Kind == command.KindSecret || !args.Has(f.Name) {
			continue
		}
		s.logger.Debug("input", "flag", f.Name, "value", args.Raw(f.Name), "source", args.Source(f.Name))
	}
}

// newSession resolves the signing identity of signing commands. Nothing here
// touches the network.
func (s *runtimeState) newSession(role identity.Role, args command.Args) (*session, error) {
	sess := &session{state: s}
	if role == identity.RoleNone {
		return sess, nil
	}
	cfg := identity.ConfigForRole(role, identity.Overrides{
		PrivateKey:     args.String(command.FlagPrivateKey),
		Mnemonic:       args.String(command.FlagMnemonic),
		DerivationPath: args.String(command.FlagDerivationPath),
	}, s.settings.Env, s.settings.DerivationPath)
	id, err := identity.Resolve(cfg)
	if err != nil {
		return nil, err
	}
	identity.Announce(s.runner.stderr, id)
	s.logger.Debug("signer resolved", "signer", id)
	sess.signer = id
	s.lastMeta.Signer = id.Address().Hex()
	return sess, nil
}

func (sess *session) connect(ctx context.Context) error {
	s := sess.state
	if s.settings.Network == "" {
		s.warn("network name not set; using default receipt polling")
	}
	conn, err := s.runner.dial(ctx, network.Config{
		URL:          s.settings.RPCURL,
		Name:         s.settings.Network,
		PollInterval: s.settings.PollInterval,
	})
	if err != nil {
		return err
	}
	sess.conn = conn
	s.lastMeta.Network = conn.Name()

	if sess.signer == nil {
		sess.binder = contracts.NewBinder(conn.Backend(), nil)
		sess.orch = execution.NewOrchestrator(nil, s.settings.ConfirmTimeout, s.logger)
		return nil
	}

	lock, err := execution.LockSigner(ctx, s.settings.LockDir, conn.ChainID(), sess.signer.Address(), signerLockWait)
	if err != nil {
		return err
	}
	sess.lock = lock

	transactor := execution.NewTransactor(conn, sess.signer, execution.Options{
		Simulate:           s.settings.Simulate,
		GasMultiplier:      s.settings.GasMultiplier,
		MaxFeeGwei:         s.settings.MaxFeeGwei,
		MaxPriorityFeeGwei: s.settings.MaxPriorityFeeGwei,
	}, s.logger)
	sess.binder = contracts.NewBinder(conn.Backend(), transactor)
	sess.orch = execution.NewOrchestrator(transactor, s.settings.ConfirmTimeout, s.logger)
	return nil
}

func (sess *session) close() {
	sess.lock.Unlock()
	sess.conn.Close()
}

// deploy appends a deployment step. Constructor arguments are encoded once
// here so encoding errors surface before anything is sent. The confirmed
// address becomes the operation result unless the command sets its own.
func (sess *session) deploy(op *execution.Operation, artifact *contracts.Artifact, ctorArgs []any) (*execution.Step, error) {
	if _, err := artifact.DeployData(ctorArgs...); err != nil {
		return nil, err
	}
	step := op.Deploy(artifact.ContractName, formatArgs(ctorArgs), func(ctx context.Context) (*types.Transaction, error) {
		return sess.binder.Deploy(ctx, artifact, ctorArgs...)
	})
	step.OnConfirmed(func(_ context.Context, confirmed *execution.Step, receipt *types.Receipt) error {
		if receipt.ContractAddress == (common.Address{}) {
			return clierr.New(clierr.CodeStepFailed, fmt.Sprintf("%s deployment receipt carries no contract address", artifact.ContractName))
		}
		if op.Result == nil {
			op.Result = model.Deployment{Contract: artifact.ContractName, Address: confirmed.ContractAddress, TxHash: confirmed.TxHash}
		}
		return nil
	})
	return step, nil
}
