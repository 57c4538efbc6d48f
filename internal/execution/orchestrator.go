package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	clierr "github.com/zkevm-ops/zkadmin/internal/errors"
)

// DefaultConfirmTimeout bounds the wait for a single receipt.
const DefaultConfirmTimeout = 5 * time.Minute

// Waiter blocks until a submitted transaction is mined. A reverted receipt is
// returned together with an error.
type Waiter interface {
	Wait(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

type Orchestrator struct {
	waiter  Waiter
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

func NewOrchestrator(waiter Waiter, confirmTimeout time.Duration, logger *slog.Logger) *Orchestrator {
	if confirmTimeout <= 0 {
		confirmTimeout = DefaultConfirmTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{waiter: waiter, timeout: confirmTimeout, logger: logger, now: time.Now}
}

// Run executes the operation's steps in order. Every submitted transaction is
// awaited before a later step starts, except between consecutive steps of the
// same batch. The first failure marks every unattempted step aborted.
func (o *Orchestrator) Run(ctx context.Context, op *Operation) error {
	if op == nil {
		return clierr.New(clierr.CodeInternal, "missing operation")
	}
	op.Status = OperationStatusRunning
	op.StartedAt = stamp(o.now())

	for i := 0; i < len(op.Steps); {
		if err := ctx.Err(); err != nil {
			return o.abort(op, clierr.Wrap(clierr.CodeStepAborted, fmt.Sprintf("interrupted before step %d/%d %s", i+1, len(op.Steps), op.Steps[i].Name), err))
		}
		end := o.groupEnd(op, i)
		if err := o.runGroup(ctx, op, op.Steps[i:end]); err != nil {
			return o.abort(op, err)
		}
		i = end
	}
	op.Status = OperationStatusCompleted
	op.FinishedAt = stamp(o.now())
	return nil
}

func (o *Orchestrator) groupEnd(op *Operation, start int) int {
	first := op.Steps[start]
	end := start + 1
	if first.Batch == "" || first.Kind == StepKindRead {
		return end
	}
	for end < len(op.Steps) {
		next := op.Steps[end]
		if next.Batch != first.Batch || next.Kind == StepKindRead {
			break
		}
		end++
	}
	return end
}

func (o *Orchestrator) runGroup(ctx context.Context, op *Operation, group []*Step) error {
	if len(group) == 1 && group[0].Kind == StepKindRead {
		return o.runRead(ctx, op, group[0])
	}

	var firstErr error
	submitted := make([]*Step, 0, len(group))
	for _, step := range group {
		if firstErr != nil {
			break
		}
		if err := o.submit(ctx, op, step); err != nil {
			firstErr = err
			continue
		}
		submitted = append(submitted, step)
	}
	// Transactions already broadcast are always awaited so their final
	// status is known.
	for _, step := range submitted {
		if err := o.await(ctx, op, step); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (o *Orchestrator) submit(ctx context.Context, op *Operation, step *Step) error {
	if step.submit == nil {
		return o.fail(op, step, errors.New("step has no submit function"))
	}
	tx, err := step.submit(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return o.interrupt(op, step, err)
		}
		return o.fail(op, step, err)
	}
	step.tx = tx
	step.TxHash = tx.Hash().Hex()
	step.Status = StepStatusSubmitted
	o.logger.Info("transaction submitted", "step", step.Index, "name", step.Name, "tx", step.TxHash)
	return nil
}

func (o *Orchestrator) await(ctx context.Context, op *Operation, step *Step) error {
	waitCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	receipt, err := o.waiter.Wait(waitCtx, step.tx)
	if receipt != nil {
		step.BlockNumber = receipt.BlockNumber.Uint64()
		step.GasUsed = receipt.GasUsed
	}
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return o.interrupt(op, step, err)
		case errors.Is(err, context.DeadlineExceeded):
			return o.fail(op, step, fmt.Errorf("no receipt for %s within %s", step.TxHash, o.timeout))
		}
		return o.fail(op, step, err)
	}
	if step.Kind == StepKindDeploy {
		step.ContractAddress = receipt.ContractAddress.Hex()
	}
	if step.onConfirmed != nil {
		if err := step.onConfirmed(ctx, step, receipt); err != nil {
			return o.fail(op, step, err)
		}
	}
	step.Status = StepStatusConfirmed
	attrs := []any{"step", step.Index, "name", step.Name, "tx", step.TxHash, "block", step.BlockNumber}
	if step.ContractAddress != "" {
		attrs = append(attrs, "address", step.ContractAddress)
	}
	o.logger.Info("transaction confirmed", attrs...)
	return nil
}

func (o *Orchestrator) runRead(ctx context.Context, op *Operation, step *Step) error {
	if step.read == nil {
		return o.fail(op, step, errors.New("step has no read function"))
	}
	result, err := step.read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return o.interrupt(op, step, err)
		}
		return o.fail(op, step, err)
	}
	step.Result = result
	step.Status = StepStatusConfirmed
	o.logger.Debug("read completed", "step", step.Index, "name", step.Name)
	return nil
}

func (o *Orchestrator) fail(op *Operation, step *Step, cause error) error {
	step.Status = StepStatusFailed
	step.Error = cause.Error()
	o.logger.Error("step failed", "step", step.Index, "name", step.Name, "tx", step.TxHash, "err", cause)
	return clierr.Wrap(clierr.CodeStepFailed, fmt.Sprintf("step %d/%d %s failed", step.Index, len(op.Steps), step.Describe()), cause)
}

// interrupt is used when the caller cancels while a step is in flight. A
// submitted transaction may still be mined.
func (o *Orchestrator) interrupt(op *Operation, step *Step, cause error) error {
	step.Status = StepStatusAborted
	step.Error = "interrupted: " + cause.Error()
	if step.TxHash != "" {
		step.Error += "; transaction " + step.TxHash + " may still be mined"
	}
	o.logger.Warn("step interrupted", "step", step.Index, "name", step.Name, "tx", step.TxHash)
	return clierr.Wrap(clierr.CodeStepAborted, fmt.Sprintf("interrupted during step %d/%d %s", step.Index, len(op.Steps), step.Name), cause)
}

func (o *Orchestrator) abort(op *Operation, cause error) error {
	for _, step := range op.Steps {
		if step.Status == StepStatusPending {
			step.Status = StepStatusAborted
		}
	}
	op.Status = OperationStatusAborted
	op.FinishedAt = stamp(o.now())
	return cause
}
