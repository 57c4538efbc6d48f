package execution

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	clierr "github.com/zkevm-ops/zkadmin/internal/errors"
)

type scriptedWaiter struct {
	log    *[]string
	revert map[common.Hash]bool
	block  bool
}

func (w *scriptedWaiter) Wait(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if w.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	*w.log = append(*w.log, fmt.Sprintf("wait %d", tx.Nonce()))
	receipt := &types.Receipt{
		Status:          types.ReceiptStatusSuccessful,
		BlockNumber:     big.NewInt(int64(100 + tx.Nonce())),
		GasUsed:         21_000,
		ContractAddress: common.HexToAddress("0x00000000000000000000000000000000000000c0"),
	}
	if w.revert[tx.Hash()] {
		receipt.Status = types.ReceiptStatusFailed
		return receipt, clierr.New(clierr.CodeStepFailed, "transaction reverted")
	}
	return receipt, nil
}

func fakeTx(nonce uint64) *types.Transaction {
	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	return types.NewTx(&types.LegacyTx{Nonce: nonce, To: &to, Gas: 21_000, GasPrice: big.NewInt(1)})
}

func submitting(log *[]string, nonce uint64) SubmitFunc {
	return func(context.Context) (*types.Transaction, error) {
		*log = append(*log, fmt.Sprintf("submit %d", nonce))
		return fakeTx(nonce), nil
	}
}

func call(method string, args ...string) Call {
	return Call{Contract: "CronosZkEVMAdmin", Target: "0x00000000000000000000000000000000000000aa", Method: method, Args: args}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	var log []string
	waiter := &scriptedWaiter{log: &log, revert: map[common.Hash]bool{fakeTx(1).Hash(): true}}
	op := NewOperation("admin change")
	op.Transact(call("setPendingAdmin", "0xabc"), submitting(&log, 0))
	op.Transact(call("acceptAdmin"), submitting(&log, 1))
	thirdAttempted := false
	op.Transact(call("setOracle", "0xdef"), func(context.Context) (*types.Transaction, error) {
		thirdAttempted = true
		return fakeTx(2), nil
	})

	err := NewOrchestrator(waiter, time.Second, nil).Run(context.Background(), op)
	if !clierr.Is(err, clierr.CodeStepFailed) {
		t.Fatalf("expected step failed, got %v", err)
	}
	if !strings.Contains(err.Error(), "step 2/3") || !strings.Contains(err.Error(), "acceptAdmin") {
		t.Fatalf("error does not identify failing step: %v", err)
	}
	if thirdAttempted {
		t.Fatal("step 3 must not be attempted after step 2 fails")
	}
	want := []StepStatus{StepStatusConfirmed, StepStatusFailed, StepStatusAborted}
	for i, step := range op.Steps {
		if step.Status != want[i] {
			t.Fatalf("step %d: expected %s, got %s", i+1, want[i], step.Status)
		}
	}
	if op.Status != OperationStatusAborted {
		t.Fatalf("expected aborted operation, got %s", op.Status)
	}
	if op.Steps[1].Error == "" || op.Steps[1].TxHash == "" {
		t.Fatalf("failed step should record tx hash and error: %+v", op.Steps[1])
	}
}

func TestRunAwaitsEachStepBeforeTheNext(t *testing.T) {
	var log []string
	op := NewOperation("admin change")
	op.Transact(call("setPendingAdmin"), submitting(&log, 0))
	op.Transact(call("acceptAdmin"), submitting(&log, 1))

	if err := NewOrchestrator(&scriptedWaiter{log: &log}, time.Second, nil).Run(context.Background(), op); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := "submit 0,wait 0,submit 1,wait 1"
	if got := strings.Join(log, ","); got != want {
		t.Fatalf("unexpected order: %s", got)
	}
	if op.Status != OperationStatusCompleted {
		t.Fatalf("expected completed, got %s", op.Status)
	}
	if op.Steps[0].BlockNumber != 100 || op.Steps[1].BlockNumber != 101 {
		t.Fatalf("receipt data not recorded: %+v", op.Steps)
	}
}

func TestRunSubmitsBatchBackToBack(t *testing.T) {
	var log []string
	op := NewOperation("middleware deploy")
	op.Transact(call("setBridgeParameters"), submitting(&log, 0)).InBatch("wiring")
	op.Transact(call("setCronosZkEVM"), submitting(&log, 1)).InBatch("wiring")
	op.Transact(call("setChainParameters"), submitting(&log, 2)).InBatch("wiring")
	op.Transact(call("approveToken"), submitting(&log, 3))

	if err := NewOrchestrator(&scriptedWaiter{log: &log}, time.Second, nil).Run(context.Background(), op); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := "submit 0,submit 1,submit 2,wait 0,wait 1,wait 2,submit 3,wait 3"
	if got := strings.Join(log, ","); got != want {
		t.Fatalf("unexpected order: %s", got)
	}
}

func TestRunBatchSubmissionFailureAwaitsInFlight(t *testing.T) {
	var log []string
	op := NewOperation("middleware deploy")
	op.Transact(call("setBridgeParameters"), submitting(&log, 0)).InBatch("wiring")
	op.Transact(call("setCronosZkEVM"), func(context.Context) (*types.Transaction, error) {
		return nil, errors.New("nonce too low")
	}).InBatch("wiring")
	op.Transact(call("setChainParameters"), submitting(&log, 2)).InBatch("wiring")

	err := NewOrchestrator(&scriptedWaiter{log: &log}, time.Second, nil).Run(context.Background(), op)
	if !clierr.Is(err, clierr.CodeStepFailed) {
		t.Fatalf("expected step failed, got %v", err)
	}
	want := []StepStatus{StepStatusConfirmed, StepStatusFailed, StepStatusAborted}
	for i, step := range op.Steps {
		if step.Status != want[i] {
			t.Fatalf("step %d: expected %s, got %s", i+1, want[i], step.Status)
		}
	}
	if got := strings.Join(log, ","); got != "submit 0,wait 0" {
		t.Fatalf("unexpected order: %s", got)
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	var log []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	op := NewOperation("admin change")
	op.Transact(call("setPendingAdmin"), submitting(&log, 0))

	err := NewOrchestrator(&scriptedWaiter{log: &log}, time.Second, nil).Run(ctx, op)
	if !clierr.Is(err, clierr.CodeStepAborted) {
		t.Fatalf("expected step aborted, got %v", err)
	}
	if op.Steps[0].Status != StepStatusAborted || len(log) != 0 {
		t.Fatalf("expected nothing submitted: %v %s", log, op.Steps[0].Status)
	}
}

func TestRunInterruptedWhileAwaiting(t *testing.T) {
	var log []string
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	op := NewOperation("admin change")
	op.Transact(call("setPendingAdmin"), func(context.Context) (*types.Transaction, error) {
		cancel()
		return fakeTx(0), nil
	})
	op.Transact(call("acceptAdmin"), submitting(&log, 1))

	err := NewOrchestrator(&scriptedWaiter{log: &log}, time.Second, nil).Run(ctx, op)
	if !clierr.Is(err, clierr.CodeStepAborted) {
		t.Fatalf("expected step aborted, got %v", err)
	}
	if op.Steps[0].Status != StepStatusAborted || !strings.Contains(op.Steps[0].Error, "may still be mined") {
		t.Fatalf("unexpected in-flight step: %+v", op.Steps[0])
	}
	if op.Steps[1].Status != StepStatusAborted {
		t.Fatalf("expected step 2 aborted, got %s", op.Steps[1].Status)
	}
}

func TestRunConfirmTimeoutFailsStep(t *testing.T) {
	var log []string
	op := NewOperation("admin change")
	op.Transact(call("setPendingAdmin"), submitting(&log, 0))

	err := NewOrchestrator(&scriptedWaiter{log: &log, block: true}, 20*time.Millisecond, nil).Run(context.Background(), op)
	if !clierr.Is(err, clierr.CodeStepFailed) {
		t.Fatalf("expected step failed, got %v", err)
	}
	if !strings.Contains(op.Steps[0].Error, "no receipt") {
		t.Fatalf("expected timeout reason, got %q", op.Steps[0].Error)
	}
}

func TestRunDeployAndReadSteps(t *testing.T) {
	var log []string
	op := NewOperation("denylist deploy")
	deploy := op.Deploy("TransactionFiltererDenyList", nil, submitting(&log, 0))
	confirmed := false
	deploy.OnConfirmed(func(_ context.Context, step *Step, _ *types.Receipt) error {
		confirmed = step.ContractAddress != ""
		return nil
	})
	op.Read(call("getAdmin"), func(context.Context) (any, error) {
		return deploy.Deployed(), nil
	})

	if err := NewOrchestrator(&scriptedWaiter{log: &log}, time.Second, nil).Run(context.Background(), op); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !confirmed {
		t.Fatal("confirmation hook did not see the deployed address")
	}
	if got, _ := op.Steps[1].Result.(common.Address); got != common.HexToAddress("0x00000000000000000000000000000000000000c0") {
		t.Fatalf("unexpected read result: %v", op.Steps[1].Result)
	}
}

func TestRunConfirmationHookFailure(t *testing.T) {
	var log []string
	op := NewOperation("admin change")
	op.Transact(call("acceptAdmin"), submitting(&log, 0)).OnConfirmed(func(context.Context, *Step, *types.Receipt) error {
		return errors.New("admin mismatch")
	})
	op.Transact(call("setOracle"), submitting(&log, 1))

	err := NewOrchestrator(&scriptedWaiter{log: &log}, time.Second, nil).Run(context.Background(), op)
	if !clierr.Is(err, clierr.CodeStepFailed) || !strings.Contains(err.Error(), "admin mismatch") {
		t.Fatalf("expected hook failure, got %v", err)
	}
	if op.Steps[0].Status != StepStatusFailed || op.Steps[1].Status != StepStatusAborted {
		t.Fatalf("unexpected statuses: %s %s", op.Steps[0].Status, op.Steps[1].Status)
	}
}
