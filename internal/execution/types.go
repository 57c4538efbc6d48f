package execution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type OperationStatus string

type StepStatus string

type StepKind string

const (
	OperationStatusRunning   OperationStatus = "running"
	OperationStatusCompleted OperationStatus = "completed"
	OperationStatusAborted   OperationStatus = "aborted"
)

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusSubmitted StepStatus = "submitted"
	StepStatusConfirmed StepStatus = "confirmed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusAborted   StepStatus = "aborted"
)

const (
	StepKindDeploy   StepKind = "deploy"
	StepKindTransact StepKind = "transact"
	StepKindRead     StepKind = "read"
)

// SubmitFunc sends the step's transaction and returns it without waiting.
type SubmitFunc func(ctx context.Context) (*types.Transaction, error)

// ReadFunc performs a read-only step; its result is reported on the step.
type ReadFunc func(ctx context.Context) (any, error)

// ConfirmFunc runs after a step's receipt is confirmed. An error fails the step.
type ConfirmFunc func(ctx context.Context, step *Step, receipt *types.Receipt) error

// Call describes the contract invocation behind a step.
type Call struct {
	Contract string
	Target   string
	Method   string
	Args     []string
}

type Step struct {
	Index           int        `json:"index"`
	Name            string     `json:"name"`
	Kind            StepKind   `json:"kind"`
	Contract        string     `json:"contract"`
	Target          string     `json:"target,omitempty"`
	Method          string     `json:"method,omitempty"`
	Args            []string   `json:"args,omitempty"`
	Batch           string     `json:"batch,omitempty"`
	Status          StepStatus `json:"status"`
	TxHash          string     `json:"tx_hash,omitempty"`
	BlockNumber     uint64     `json:"block_number,omitempty"`
	GasUsed         uint64     `json:"gas_used,omitempty"`
	ContractAddress string     `json:"contract_address,omitempty"`
	Result          any        `json:"result,omitempty"`
	Error           string     `json:"error,omitempty"`

	submit      SubmitFunc
	read        ReadFunc
	onConfirmed ConfirmFunc
	tx          *types.Transaction
}

type Operation struct {
	Command    string          `json:"command"`
	Signer     string          `json:"signer,omitempty"`
	ChainID    string          `json:"chain_id,omitempty"`
	Status     OperationStatus `json:"status"`
	StartedAt  string          `json:"started_at,omitempty"`
	FinishedAt string          `json:"finished_at,omitempty"`
	Steps      []*Step         `json:"steps"`
	// Result summarizes what the operation read back, when the command
	// defines a summary.
	Result any `json:"result,omitempty"`
}

func NewOperation(command string) *Operation {
	return &Operation{Command: command, Steps: []*Step{}}
}

// Transact appends a state-changing step.
func (o *Operation) Transact(call Call, submit SubmitFunc) *Step {
	return o.add(&Step{
		Name:     call.Contract + "." + call.Method,
		Kind:     StepKindTransact,
		Contract: call.Contract,
		Target:   call.Target,
		Method:   call.Method,
		Args:     call.Args,
		submit:   submit,
	})
}

// Deploy appends a contract creation step. ContractAddress is set once the
// receipt confirms.
func (o *Operation) Deploy(contract string, args []string, submit SubmitFunc) *Step {
	return o.add(&Step{
		Name:     "deploy " + contract,
		Kind:     StepKindDeploy,
		Contract: contract,
		Args:     args,
		submit:   submit,
	})
}

// Read appends a read-only step.
func (o *Operation) Read(call Call, read ReadFunc) *Step {
	return o.add(&Step{
		Name:     call.Contract + "." + call.Method,
		Kind:     StepKindRead,
		Contract: call.Contract,
		Target:   call.Target,
		Method:   call.Method,
		Args:     call.Args,
		read:     read,
	})
}

func (o *Operation) add(step *Step) *Step {
	step.Index = len(o.Steps) + 1
	step.Status = StepStatusPending
	if step.Args == nil {
		step.Args = []string{}
	}
	o.Steps = append(o.Steps, step)
	return step
}

// Pending reports whether no step has been attempted.
func (o *Operation) Pending() bool {
	for _, step := range o.Steps {
		if step.Status != StepStatusPending {
			return false
		}
	}
	return true
}

// InBatch marks the step as independent of its batch neighbours, so
// consecutive steps of one batch are submitted back-to-back and awaited
// together.
func (s *Step) InBatch(batch string) *Step {
	s.Batch = strings.TrimSpace(batch)
	return s
}

func (s *Step) OnConfirmed(fn ConfirmFunc) *Step {
	s.onConfirmed = fn
	return s
}

// Deployed returns the created contract address of a confirmed deploy step.
func (s *Step) Deployed() common.Address {
	return common.HexToAddress(s.ContractAddress)
}

func (s *Step) Describe() string {
	call := s.Name
	if s.Kind != StepKindDeploy || len(s.Args) > 0 {
		call = fmt.Sprintf("%s(%s)", s.Name, strings.Join(s.Args, ", "))
	}
	if s.Target != "" {
		call += " at " + s.Target
	}
	return call
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
