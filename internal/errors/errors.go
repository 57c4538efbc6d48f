package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code is a stable, machine-readable error type mapped to process exit codes.
type Code int

const (
	CodeSuccess     Code = 0
	CodeInternal    Code = 1
	CodeUsage       Code = 2
	CodeUnavailable Code = 12
	CodeBlocked     Code = 16
	CodeSignerBusy  Code = 17

	// Configuration and validation failures. These are raised before any
	// network call is made.
	CodeMissingCredential    Code = 20
	CodeMissingNetworkConfig Code = 21
	CodeUnknownContract      Code = 22
	CodeInvalidAddress       Code = 23
	CodeNoSigner             Code = 24
	CodeMissingRequiredFlag  Code = 25
	CodeUnknownFlag          Code = 26
	CodeInvalidAmount        Code = 27
	CodeUnknownEnumValue     Code = 28
	CodeMissingArtifact      Code = 29

	// Sequence failures.
	CodeStepFailed  Code = 30
	CodeStepAborted Code = 31
)

var codeTypes = map[Code]string{
	CodeInternal:             "internal_error",
	CodeUsage:                "usage_error",
	CodeUnavailable:          "rpc_unavailable",
	CodeBlocked:              "command_blocked",
	CodeSignerBusy:           "signer_busy",
	CodeMissingCredential:    "missing_credential",
	CodeMissingNetworkConfig: "missing_network_config",
	CodeUnknownContract:      "unknown_contract",
	CodeInvalidAddress:       "invalid_address",
	CodeNoSigner:             "no_signer",
	CodeMissingRequiredFlag:  "missing_required_flag",
	CodeUnknownFlag:          "unknown_flag",
	CodeInvalidAmount:        "invalid_amount",
	CodeUnknownEnumValue:     "unknown_enum_value",
	CodeMissingArtifact:      "missing_artifact",
	CodeStepFailed:           "step_failed",
	CodeStepAborted:          "step_aborted",
}

// Type returns the envelope type string for the code.
func (c Code) Type() string {
	if t, ok := codeTypes[c]; ok {
		return t
	}
	return "internal_error"
}

// Error is a typed CLI error that carries a stable error code.
type Error struct {
	Code    Code
	Message string
	// Fields names every flag or input the error refers to.
	Fields []string
	Cause  error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Fields) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, strings.Join(e.Fields, ", "))
	}
	if e.Cause == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WithFields returns a copy of the error listing the given fields.
func (e *Error) WithFields(fields ...string) *Error {
	cp := *e
	cp.Fields = append([]string(nil), fields...)
	return &cp
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	cErr, ok := As(err)
	return ok && cErr.Code == code
}

func ExitCode(err error) int {
	if err == nil {
		return int(CodeSuccess)
	}
	if cliErr, ok := As(err); ok {
		return int(cliErr.Code)
	}
	return int(CodeInternal)
}
