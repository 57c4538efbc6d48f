package execution

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	clierr "github.com/zkevm-ops/zkadmin/internal/errors"
)

var (
	errorStringSelector = common.FromHex("0x08c379a0")
	panicSelector       = common.FromHex("0x4e487b71")
)

// rpcDataError is implemented by go-ethereum's JSON-RPC errors that carry
// revert data.
type rpcDataError interface {
	Error() string
	ErrorData() interface{}
}

// wrapEVMExecutionError attaches a decoded revert reason when err carries
// revert data.
func wrapEVMExecutionError(code clierr.Code, message string, err error) error {
	if reason := decodeRevertFromError(err); reason != "" {
		return clierr.Wrap(code, fmt.Sprintf("%s: reverted: %s", message, reason), err)
	}
	return clierr.Wrap(code, message, err)
}

func decodeRevertFromError(err error) string {
	var dataErr rpcDataError
	if !errors.As(err, &dataErr) {
		return ""
	}
	var raw []byte
	switch data := dataErr.ErrorData().(type) {
	case string:
		decoded, decodeErr := hexutil.Decode(strings.TrimSpace(data))
		if decodeErr != nil {
			return ""
		}
		raw = decoded
	case []byte:
		raw = data
	default:
		return ""
	}
	return decodeRevertData(raw)
}

func decodeRevertData(data []byte) string {
	if len(data) < 4 {
		return ""
	}
	if bytes.Equal(data[:4], errorStringSelector) || bytes.Equal(data[:4], panicSelector) {
		if reason, err := abi.UnpackRevert(data); err == nil {
			return reason
		}
	}
	return fmt.Sprintf("custom error %s", hexutil.Encode(data[:4]))
}
