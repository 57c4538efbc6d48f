package codec

import (
	"fmt"
	"strings"

	clierr "github.com/zkevm-ops/zkadmin/internal/errors"
)

// Enum maps operator-facing names to on-chain integer codes. Codes follow
// declaration order, matching Solidity enum encoding.
type Enum struct {
	name  string
	names []string
}

func NewEnum(name string, values ...string) Enum {
	return Enum{name: name, names: append([]string(nil), values...)}
}

var (
	// PubdataPricingMode mirrors the rollup's PubdataPricingMode enum.
	PubdataPricingMode = NewEnum("pubdata pricing mode", "Rollup", "Validium")
	// DepositMethod selects the middleware entrypoint used for deposits.
	DepositMethod = NewEnum("deposit method", "approvalAndDeposit", "deposit")
)

// Code resolves a name, case-insensitively.
func (e Enum) Code(v string) (uint8, error) {
	clean := strings.TrimSpace(v)
	for i, n := range e.names {
		if strings.EqualFold(n, clean) {
			return uint8(i), nil
		}
	}
	return 0, clierr.New(clierr.CodeUnknownEnumValue, fmt.Sprintf("unknown %s %q (expected one of %s)", e.name, v, strings.Join(e.names, "|")))
}

// Name returns the canonical name for code, or its decimal form when out of range.
func (e Enum) Name(code uint8) string {
	if int(code) < len(e.names) {
		return e.names[code]
	}
	return fmt.Sprintf("%d", code)
}

func (e Enum) Names() []string {
	return append([]string(nil), e.names...)
}
