package codec

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	clierr "github.com/zkevm-ops/zkadmin/internal/errors"
)

// ParseAddress validates a hex chain address.
func ParseAddress(v string) (common.Address, error) {
	clean := strings.TrimSpace(v)
	if !common.IsHexAddress(clean) {
		return common.Address{}, clierr.New(clierr.CodeInvalidAddress, fmt.Sprintf("invalid address %q", v))
	}
	return common.HexToAddress(clean), nil
}

// ParseAddressList splits a comma-separated address list, preserving input
// order. Empty input yields an empty, non-nil slice.
func ParseAddressList(v string) ([]common.Address, error) {
	out := []common.Address{}
	if strings.TrimSpace(v) == "" {
		return out, nil
	}
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		addr, err := ParseAddress(part)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

// FormatAddressList renders addresses in the same comma-separated shape
// ParseAddressList accepts.
func FormatAddressList(addrs []common.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, a.Hex())
	}
	return strings.Join(parts, ",")
}

// FormatAllowed renders a filterer verdict for operators.
func FormatAllowed(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "not allowed"
}
