package codec

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	clierr "github.com/zkevm-ops/zkadmin/internal/errors"
)

// EtherDecimals is the decimal exponent between ether and wei.
const EtherDecimals = 18

var decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// ParseEther converts a decimal ether amount ("1", "0.001") into wei.
func ParseEther(v string) (*big.Int, error) {
	return ParseUnits(v, EtherDecimals)
}

// ParseUnits converts a decimal amount into its minor-unit integer using a
// fixed decimal exponent.
func ParseUnits(v string, decimals int) (*big.Int, error) {
	clean := strings.TrimSpace(v)
	if clean == "" {
		return nil, invalidAmount(v, "amount is empty")
	}
	if decimals < 0 {
		return nil, invalidAmount(v, "decimals must be >= 0")
	}
	if !decimalPattern.MatchString(clean) {
		return nil, invalidAmount(v, "expected a non-negative decimal like 1.25")
	}
	base, err := decimalToBaseUnits(clean, decimals)
	if err != nil {
		return nil, invalidAmount(v, err.Error())
	}
	out, ok := new(big.Int).SetString(base, 10)
	if !ok {
		return nil, invalidAmount(v, "not an integer after scaling")
	}
	return out, nil
}

// FormatUnits renders a minor-unit integer as a trimmed decimal string.
func FormatUnits(v *big.Int, decimals int) string {
	if v == nil {
		return "0"
	}
	s := v.String()
	if decimals == 0 {
		return s
	}
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	intPart := s[:len(s)-decimals]
	fracPart := strings.TrimRight(s[len(s)-decimals:], "0")
	if fracPart == "" {
		return intPart
	}
	return intPart + "." + fracPart
}

// ParseUint parses an already-integer on-chain field. No unit scaling is
// applied; the value must fit in bits.
func ParseUint(v string, bits int) (uint64, error) {
	clean := strings.TrimSpace(v)
	if clean == "" {
		return 0, invalidAmount(v, "value is empty")
	}
	n, err := strconv.ParseUint(clean, 10, bits)
	if err != nil {
		return 0, invalidAmount(v, fmt.Sprintf("expected an unsigned %d-bit integer", bits))
	}
	return n, nil
}

// ParseBigUint parses an unsigned integer of arbitrary size (uint256 fields).
func ParseBigUint(v string) (*big.Int, error) {
	clean := strings.TrimSpace(v)
	if clean == "" {
		return nil, invalidAmount(v, "value is empty")
	}
	n, ok := new(big.Int).SetString(clean, 10)
	if !ok || n.Sign() < 0 {
		return nil, invalidAmount(v, "expected an unsigned integer")
	}
	if n.BitLen() > 256 {
		return nil, invalidAmount(v, "value exceeds 256 bits")
	}
	return n, nil
}

func decimalToBaseUnits(decimal string, decimals int) (string, error) {
	parts := strings.SplitN(decimal, ".", 2)
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if len(fracPart) > decimals {
		return "", fmt.Errorf("precision exceeds %d decimals", decimals)
	}

	fracPart = fracPart + strings.Repeat("0", decimals-len(fracPart))
	combined := strings.TrimLeft(intPart+fracPart, "0")
	if combined == "" {
		return "0", nil
	}
	return combined, nil
}

func invalidAmount(input, reason string) error {
	return clierr.New(clierr.CodeInvalidAmount, fmt.Sprintf("invalid amount %q: %s", input, reason))
}
