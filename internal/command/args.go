package command

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zkevm-ops/zkadmin/internal/codec"
	clierr "github.com/zkevm-ops/zkadmin/internal/errors"
)

const (
	SourceFlag    = "flag"
	SourceEnv     = "env"
	SourceDefault = "default"
)

// Args is the validated, typed argument bundle handed to a handler. Accessors
// return zero values for flags that resolved to nothing.
type Args struct {
	values  map[string]any
	raw     map[string]string
	sources map[string]string
}

func parse(f Flag, value string) (any, error) {
	switch f.Kind {
	case KindString, KindSecret:
		return value, nil
	case KindAddress:
		return codec.ParseAddress(value)
	case KindAddressList:
		return codec.ParseAddressList(value)
	case KindAmount:
		return codec.ParseEther(value)
	case KindUint:
		bits := f.Bits
		if bits == 0 {
			bits = 64
		}
		return codec.ParseUint(value, bits)
	case KindBigUint:
		return codec.ParseBigUint(value)
	case KindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("%q is not a boolean", value))
		}
		return b, nil
	case KindEnum:
		return f.Enum.Code(value)
	}
	return nil, clierr.New(clierr.CodeInternal, fmt.Sprintf("flag kind %q is not supported", f.Kind))
}

func (a Args) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

// Raw returns the resolved input text of a flag.
func (a Args) Raw(name string) string { return a.raw[name] }

// Source reports where the flag value came from: flag, env or default.
func (a Args) Source(name string) string { return a.sources[name] }

func (a Args) String(name string) string {
	v, _ := a.values[name].(string)
	return v
}

func (a Args) Address(name string) common.Address {
	v, _ := a.values[name].(common.Address)
	return v
}

// Addresses returns an empty slice when the flag is unset.
func (a Args) Addresses(name string) []common.Address {
	v, ok := a.values[name].([]common.Address)
	if !ok {
		return []common.Address{}
	}
	return v
}

func (a Args) Amount(name string) *big.Int {
	v, _ := a.values[name].(*big.Int)
	return v
}

func (a Args) BigUint(name string) *big.Int {
	v, _ := a.values[name].(*big.Int)
	return v
}

func (a Args) Uint(name string) uint64 {
	v, _ := a.values[name].(uint64)
	return v
}

func (a Args) Bool(name string) bool {
	v, _ := a.values[name].(bool)
	return v
}

func (a Args) Enum(name string) uint8 {
	v, _ := a.values[name].(uint8)
	return v
}
