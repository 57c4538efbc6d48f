// Package command declares administrative operations with typed flag schemas
// and validates operator input against them before any handler runs.
package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zkevm-ops/zkadmin/internal/codec"
	clierr "github.com/zkevm-ops/zkadmin/internal/errors"
	"github.com/zkevm-ops/zkadmin/internal/identity"
)

type Kind string

const (
	KindString      Kind = "string"
	KindSecret      Kind = "secret"
	KindAddress     Kind = "address"
	KindAddressList Kind = "address_list"
	KindAmount      Kind = "amount"
	KindUint        Kind = "uint"
	KindBigUint     Kind = "big_uint"
	KindBool        Kind = "bool"
	KindEnum        Kind = "enum"
)

// Credential flags added to every command that signs.
const (
	FlagPrivateKey     = "private-key"
	FlagMnemonic       = "mnemonic"
	FlagDerivationPath = "derivation-path"
)

type Flag struct {
	Name     string
	Usage    string
	Kind     Kind
	Required bool
	Default  string
	// Env names the environment variable consulted when the flag is absent.
	Env string
	// Bits bounds KindUint values.
	Bits int
	Enum *codec.Enum
}

type Handler func(ctx context.Context, args Args) (any, error)

type Command struct {
	Path  []string
	Short string
	// Role selects the default signing credential; RoleNone commands are
	// read-only and take no credential flags.
	Role  identity.Role
	Flags []Flag
	Run   Handler
}

func (c *Command) Name() string { return strings.Join(c.Path, " ") }

func (c *Command) Flag(name string) (Flag, bool) {
	for _, f := range c.Flags {
		if f.Name == name {
			return f, true
		}
	}
	return Flag{}, false
}

// Signs reports whether the command submits transactions.
func (c *Command) Signs() bool { return c.Role != identity.RoleNone }

// Registry is built once at startup and only read afterwards.
type Registry struct {
	commands []*Command
	byPath   map[string]*Command
}

func NewRegistry(commands ...Command) (*Registry, error) {
	r := &Registry{byPath: make(map[string]*Command, len(commands))}
	for i := range commands {
		cmd := commands[i]
		name := cmd.Name()
		if name == "" {
			return nil, fmt.Errorf("command %d has no path", i)
		}
		if _, ok := r.byPath[name]; ok {
			return nil, fmt.Errorf("duplicate command %q", name)
		}
		if cmd.Run == nil {
			return nil, fmt.Errorf("command %q has no handler", name)
		}
		flags := append([]Flag(nil), cmd.Flags...)
		if cmd.Signs() {
			flags = append(flags, credentialFlags()...)
		}
		seen := map[string]struct{}{}
		for _, f := range flags {
			if _, ok := seen[f.Name]; ok {
				return nil, fmt.Errorf("command %q declares flag --%s twice", name, f.Name)
			}
			seen[f.Name] = struct{}{}
			if f.Kind == KindEnum && f.Enum == nil {
				return nil, fmt.Errorf("command %q flag --%s has no enum table", name, f.Name)
			}
		}
		cmd.Flags = flags
		r.commands = append(r.commands, &cmd)
		r.byPath[name] = &cmd
	}
	return r, nil
}

func credentialFlags() []Flag {
	return []Flag{
		{Name: FlagPrivateKey, Kind: KindSecret, Usage: "Hex private key; overrides --mnemonic and the role default"},
		{Name: FlagMnemonic, Kind: KindSecret, Usage: "BIP-39 mnemonic; overrides the role default"},
		{Name: FlagDerivationPath, Kind: KindString, Usage: "HD derivation path (default " + identity.DefaultDerivationPath + ")"},
	}
}

// Commands returns the registered commands in registration order.
func (r *Registry) Commands() []*Command {
	return append([]*Command(nil), r.commands...)
}

func (r *Registry) Lookup(path ...string) (*Command, bool) {
	cmd, ok := r.byPath[strings.Join(path, " ")]
	return cmd, ok
}

// Input is the raw operator input for one invocation. Flags holds only the
// flags the operator actually passed.
type Input struct {
	Flags map[string]string
	Env   map[string]string
}

// Dispatch validates in against the command at path and runs its handler.
func (r *Registry) Dispatch(ctx context.Context, path []string, in Input) (any, error) {
	cmd, ok := r.Lookup(path...)
	if !ok {
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown command %q", strings.Join(path, " ")))
	}
	args, err := Validate(cmd, in)
	if err != nil {
		return nil, err
	}
	return cmd.Run(ctx, args)
}

// Validate resolves every declared flag (operator value, then env, then
// default), reports all missing required flags at once and parses values
// into their typed form.
func Validate(cmd *Command, in Input) (Args, error) {
	var unknown []string
	for name := range in.Flags {
		if _, ok := cmd.Flag(name); !ok {
			unknown = append(unknown, "--"+name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Args{}, clierr.New(clierr.CodeUnknownFlag, fmt.Sprintf("unknown flag for %q", cmd.Name())).WithFields(unknown...)
	}

	raw := make(map[string]string, len(cmd.Flags))
	sources := make(map[string]string, len(cmd.Flags))
	var missing []string
	for _, f := range cmd.Flags {
		value, source := resolve(f, in)
		if value == "" {
			if f.Required {
				missing = append(missing, "--"+f.Name)
			}
			continue
		}
		raw[f.Name] = value
		sources[f.Name] = source
	}
	if len(missing) > 0 {
		return Args{}, clierr.New(clierr.CodeMissingRequiredFlag, fmt.Sprintf("missing required flags for %q", cmd.Name())).WithFields(missing...)
	}

	args := Args{values: make(map[string]any, len(raw)), raw: raw, sources: sources}
	for _, f := range cmd.Flags {
		value, ok := raw[f.Name]
		if !ok {
			continue
		}
		parsed, err := parse(f, value)
		if err != nil {
			return Args{}, flagError(f, sources[f.Name], err)
		}
		args.values[f.Name] = parsed
	}
	return args, nil
}

func resolve(f Flag, in Input) (string, string) {
	if v, ok := in.Flags[f.Name]; ok {
		return strings.TrimSpace(v), SourceFlag
	}
	if f.Env != "" {
		if v := strings.TrimSpace(in.Env[f.Env]); v != "" {
			return v, SourceEnv
		}
	}
	return strings.TrimSpace(f.Default), SourceDefault
}

func flagError(f Flag, source string, err error) error {
	where := "--" + f.Name
	if source == SourceEnv {
		where = fmt.Sprintf("--%s (from %s)", f.Name, f.Env)
	}
	code := clierr.CodeUsage
	if typed, ok := clierr.As(err); ok {
		code = typed.Code
	}
	return clierr.Wrap(code, "invalid "+where, err).WithFields("--" + f.Name)
}
