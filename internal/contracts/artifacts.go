package contracts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	clierr "github.com/zkevm-ops/zkadmin/internal/errors"
)

// Artifact is a compiled contract: hardhat (bytecode as a hex string) or
// foundry (bytecode.object) layout.
type Artifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     Bytecode        `json:"bytecode"`

	parsed abi.ABI
}

// Bytecode accepts either a plain hex string or {"object": "0x..."}.
type Bytecode struct {
	Object string `json:"object"`
}

func (b *Bytecode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &b.Object)
	}
	var obj struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	b.Object = obj.Object
	return nil
}

// LoadArtifact finds <name>.json under dir, first at the top level and then
// anywhere below it.
func LoadArtifact(dir, name string) (*Artifact, error) {
	path, err := findArtifact(dir, name)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeMissingArtifact, fmt.Sprintf("read artifact %s", path), err)
	}
	return ParseArtifact(name, raw)
}

func ParseArtifact(name string, raw []byte) (*Artifact, error) {
	var artifact Artifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, clierr.Wrap(clierr.CodeMissingArtifact, fmt.Sprintf("parse artifact for %s", name), err)
	}
	if artifact.ContractName == "" {
		artifact.ContractName = name
	}
	parsed, err := abi.JSON(bytes.NewReader(artifact.ABI))
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeMissingArtifact, fmt.Sprintf("parse abi for %s", name), err)
	}
	artifact.parsed = parsed
	return &artifact, nil
}

func findArtifact(dir, name string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", clierr.New(clierr.CodeMissingArtifact, "artifacts directory is not configured; pass --artifacts")
	}
	file := name + ".json"
	direct := filepath.Join(dir, file)
	if info, err := os.Stat(direct); err == nil && !info.IsDir() {
		return direct, nil
	}
	found := ""
	errFound := errors.New("found")
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == file {
			found = path
			return errFound
		}
		return nil
	})
	if found != "" {
		return found, nil
	}
	if err != nil && !errors.Is(err, errFound) {
		return "", clierr.Wrap(clierr.CodeMissingArtifact, fmt.Sprintf("search artifacts in %s", dir), err)
	}
	return "", clierr.New(clierr.CodeMissingArtifact, fmt.Sprintf("no compiled artifact %s under %s; compile the contracts first", file, dir))
}

// DeployData returns init code followed by the ABI-encoded constructor args.
func (a *Artifact) DeployData(args ...any) ([]byte, error) {
	code := common.FromHex(strings.TrimSpace(a.Bytecode.Object))
	if len(code) == 0 {
		return nil, clierr.New(clierr.CodeMissingArtifact, fmt.Sprintf("artifact %s has no bytecode (abstract contract or interface?)", a.ContractName))
	}
	encoded, err := a.parsed.Pack("", args...)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, fmt.Sprintf("encode %s constructor arguments", a.ContractName), err)
	}
	out := make([]byte, 0, len(code)+len(encoded))
	out = append(out, code...)
	return append(out, encoded...), nil
}

// ConstructorInputs returns the number of constructor parameters.
func (a *Artifact) ConstructorInputs() int {
	return len(a.parsed.Constructor.Inputs)
}

// ConstructorArgs builds constructor arguments for the contracts the suite
// deploys. extra carries positional addresses supplied by the operator.
func ConstructorArgs(name string, deployer common.Address, extra []common.Address) ([]any, error) {
	switch name {
	case DenyListContract:
		list := extra
		if list == nil {
			list = []common.Address{}
		}
		return []any{deployer, list}, nil
	case MiddlewareContract:
		if len(extra) > 0 {
			return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s takes no constructor addresses", name))
		}
		return []any{deployer}, nil
	case AdminContract:
		if len(extra) != 1 {
			return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s needs exactly one constructor address (the diamond proxy)", name))
		}
		return []any{extra[0], deployer}, nil
	}
	out := make([]any, 0, len(extra))
	for _, addr := range extra {
		out = append(out, addr)
	}
	return out, nil
}
