package identity

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	clierr "github.com/zkevm-ops/zkadmin/internal/errors"
)

// DefaultDerivationPath is applied when a mnemonic is supplied without a path.
const DefaultDerivationPath = "m/44'/60'/0'/0/1"

// Source records which credential produced an identity.
type Source string

const (
	SourcePrivateKey        Source = "private-key"
	SourceMnemonic          Source = "mnemonic"
	SourceDefaultPrivateKey Source = "default-private-key"
	SourceDefaultMnemonic   Source = "default-mnemonic"
)

// Config lists every credential the resolver considers. Precedence:
// PrivateKey, Mnemonic, DefaultPrivateKey, DefaultMnemonic.
type Config struct {
	PrivateKey     string
	Mnemonic       string
	DerivationPath string

	DefaultPrivateKey string
	DefaultMnemonic   string

	// DefaultSources names the environment variables behind the defaults and
	// is only used in error messages.
	DefaultSources []string
}

// Identity is the single signing account of one invocation.
type Identity struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	path       string
	source     Source
}

func (i *Identity) Address() common.Address {
	return i.address
}

// DerivationPath is empty unless the key was derived from a mnemonic.
func (i *Identity) DerivationPath() string {
	return i.path
}

func (i *Identity) Source() Source {
	return i.source
}

func (i *Identity) SignTx(chainID *big.Int, tx *types.Transaction) (*types.Transaction, error) {
	if i == nil || i.privateKey == nil {
		return nil, errors.New("identity is not initialized")
	}
	signer := types.LatestSignerForChainID(chainID)
	return types.SignTx(tx, signer, i.privateKey)
}

func (i *Identity) String() string {
	return i.address.Hex()
}

// LogValue keeps key material out of structured logs.
func (i *Identity) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("address", i.address.Hex()),
		slog.String("source", string(i.source)),
	}
	if i.path != "" {
		attrs = append(attrs, slog.String("path", i.path))
	}
	return slog.GroupValue(attrs...)
}

// Resolve produces exactly one identity from cfg.
func Resolve(cfg Config) (*Identity, error) {
	path := strings.TrimSpace(cfg.DerivationPath)
	if path == "" {
		path = DefaultDerivationPath
	}
	switch {
	case strings.TrimSpace(cfg.PrivateKey) != "":
		return fromPrivateKey(cfg.PrivateKey, SourcePrivateKey)
	case strings.TrimSpace(cfg.Mnemonic) != "":
		return fromMnemonic(cfg.Mnemonic, path, SourceMnemonic)
	case strings.TrimSpace(cfg.DefaultPrivateKey) != "":
		return fromPrivateKey(cfg.DefaultPrivateKey, SourceDefaultPrivateKey)
	case strings.TrimSpace(cfg.DefaultMnemonic) != "":
		return fromMnemonic(cfg.DefaultMnemonic, path, SourceDefaultMnemonic)
	}
	msg := "no signing credential: pass --private-key or --mnemonic"
	if len(cfg.DefaultSources) > 0 {
		msg = fmt.Sprintf("%s, or set %s", msg, strings.Join(cfg.DefaultSources, " or "))
	}
	return nil, clierr.New(clierr.CodeMissingCredential, msg)
}

// Announce writes the resolved address for operator confirmation. It is not
// tied to the log level.
func Announce(w io.Writer, id *Identity) {
	if w == nil || id == nil {
		return
	}
	if id.path != "" {
		_, _ = fmt.Fprintf(w, "using signer %s (%s, %s)\n", id.address.Hex(), id.source, id.path)
		return
	}
	_, _ = fmt.Fprintf(w, "using signer %s (%s)\n", id.address.Hex(), id.source)
}

func fromPrivateKey(raw string, source Source) (*Identity, error) {
	pk, err := parseHexKey(raw)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeMissingCredential, "load private key", err)
	}
	return newIdentity(pk, "", source), nil
}

func fromMnemonic(mnemonic, path string, source Source) (*Identity, error) {
	pk, err := deriveKey(mnemonic, path)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeMissingCredential, "derive key from mnemonic", err)
	}
	return newIdentity(pk, path, source), nil
}

func newIdentity(pk *ecdsa.PrivateKey, path string, source Source) *Identity {
	return &Identity{
		privateKey: pk,
		address:    crypto.PubkeyToAddress(pk.PublicKey),
		path:       path,
		source:     source,
	}
}

func parseHexKey(raw string) (*ecdsa.PrivateKey, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "0x")
	if clean == "" {
		return nil, fmt.Errorf("empty private key")
	}
	pk, err := crypto.HexToECDSA(clean)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return pk, nil
}
