package identity

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/cosmos/go-bip39"
	"github.com/ethereum/go-ethereum/accounts"
)

// deriveKey walks a BIP-32 path from the BIP-39 seed of mnemonic. The seed
// uses an empty passphrase.
func deriveKey(mnemonic, path string) (*ecdsa.PrivateKey, error) {
	words := strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(words) {
		return nil, errors.New("mnemonic is not a valid BIP-39 phrase")
	}
	dp, err := accounts.ParseDerivationPath(path)
	if err != nil {
		return nil, fmt.Errorf("parse derivation path %q: %w", path, err)
	}
	seed := bip39.NewSeed(words, "")
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	for _, index := range dp {
		key, err = key.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("derive %s: %w", path, err)
		}
	}
	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("extract private key: %w", err)
	}
	return priv.ToECDSA(), nil
}
