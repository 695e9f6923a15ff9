// Package identity handles loading, generating, and persisting the
// deployer's signing key (a secp256k1 keypair). The key comes either from
// the PRIVATE_KEY hex value or from a key file holding the same hex; key
// files are created with 0600 permissions.
package identity

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNoKey is returned by Resolve when neither a hex key nor a key file is
// configured.
var ErrNoKey = errors.New("no signing key: set PRIVATE_KEY or KEY_FILE")

// Resolve builds the deployer identity from a hex private key, falling back
// to an existing key file. It never creates a key.
func Resolve(privateKeyHex, keyFile string) (*Identity, error) {
	if privateKeyHex != "" {
		return FromHex(privateKeyHex)
	}
	if keyFile != "" {
		privKey, err := loadKeyPair(keyFile)
		if err != nil {
			return nil, fmt.Errorf("load key file %s: %w", keyFile, err)
		}
		return NewIdentity(privKey), nil
	}
	return nil, ErrNoKey
}

// FromHex parses a hex-encoded private key, with or without 0x prefix.
func FromHex(privateKeyHex string) (*Identity, error) {
	hexKey := strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	privKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return NewIdentity(privKey), nil
}

// LoadOrCreateIdentity loads an existing identity or creates a new one
// from the given key path.
//
// A missing or empty key file gets a freshly generated key written to it
// with 0600 permissions.
func LoadOrCreateIdentity(keyPath string) (*Identity, bool, error) {
	info, err := os.Stat(keyPath)
	if os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		privKey, err := generateAndSaveKeyPair(keyPath)
		if err != nil {
			return nil, false, err
		}
		return NewIdentity(privKey), true, nil
	}
	if err != nil {
		return nil, false, err
	}

	privKey, err := loadKeyPair(keyPath)
	if err != nil {
		return nil, false, err
	}
	return NewIdentity(privKey), false, nil
}

func generateAndSaveKeyPair(keyPath string) (*ecdsa.PrivateKey, error) {
	privKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := crypto.SaveECDSA(keyPath, privKey); err != nil {
		return nil, err
	}
	// SaveECDSA keeps the mode of a pre-existing file.
	if err := os.Chmod(keyPath, 0600); err != nil {
		return nil, err
	}
	return privKey, nil
}

func loadKeyPair(keyPath string) (*ecdsa.PrivateKey, error) {
	privKey, err := crypto.LoadECDSA(keyPath)
	if err != nil {
		return nil, fmt.Errorf("decode secp256k1 key: %w", err)
	}
	return privKey, nil
}
