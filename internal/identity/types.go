package identity

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Identity is the account that signs deployment transactions.
type Identity struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewIdentity creates a new Identity from a private key
func NewIdentity(privKey *ecdsa.PrivateKey) *Identity {
	return &Identity{
		privateKey: privKey,
		address:    crypto.PubkeyToAddress(privKey.PublicKey),
	}
}

// PrivateKey returns the raw private key
func (i *Identity) PrivateKey() *ecdsa.PrivateKey {
	return i.privateKey
}

// Address is the account address derived from the public key.
func (i *Identity) Address() common.Address {
	return i.address
}

// AddressHex returns the checksummed account address.
func (i *Identity) AddressHex() string {
	return i.address.Hex()
}
