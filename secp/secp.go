// Package secp implements the signature collaborator of the chain:
// secp256k1 ECDSA over the double SHA-256 of a payload, with DER
// encoded signatures and compressed public keys as owner identities.
package secp

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Verifier checks signatures produced by Key.Sign. The zero value is
// ready to use.
type Verifier struct{}

func (Verifier) Verify(pubKey, payload, sig []byte) bool {
	pk, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return false
	}
	s, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return s.Verify(chainhash.DoubleHashB(payload), pk)
}

type Key struct {
	priv *btcec.PrivateKey
}

func NewKey() (*Key, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return &Key{priv: priv}, nil
}

// KeyFromSeed derives a deterministic key, handy for tests and
// simulations. Never use it for keys that guard real value.
func KeyFromSeed(seed []byte) *Key {
	h := sha256.Sum256(seed)
	priv, _ := btcec.PrivKeyFromBytes(h[:])
	return &Key{priv: priv}
}

// PubKey is the compressed public key, the identity outputs are
// locked to.
func (k *Key) PubKey() []byte {
	return k.priv.PubKey().SerializeCompressed()
}

func (k *Key) Sign(payload []byte) []byte {
	return ecdsa.Sign(k.priv, chainhash.DoubleHashB(payload)).Serialize()
}
