// Package auth implements signed authorization of ledger operations.
//
// Every mutating call carries one or two detached ECDSA signatures over a
// typed payload (see Payload). The verifier recovers the signer address from
// the attached public key, checks the key actually signed the canonical
// payload digest, and hands the address back to the engine, which compares
// it against the expected signer (the vault operator or the target user).
package auth

import (
	"encoding/hex"
	"errors"
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"

	"github.com/xraph/unlocker/types"
)

// ErrVerifyFailed is returned for any malformed or non-matching signature.
var ErrVerifyFailed = errors.New("auth: signature verification failed")

// Signature is a detached signature over a typed payload: the signer's
// compressed public key plus a DER-encoded ECDSA signature of the digest.
type Signature struct {
	PublicKey []byte `json:"public_key"`
	DER       []byte `json:"der"`
}

// AddressOf derives the ledger address of a public key:
// "0x" + hex(HASH160(compressed pubkey)).
func AddressOf(pub *ec.PublicKey) types.Address {
	return types.Address("0x" + hex.EncodeToString(bsvhash.Hash160(pub.Compressed())))
}

// Recoverer validates a signature over a payload and yields the signer's
// address. The engine compares that address to the expected signer itself.
type Recoverer interface {
	Recover(p Payload, sig Signature) (types.Address, error)
}

// ECRecoverer is the production Recoverer over secp256k1 ECDSA.
type ECRecoverer struct{}

var _ Recoverer = ECRecoverer{}

// Recover implements Recoverer.
func (ECRecoverer) Recover(p Payload, sig Signature) (types.Address, error) {
	pub, err := ec.PublicKeyFromBytes(sig.PublicKey)
	if err != nil {
		return "", fmt.Errorf("%w: bad public key: %w", ErrVerifyFailed, err)
	}

	parsed, err := ec.ParseDERSignature(sig.DER)
	if err != nil {
		return "", fmt.Errorf("%w: bad signature encoding: %w", ErrVerifyFailed, err)
	}

	if !parsed.Verify(Digest(p), pub) {
		return "", ErrVerifyFailed
	}

	return AddressOf(pub), nil
}

// Signer produces Signatures for payloads. It backs operator and user
// identities in tests and client SDK code; the engine itself never signs.
type Signer struct {
	priv *ec.PrivateKey
}

// NewSigner generates a Signer with a fresh random key.
func NewSigner() (*Signer, error) {
	priv, err := ec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("auth: generate key: %w", err)
	}
	return &Signer{priv: priv}, nil
}

// SignerFromKey wraps an existing private key.
func SignerFromKey(priv *ec.PrivateKey) *Signer {
	return &Signer{priv: priv}
}

// Address returns the signer's ledger address.
func (s *Signer) Address() types.Address {
	return AddressOf(s.priv.PubKey())
}

// Sign signs the canonical digest of the payload.
func (s *Signer) Sign(p Payload) (Signature, error) {
	sig, err := s.priv.Sign(Digest(p))
	if err != nil {
		return Signature{}, fmt.Errorf("auth: sign: %w", err)
	}
	return Signature{
		PublicKey: s.priv.PubKey().Compressed(),
		DER:       sig.Serialize(),
	}, nil
}

// MustSign is Sign for test fixtures; panics on error.
func (s *Signer) MustSign(p Payload) Signature {
	sig, err := s.Sign(p)
	if err != nil {
		panic(err)
	}
	return sig
}
