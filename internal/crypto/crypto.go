// Package crypto defines the capability interfaces the protocol engine
// consumes. Callers never see concrete algorithms through these contracts;
// the stdcrypto subpackage binds them to real primitives.
//
// The surface is deliberately narrow: five interfaces, nine methods. Signature
// verification is a handshake concern and lives with its consumer; callers
// that need nonces or padding bytes draw them from crypto/rand directly.
package crypto

import "errors"

var (
	// ErrAuthFail is the distinct signal AEAD.Open returns on an
	// authentication failure.
	ErrAuthFail = errors.New("crypto: authentication failed")
	// ErrInvalidKey reports key material of the wrong shape.
	ErrInvalidKey = errors.New("crypto: invalid key material")
	// ErrNotImplemented is returned by stub capability surfaces.
	ErrNotImplemented = errors.New("crypto: not implemented")
)

// Hash provides SHA-512.
type Hash interface {
	SHA512(data []byte) [64]byte
}

// Kmac provides KMAC-256 with a caller-chosen output length. The label is
// the KMAC customization string.
type Kmac interface {
	KMAC256(key []byte, label string, data []byte, outLen int) []byte
}

// AEAD seals and opens with a 32-byte key and 12-byte nonce.
type AEAD interface {
	Seal(key *[32]byte, nonce *[12]byte, ad, pt []byte) []byte
	// Open returns ErrAuthFail when the ciphertext or associated data does
	// not authenticate.
	Open(key *[32]byte, nonce *[12]byte, ad, ct []byte) ([]byte, error)
}

// X25519DH provides Curve25519 key agreement.
type X25519DH interface {
	Keypair() (X25519Private, X25519Public, error)
	DH(priv X25519Private, pub X25519Public) ([32]byte, error)
}

// PqKem768 provides ML-KEM-768. Encap returns a 1088-byte ciphertext and a
// 32-byte shared secret; Decap returns the 32-byte shared secret.
type PqKem768 interface {
	KemKeypair() (pub, priv []byte, err error)
	Encap(pub []byte) (ct, ss []byte, err error)
	Decap(priv, ct []byte) (ss []byte, err error)
}
