// Package stdcrypto binds the engine's capability interfaces to concrete
// primitives: SHA-512 and AES-256-GCM from the standard library, KMAC-256
// over x/crypto cSHAKE-256, X25519 over x/crypto curve25519, and ML-KEM-768 /
// ML-DSA-65 from cloudflare/circl.
package stdcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"fmt"

	"github.com/cloudflare/circl/kem"
	kemschemes "github.com/cloudflare/circl/kem/schemes"
	"github.com/cloudflare/circl/sign"
	signschemes "github.com/cloudflare/circl/sign/schemes"
	"golang.org/x/crypto/curve25519"

	"qshield/internal/crypto"
)

// Suite implements every capability interface with the QSP v4.3.1 / v5.0
// algorithm bindings. The zero value is ready to use.
type Suite struct{}

var (
	_ crypto.Hash     = Suite{}
	_ crypto.Kmac     = Suite{}
	_ crypto.AEAD     = Suite{}
	_ crypto.X25519DH = Suite{}
	_ crypto.PqKem768 = Suite{}
)

// SHA512 hashes data with SHA-512.
func (Suite) SHA512(data []byte) [64]byte {
	return sha512.Sum512(data)
}

// KMAC256 computes KMAC-256 with the label as customization string.
func (Suite) KMAC256(key []byte, label string, data []byte, outLen int) []byte {
	return kmac256(key, label, data, outLen)
}

// Seal encrypts pt with AES-256-GCM.
func (Suite) Seal(key *[32]byte, nonce *[12]byte, ad, pt []byte) []byte {
	return newGCM(key).Seal(nil, nonce[:], pt, ad)
}

// Open decrypts ct with AES-256-GCM, returning crypto.ErrAuthFail on any
// authentication failure.
func (Suite) Open(key *[32]byte, nonce *[12]byte, ad, ct []byte) ([]byte, error) {
	pt, err := newGCM(key).Open(nil, nonce[:], ct, ad)
	if err != nil {
		return nil, crypto.ErrAuthFail
	}
	return pt, nil
}

func newGCM(key *[32]byte) cipher.AEAD {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		// A 32-byte key can never be rejected by aes.NewCipher.
		panic(err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		panic(err)
	}
	return aead
}

// Keypair generates an X25519 pair, clamping the private scalar per RFC 7748.
func (Suite) Keypair() (crypto.X25519Private, crypto.X25519Public, error) {
	var priv crypto.X25519Private
	var pub crypto.X25519Public
	if _, err := rand.Read(priv[:]); err != nil {
		return priv, pub, fmt.Errorf("stdcrypto: generate x25519 key: %w", err)
	}
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64
	pubBytes, err := curve25519.X25519(priv.Slice(), curve25519.Basepoint)
	if err != nil {
		return priv, pub, fmt.Errorf("stdcrypto: compute x25519 public key: %w", err)
	}
	copy(pub[:], pubBytes)
	return priv, pub, nil
}

// DH performs the Curve25519 Diffie-Hellman between priv and pub.
func (Suite) DH(priv crypto.X25519Private, pub crypto.X25519Public) ([32]byte, error) {
	var out [32]byte
	secret, err := curve25519.X25519(priv.Slice(), pub.Slice())
	if err != nil {
		return out, fmt.Errorf("stdcrypto: x25519 dh: %w", err)
	}
	copy(out[:], secret)
	return out, nil
}

func mlkem768() kem.Scheme {
	return kemschemes.ByName("ML-KEM-768")
}

// KemKeypair generates an ML-KEM-768 pair in its binary encoding.
func (Suite) KemKeypair() (pub, priv []byte, err error) {
	pk, sk, err := mlkem768().GenerateKeyPair()
	if err != nil {
		return nil, nil, fmt.Errorf("stdcrypto: ml-kem-768 keypair: %w", err)
	}
	pub, err = pk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("stdcrypto: marshal ml-kem-768 public key: %w", err)
	}
	priv, err = sk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("stdcrypto: marshal ml-kem-768 private key: %w", err)
	}
	return pub, priv, nil
}

// Encap encapsulates against an ML-KEM-768 public key.
func (Suite) Encap(pub []byte) (ct, ss []byte, err error) {
	pk, err := mlkem768().UnmarshalBinaryPublicKey(pub)
	if err != nil {
		return nil, nil, crypto.ErrInvalidKey
	}
	ct, ss, err = mlkem768().Encapsulate(pk)
	if err != nil {
		return nil, nil, fmt.Errorf("stdcrypto: ml-kem-768 encapsulate: %w", err)
	}
	return ct, ss, nil
}

// Decap decapsulates an ML-KEM-768 ciphertext.
func (Suite) Decap(priv, ct []byte) ([]byte, error) {
	sk, err := mlkem768().UnmarshalBinaryPrivateKey(priv)
	if err != nil {
		return nil, crypto.ErrInvalidKey
	}
	ss, err := mlkem768().Decapsulate(sk, ct)
	if err != nil {
		return nil, fmt.Errorf("stdcrypto: ml-kem-768 decapsulate: %w", err)
	}
	return ss, nil
}

func mldsa65() sign.Scheme {
	return signschemes.ByName("ML-DSA-65")
}

// SigKeypair generates an ML-DSA-65 pair in its binary encoding.
func (Suite) SigKeypair() (pub, priv []byte, err error) {
	pk, sk, err := mldsa65().GenerateKey()
	if err != nil {
		return nil, nil, fmt.Errorf("stdcrypto: ml-dsa-65 keypair: %w", err)
	}
	pub, err = pk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("stdcrypto: marshal ml-dsa-65 public key: %w", err)
	}
	priv, err = sk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("stdcrypto: marshal ml-dsa-65 private key: %w", err)
	}
	return pub, priv, nil
}

// Sign produces an ML-DSA-65 signature.
func (Suite) Sign(priv, msg []byte) ([]byte, error) {
	sk, err := mldsa65().UnmarshalBinaryPrivateKey(priv)
	if err != nil {
		return nil, crypto.ErrInvalidKey
	}
	return mldsa65().Sign(sk, msg, nil), nil
}

// Verify checks an ML-DSA-65 signature.
func (Suite) Verify(pub, msg, sig []byte) (bool, error) {
	pk, err := mldsa65().UnmarshalBinaryPublicKey(pub)
	if err != nil {
		return false, crypto.ErrInvalidKey
	}
	return mldsa65().Verify(pk, msg, sig, nil), nil
}
