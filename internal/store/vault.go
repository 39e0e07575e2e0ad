// Package store persists session records on disk, sealed under a passphrase.
package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"qshield/internal/util/memzero"
)

// vaultContext versions the sealed format and domain-separates it from any
// other use of the same passphrase.
const vaultContext = "qshield/vault/v1"

const (
	vaultSaltLen = 16

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// ErrWrongPassphrase is returned when the passphrase is incorrect or the
// ciphertext has been modified; the two are deliberately indistinguishable.
var ErrWrongPassphrase = errors.New("store: wrong passphrase or corrupted vault")

// vaultFile is the on-disk JSON structure. Unlike the single-use keys of the
// ratchet wire, a vault key covers a record that is resealed on every save,
// so the nonce is drawn fresh and stored alongside the box.
type vaultFile struct {
	Context string    `json:"context"`
	KDF     kdfParams `json:"kdf"`
	Nonce   []byte    `json:"nonce"`
	Box     []byte    `json:"box"`
}

type kdfParams struct {
	Salt []byte `json:"salt"`
	N    int    `json:"scrypt_N"`
	R    int    `json:"scrypt_r"`
	P    int    `json:"scrypt_p"`
}

// vaultAD binds a sealed record to the vault format and to the record's own
// label, so a blob lifted from one peer's file cannot be opened as another's.
func vaultAD(label string, salt []byte) []byte {
	ad := make([]byte, 0, len(vaultContext)+1+len(label)+1+len(salt))
	ad = append(ad, vaultContext...)
	ad = append(ad, 0x00)
	ad = append(ad, label...)
	ad = append(ad, 0x00)
	return append(ad, salt...)
}

// seal encrypts raw under a passphrase-derived key, bound to label.
func seal(passphrase, label string, raw []byte) ([]byte, error) {
	var salt [vaultSaltLen]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, fmt.Errorf("store: draw salt: %w", err)
	}
	key, err := scrypt.Key([]byte(passphrase), salt[:], scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("store: derive vault key: %w", err)
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("store: draw nonce: %w", err)
	}
	box := aead.Seal(nil, nonce, raw, vaultAD(label, salt[:]))

	return json.Marshal(vaultFile{
		Context: vaultContext,
		KDF: kdfParams{
			Salt: salt[:],
			N:    scryptN,
			R:    scryptR,
			P:    scryptP,
		},
		Nonce: nonce,
		Box:   box,
	})
}

// open decrypts a sealed record, checking it against the same label it was
// sealed under. Every failure collapses to ErrWrongPassphrase.
func open(passphrase, label string, data []byte) ([]byte, error) {
	var f vaultFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, ErrWrongPassphrase
	}
	if f.Context != vaultContext ||
		len(f.KDF.Salt) != vaultSaltLen ||
		len(f.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, ErrWrongPassphrase
	}
	key, err := scrypt.Key([]byte(passphrase), f.KDF.Salt, f.KDF.N, f.KDF.R, f.KDF.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	defer memzero.Zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	raw, err := aead.Open(nil, f.Nonce, f.Box, vaultAD(label, f.KDF.Salt))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return raw, nil
}
