package crypto

import "qshield/internal/util/memzero"

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// Wipe zeroes the private key in place.
func (k *X25519Private) Wipe() { memzero.Zero(k[:]) }
