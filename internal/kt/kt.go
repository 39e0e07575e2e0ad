// Package kt defines the key-transparency verifier surface.
//
// Authenticated establishment requires identity-key distribution to be pinned
// through a transparency log. Wire formats for STH/inclusion/consistency
// proofs vary by log implementation, so the engine only consumes this
// interface; the concrete verifier is wired by the application.
package kt

import "errors"

// ErrNotImplemented is returned by Stub so callers cannot silently skip KT.
var ErrNotImplemented = errors.New("kt: verifier not implemented")

// Verifier checks the KT materials carried alongside a handshake bundle.
//
// Implementations must enforce log-id pinning, STH signature verification,
// inclusion of the bundle leaf, and consistency when a prior STH is known.
type Verifier interface {
	VerifyBundle(logID *[32]byte, sth, inclusionProof, consistencyProof []byte) error
}

// Stub always refuses. Wiring it keeps authenticated establishment fail-closed
// until a real verifier exists; there is no downgrade path.
type Stub struct{}

// VerifyBundle implements Verifier by refusing every bundle.
func (Stub) VerifyBundle(_ *[32]byte, _, _, _ []byte) error {
	return ErrNotImplemented
}
