// Package handshake defines the QSP v4.3.1 base-handshake surface the
// suite-2 engine consumes. The handshake itself (initial messages, prekey
// bundles, signatures) runs outside this repository; what crosses the
// boundary is the Outputs value that seeds suite-2 establishment, plus the
// authentication policy gate.
package handshake

import (
	"qshield/internal/kt"
	"qshield/internal/reject"
)

// Protocol identifiers for the base handshake.
const (
	ProtocolVersion uint16 = 0x0403
	SuiteID         uint16 = 0x0001
)

// Fixed sizes shared with the base handshake wire.
const (
	SessionIDLen  = 16
	X25519PubLen  = 32
	Ed25519PubLen = 32
	Ed25519SigLen = 64
	MLDSA65PubLen = 1952
	MLDSA65SigLen = 3309
)

// Role distinguishes the two handshake parties.
type Role int

const (
	RoleA Role = iota
	RoleB
)

// IsA reports whether the role is the initiator side A.
func (r Role) IsA() bool { return r == RoleA }

// Outputs carries everything the base handshake hands to suite-2
// establishment. Field lengths are validated by suite-2; slices keep the
// boundary honest about what arrives from outside.
type Outputs struct {
	SessionID     []byte `json:"session_id"`
	DHInit        []byte `json:"dh_init"`
	PQInitSS      []byte `json:"pq_init_ss"`
	DHSelfPub     []byte `json:"dh_self_pub"`
	DHSelfPriv    []byte `json:"dh_self_priv"`
	DHPeerPub     []byte `json:"dh_peer_pub"`
	Authenticated bool   `json:"authenticated"`
	Role          Role   `json:"role"`
}

// Handshaker produces base-handshake outputs. Concrete runners live outside
// the engine; the interface exists so establishment can be driven by any of
// them.
type Handshaker interface {
	Run() (Outputs, error)
}

// Bundle carries the key-transparency materials attached to a peer's
// handshake bundle.
type Bundle struct {
	KtLogID          [32]byte `json:"kt_log_id"`
	KtSTH            []byte   `json:"kt_sth"`
	KtInclusionProof []byte   `json:"kt_inclusion_proof"`
	KtConsistency    []byte   `json:"kt_consistency_proof"`
	SigPub           []byte   `json:"sig_pub,omitempty"`
	Transcript       []byte   `json:"transcript,omitempty"`
	TranscriptSig    []byte   `json:"transcript_sig,omitempty"`
}

// TranscriptVerifier checks an ML-DSA-65 signature over a handshake
// transcript. It is declared here, with its only consumer, rather than in
// the engine-wide capability set.
type TranscriptVerifier interface {
	Verify(pub, msg, sig []byte) (bool, error)
}

// Authenticate gates authenticated establishment on KT verification and, when
// the bundle carries one, the ML-DSA-65 transcript signature. With the stub
// verifier wired this always refuses; there is no silent downgrade.
func Authenticate(v kt.Verifier, sig TranscriptVerifier, b Bundle) error {
	if err := v.VerifyBundle(&b.KtLogID, b.KtSTH, b.KtInclusionProof, b.KtConsistency); err != nil {
		return reject.Newf(reject.S2EstablishUnauth, "kt verification: %v", err)
	}
	if len(b.TranscriptSig) > 0 {
		ok, err := sig.Verify(b.SigPub, b.Transcript, b.TranscriptSig)
		if err != nil {
			return reject.Newf(reject.S2EstablishUnauth, "transcript signature: %v", err)
		}
		if !ok {
			return reject.New(reject.S2EstablishUnauth)
		}
	}
	return nil
}
