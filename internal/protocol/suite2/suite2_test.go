package suite2_test

import (
	"bytes"
	"testing"

	"qshield/internal/crypto"
	"qshield/internal/crypto/stdcrypto"
	"qshield/internal/protocol/handshake"
	"qshield/internal/protocol/suite2"
	"qshield/internal/reject"
)

// countingAEAD wraps a real AEAD and counts Open calls so bounded-probing
// properties can be asserted.
type countingAEAD struct {
	inner crypto.AEAD
	opens int
}

func (c *countingAEAD) Seal(key *[32]byte, nonce *[12]byte, ad, pt []byte) []byte {
	return c.inner.Seal(key, nonce, ad, pt)
}

func (c *countingAEAD) Open(key *[32]byte, nonce *[12]byte, ad, ct []byte) ([]byte, error) {
	c.opens++
	return c.inner.Open(key, nonce, ad, ct)
}

// newSessionPair establishes matching A and B sessions over real primitives
// and returns the shared suite with a counting AEAD.
func newSessionPair(t *testing.T) (a, b *suite2.SessionState, s *suite2.Suite, aead *countingAEAD) {
	t.Helper()
	std := stdcrypto.Suite{}
	aead = &countingAEAD{inner: std}
	s = suite2.New(std, std, aead, std, std)

	aPriv, aPub, err := std.Keypair()
	if err != nil {
		t.Fatalf("Keypair: %v", err)
	}
	bPriv, bPub, err := std.Keypair()
	if err != nil {
		t.Fatalf("Keypair: %v", err)
	}

	sid := bytes.Repeat([]byte{0x11}, 16)
	dhInit := bytes.Repeat([]byte{0x22}, 32)
	pqInit := bytes.Repeat([]byte{0x33}, 32)

	a, err = suite2.Establish(std, handshake.Outputs{
		SessionID:     sid,
		DHInit:        dhInit,
		PQInitSS:      pqInit,
		DHSelfPub:     aPub.Slice(),
		DHSelfPriv:    aPriv.Slice(),
		DHPeerPub:     bPub.Slice(),
		Authenticated: true,
		Role:          handshake.RoleA,
	})
	if err != nil {
		t.Fatalf("Establish A: %v", err)
	}
	b, err = suite2.Establish(std, handshake.Outputs{
		SessionID:     sid,
		DHInit:        dhInit,
		PQInitSS:      pqInit,
		DHSelfPub:     bPub.Slice(),
		DHSelfPriv:    bPriv.Slice(),
		DHPeerPub:     aPub.Slice(),
		Authenticated: true,
		Role:          handshake.RoleB,
	})
	if err != nil {
		t.Fatalf("Establish B: %v", err)
	}
	return a, b, s, aead
}

// wantCode fails the test unless err carries the given reason code.
func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("want reject %s, got nil", code)
	}
	got, ok := reject.CodeOf(err)
	if !ok {
		t.Fatalf("want reject %s, got untyped error %v", code, err)
	}
	if got != code {
		t.Fatalf("want reject %s, got %s", code, got)
	}
}
