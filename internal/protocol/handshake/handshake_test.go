package handshake_test

import (
	"testing"

	"qshield/internal/crypto/stdcrypto"
	"qshield/internal/kt"
	"qshield/internal/protocol/handshake"
	"qshield/internal/reject"
)

// okVerifier accepts every bundle; it stands in for a wired KT verifier.
type okVerifier struct{}

func (okVerifier) VerifyBundle(_ *[32]byte, _, _, _ []byte) error { return nil }

func TestAuthenticateRefusesWithStubVerifier(t *testing.T) {
	err := handshake.Authenticate(kt.Stub{}, stdcrypto.Suite{}, handshake.Bundle{})
	if err == nil {
		t.Fatal("stub verifier must refuse authentication")
	}
	code, ok := reject.CodeOf(err)
	if !ok || code != reject.S2EstablishUnauth {
		t.Fatalf("want %s, got %v", reject.S2EstablishUnauth, err)
	}
}

func TestAuthenticatePassesWithRealVerifier(t *testing.T) {
	if err := handshake.Authenticate(okVerifier{}, stdcrypto.Suite{}, handshake.Bundle{}); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
}

func TestAuthenticateChecksTranscriptSignature(t *testing.T) {
	std := stdcrypto.Suite{}
	pub, priv, err := std.SigKeypair()
	if err != nil {
		t.Fatalf("SigKeypair: %v", err)
	}
	transcript := []byte("qsp handshake transcript")
	sig, err := std.Sign(priv, transcript)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	b := handshake.Bundle{
		SigPub:        pub,
		Transcript:    transcript,
		TranscriptSig: sig,
	}
	if err := handshake.Authenticate(okVerifier{}, std, b); err != nil {
		t.Fatalf("valid signature refused: %v", err)
	}

	b.Transcript = []byte("a different transcript")
	err = handshake.Authenticate(okVerifier{}, std, b)
	code, ok := reject.CodeOf(err)
	if !ok || code != reject.S2EstablishUnauth {
		t.Fatalf("want %s, got %v", reject.S2EstablishUnauth, err)
	}
}
