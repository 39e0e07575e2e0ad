package suite2_test

import (
	"bytes"
	"testing"

	"qshield/internal/crypto/stdcrypto"
	"qshield/internal/protocol/handshake"
	"qshield/internal/protocol/suite2"
	"qshield/internal/reject"
)

func baseOutputs(role handshake.Role) handshake.Outputs {
	return handshake.Outputs{
		SessionID:     bytes.Repeat([]byte{0x10}, 16),
		DHInit:        bytes.Repeat([]byte{0x22}, 32),
		PQInitSS:      bytes.Repeat([]byte{0x44}, 32),
		DHSelfPub:     bytes.Repeat([]byte{0xA1}, 32),
		DHSelfPriv:    bytes.Repeat([]byte{0xA2}, 32),
		DHPeerPub:     bytes.Repeat([]byte{0xB2}, 32),
		Authenticated: true,
		Role:          role,
	}
}

func TestHeaderKeysDependOnRootInputs(t *testing.T) {
	std := stdcrypto.Suite{}

	derive := func(mutate func(*handshake.Outputs)) [32]byte {
		out := baseOutputs(handshake.RoleA)
		mutate(&out)
		st, err := suite2.Establish(std, out)
		if err != nil {
			t.Fatalf("Establish: %v", err)
		}
		return st.Send.HKs
	}

	base := derive(func(*handshake.Outputs) {})
	dhMut := derive(func(o *handshake.Outputs) { o.DHInit = bytes.Repeat([]byte{0x23}, 32) })
	pqMut := derive(func(o *handshake.Outputs) { o.PQInitSS = bytes.Repeat([]byte{0x45}, 32) })

	if base == dhMut {
		t.Fatal("hk_s must depend on dh_init")
	}
	if base == pqMut {
		t.Fatal("hk_s must depend on pq_init_ss")
	}
}

func TestEstablishRoleSymmetry(t *testing.T) {
	std := stdcrypto.Suite{}

	a, err := suite2.Establish(std, baseOutputs(handshake.RoleA))
	if err != nil {
		t.Fatalf("Establish A: %v", err)
	}
	outB := baseOutputs(handshake.RoleB)
	outB.DHSelfPub, outB.DHPeerPub = outB.DHPeerPub, outB.DHSelfPub
	b, err := suite2.Establish(std, outB)
	if err != nil {
		t.Fatalf("Establish B: %v", err)
	}

	if a.Send.HKs != b.Recv.HKr {
		t.Fatal("A send header key must match B recv header key")
	}
	if a.Recv.HKr != b.Send.HKs {
		t.Fatal("B send header key must match A recv header key")
	}
	if a.Send.CKec != b.Recv.CKec {
		t.Fatal("A send chain must match B recv chain")
	}
	if a.Send.CKpq != b.Recv.CKpqRecv {
		t.Fatal("A pq send chain must match B pq recv chain")
	}
	if a.Recv.RK != b.Recv.RK {
		t.Fatal("root keys must match")
	}
	// Role B's send chains stay unset until its first boundary send.
	var zero [32]byte
	if b.Send.CKec != zero {
		t.Fatal("role B send chain must start unset")
	}
}

func TestEstablishRejectsBadInputLengths(t *testing.T) {
	std := stdcrypto.Suite{}

	cases := []struct {
		name   string
		mutate func(*handshake.Outputs)
	}{
		{"short session id", func(o *handshake.Outputs) { o.SessionID = o.SessionID[:15] }},
		{"short dh_init", func(o *handshake.Outputs) { o.DHInit = o.DHInit[:31] }},
		{"short pq_init_ss", func(o *handshake.Outputs) { o.PQInitSS = nil }},
		{"short self pub", func(o *handshake.Outputs) { o.DHSelfPub = o.DHSelfPub[:16] }},
		{"short self priv", func(o *handshake.Outputs) { o.DHSelfPriv = o.DHSelfPriv[:16] }},
		{"long peer pub", func(o *handshake.Outputs) { o.DHPeerPub = append(o.DHPeerPub, 0x00) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := baseOutputs(handshake.RoleA)
			tc.mutate(&out)
			_, err := suite2.Establish(std, out)
			wantCode(t, err, reject.S2EstablishBadInputLen)
		})
	}
}

func TestEstablishRejectsUnauthenticated(t *testing.T) {
	std := stdcrypto.Suite{}
	out := baseOutputs(handshake.RoleA)
	out.Authenticated = false
	_, err := suite2.Establish(std, out)
	wantCode(t, err, reject.S2EstablishUnauth)
}
