package suite2

import (
	"qshield/internal/crypto"
	"qshield/internal/protocol/handshake"
	"qshield/internal/reject"
)

// Establish derives the initial suite-2 session state from base-handshake
// outputs. Role A owns the A->B chains from the start; role B's send chains
// stay zero until its first (boundary) send performs the lazy DH ratchet.
//
// Establish validates input lengths and the authentication bit before
// touching any derivation; it cannot partially construct a session.
func Establish(kmac crypto.Kmac, out handshake.Outputs) (*SessionState, error) {
	if len(out.SessionID) != SessionIDLen ||
		len(out.DHInit) != 32 ||
		len(out.PQInitSS) != 32 ||
		len(out.DHSelfPub) != 32 ||
		len(out.DHSelfPriv) != 32 ||
		len(out.DHPeerPub) != 32 {
		return nil, reject.New(reject.S2EstablishBadInputLen)
	}
	if !out.Authenticated {
		return nil, reject.New(reject.S2EstablishUnauth)
	}

	var sid [16]byte
	copy(sid[:], out.SessionID)
	var dhSelfPub, dhPeerPub [32]byte
	copy(dhSelfPub[:], out.DHSelfPub)
	copy(dhPeerPub[:], out.DHPeerPub)
	var dhSelfPriv crypto.X25519Private
	copy(dhSelfPriv[:], out.DHSelfPriv)

	rk0 := kmac32(kmac, out.DHInit, labelRK0, append(append([]byte(nil), out.SessionID...), 0x01))
	rk := kmac32(kmac, rk0[:], labelRKPQ, append(append([]byte(nil), out.PQInitSS...), 0x01))

	hkA2B := kmac32(kmac, rk[:], labelHKA2B, []byte{0x01})
	hkB2A := kmac32(kmac, rk[:], labelHKB2A, []byte{0x01})
	ck0A2B := kmac32(kmac, rk[:], labelCK0A2B, []byte{0x01})
	pq0A2B := kmac32(kmac, rk[:], labelPQ0A2B, []byte{0x01})

	roleIsA := out.Role.IsA()
	st := &SessionState{
		Send: SendState{
			SessionID:       sid,
			ProtocolVersion: ProtocolVersion,
			SuiteID:         SuiteID,
			DHPub:           dhSelfPub,
			DHPriv:          dhSelfPriv,
			Ns:              0,
			PN:              0,
		},
		Recv: RecvState{
			SessionID:       sid,
			ProtocolVersion: ProtocolVersion,
			SuiteID:         SuiteID,
			DHPub:           dhPeerPub,
			RK:              rk,
			Nr:              0,
			RoleIsA:         roleIsA,
		},
		NextAdvID: 1,
	}

	if roleIsA {
		st.Send.HKs = hkA2B
		st.Send.CKec = ck0A2B
		st.Send.CKpq = pq0A2B
		st.Recv.HKr = hkB2A
		st.Recv.CKpqSend = pq0A2B
	} else {
		st.Send.HKs = hkB2A
		st.Recv.HKr = hkA2B
		st.Recv.CKec = ck0A2B
		st.Recv.CKpqRecv = pq0A2B
	}
	return st, nil
}

// kmac32 is the 32-byte KMAC-256 shorthand the key schedule uses throughout.
func kmac32(kmac crypto.Kmac, key []byte, label string, data []byte) [32]byte {
	var out [32]byte
	copy(out[:], kmac.KMAC256(key, label, data, 32))
	return out
}
