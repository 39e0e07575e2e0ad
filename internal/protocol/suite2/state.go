package suite2

import (
	"encoding/binary"
	"sort"

	"qshield/internal/crypto"
	"qshield/internal/util/memzero"
)

var zero32 [32]byte

// SkippedKey caches the keys of a message that was skipped over, keyed by
// (DHPub, N). MK opens the body, MKHdr the header.
type SkippedKey struct {
	DHPub [32]byte `json:"dh_pub"`
	N     uint32   `json:"n"`
	MK    [32]byte `json:"mk"`
	MKHdr [32]byte `json:"mk_hdr"`
}

// SendState is the sending half of a suite-2 session. DHPub/DHPriv are the
// session's current ratchet pair; the receive path also uses DHPriv when the
// peer ratchets.
type SendState struct {
	SessionID       [16]byte             `json:"session_id"`
	ProtocolVersion uint16               `json:"protocol_version"`
	SuiteID         uint16               `json:"suite_id"`
	DHPub           [32]byte             `json:"dh_pub"`
	DHPriv          crypto.X25519Private `json:"dh_priv"`
	HKs             [32]byte             `json:"hk_s"`
	CKec            [32]byte             `json:"ck_ec"`
	CKpq            [32]byte             `json:"ck_pq"`
	Ns              uint32               `json:"ns"`
	PN              uint32               `json:"pn"`
}

// RecvState is the receiving half of a suite-2 session, including the root
// key and the SCKA target bookkeeping. The target sets are kept sorted so
// snapshots are deterministic.
type RecvState struct {
	SessionID         [16]byte          `json:"session_id"`
	ProtocolVersion   uint16            `json:"protocol_version"`
	SuiteID           uint16            `json:"suite_id"`
	DHPub             [32]byte          `json:"dh_pub"` // peer's current ratchet key
	HKr               [32]byte          `json:"hk_r"`
	RK                [32]byte          `json:"rk"`
	CKec              [32]byte          `json:"ck_ec"`
	CKpqSend          [32]byte          `json:"ck_pq_send"`
	CKpqRecv          [32]byte          `json:"ck_pq_recv"`
	Nr                uint32            `json:"nr"`
	RoleIsA           bool              `json:"role_is_a"`
	PeerMaxAdvIDSeen  uint32            `json:"peer_max_adv_id_seen"`
	KnownTargets      []uint32          `json:"known_targets"`
	ConsumedTargets   []uint32          `json:"consumed_targets"`
	TombstonedTargets []uint32          `json:"tombstoned_targets"`
	TargetPrivs       map[uint32][]byte `json:"target_privs"`
	MKSkipped         []SkippedKey      `json:"mkskipped"`
}

// SessionState is a complete suite-2 session: both halves plus the
// advertisement books that live beside the wire-visible state.
type SessionState struct {
	Send SendState `json:"send"`
	Recv RecvState `json:"recv"`

	// NextAdvID numbers our own PQ advertisements; it only moves forward.
	NextAdvID uint32 `json:"next_adv_id"`
	// PeerAdvPubs maps the peer's advertised target ids to their ML-KEM-768
	// public keys, consumed when we attach a ciphertext.
	PeerAdvPubs map[uint32][]byte `json:"peer_adv_pubs"`
}

// Clone deep-copies the session so receive paths can work tentatively and
// assign back only on commit.
func (st *SessionState) Clone() *SessionState {
	out := &SessionState{
		Send:      st.Send,
		Recv:      st.Recv,
		NextAdvID: st.NextAdvID,
	}
	out.Recv.KnownTargets = append([]uint32(nil), st.Recv.KnownTargets...)
	out.Recv.ConsumedTargets = append([]uint32(nil), st.Recv.ConsumedTargets...)
	out.Recv.TombstonedTargets = append([]uint32(nil), st.Recv.TombstonedTargets...)
	out.Recv.MKSkipped = append([]SkippedKey(nil), st.Recv.MKSkipped...)
	if st.Recv.TargetPrivs != nil {
		out.Recv.TargetPrivs = make(map[uint32][]byte, len(st.Recv.TargetPrivs))
		for id, priv := range st.Recv.TargetPrivs {
			out.Recv.TargetPrivs[id] = append([]byte(nil), priv...)
		}
	}
	if st.PeerAdvPubs != nil {
		out.PeerAdvPubs = make(map[uint32][]byte, len(st.PeerAdvPubs))
		for id, pub := range st.PeerAdvPubs {
			out.PeerAdvPubs[id] = append([]byte(nil), pub...)
		}
	}
	return out
}

// Wipe zeroes all secret material held by the session.
func (st *SessionState) Wipe() {
	st.Send.DHPriv.Wipe()
	memzero.Zero32(&st.Send.HKs)
	memzero.Zero32(&st.Send.CKec)
	memzero.Zero32(&st.Send.CKpq)
	memzero.Zero32(&st.Recv.HKr)
	memzero.Zero32(&st.Recv.RK)
	memzero.Zero32(&st.Recv.CKec)
	memzero.Zero32(&st.Recv.CKpqSend)
	memzero.Zero32(&st.Recv.CKpqRecv)
	for i := range st.Recv.MKSkipped {
		memzero.Zero32(&st.Recv.MKSkipped[i].MK)
		memzero.Zero32(&st.Recv.MKSkipped[i].MKHdr)
	}
	for _, priv := range st.Recv.TargetPrivs {
		memzero.Zero(priv)
	}
}

// SnapshotBytes serializes the full session deterministically. Tests compare
// snapshots around failing calls to prove no mutation on reject.
func (st *SessionState) SnapshotBytes() []byte {
	var out []byte
	appendU16 := func(v uint16) { out = binary.BigEndian.AppendUint16(out, v) }
	appendU32 := func(v uint32) { out = binary.BigEndian.AppendUint32(out, v) }

	out = append(out, st.Send.SessionID[:]...)
	appendU16(st.Send.ProtocolVersion)
	appendU16(st.Send.SuiteID)
	out = append(out, st.Send.DHPub[:]...)
	out = append(out, st.Send.DHPriv[:]...)
	out = append(out, st.Send.HKs[:]...)
	out = append(out, st.Send.CKec[:]...)
	out = append(out, st.Send.CKpq[:]...)
	appendU32(st.Send.Ns)
	appendU32(st.Send.PN)

	out = append(out, st.Recv.SessionID[:]...)
	appendU16(st.Recv.ProtocolVersion)
	appendU16(st.Recv.SuiteID)
	out = append(out, st.Recv.DHPub[:]...)
	out = append(out, st.Recv.HKr[:]...)
	out = append(out, st.Recv.RK[:]...)
	out = append(out, st.Recv.CKec[:]...)
	out = append(out, st.Recv.CKpqSend[:]...)
	out = append(out, st.Recv.CKpqRecv[:]...)
	appendU32(st.Recv.Nr)
	if st.Recv.RoleIsA {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	appendU32(st.Recv.PeerMaxAdvIDSeen)
	for _, set := range [][]uint32{st.Recv.KnownTargets, st.Recv.ConsumedTargets, st.Recv.TombstonedTargets} {
		appendU32(uint32(len(set)))
		for _, id := range set {
			appendU32(id)
		}
	}
	appendU32(uint32(len(st.Recv.TargetPrivs)))
	for _, id := range sortedKeys(st.Recv.TargetPrivs) {
		appendU32(id)
		appendU32(uint32(len(st.Recv.TargetPrivs[id])))
		out = append(out, st.Recv.TargetPrivs[id]...)
	}
	appendU32(uint32(len(st.Recv.MKSkipped)))
	for _, e := range st.Recv.MKSkipped {
		out = append(out, e.DHPub[:]...)
		appendU32(e.N)
		out = append(out, e.MK[:]...)
		out = append(out, e.MKHdr[:]...)
	}

	appendU32(st.NextAdvID)
	appendU32(uint32(len(st.PeerAdvPubs)))
	for _, id := range sortedKeys(st.PeerAdvPubs) {
		appendU32(id)
		appendU32(uint32(len(st.PeerAdvPubs[id])))
		out = append(out, st.PeerAdvPubs[id]...)
	}
	return out
}

func sortedKeys(m map[uint32][]byte) []uint32 {
	keys := make([]uint32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// setContains reports membership in a sorted id set.
func setContains(set []uint32, id uint32) bool {
	i := sort.Search(len(set), func(i int) bool { return set[i] >= id })
	return i < len(set) && set[i] == id
}

// setInsert adds id to a sorted id set, keeping order and uniqueness.
func setInsert(set []uint32, id uint32) []uint32 {
	i := sort.Search(len(set), func(i int) bool { return set[i] >= id })
	if i < len(set) && set[i] == id {
		return set
	}
	set = append(set, 0)
	copy(set[i+1:], set[i:])
	set[i] = id
	return set
}
