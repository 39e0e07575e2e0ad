package suite2

import (
	"encoding/binary"

	"qshield/internal/crypto"
	"qshield/internal/reject"
)

// ReseedEvent is a single PQ ciphertext event extracted from a boundary
// message: the peer's fresh advertisement id, the id of our advertisement it
// targets, and the ML-KEM-768 ciphertext.
type ReseedEvent struct {
	PeerAdvID uint32
	TargetID  uint32
	Ct        []byte
}

// CheckEvent runs the SCKA pre-checks against the receive-side bookkeeping.
// The order is fixed: ciphertext length, advertisement monotonicity, then
// target tombstone/known/consumed lifecycle.
func CheckEvent(ev ReseedEvent, rs *RecvState) error {
	if len(ev.Ct) != PQCtLen {
		return reject.New(reject.SckaCtxtBadCtLen)
	}
	if ev.PeerAdvID <= rs.PeerMaxAdvIDSeen {
		return reject.New(reject.SckaAdvNonMonotonic)
	}
	if setContains(rs.TombstonedTargets, ev.TargetID) {
		return reject.New(reject.SckaTargetTombstoned)
	}
	if !setContains(rs.KnownTargets, ev.TargetID) {
		return reject.New(reject.SckaTargetUnknown)
	}
	if setContains(rs.ConsumedTargets, ev.TargetID) {
		return reject.New(reject.SckaTargetConsumed)
	}
	return nil
}

// DeriveReseed computes both directional PQ chain seeds for a ciphertext
// event. epochSS is the KEM shared secret (decapsulated by the receiver,
// produced by encapsulation on the sender).
func DeriveReseed(hash crypto.Hash, kmac crypto.Kmac, rk *[32]byte, targetID uint32, ct, epochSS []byte) (seedA2B, seedB2A [32]byte) {
	full := hash.SHA512(ct)
	ctx := make([]byte, 0, len(labelSckaCtxt)+4+32+len(epochSS))
	ctx = append(ctx, labelSckaCtxt...)
	ctx = binary.BigEndian.AppendUint32(ctx, targetID)
	ctx = append(ctx, full[:32]...)
	ctx = append(ctx, epochSS...)

	seedA2B = kmac32(kmac, rk[:], labelSeedA2B, ctx)
	seedB2A = kmac32(kmac, rk[:], labelSeedB2A, ctx)
	return seedA2B, seedB2A
}

// sendRecvSeeds orients the directional seeds for a party's role.
func sendRecvSeeds(roleIsA bool, seedA2B, seedB2A [32]byte) (send, recv [32]byte) {
	if roleIsA {
		return seedA2B, seedB2A
	}
	return seedB2A, seedA2B
}

// commitReseed makes a checked reseed's bookkeeping durable on the receive
// side: the target becomes consumed and tombstoned and the advertisement
// high-water mark advances. Chain reseeding itself is handled by the ratchet,
// which has already advanced the seeded chains to the commit position.
func commitReseed(rs *RecvState, ev ReseedEvent) {
	rs.ConsumedTargets = setInsert(rs.ConsumedTargets, ev.TargetID)
	rs.TombstonedTargets = setInsert(rs.TombstonedTargets, ev.TargetID)
	rs.PeerMaxAdvIDSeen = ev.PeerAdvID
}
