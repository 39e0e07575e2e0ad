package suite2

import (
	"encoding/binary"

	"qshield/internal/crypto"
)

const pqBindLabel = "QSP5.0/PQ-BIND"

// PQBind derives the 32-byte transcript digest that binds the PQ prefix (and
// flags) into both the header and body associated data. It is the first 32
// bytes of SHA-512 over label || flags_be || pq_prefix.
func PQBind(h crypto.Hash, flags uint16, pqPrefix []byte) [32]byte {
	m := make([]byte, 0, len(pqBindLabel)+2+len(pqPrefix))
	m = append(m, pqBindLabel...)
	m = binary.BigEndian.AppendUint16(m, flags)
	m = append(m, pqPrefix...)
	full := h.SHA512(m)
	var out [32]byte
	copy(out[:], full[:32])
	return out
}

// HeaderAD assembles the associated data for header encryption.
func HeaderAD(sessionID []byte, protocolVersion, suiteID uint16, dhPub []byte, flags uint16, pqBind []byte) []byte {
	ad := make([]byte, 0, len(sessionID)+2+2+len(dhPub)+2+len(pqBind))
	ad = append(ad, sessionID...)
	ad = binary.BigEndian.AppendUint16(ad, protocolVersion)
	ad = binary.BigEndian.AppendUint16(ad, suiteID)
	ad = append(ad, dhPub...)
	ad = binary.BigEndian.AppendUint16(ad, flags)
	ad = append(ad, pqBind...)
	return ad
}

// BodyAD assembles the associated data for body encryption.
func BodyAD(sessionID []byte, protocolVersion, suiteID uint16, pqBind []byte) []byte {
	ad := make([]byte, 0, len(sessionID)+2+2+len(pqBind))
	ad = append(ad, sessionID...)
	ad = binary.BigEndian.AppendUint16(ad, protocolVersion)
	ad = binary.BigEndian.AppendUint16(ad, suiteID)
	ad = append(ad, pqBind...)
	return ad
}
