package suite2

import (
	"encoding/binary"

	"qshield/internal/reject"
)

// Message is a decoded suite-2 ratchet message. PQAdvID/PQAdvPub are set iff
// HasAdv; PQTargetID/PQCt iff HasCtxt. PQPrefix holds the raw PQ prefix
// bytes in wire order for transcript binding.
type Message struct {
	DHPub      [32]byte
	Flags      uint16
	PQPrefix   []byte
	HasAdv     bool
	PQAdvID    uint32
	PQAdvPub   []byte
	HasCtxt    bool
	PQTargetID uint32
	PQCt       []byte
	HdrCt      []byte
	BodyCt     []byte
}

// parseHeader strictly decodes the inner header, returning the parsed fields
// and the number of header bytes consumed.
func parseHeader(header []byte) (Message, int, error) {
	var m Message
	if len(header) < DHPubLen+2 {
		return Message{}, 0, reject.New(reject.S2ParsePrefix)
	}
	copy(m.DHPub[:], header[:DHPubLen])
	off := DHPubLen
	m.Flags = binary.BigEndian.Uint16(header[off : off+2])
	off += 2

	if m.Flags&^knownFlags != 0 {
		return Message{}, 0, reject.New(reject.S2ParseFlags)
	}
	if m.Flags&FlagPQAdv != 0 && m.Flags&FlagBoundary == 0 {
		return Message{}, 0, reject.New(reject.S2ParseFlags)
	}
	if m.Flags&FlagPQCtxt != 0 && m.Flags&FlagBoundary == 0 {
		return Message{}, 0, reject.New(reject.S2ParseFlags)
	}

	if m.Flags&FlagPQAdv != 0 {
		if len(header) < off+4+PQAdvPubLen {
			return Message{}, 0, reject.New(reject.S2PQPrefixParse)
		}
		m.PQAdvID = binary.BigEndian.Uint32(header[off : off+4])
		m.PQAdvPub = append([]byte(nil), header[off+4:off+4+PQAdvPubLen]...)
		m.PQPrefix = append(m.PQPrefix, header[off:off+4+PQAdvPubLen]...)
		off += 4 + PQAdvPubLen
		m.HasAdv = true
	}

	if m.Flags&FlagPQCtxt != 0 {
		if len(header) < off+4+PQCtLen {
			return Message{}, 0, reject.New(reject.S2PQPrefixParse)
		}
		m.PQTargetID = binary.BigEndian.Uint32(header[off : off+4])
		m.PQCt = append([]byte(nil), header[off+4:off+4+PQCtLen]...)
		m.PQPrefix = append(m.PQPrefix, header[off:off+4+PQCtLen]...)
		off += 4 + PQCtLen
		m.HasCtxt = true
	}

	if len(header) < off+HdrCtLen {
		return Message{}, 0, reject.New(reject.S2ParseHdrLen)
	}
	m.HdrCt = append([]byte(nil), header[off:off+HdrCtLen]...)
	off += HdrCtLen
	return m, off, nil
}

// DecodeMessage decodes an inner header immediately followed by the body
// ciphertext (no outer frame).
func DecodeMessage(buf []byte) (Message, error) {
	m, off, err := parseHeader(buf)
	if err != nil {
		return Message{}, err
	}
	body := buf[off:]
	if len(body) < BodyCtMin {
		return Message{}, reject.New(reject.S2ParseBodyLen)
	}
	m.BodyCt = append([]byte(nil), body...)
	return m, nil
}

// DecodeWire strictly decodes a full suite-2 ratchet wire message: outer
// frame, inner header, and body. Exactly header_len and body_len bytes must
// be consumed; a trailing-byte condition rejects as REJECT_S2_PARSE_PREFIX,
// a quirk preserved from the reference parser.
func DecodeWire(buf []byte) (Message, error) {
	if len(buf) < outerHeaderLen {
		return Message{}, reject.New(reject.S2ParsePrefix)
	}
	protocolVersion := binary.BigEndian.Uint16(buf[0:2])
	suiteID := binary.BigEndian.Uint16(buf[2:4])
	msgType := buf[4]
	headerLen := int(binary.BigEndian.Uint16(buf[6:8]))
	bodyLen := int(binary.BigEndian.Uint16(buf[8:10]))

	if protocolVersion != ProtocolVersion || suiteID != SuiteID || msgType != MsgTypeRatchet {
		return Message{}, reject.New(reject.S2ParsePrefix)
	}
	if len(buf) < outerHeaderLen+headerLen+bodyLen {
		return Message{}, reject.New(reject.S2ParsePrefix)
	}
	if outerHeaderLen+headerLen+bodyLen != len(buf) {
		return Message{}, reject.New(reject.S2ParsePrefix)
	}

	header := buf[outerHeaderLen : outerHeaderLen+headerLen]
	body := buf[outerHeaderLen+headerLen:]

	m, used, err := parseHeader(header)
	if err != nil {
		return Message{}, err
	}
	if used != len(header) {
		return Message{}, reject.New(reject.S2ParseHdrLen)
	}
	if len(body) < BodyCtMin {
		return Message{}, reject.New(reject.S2ParseBodyLen)
	}
	m.BodyCt = append([]byte(nil), body...)
	return m, nil
}

// EncodeWire composes the outer frame around an inner header and body.
func EncodeWire(m *Message) []byte {
	header := make([]byte, 0, DHPubLen+2+len(m.PQPrefix)+HdrCtLen)
	header = append(header, m.DHPub[:]...)
	header = binary.BigEndian.AppendUint16(header, m.Flags)
	header = append(header, m.PQPrefix...)
	header = append(header, m.HdrCt...)

	out := make([]byte, 0, outerHeaderLen+len(header)+len(m.BodyCt))
	out = binary.BigEndian.AppendUint16(out, ProtocolVersion)
	out = binary.BigEndian.AppendUint16(out, SuiteID)
	out = append(out, MsgTypeRatchet, 0x00)
	out = binary.BigEndian.AppendUint16(out, uint16(len(header)))
	out = binary.BigEndian.AppendUint16(out, uint16(len(m.BodyCt)))
	out = append(out, header...)
	out = append(out, m.BodyCt...)
	return out
}

// AdvPrefix assembles the PQ_ADV prefix segment (id || public key).
func AdvPrefix(id uint32, pub []byte) []byte {
	out := make([]byte, 0, 4+len(pub))
	out = binary.BigEndian.AppendUint32(out, id)
	return append(out, pub...)
}

// CtxtPrefix assembles the PQ_CTXT prefix segment (target id || ciphertext).
func CtxtPrefix(targetID uint32, ct []byte) []byte {
	out := make([]byte, 0, 4+len(ct))
	out = binary.BigEndian.AppendUint32(out, targetID)
	return append(out, ct...)
}
