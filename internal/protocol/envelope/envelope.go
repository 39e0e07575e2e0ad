// Package envelope implements the QSE privacy envelope: a fixed-layout
// wrapper that carries protocol payloads with a route token, a coarse
// timestamp bucket, and padding to fixed profile sizes so that ciphertext
// length does not leak message length.
package envelope

import (
	"fmt"

	"qshield/internal/codec"
	"qshield/internal/reject"
)

// VersionV1 is the only recognized envelope version.
const VersionV1 uint16 = 0x0100

// qspOuterHeaderLen is the fixed prefix of a QSP wire payload:
// protocol_version(2) suite_id(2) msg_type(1) env_flags(1) header_len(2)
// body_len(2). Bucket-mode decoding uses it to re-derive the payload length.
const qspOuterHeaderLen = 10

// Profile is an envelope size class. Padded envelopes whose content fits the
// profile encode to exactly the profile minimum, so all of them are
// indistinguishable by size.
type Profile int

const (
	Standard Profile = iota
	Enhanced
	Private
)

// MinSize returns the minimum encoded envelope size for the profile.
func (p Profile) MinSize() int {
	switch p {
	case Enhanced:
		return 2048
	case Private:
		return 4096
	default:
		return 1024
	}
}

func (p Profile) String() string {
	switch p {
	case Enhanced:
		return "enhanced"
	case Private:
		return "private"
	default:
		return "standard"
	}
}

// ParseProfile maps a profile name to its Profile.
func ParseProfile(name string) (Profile, error) {
	switch name {
	case "standard":
		return Standard, nil
	case "enhanced":
		return Enhanced, nil
	case "private":
		return Private, nil
	}
	return Standard, fmt.Errorf("envelope: unknown profile %q", name)
}

// Envelope is the QSE privacy envelope.
//
// Bucketed marks an envelope padded to a profile: its cleartext pad_len and
// payload_len fields are masked to zero on encode so the exact payload length
// does not leak, and decode re-derives the split from the payload's own QSP
// framing.
type Envelope struct {
	Version         uint16 `json:"env_version"`
	Flags           uint16 `json:"flags"`
	RouteToken      []byte `json:"route_token"`
	TimestampBucket uint32 `json:"timestamp_bucket"`
	Payload         []byte `json:"payload"`
	Padding         []byte `json:"padding"`
	Bucketed        bool   `json:"bucketed"`
}

// Encode serializes the envelope in the canonical field order.
func (e Envelope) Encode() []byte {
	w := codec.NewWriter()
	w.WriteU16(e.Version)
	w.WriteU16(e.Flags)
	w.WriteVarBytesU16(e.RouteToken)
	w.WriteU32(e.TimestampBucket)
	if e.Bucketed {
		w.WriteU16(0)
		w.WriteU32(0)
	} else {
		w.WriteU16(uint16(len(e.Padding)))
		w.WriteU32(uint32(len(e.Payload)))
	}
	w.WriteBytes(e.Payload)
	w.WriteBytes(e.Padding)
	return w.Bytes()
}

// Decode strictly parses an envelope. Unknown versions, any nonzero flag bit,
// out-of-range lengths, trailing bytes, and bucket-mode length-field
// contradictions all reject.
func Decode(buf []byte) (Envelope, error) {
	var e Envelope
	r := codec.NewReader(buf)

	var err error
	if e.Version, err = r.ReadU16(); err != nil {
		return Envelope{}, err
	}
	if e.Flags, err = r.ReadU16(); err != nil {
		return Envelope{}, err
	}
	if e.Version != VersionV1 {
		return Envelope{}, codec.Invalid("env_version")
	}
	if e.Flags != 0 {
		return Envelope{}, codec.Invalid("flags")
	}
	if e.RouteToken, err = r.ReadVarBytesU16(); err != nil {
		return Envelope{}, err
	}
	if e.TimestampBucket, err = r.ReadU32(); err != nil {
		return Envelope{}, err
	}
	padLen, err := r.ReadU16()
	if err != nil {
		return Envelope{}, err
	}
	payloadLen, err := r.ReadU32()
	if err != nil {
		return Envelope{}, err
	}

	if payloadLen == 0 && r.Remaining() > 0 {
		// Bucket mode: both length fields must be masked.
		if padLen != 0 {
			return Envelope{}, codec.Invalid("bucket_len_fields")
		}
		return decodeBucketed(e, r)
	}

	if int(payloadLen)+int(padLen) > r.Remaining() {
		return Envelope{}, codec.ErrLengthOutOfRange
	}
	if e.Payload, err = r.ReadBytes(int(payloadLen)); err != nil {
		return Envelope{}, err
	}
	if e.Padding, err = r.ReadBytes(int(padLen)); err != nil {
		return Envelope{}, err
	}
	if err := r.Finish(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

// decodeBucketed splits the remaining bytes into payload and padding using
// the payload's self-delimiting QSP outer frame.
func decodeBucketed(e Envelope, r *codec.Reader) (Envelope, error) {
	rest, err := r.ReadBytes(r.Remaining())
	if err != nil {
		return Envelope{}, err
	}
	if len(rest) < qspOuterHeaderLen {
		return Envelope{}, codec.Invalid("bucket_payload")
	}
	headerLen := int(rest[6])<<8 | int(rest[7])
	bodyLen := int(rest[8])<<8 | int(rest[9])
	payloadLen := qspOuterHeaderLen + headerLen + bodyLen
	if payloadLen > len(rest) {
		return Envelope{}, codec.Invalid("bucket_payload")
	}
	e.Payload = rest[:payloadLen]
	e.Padding = rest[payloadLen:]
	e.Bucketed = true
	return e, nil
}

// PadToProfile masks the cleartext length fields and extends the padding
// until the encoded envelope is exactly the profile minimum. rngBytes must
// supply at least the required padding delta. An envelope that already
// encodes to the profile minimum or more gets no padding and stays at its
// own size.
func (e Envelope) PadToProfile(p Profile, rngBytes []byte) (Envelope, error) {
	e.Bucketed = true
	have := len(e.Encode())
	if have >= p.MinSize() {
		return e, nil
	}
	need := p.MinSize() - have
	if len(rngBytes) < need {
		return Envelope{}, reject.Newf(reject.QsePadRngShort,
			"need %d padding bytes, rng supplied %d", need, len(rngBytes))
	}
	pad := make([]byte, 0, len(e.Padding)+need)
	pad = append(pad, e.Padding...)
	pad = append(pad, rngBytes[:need]...)
	e.Padding = pad
	return e, nil
}
