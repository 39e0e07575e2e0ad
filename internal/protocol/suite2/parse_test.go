package suite2_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"qshield/internal/protocol/suite2"
	"qshield/internal/reject"
)

// buildWire assembles an outer frame by hand so malformed variants can be
// crafted byte-by-byte.
func buildWire(header, body []byte) []byte {
	out := make([]byte, 0, 10+len(header)+len(body))
	out = binary.BigEndian.AppendUint16(out, suite2.ProtocolVersion)
	out = binary.BigEndian.AppendUint16(out, suite2.SuiteID)
	out = append(out, suite2.MsgTypeRatchet, 0x00)
	out = binary.BigEndian.AppendUint16(out, uint16(len(header)))
	out = binary.BigEndian.AppendUint16(out, uint16(len(body)))
	out = append(out, header...)
	return append(out, body...)
}

func plainHeader(flags uint16) []byte {
	h := make([]byte, 0, 32+2+suite2.HdrCtLen)
	h = append(h, bytes.Repeat([]byte{0x44}, 32)...)
	h = binary.BigEndian.AppendUint16(h, flags)
	return append(h, bytes.Repeat([]byte{0x55}, suite2.HdrCtLen)...)
}

func TestDecodeWireAccepts(t *testing.T) {
	body := bytes.Repeat([]byte{0x66}, 32)
	wire := buildWire(plainHeader(0), body)
	msg, err := suite2.DecodeWire(wire)
	if err != nil {
		t.Fatalf("DecodeWire: %v", err)
	}
	if msg.Flags != 0 || msg.HasAdv || msg.HasCtxt {
		t.Fatalf("unexpected flags decoded: %+v", msg)
	}
	if !bytes.Equal(msg.BodyCt, body) {
		t.Fatal("body bytes changed in decode")
	}
	if !bytes.Equal(suite2.EncodeWire(&msg), wire) {
		t.Fatal("encode/decode round trip changed wire bytes")
	}
}

func TestDecodeWireWithPQPrefix(t *testing.T) {
	h := make([]byte, 0, 32+2+4+suite2.PQAdvPubLen+4+suite2.PQCtLen+suite2.HdrCtLen)
	h = append(h, bytes.Repeat([]byte{0x44}, 32)...)
	flags := suite2.FlagBoundary | suite2.FlagPQAdv | suite2.FlagPQCtxt
	h = binary.BigEndian.AppendUint16(h, flags)
	h = append(h, suite2.AdvPrefix(7, bytes.Repeat([]byte{0xA7}, suite2.PQAdvPubLen))...)
	h = append(h, suite2.CtxtPrefix(3, bytes.Repeat([]byte{0xC3}, suite2.PQCtLen))...)
	h = append(h, bytes.Repeat([]byte{0x55}, suite2.HdrCtLen)...)
	wire := buildWire(h, bytes.Repeat([]byte{0x66}, 16))

	msg, err := suite2.DecodeWire(wire)
	if err != nil {
		t.Fatalf("DecodeWire: %v", err)
	}
	if !msg.HasAdv || msg.PQAdvID != 7 || len(msg.PQAdvPub) != suite2.PQAdvPubLen {
		t.Fatalf("advertisement not decoded: %+v", msg)
	}
	if !msg.HasCtxt || msg.PQTargetID != 3 || len(msg.PQCt) != suite2.PQCtLen {
		t.Fatalf("ciphertext not decoded: %+v", msg)
	}
	if len(msg.PQPrefix) != 4+suite2.PQAdvPubLen+4+suite2.PQCtLen {
		t.Fatalf("pq prefix length %d", len(msg.PQPrefix))
	}
	if !bytes.Equal(suite2.EncodeWire(&msg), wire) {
		t.Fatal("encode/decode round trip changed wire bytes")
	}
}

func TestDecodeWireRejects(t *testing.T) {
	body := bytes.Repeat([]byte{0x66}, 16)
	good := buildWire(plainHeader(0), body)

	cases := []struct {
		name string
		wire []byte
		code string
	}{
		{"short buffer", good[:8], reject.S2ParsePrefix},
		{"wrong protocol version", mutated(good, 0, 0x04), reject.S2ParsePrefix},
		{"wrong suite id", mutated(good, 3, 0x01), reject.S2ParsePrefix},
		{"wrong msg type", mutated(good, 4, 0x01), reject.S2ParsePrefix},
		{"trailing bytes", append(append([]byte(nil), good...), 0x00), reject.S2ParsePrefix},
		{"truncated payload", good[:len(good)-1], reject.S2ParsePrefix},
		{"unknown flag bit", buildWire(plainHeader(0x0008), body), reject.S2ParseFlags},
		{"adv without boundary", buildWire(plainHeader(suite2.FlagPQAdv), body), reject.S2ParseFlags},
		{"ctxt without boundary", buildWire(plainHeader(suite2.FlagPQCtxt), body), reject.S2ParseFlags},
		{"truncated pq prefix", buildWire(plainHeader(suite2.FlagBoundary|suite2.FlagPQAdv), body), reject.S2PQPrefixParse},
		{"short header", buildWire(plainHeader(0)[:57], body), reject.S2ParseHdrLen},
		{"oversized header", buildWire(append(plainHeader(0), 0x00), body), reject.S2ParseHdrLen},
		{"short body", buildWire(plainHeader(0), body[:15]), reject.S2ParseBodyLen},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := suite2.DecodeWire(tc.wire)
			wantCode(t, err, tc.code)
		})
	}
}

// mutated copies wire and xors one byte.
func mutated(wire []byte, idx int, x byte) []byte {
	out := append([]byte(nil), wire...)
	out[idx] ^= x
	return out
}
