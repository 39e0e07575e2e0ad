package envelope_test

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"qshield/internal/protocol/envelope"
	"qshield/internal/reject"
)

// makeSuite2Wire fabricates a plausible suite-2 payload of the given body
// length so bucket-mode decoding has real framing to delimit on.
func makeSuite2Wire(bodyLen int) []byte {
	const headerLen = 58 // 32 dh_pub + 2 flags + 24 hdr_ct
	if bodyLen < 16 {
		bodyLen = 16
	}
	out := make([]byte, 0, 10+headerLen+bodyLen)
	out = binary.BigEndian.AppendUint16(out, 0x0500)
	out = binary.BigEndian.AppendUint16(out, 0x0002)
	out = append(out, 0x02, 0x00)
	out = binary.BigEndian.AppendUint16(out, headerLen)
	out = binary.BigEndian.AppendUint16(out, uint16(bodyLen))
	out = append(out, bytes.Repeat([]byte{0x44}, headerLen)...)
	return append(out, bytes.Repeat([]byte{0x55}, bodyLen)...)
}

func makeBucketed(t *testing.T, payload []byte) envelope.Envelope {
	t.Helper()
	env := envelope.Envelope{
		Version:         envelope.VersionV1,
		RouteToken:      []byte("route-token-fixed"),
		TimestampBucket: 42,
		Payload:         payload,
	}
	padded, err := env.PadToProfile(envelope.Standard, bytes.Repeat([]byte{0xAA}, 2048))
	if err != nil {
		t.Fatalf("PadToProfile: %v", err)
	}
	return padded
}

// headerPrefixLen is env_version + flags + varbytes16(route_token) +
// timestamp_bucket + pad_len + payload_len.
func headerPrefixLen(routeTokenLen int) int {
	return 2 + 2 + 2 + routeTokenLen + 4 + 2 + 4
}

func TestBucketModeHidesLengthFields(t *testing.T) {
	encA := makeBucketed(t, makeSuite2Wire(32)).Encode()
	encB := makeBucketed(t, makeSuite2Wire(176)).Encode()

	if len(encA) != envelope.Standard.MinSize() {
		t.Fatalf("padded envelope is %d bytes, want %d", len(encA), envelope.Standard.MinSize())
	}
	if len(encB) != envelope.Standard.MinSize() {
		t.Fatalf("padded envelope is %d bytes, want %d", len(encB), envelope.Standard.MinSize())
	}
	prefix := headerPrefixLen(len("route-token-fixed"))
	if !bytes.Equal(encA[:prefix], encB[:prefix]) {
		t.Fatal("header prefix varies with payload length in bucket mode")
	}
}

func TestBucketModeDecodeRecoversSplit(t *testing.T) {
	payload := makeSuite2Wire(80)
	env := makeBucketed(t, payload)
	decoded, err := envelope.Decode(env.Encode())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(decoded.Payload, payload) {
		t.Fatal("payload not recovered from bucket")
	}
	total := headerPrefixLen(len(decoded.RouteToken)) + len(decoded.Payload) + len(decoded.Padding)
	if total != envelope.Standard.MinSize() {
		t.Fatalf("split accounts for %d bytes, want %d", total, envelope.Standard.MinSize())
	}
}

func TestBucketModeRejectsNonzeroLengthFields(t *testing.T) {
	env := makeBucketed(t, makeSuite2Wire(64))
	encoded := env.Encode()
	padLenOff := 2 + 2 + 2 + len(env.RouteToken) + 4
	encoded[padLenOff] = 0
	encoded[padLenOff+1] = 1
	_, err := envelope.Decode(encoded)
	if err == nil {
		t.Fatal("mutated pad_len accepted")
	}
	if !strings.Contains(err.Error(), "bucket_len_fields") {
		t.Fatalf("want bucket_len_fields token, got %v", err)
	}
}

func TestPlainRoundTrip(t *testing.T) {
	env := envelope.Envelope{
		Version:         envelope.VersionV1,
		RouteToken:      []byte("rt"),
		TimestampBucket: 7,
		Payload:         []byte("opaque payload"),
		Padding:         []byte{0x01, 0x02, 0x03},
	}
	encoded := env.Encode()
	decoded, err := envelope.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(decoded.Encode(), encoded) {
		t.Fatal("encode/decode round trip changed bytes")
	}
}

func TestDecodeRejectsUnknownVersionAndFlags(t *testing.T) {
	env := envelope.Envelope{Version: envelope.VersionV1, Payload: []byte("x")}
	good := env.Encode()

	bad := append([]byte(nil), good...)
	bad[1] = 0x01 // version 0x0101
	if _, err := envelope.Decode(bad); err == nil {
		t.Fatal("unknown env_version accepted")
	}

	bad = append([]byte(nil), good...)
	bad[3] = 0x01 // reserved flag bit
	if _, err := envelope.Decode(bad); err == nil {
		t.Fatal("reserved flag bit accepted")
	}
}

func TestPadToProfileRejectsShortRng(t *testing.T) {
	env := envelope.Envelope{
		Version: envelope.VersionV1,
		Payload: makeSuite2Wire(32),
	}
	_, err := env.PadToProfile(envelope.Private, make([]byte, 16))
	if err == nil {
		t.Fatal("short rng buffer accepted")
	}
	code, ok := reject.CodeOf(err)
	if !ok || code != reject.QsePadRngShort {
		t.Fatalf("want %s, got %v", reject.QsePadRngShort, err)
	}
}

func TestProfileSizes(t *testing.T) {
	if envelope.Standard.MinSize() != 1024 ||
		envelope.Enhanced.MinSize() != 2048 ||
		envelope.Private.MinSize() != 4096 {
		t.Fatal("profile minimum sizes drifted")
	}
	for _, name := range []string{"standard", "enhanced", "private"} {
		p, err := envelope.ParseProfile(name)
		if err != nil {
			t.Fatalf("ParseProfile(%q): %v", name, err)
		}
		if p.String() != name {
			t.Fatalf("profile %q round-trips as %q", name, p.String())
		}
	}
	if _, err := envelope.ParseProfile("covert"); err == nil {
		t.Fatal("unknown profile name accepted")
	}
}
