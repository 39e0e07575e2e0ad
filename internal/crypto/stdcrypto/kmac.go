package stdcrypto

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// cSHAKE-256 rate in bytes, the bytepad width KMAC-256 uses (SP 800-185).
const kmac256Rate = 136

// kmac256 computes KMAC256(key, data, outLen*8 bits, S=label) per NIST
// SP 800-185 §4: cSHAKE256(bytepad(encode_string(K), 136) || X ||
// right_encode(L), L, "KMAC", S).
func kmac256(key []byte, label string, data []byte, outLen int) []byte {
	c := sha3.NewCShake256([]byte("KMAC"), []byte(label))
	c.Write(bytepad(encodeString(key), kmac256Rate))
	c.Write(data)
	c.Write(rightEncode(uint64(outLen) * 8))
	out := make([]byte, outLen)
	c.Read(out)
	return out
}

// leftEncode encodes v as a length-prefixed big-endian byte string.
func leftEncode(v uint64) []byte {
	var buf [9]byte
	binary.BigEndian.PutUint64(buf[1:], v)
	i := 1
	for i < 8 && buf[i] == 0 {
		i++
	}
	n := 9 - i
	buf[i-1] = byte(n)
	return buf[i-1:]
}

// rightEncode encodes v big-endian followed by the byte count.
func rightEncode(v uint64) []byte {
	var buf [9]byte
	binary.BigEndian.PutUint64(buf[:8], v)
	i := 0
	for i < 7 && buf[i] == 0 {
		i++
	}
	n := 8 - i
	buf[8] = byte(n)
	return buf[i:]
}

// encodeString prefixes s with its bit length.
func encodeString(s []byte) []byte {
	return append(leftEncode(uint64(len(s))*8), s...)
}

// bytepad pads x with zeros to a multiple of w, prefixed with w's encoding.
func bytepad(x []byte, w int) []byte {
	out := append(leftEncode(uint64(w)), x...)
	for len(out)%w != 0 {
		out = append(out, 0)
	}
	return out
}
