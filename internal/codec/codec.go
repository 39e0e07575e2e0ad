// Package codec implements the canonical QSP/QSE wire encoding.
//
// All unsigned integers are big-endian. varbytes<u16> is a u16 length
// followed by that many bytes; varbytes<u32> uses a u32 length. Decoders for
// complete messages must call Finish and treat trailing bytes as an error.
package codec

import (
	"encoding/binary"
	"errors"
)

var (
	// ErrTruncated is returned when a read runs past the end of the buffer.
	ErrTruncated = errors.New("codec: truncated input")
	// ErrLengthOutOfRange is returned when a length prefix exceeds the
	// remaining bytes.
	ErrLengthOutOfRange = errors.New("codec: length exceeds remaining bytes")
	// ErrTrailingBytes is returned by Finish when input remains unconsumed.
	ErrTrailingBytes = errors.New("codec: trailing bytes not permitted")
)

// InvalidError reports a field that decoded but holds a forbidden value.
type InvalidError struct {
	Detail string
}

func (e *InvalidError) Error() string { return "codec: invalid value: " + e.Detail }

// Invalid builds an InvalidError for the named field or condition.
func Invalid(detail string) error { return &InvalidError{Detail: detail} }

// Reader is a positional view over a byte buffer. It never reads past the
// remaining bytes and supports the strict Finish check.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf. The Reader does not copy or modify buf.
func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Remaining reports how many bytes are left to consume.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) take(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, ErrTruncated
	}
	s := r.buf[r.pos : r.pos+n]
	r.pos += n
	return s, nil
}

// ReadU16 consumes a big-endian uint16.
func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadU32 consumes a big-endian uint32.
func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadU8 consumes a single byte.
func (r *Reader) ReadU8() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadBytes consumes n bytes and returns a copy.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadInto fills dst from the buffer. Used for fixed-size fields.
func (r *Reader) ReadInto(dst []byte) error {
	b, err := r.take(len(dst))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}

// ReadVarBytesU16 consumes a u16 length prefix and that many bytes.
func (r *Reader) ReadVarBytesU16() ([]byte, error) {
	n, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	if r.Remaining() < int(n) {
		return nil, ErrLengthOutOfRange
	}
	return r.ReadBytes(int(n))
}

// ReadVarBytesU32 consumes a u32 length prefix and that many bytes.
func (r *Reader) ReadVarBytesU32() ([]byte, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	if r.Remaining() < int(n) {
		return nil, ErrLengthOutOfRange
	}
	return r.ReadBytes(int(n))
}

// Finish verifies the entire buffer was consumed.
func (r *Reader) Finish() error {
	if r.Remaining() != 0 {
		return ErrTrailingBytes
	}
	return nil
}

// Writer appends canonical encodings to an internal buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated encoding.
func (w *Writer) Bytes() []byte { return w.buf }

// WriteU16 appends a big-endian uint16.
func (w *Writer) WriteU16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

// WriteU32 appends a big-endian uint32.
func (w *Writer) WriteU32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// WriteU8 appends a single byte.
func (w *Writer) WriteU8(v byte) {
	w.buf = append(w.buf, v)
}

// WriteBytes appends b verbatim.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteVarBytesU16 appends a u16 length prefix followed by b.
func (w *Writer) WriteVarBytesU16(b []byte) {
	w.WriteU16(uint16(len(b)))
	w.WriteBytes(b)
}

// WriteVarBytesU32 appends a u32 length prefix followed by b.
func (w *Writer) WriteVarBytesU32(b []byte) {
	w.WriteU32(uint32(len(b)))
	w.WriteBytes(b)
}
