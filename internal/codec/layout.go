package codec

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/roach88/disco/internal/address"
)

// DiscriminatorSize is the width of the record-type tag at the start of
// every stored record.
const DiscriminatorSize = 8

var (
	// ErrDiscriminatorMismatch indicates the record tag does not match the
	// type being decoded.
	ErrDiscriminatorMismatch = errors.New("record discriminator mismatch")

	// ErrStringTooLong indicates a string field over its capacity.
	ErrStringTooLong = errors.New("string exceeds field capacity")

	// ErrShortRecord indicates the record ended before all fields were read.
	ErrShortRecord = errors.New("record data too short")

	// ErrTrailingBytes indicates unread bytes after the last field.
	ErrTrailingBytes = errors.New("record has trailing bytes")
)

// Discriminator returns the tag for a record type:
// the first 8 bytes of SHA256("account:" + name).
func Discriminator(name string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [DiscriminatorSize]byte
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// HasDiscriminator reports whether data begins with the tag d.
func HasDiscriminator(data []byte, d [DiscriminatorSize]byte) bool {
	return len(data) >= DiscriminatorSize && bytes.Equal(data[:DiscriminatorSize], d[:])
}

// Encoder writes record fields in declaration order. The first error is
// sticky and returned by Bytes, so field writes need no individual checks.
//
// Layout:
//   - integers are little-endian u64
//   - bumps and bools are one byte
//   - strings are a u32 little-endian length followed by the bytes
//   - addresses are 32 raw bytes
type Encoder struct {
	buf bytes.Buffer
	err error
}

// NewEncoder starts a record with the given discriminator.
func NewEncoder(d [DiscriminatorSize]byte) *Encoder {
	e := &Encoder{}
	e.buf.Write(d[:])
	return e
}

// Address writes a 32-byte address.
func (e *Encoder) Address(a address.Address) {
	e.buf.Write(a[:])
}

// U8 writes one byte.
func (e *Encoder) U8(v uint8) {
	e.buf.WriteByte(v)
}

// Bool writes one byte, 1 for true.
func (e *Encoder) Bool(v bool) {
	if v {
		e.buf.WriteByte(1)
	} else {
		e.buf.WriteByte(0)
	}
}

// U64 writes a little-endian u64.
func (e *Encoder) U64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

// String writes a length-prefixed string, failing if it exceeds max bytes.
func (e *Encoder) String(field, s string, max int) {
	if len(s) > max {
		if e.err == nil {
			e.err = fmt.Errorf("%w: %s is %d bytes, max %d", ErrStringTooLong, field, len(s), max)
		}
		return
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(len(s)))
	e.buf.Write(b[:])
	e.buf.WriteString(s)
}

// Bytes returns the encoded record or the first error.
func (e *Encoder) Bytes() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.buf.Bytes(), nil
}

// Decoder reads record fields in the order Encoder wrote them.
// Like Encoder, the first error is sticky and reported by Finish.
type Decoder struct {
	data []byte
	off  int
	err  error
}

// NewDecoder checks the discriminator and positions after it.
func NewDecoder(data []byte, d [DiscriminatorSize]byte) *Decoder {
	dec := &Decoder{data: data, off: DiscriminatorSize}
	if !HasDiscriminator(data, d) {
		dec.err = ErrDiscriminatorMismatch
	}
	return dec
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if d.off+n > len(d.data) {
		d.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortRecord, n, d.off, len(d.data))
		return nil
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b
}

// Address reads a 32-byte address.
func (d *Decoder) Address() address.Address {
	var a address.Address
	if b := d.take(address.Size); b != nil {
		copy(a[:], b)
	}
	return a
}

// U8 reads one byte.
func (d *Decoder) U8() uint8 {
	if b := d.take(1); b != nil {
		return b[0]
	}
	return 0
}

// Bool reads one byte as a bool.
func (d *Decoder) Bool() bool {
	return d.U8() != 0
}

// U64 reads a little-endian u64.
func (d *Decoder) U64() uint64 {
	if b := d.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

// String reads a length-prefixed string of at most max bytes.
func (d *Decoder) String(max int) string {
	b := d.take(4)
	if b == nil {
		return ""
	}
	n := int(binary.LittleEndian.Uint32(b))
	if n > max {
		d.err = fmt.Errorf("%w: %d bytes, max %d", ErrStringTooLong, n, max)
		return ""
	}
	return string(d.take(n))
}

// Finish reports the first decode error, or ErrTrailingBytes if the record
// was not fully consumed.
func (d *Decoder) Finish() error {
	if d.err != nil {
		return d.err
	}
	if d.off != len(d.data) {
		return fmt.Errorf("%w: %d unread", ErrTrailingBytes, len(d.data)-d.off)
	}
	return nil
}
