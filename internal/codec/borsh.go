// Package codec encodes the persisted records in a Borsh-style layout:
// little-endian integers, u32 length prefixes for vectors and strings,
// and a leading layout version byte per record.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// LayoutVersion is the version byte written at the start of every record.
const LayoutVersion = 2

var (
	ErrTruncated          = errors.New("record truncated")
	ErrTrailingBytes      = errors.New("trailing bytes after record")
	ErrUnsupportedVersion = errors.New("unsupported layout version")
)

// writer appends Borsh-style fields to a buffer.
type writer struct {
	buf []byte
}

func newWriter(size int) *writer {
	w := &writer{buf: make([]byte, 0, size+1)}
	w.u8(LayoutVersion)

	return w
}

func (w *writer) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) bool(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) u16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *writer) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *writer) u64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *writer) i64(v int64) {
	w.u64(uint64(v))
}

func (w *writer) fixed(b []byte) {
	w.buf = append(w.buf, b...)
}

// str writes a u32 length prefix followed by the bytes.
func (w *writer) str(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// reader consumes Borsh-style fields. The first failure sticks in err and every
// later read returns a zero value.
type reader struct {
	data []byte
	off  int
	err  error
}

// newReader checks the version byte and positions the reader after it.
func newReader(data []byte) *reader {
	r := &reader{data: data}

	v := r.u8()
	if r.err == nil && v != LayoutVersion {
		r.err = fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	return r
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}

	if n < 0 || len(r.data)-r.off < n {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.off, len(r.data)-r.off)
		return nil
	}

	b := r.data[r.off : r.off+n]
	r.off += n

	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}

	return b[0]
}

func (r *reader) bool() bool {
	return r.u8() != 0
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}

	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}

	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}

	return binary.LittleEndian.Uint64(b)
}

func (r *reader) i64() int64 {
	return int64(r.u64())
}

func (r *reader) fixed(dst []byte) {
	if b := r.take(len(dst)); b != nil {
		copy(dst, b)
	}
}

func (r *reader) str() string {
	n := r.u32()
	return string(r.take(int(n)))
}

// count reads a u32 vector length and rejects lengths the remaining bytes
// cannot hold at minSize bytes per element.
func (r *reader) count(minSize int) int {
	n := int(r.u32())
	if r.err != nil {
		return 0
	}

	if n*minSize > len(r.data)-r.off {
		r.err = fmt.Errorf("%w: %d elements of %d bytes at offset %d", ErrTruncated, n, minSize, r.off)
		return 0
	}

	return n
}

// finish reports the sticky error, or ErrTrailingBytes if input remains.
func (r *reader) finish() error {
	if r.err != nil {
		return r.err
	}

	if r.off != len(r.data) {
		return fmt.Errorf("%w: %d", ErrTrailingBytes, len(r.data)-r.off)
	}

	return nil
}
