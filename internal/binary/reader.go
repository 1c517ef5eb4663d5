// Package binary provides low-level little-endian I/O for fractal heap
// structures with variable-width offset and length fields.
package binary

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrInvalidSize is returned when an invalid offset or length size is specified.
var ErrInvalidSize = errors.New("invalid offset/length size: must be 2, 4, or 8")

// Reader provides methods for reading heap binary data. The file format is
// little-endian throughout; offset and length field widths are fixed per
// file and supplied by the caller.
type Reader struct {
	r          io.ReaderAt
	offsetSize int
	lengthSize int
	pos        int64
}

// NewReader creates a binary reader over r using the given file-level
// offset and length field widths.
func NewReader(r io.ReaderAt, offsetSize, lengthSize int) *Reader {
	return &Reader{
		r:          r,
		offsetSize: offsetSize,
		lengthSize: lengthSize,
		pos:        0,
	}
}

// At returns a new reader positioned at the given offset.
// The new reader shares the underlying io.ReaderAt but has independent position.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{
		r:          r.r,
		offsetSize: r.offsetSize,
		lengthSize: r.lengthSize,
		pos:        offset,
	}
}

// Pos returns the current read position.
func (r *Reader) Pos() int64 {
	return r.pos
}

// ReadBytes reads exactly n bytes from the current position.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	_, err := r.r.ReadAt(buf, r.pos)
	if err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// ReadUint8 reads an unsigned 8-bit integer.
func (r *Reader) ReadUint8() (uint8, error) {
	buf, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16 reads an unsigned 16-bit integer.
func (r *Reader) ReadUint16() (uint16, error) {
	buf, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

// ReadUint32 reads an unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// ReadField reads an unsigned integer of n bytes. Used for fields whose
// width is a per-heap constant (block offsets, heap-id offset/length fields)
// rather than one of the file-level widths.
func (r *Reader) ReadField(n int) (uint64, error) {
	buf, err := r.ReadBytes(n)
	if err != nil {
		return 0, err
	}
	return DecodeUint(buf, n), nil
}

// ReadOffset reads a file offset using the configured offset size.
func (r *Reader) ReadOffset() (uint64, error) {
	return r.ReadField(r.offsetSize)
}

// ReadLength reads a length value using the configured length size.
func (r *Reader) ReadLength() (uint64, error) {
	return r.ReadField(r.lengthSize)
}

// DecodeUint decodes a little-endian unsigned integer of the given width.
// Widths from 1 to 8 bytes are supported.
func DecodeUint(buf []byte, size int) uint64 {
	var val uint64
	for i := size - 1; i >= 0; i-- {
		val = (val << 8) | uint64(buf[i])
	}
	return val
}

// Undefined returns the all-ones sentinel for a field of n bytes. The
// format marks unset addresses by setting every bit of the field.
func Undefined(n int) uint64 {
	if n >= 8 {
		return ^uint64(0)
	}
	return uint64(1)<<(n*8) - 1
}

// IsUndefinedOffset checks if an offset value is the "undefined" sentinel
// for the configured offset size.
func (r *Reader) IsUndefinedOffset(offset uint64) bool {
	return offset == Undefined(r.offsetSize)
}

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int64) {
	r.pos += n
}

// OffsetSize returns the configured offset size in bytes.
func (r *Reader) OffsetSize() int {
	return r.offsetSize
}

// LengthSize returns the configured length size in bytes.
func (r *Reader) LengthSize() int {
	return r.lengthSize
}

// SliceReaderAt adapts a byte slice to io.ReaderAt, for parsing structures
// that were pulled into memory with a single file read.
type SliceReaderAt []byte

func (s SliceReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(s)) {
		return 0, io.EOF
	}
	n := copy(p, s[off:])
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}
