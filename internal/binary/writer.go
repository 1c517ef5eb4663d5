package binary

import "encoding/binary"

// Writer builds little-endian binary buffers with variable-width offset and
// length fields. It is used for encoding heap ids and for constructing heap
// images in tests; it accumulates into memory rather than writing to a file.
type Writer struct {
	buf        []byte
	offsetSize int
	lengthSize int
}

// NewWriter creates a buffer writer using the given file-level offset and
// length field widths.
func NewWriter(offsetSize, lengthSize int) *Writer {
	return &Writer{
		offsetSize: offsetSize,
		lengthSize: lengthSize,
	}
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// PutBytes appends raw bytes.
func (w *Writer) PutBytes(data []byte) {
	w.buf = append(w.buf, data...)
}

// PutUint8 appends an unsigned 8-bit integer.
func (w *Writer) PutUint8(v uint8) {
	w.buf = append(w.buf, v)
}

// PutUint16 appends an unsigned 16-bit integer.
func (w *Writer) PutUint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// PutUint32 appends an unsigned 32-bit integer.
func (w *Writer) PutUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// PutField appends an unsigned integer of n bytes, little-endian.
func (w *Writer) PutField(v uint64, n int) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, byte(v>>(8*i)))
	}
}

// PutOffset appends a file offset using the configured offset size.
func (w *Writer) PutOffset(v uint64) {
	w.PutField(v, w.offsetSize)
}

// PutLength appends a length value using the configured length size.
func (w *Writer) PutLength(v uint64) {
	w.PutField(v, w.lengthSize)
}

// PutUndefinedOffset appends the all-ones sentinel at the offset width.
func (w *Writer) PutUndefinedOffset() {
	w.PutField(Undefined(w.offsetSize), w.offsetSize)
}

// PutZeros appends n zero bytes.
func (w *Writer) PutZeros(n int) {
	w.buf = append(w.buf, make([]byte, n)...)
}

// EncodeUint encodes a little-endian unsigned integer of the given width
// into buf, which must hold at least size bytes.
func EncodeUint(buf []byte, v uint64, size int) {
	for i := 0; i < size; i++ {
		buf[i] = byte(v >> (8 * i))
	}
}
