package fheap

import (
	"io"

	"github.com/robert-malhotra/go-fracheap/internal/binary"
)

// Test fixtures: synthetic heap images assembled in memory. The builders
// mirror the on-disk layout exactly, checksums included, so fixtures stay
// valid under checksum verification.

type heapParams struct {
	idLen            uint16
	filterLen        uint16
	flags            uint8
	maxManaged       uint32
	width            uint16
	startSize        uint64
	maxDirect        uint64
	maxHeapBits      uint16
	startRows        uint16
	rootAddr         uint64
	curRows          uint16
	filteredRootSize uint64
	filterMask       uint32
	rawFilters       []byte
	managedCount     uint64
}

// defaultParams is the doubling-table geometry most tests use: W=4, S=512,
// D=1024, 16-bit heap addresses. Derived: 2-byte offset fields, 3 direct
// rows, 2-byte id length fields.
func defaultParams() heapParams {
	return heapParams{
		idLen:       8,
		maxManaged:  4096,
		width:       4,
		startSize:   512,
		maxDirect:   1024,
		maxHeapBits: 16,
	}
}

func encodeHeader(p heapParams, offW, lenW int) []byte {
	w := binary.NewWriter(offW, lenW)
	w.PutBytes(headerSignature)
	w.PutUint8(headerVersion)
	w.PutUint16(p.idLen)
	w.PutUint16(p.filterLen)
	w.PutUint8(p.flags)
	w.PutUint32(p.maxManaged)
	w.PutLength(0) // next huge id
	w.PutUndefinedOffset()
	w.PutLength(0) // free space
	w.PutUndefinedOffset()
	w.PutLength(0) // managed space
	w.PutLength(0) // allocated space
	w.PutLength(0) // iterator offset
	w.PutLength(p.managedCount)
	w.PutLength(0) // huge size
	w.PutLength(0) // huge count
	w.PutLength(0) // tiny size
	w.PutLength(0) // tiny count
	w.PutUint16(p.width)
	w.PutLength(p.startSize)
	w.PutLength(p.maxDirect)
	w.PutUint16(p.maxHeapBits)
	w.PutUint16(p.startRows)
	w.PutOffset(p.rootAddr)
	w.PutUint16(p.curRows)
	if p.filterLen > 0 && p.curRows == 0 {
		w.PutLength(p.filteredRootSize)
		w.PutUint32(p.filterMask)
	}
	if p.filterLen > 0 {
		w.PutBytes(p.rawFilters)
	}
	w.PutUint32(binary.Lookup3(w.Bytes()))
	return w.Bytes()
}

// encodeDirectBlock lays out a direct block of the given size. payload maps
// block-relative byte positions to content.
func encodeDirectBlock(headerAddr, blockOffset uint64, size, offW, offFieldW int,
	checksummed bool, payload map[int][]byte) []byte {

	w := binary.NewWriter(offW, 8)
	w.PutBytes(directSignature)
	w.PutUint8(blockVersion)
	w.PutOffset(headerAddr)
	w.PutField(blockOffset, offFieldW)
	checksumPos := w.Len()
	if checksummed {
		w.PutZeros(4)
	}

	buf := make([]byte, size)
	copy(buf, w.Bytes())
	for pos, data := range payload {
		copy(buf[pos:], data)
	}

	if checksummed {
		binary.EncodeUint(buf[checksumPos:], uint64(binary.Lookup3(buf)), 4)
	}
	return buf
}

type childSlot struct {
	addr         uint64
	filteredSize uint64
	filterMask   uint32
}

// encodeIndirectBlock lays out an indirect block. slots maps entry index to
// a child; missing indices become the all-ones empty sentinel.
func encodeIndirectBlock(h *Header, headerAddr, blockOffset uint64, rows int,
	offW, lenW int, slots map[int]childSlot) []byte {

	w := binary.NewWriter(offW, lenW)
	w.PutBytes(indirectSignature)
	w.PutUint8(blockVersion)
	w.PutOffset(headerAddr)
	w.PutField(blockOffset, h.OffsetFieldWidth())
	for i := 0; i < h.NumChildEntries(rows); i++ {
		slot, ok := slots[i]
		if !ok {
			w.PutUndefinedOffset()
		} else {
			w.PutOffset(slot.addr)
		}
		if i/h.EntriesPerRow() < h.MaxDirectRows() && h.Filtered() {
			w.PutLength(slot.filteredSize)
			w.PutUint32(slot.filterMask)
		}
	}
	w.PutUint32(binary.Lookup3(w.Bytes()))
	return w.Bytes()
}

// image is an in-memory file under construction.
type image struct {
	buf  []byte
	offW int
	lenW int
}

func newImage(size, offW, lenW int) *image {
	return &image{buf: make([]byte, size), offW: offW, lenW: lenW}
}

func (im *image) place(addr uint64, data []byte) {
	copy(im.buf[addr:], data)
}

func (im *image) reader() *binary.Reader {
	return binary.NewReader(binary.SliceReaderAt(im.buf), im.offW, im.lenW)
}

// countingReaderAt counts underlying reads, for cache behavior tests.
type countingReaderAt struct {
	r     io.ReaderAt
	reads int
}

func (c *countingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	c.reads++
	return c.r.ReadAt(p, off)
}

// failingReaderAt fails every read, proving a code path touches no file.
type failingReaderAt struct{}

func (failingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return 0, io.ErrUnexpectedEOF
}

// openTestHeader parses a header built from params, for tests that need a
// *Header without a full heap image.
func openTestHeader(p heapParams, offW, lenW int) (*Header, error) {
	img := newImage(4096, offW, lenW)
	img.place(0, encodeHeader(p, offW, lenW))
	return ReadHeader(img.reader(), 0, false)
}
