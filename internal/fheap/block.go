package fheap

import (
	"fmt"

	"github.com/robert-malhotra/go-fracheap/internal/binary"
)

// Signatures for the two block kinds.
var (
	directSignature   = []byte{'F', 'H', 'D', 'B'}
	indirectSignature = []byte{'F', 'H', 'I', 'B'}
)

// blockVersion is the only modeled block version (direct and indirect).
const blockVersion = 0

// block is the closed sum of the two block kinds. Both expose their offset
// within the heap's address space.
type block interface {
	heapOffset() uint64
}

// DirectBlock is a leaf of the block tree: a contiguous run of object
// storage bytes. The raw block bytes are retained whole, because heap-space
// object offsets count from the start of the block, prefix included.
type DirectBlock struct {
	Version    uint8
	HeaderAddr uint64 // back-reference to the owning heap header
	Offset     uint64 // offset of this block in heap address space
	Size       uint64 // physical block size (filtered size if filters are active)
	Checksum   uint32 // meaningful only when the header's checksum flag is set

	raw       []byte
	dataStart int
}

func (b *DirectBlock) heapOffset() uint64 { return b.Offset }

// Data returns the object-storage region of the block, without the prefix.
func (b *DirectBlock) Data() []byte {
	return b.raw[b.dataStart:]
}

// ObjectAt slices the bytes of a managed object addressed by its heap-space
// offset and length. The range must lie fully within this block.
func (b *DirectBlock) ObjectAt(off, length uint64) ([]byte, error) {
	if off < b.Offset {
		return nil, fmt.Errorf("object at %d before block at %d: %w", off, b.Offset, ErrOutOfRange)
	}
	rel := off - b.Offset
	if length > uint64(len(b.raw)) || rel > uint64(len(b.raw))-length {
		return nil, fmt.Errorf("object [%d,%d) exceeds block [%d,%d): %w",
			off, off+length, b.Offset, b.Offset+uint64(len(b.raw)), ErrOutOfRange)
	}
	out := make([]byte, length)
	copy(out, b.raw[rel:rel+length])
	return out, nil
}

// ReadDirectBlock reads a direct block at the given file address. size is
// the physical block size, supplied by the caller from the doubling table
// or, when filters are active, from the parent's filtered-size field. The
// block is fetched with a single file read.
func ReadDirectBlock(r *binary.Reader, h *Header, addr, size uint64, verify bool) (*DirectBlock, error) {
	raw, err := r.At(int64(addr)).ReadBytes(int(size))
	if err != nil {
		return nil, fmt.Errorf("reading direct block at %d: %w", addr, err)
	}

	br := binary.NewReader(binary.SliceReaderAt(raw), r.OffsetSize(), r.LengthSize())

	sig, err := br.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if string(sig) != string(directSignature) {
		return nil, fmt.Errorf("direct block at %d: %w: got %q, expected %q",
			addr, ErrBadSignature, sig, directSignature)
	}

	b := &DirectBlock{Size: size, raw: raw}

	if b.Version, err = br.ReadUint8(); err != nil {
		return nil, err
	}
	if b.Version != blockVersion {
		return nil, fmt.Errorf("direct block: %w: version %d", ErrUnsupportedVersion, b.Version)
	}

	if b.HeaderAddr, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	if b.HeaderAddr != h.HeaderAddr() {
		return nil, fmt.Errorf("direct block at %d: %w: header back-reference %d, expected %d",
			addr, ErrInconsistent, b.HeaderAddr, h.HeaderAddr())
	}

	if b.Offset, err = br.ReadField(h.OffsetFieldWidth()); err != nil {
		return nil, err
	}

	if h.ChecksumBlocks() {
		checksumPos := int(br.Pos())
		if b.Checksum, err = br.ReadUint32(); err != nil {
			return nil, err
		}
		if verify {
			// The checksum covers the whole block with its own field zeroed.
			body := make([]byte, len(raw))
			copy(body, raw)
			copy(body[checksumPos:checksumPos+4], []byte{0, 0, 0, 0})
			if !binary.VerifyLookup3(body, b.Checksum) {
				return nil, fmt.Errorf("direct block at %d: %w", addr, ErrBadChecksum)
			}
		}
	}

	b.dataStart = int(br.Pos())
	if b.dataStart > len(raw) {
		return nil, fmt.Errorf("direct block at %d: %w: prefix exceeds block size %d",
			addr, ErrInconsistent, size)
	}
	return b, nil
}

// ChildEntry is one slot of an indirect block's child table.
type ChildEntry struct {
	Addr         uint64 // file address of the child block
	FilteredSize uint64 // physical size of a filtered direct child
	FilterMask   uint32
	Indirect     bool // nested indirect pointer rather than a direct one
	Empty        bool // all-ones address sentinel: nothing allocated here
}

// IndirectBlock is an internal node of the block tree: an ordered table of
// rows*W child slots. The slot kind is determined solely by its row versus
// the header's maximum direct row count.
type IndirectBlock struct {
	Version    uint8
	HeaderAddr uint64
	Offset     uint64 // offset of this block's span in heap address space
	Rows       int
	Entries    []ChildEntry
	Checksum   uint32
}

func (b *IndirectBlock) heapOffset() uint64 { return b.Offset }

// Entry returns the child slot for a row and column.
func (b *IndirectBlock) Entry(row, col int, h *Header) ChildEntry {
	return b.Entries[row*h.EntriesPerRow()+col]
}

// indirectBlockSize computes the encoded size of an indirect block with the
// given row count, so the block can be fetched with a single file read.
func indirectBlockSize(h *Header, rows int) int {
	size := 4 + 1 + h.offsetWidth + h.OffsetFieldWidth()
	for i := 0; i < h.NumChildEntries(rows); i++ {
		size += h.offsetWidth
		// Direct rows of a filtered heap carry a size and mask per slot.
		// Nested indirect blocks are never filtered.
		if i/h.EntriesPerRow() < h.MaxDirectRows() && h.Filtered() {
			size += h.lengthWidth + 4
		}
	}
	return size + 4
}

// ReadIndirectBlock reads an indirect block at the given file address with
// the given row count (from the header for the root, from the doubling
// table for nested blocks).
func ReadIndirectBlock(r *binary.Reader, h *Header, addr uint64, rows int, verify bool) (*IndirectBlock, error) {
	total := indirectBlockSize(h, rows)
	raw, err := r.At(int64(addr)).ReadBytes(total)
	if err != nil {
		return nil, fmt.Errorf("reading indirect block at %d: %w", addr, err)
	}

	br := binary.NewReader(binary.SliceReaderAt(raw), r.OffsetSize(), r.LengthSize())

	sig, err := br.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if string(sig) != string(indirectSignature) {
		return nil, fmt.Errorf("indirect block at %d: %w: got %q, expected %q",
			addr, ErrBadSignature, sig, indirectSignature)
	}

	b := &IndirectBlock{Rows: rows}

	if b.Version, err = br.ReadUint8(); err != nil {
		return nil, err
	}
	if b.Version != blockVersion {
		return nil, fmt.Errorf("indirect block: %w: version %d", ErrUnsupportedVersion, b.Version)
	}

	if b.HeaderAddr, err = br.ReadOffset(); err != nil {
		return nil, err
	}
	if b.HeaderAddr != h.HeaderAddr() {
		return nil, fmt.Errorf("indirect block at %d: %w: header back-reference %d, expected %d",
			addr, ErrInconsistent, b.HeaderAddr, h.HeaderAddr())
	}

	if b.Offset, err = br.ReadField(h.OffsetFieldWidth()); err != nil {
		return nil, err
	}

	undefined := binary.Undefined(h.offsetWidth)
	b.Entries = make([]ChildEntry, h.NumChildEntries(rows))
	for i := range b.Entries {
		row := i / h.EntriesPerRow()
		ent := ChildEntry{Indirect: row >= h.MaxDirectRows()}

		if ent.Addr, err = br.ReadOffset(); err != nil {
			return nil, err
		}
		ent.Empty = ent.Addr == undefined

		if !ent.Indirect && h.Filtered() {
			if ent.FilteredSize, err = br.ReadLength(); err != nil {
				return nil, err
			}
			if ent.FilterMask, err = br.ReadUint32(); err != nil {
				return nil, err
			}
		}
		b.Entries[i] = ent
	}

	if b.Checksum, err = br.ReadUint32(); err != nil {
		return nil, err
	}
	if verify && !binary.VerifyLookup3(raw[:total-4], b.Checksum) {
		return nil, fmt.Errorf("indirect block at %d: %w", addr, ErrBadChecksum)
	}

	return b, nil
}
