package fheap

import (
	"fmt"
	"math/bits"

	"github.com/robert-malhotra/go-fracheap/internal/binary"
)

// Signature for the heap header: "FRHP"
var headerSignature = []byte{'F', 'R', 'H', 'P'}

// Header flag bits.
const (
	flagHugeIDsWrapped = 0x01 // huge ids carry the object directly instead of an index key
	flagChecksumBlocks = 0x02 // direct blocks carry a checksum field
)

// headerVersion is the only modeled heap header version.
const headerVersion = 0

// Header is a parsed fractal heap header. It is read once when a heap is
// opened and immutable thereafter.
type Header struct {
	Version      uint8
	IDLength     uint16 // width of every heap id in this heap
	FilterLength uint16 // encoded size of the filter pipeline, 0 if none
	Flags        uint8

	MaxManagedSize uint32 // largest object stored in direct blocks
	NextHugeID     uint64
	HugeIndexAddr  uint64 // secondary huge-object index, unused here

	FreeSpace     uint64
	FreeSpaceAddr uint64

	ManagedSpace   uint64 // heap space currently holding managed objects
	AllocatedSpace uint64
	IterOffset     uint64 // next allocation position
	ManagedCount   uint64
	HugeSize       uint64
	HugeCount      uint64
	TinySize       uint64
	TinyCount      uint64

	TableWidth     uint16 // W: child entries per doubling-table row
	StartBlockSize uint64 // S: size of row 0/1 direct blocks
	MaxDirectSize  uint64 // D: largest direct block size
	MaxHeapBits    uint16 // heap address space size in bits
	StartRootRows  uint16
	RootAddr       uint64
	CurrentRows    uint16 // 0 means the root is a direct block

	// Present only when filters are active and the root is direct.
	FilteredRootSize uint64
	FilterMask       uint32

	RawFilters []byte       // encoded filter pipeline, verbatim
	Filters    []FilterInfo // structural view of RawFilters

	Checksum uint32

	addr          uint64 // file address the header was read from
	offsetWidth   int    // file offset field width
	lengthWidth   int    // file length field width
	offFieldWidth int    // ceil(MaxHeapBits/8): block offset and id offset fields
	idLengthWidth int    // managed id length field width
	maxDirectRows int    // rows at or above this hold indirect pointers
}

// ReadHeader parses a heap header at the given file address. When verify is
// set the trailing lookup3 checksum is checked against the header bytes.
func ReadHeader(r *binary.Reader, addr uint64, verify bool) (*Header, error) {
	hr := r.At(int64(addr))

	sig, err := hr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("reading heap header signature: %w", err)
	}
	if string(sig) != string(headerSignature) {
		return nil, fmt.Errorf("heap header at %d: %w: got %q, expected %q",
			addr, ErrBadSignature, sig, headerSignature)
	}

	h := &Header{
		addr:        addr,
		offsetWidth: r.OffsetSize(),
		lengthWidth: r.LengthSize(),
	}

	if h.Version, err = hr.ReadUint8(); err != nil {
		return nil, err
	}
	if h.Version != headerVersion {
		return nil, fmt.Errorf("heap header: %w: version %d", ErrUnsupportedVersion, h.Version)
	}

	if h.IDLength, err = hr.ReadUint16(); err != nil {
		return nil, err
	}
	if h.FilterLength, err = hr.ReadUint16(); err != nil {
		return nil, err
	}
	if h.Flags, err = hr.ReadUint8(); err != nil {
		return nil, err
	}
	if h.MaxManagedSize, err = hr.ReadUint32(); err != nil {
		return nil, err
	}
	if h.NextHugeID, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.HugeIndexAddr, err = hr.ReadOffset(); err != nil {
		return nil, err
	}
	if h.FreeSpace, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.FreeSpaceAddr, err = hr.ReadOffset(); err != nil {
		return nil, err
	}
	if h.ManagedSpace, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.AllocatedSpace, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.IterOffset, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.ManagedCount, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.HugeSize, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.HugeCount, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.TinySize, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.TinyCount, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.TableWidth, err = hr.ReadUint16(); err != nil {
		return nil, err
	}
	if h.StartBlockSize, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.MaxDirectSize, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.MaxHeapBits, err = hr.ReadUint16(); err != nil {
		return nil, err
	}
	if h.StartRootRows, err = hr.ReadUint16(); err != nil {
		return nil, err
	}
	if h.RootAddr, err = hr.ReadOffset(); err != nil {
		return nil, err
	}
	if h.CurrentRows, err = hr.ReadUint16(); err != nil {
		return nil, err
	}

	// Filtered-root fields exist only when filters are active and the root
	// is itself a direct block.
	if h.FilterLength > 0 && h.CurrentRows == 0 {
		if h.FilteredRootSize, err = hr.ReadLength(); err != nil {
			return nil, err
		}
		if h.FilterMask, err = hr.ReadUint32(); err != nil {
			return nil, err
		}
	}

	if h.FilterLength > 0 {
		h.RawFilters, err = hr.ReadBytes(int(h.FilterLength))
		if err != nil {
			return nil, fmt.Errorf("reading heap filter pipeline: %w", err)
		}
		h.Filters, err = parseFilterPipeline(h.RawFilters)
		if err != nil {
			return nil, fmt.Errorf("parsing heap filter pipeline: %w", err)
		}
	}

	checksumEnd := hr.Pos()
	if h.Checksum, err = hr.ReadUint32(); err != nil {
		return nil, err
	}
	if verify {
		body, err := r.At(int64(addr)).ReadBytes(int(checksumEnd - int64(addr)))
		if err != nil {
			return nil, err
		}
		if !binary.VerifyLookup3(body, h.Checksum) {
			return nil, fmt.Errorf("heap header at %d: %w", addr, ErrBadChecksum)
		}
	}

	if err := h.deriveConstants(); err != nil {
		return nil, err
	}
	return h, nil
}

// deriveConstants validates the doubling-table parameters and computes the
// per-heap field widths and row limits.
func (h *Header) deriveConstants() error {
	if h.TableWidth < 1 {
		return fmt.Errorf("heap header: %w: table width %d", ErrInconsistent, h.TableWidth)
	}
	if h.StartBlockSize == 0 {
		return fmt.Errorf("heap header: %w: zero starting block size", ErrInconsistent)
	}
	// The maximum direct size must be the starting size times a power of
	// two; the doubling arithmetic needs nothing more from either value.
	if h.MaxDirectSize < h.StartBlockSize || h.MaxDirectSize%h.StartBlockSize != 0 {
		return fmt.Errorf("heap header: %w: max direct block size %d vs starting size %d",
			ErrInconsistent, h.MaxDirectSize, h.StartBlockSize)
	}
	if ratio := h.MaxDirectSize / h.StartBlockSize; ratio&(ratio-1) != 0 {
		return fmt.Errorf("heap header: %w: max direct block size %d is not a power-of-two multiple of %d",
			ErrInconsistent, h.MaxDirectSize, h.StartBlockSize)
	}
	if h.MaxHeapBits == 0 {
		return fmt.Errorf("heap header: %w: zero heap address bits", ErrInconsistent)
	}

	h.offFieldWidth = (int(h.MaxHeapBits) + 7) / 8

	// maxDirectRows = floor(log2(D/S)) + 2: rows below it are direct.
	h.maxDirectRows = log2(h.MaxDirectSize/h.StartBlockSize) + 2

	// Managed id length width = ceil(log2(min(D, maxManagedSize)+1)/8),
	// i.e. the bytes needed to store the largest managed object length.
	limit := h.MaxDirectSize
	if uint64(h.MaxManagedSize) < limit {
		limit = uint64(h.MaxManagedSize)
	}
	h.idLengthWidth = (bits.Len64(limit) + 7) / 8
	if h.idLengthWidth == 0 {
		h.idLengthWidth = 1
	}
	return nil
}

// log2 returns floor(log2(v)) for v > 0.
func log2(v uint64) int {
	return bits.Len64(v) - 1
}

// HeaderAddr returns the file address the header was read from. Direct and
// indirect blocks store this address as a back-reference.
func (h *Header) HeaderAddr() uint64 {
	return h.addr
}

// OffsetFieldWidth returns the byte width of heap-space offset fields
// (block offsets and managed-id offsets), derived from MaxHeapBits.
func (h *Header) OffsetFieldWidth() int {
	return h.offFieldWidth
}

// IDLengthWidth returns the byte width of the managed-id length field.
func (h *Header) IDLengthWidth() int {
	return h.idLengthWidth
}

// MaxDirectRows returns the first doubling-table row that holds indirect
// block pointers rather than direct ones.
func (h *Header) MaxDirectRows() int {
	return h.maxDirectRows
}

// ChecksumBlocks reports whether direct blocks carry a checksum field.
func (h *Header) ChecksumBlocks() bool {
	return h.Flags&flagChecksumBlocks != 0
}

// HugeIDsWrapped reports the huge-object id strategy flag.
func (h *Header) HugeIDsWrapped() bool {
	return h.Flags&flagHugeIDsWrapped != 0
}

// Filtered reports whether an I/O filter pipeline is active for this heap.
func (h *Header) Filtered() bool {
	return h.FilterLength > 0
}
