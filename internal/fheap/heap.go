package fheap

import (
	"fmt"

	"github.com/robert-malhotra/go-fracheap/internal/binary"
)

// Heap is an open, read-only fractal heap handle: the parsed header plus a
// lazily populated cache of blocks keyed by file address.
//
// A Heap has a single logical owner. The cache is a plain memoization map
// with no internal locking; sharing a handle across goroutines requires
// external mutual exclusion around every call.
type Heap struct {
	hdr    *Header
	r      *binary.Reader
	cache  map[uint64]block
	verify bool
}

// Open reads the heap header at the given file address and returns a handle.
// When verify is set, checksums on the header and on every block read later
// are validated.
func Open(r *binary.Reader, headerAddr uint64, verify bool) (*Heap, error) {
	hdr, err := ReadHeader(r, headerAddr, verify)
	if err != nil {
		return nil, err
	}
	return &Heap{
		hdr:    hdr,
		r:      r,
		cache:  make(map[uint64]block),
		verify: verify,
	}, nil
}

// Header returns the heap's parsed header.
func (h *Heap) Header() *Header {
	return h.hdr
}

// Read decodes a raw heap id and resolves its object bytes.
func (h *Heap) Read(rawID []byte) ([]byte, error) {
	id, err := DecodeID(h.hdr, rawID)
	if err != nil {
		return nil, err
	}
	return h.ReadObject(id)
}

// ReadObject resolves a decoded heap id to its object bytes. Tiny ids return
// the embedded bytes without touching the file. Managed ids descend the
// block tree. Huge ids fail with ErrUnimplemented.
func (h *Heap) ReadObject(id HeapID) ([]byte, error) {
	switch id.Kind {
	case IDTiny:
		data := make([]byte, len(id.Data))
		copy(data, id.Data)
		return data, nil
	case IDHuge:
		return nil, fmt.Errorf("%w: huge id via secondary index at %d",
			ErrUnimplemented, h.hdr.HugeIndexAddr)
	case IDManaged:
		return h.readManaged(id)
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrBadID, id.Kind)
	}
}

// readManaged walks the block tree from the root to the direct block whose
// heap-space range covers the id, then slices out the object bytes. Descent
// is depth-first and sequential: each block read reveals the address needed
// for the next.
func (h *Heap) readManaged(id HeapID) ([]byte, error) {
	hdr := h.hdr
	if h.r.IsUndefinedOffset(hdr.RootAddr) {
		return nil, fmt.Errorf("heap has no root block: %w", ErrOutOfRange)
	}

	// A zero current row count means the root is itself a direct block of
	// the starting size (or its filtered physical size). The root covers
	// heap offset 0.
	if hdr.CurrentRows == 0 {
		size := hdr.StartBlockSize
		if hdr.Filtered() {
			size = hdr.FilteredRootSize
		}
		db, err := h.directBlock(hdr.RootAddr, size, 0)
		if err != nil {
			return nil, err
		}
		return db.ObjectAt(id.Offset, id.Length)
	}

	ib, err := h.indirectBlock(hdr.RootAddr, int(hdr.CurrentRows), 0)
	if err != nil {
		return nil, err
	}

	for {
		if id.Offset < ib.Offset {
			return nil, fmt.Errorf("object at %d before indirect block at %d: %w",
				id.Offset, ib.Offset, ErrInconsistent)
		}

		// Row and column are recomputed from the offset relative to each
		// indirect block: the doubling table repeats at every level.
		rel := id.Offset - ib.Offset
		row := hdr.RowForOffset(rel)
		if row >= ib.Rows {
			return nil, fmt.Errorf("object at %d beyond indirect block rows: %w",
				id.Offset, ErrOutOfRange)
		}
		col := int((rel - hdr.RowStart(row)) / hdr.SizeForRow(row))

		ent := ib.Entry(row, col, hdr)
		if ent.Empty {
			return nil, fmt.Errorf("object at %d in unallocated slot: %w",
				id.Offset, ErrOutOfRange)
		}

		childOff := ib.Offset + hdr.RowStart(row) + uint64(col)*hdr.SizeForRow(row)

		if !ent.Indirect {
			size := hdr.SizeForRow(row)
			if hdr.Filtered() {
				size = ent.FilteredSize
			}
			db, err := h.directBlock(ent.Addr, size, childOff)
			if err != nil {
				return nil, err
			}
			return db.ObjectAt(id.Offset, id.Length)
		}

		ib, err = h.indirectBlock(ent.Addr, hdr.IndirectRows(hdr.SizeForRow(row)), childOff)
		if err != nil {
			return nil, err
		}
	}
}

// directBlock returns the direct block at a file address, reading and
// caching it on first use. Only fully parsed blocks enter the cache, so a
// failed read leaves the handle usable. heapOff is the heap-space offset
// the block must occupy given its position in the tree; a stored offset
// field that disagrees means corruption, not a rebased block.
func (h *Heap) directBlock(addr, size, heapOff uint64) (*DirectBlock, error) {
	db, err := h.cachedDirectBlock(addr, size)
	if err != nil {
		return nil, err
	}
	if db.Offset != heapOff {
		return nil, fmt.Errorf("direct block at %d: %w: stored offset %d, expected %d",
			addr, ErrInconsistent, db.Offset, heapOff)
	}
	return db, nil
}

func (h *Heap) cachedDirectBlock(addr, size uint64) (*DirectBlock, error) {
	if b, ok := h.cache[addr]; ok {
		db, ok := b.(*DirectBlock)
		if !ok {
			return nil, fmt.Errorf("block at %d cached as indirect, expected direct: %w",
				addr, ErrInconsistent)
		}
		return db, nil
	}
	db, err := ReadDirectBlock(h.r, h.hdr, addr, size, h.verify)
	if err != nil {
		return nil, err
	}
	h.cache[addr] = db
	return db, nil
}

// indirectBlock is the indirect counterpart of directBlock, with the same
// stored-offset cross-check.
func (h *Heap) indirectBlock(addr uint64, rows int, heapOff uint64) (*IndirectBlock, error) {
	ib, err := h.cachedIndirectBlock(addr, rows)
	if err != nil {
		return nil, err
	}
	if ib.Offset != heapOff {
		return nil, fmt.Errorf("indirect block at %d: %w: stored offset %d, expected %d",
			addr, ErrInconsistent, ib.Offset, heapOff)
	}
	return ib, nil
}

func (h *Heap) cachedIndirectBlock(addr uint64, rows int) (*IndirectBlock, error) {
	if b, ok := h.cache[addr]; ok {
		ib, ok := b.(*IndirectBlock)
		if !ok {
			return nil, fmt.Errorf("block at %d cached as direct, expected indirect: %w",
				addr, ErrInconsistent)
		}
		return ib, nil
	}
	ib, err := ReadIndirectBlock(h.r, h.hdr, addr, rows, h.verify)
	if err != nil {
		return nil, err
	}
	h.cache[addr] = ib
	return ib, nil
}
