// Package fracheap provides a pure Go reader for fractal heaps, the
// doubling-block structures that store variably sized auxiliary records in
// hierarchical scientific-data containers.
//
// The surrounding file layer is expected to supply a byte-addressable handle
// and the file's offset and length field widths; everything else is derived
// from the heap header itself.
package fracheap

import (
	"io"

	"github.com/robert-malhotra/go-fracheap/internal/binary"
	"github.com/robert-malhotra/go-fracheap/internal/fheap"
)

// Heap is an open, read-only fractal heap. It is not safe for concurrent
// use; callers sharing a Heap across goroutines must serialize access.
type Heap struct {
	inner *fheap.Heap
}

// Open reads the heap header at headerAddr and returns a heap handle.
// Blocks are read lazily as objects are resolved and cached for the life of
// the handle.
func Open(r io.ReaderAt, headerAddr uint64, opts ...Option) (*Heap, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	br := binary.NewReader(r, o.offsetSize, o.lengthSize)
	inner, err := fheap.Open(br, headerAddr, o.verify)
	if err != nil {
		return nil, err
	}
	return &Heap{inner: inner}, nil
}

// Read resolves a raw heap id to its object bytes. Tiny ids are served from
// the id itself; managed ids descend the block tree; huge ids fail with
// ErrUnimplemented.
func (h *Heap) Read(id []byte) ([]byte, error) {
	return h.inner.Read(id)
}

// IDKind names the three heap id variants.
type IDKind string

const (
	IDManaged IDKind = "managed"
	IDTiny    IDKind = "tiny"
	IDHuge    IDKind = "huge"
)

// ID is a decoded heap id. Offset and Length are set for managed ids, Data
// for tiny ids, Key for huge ids.
type ID struct {
	Kind   IDKind
	Offset uint64
	Length uint64
	Data   []byte
	Key    []byte
}

// ID decodes a raw heap id against this heap's field widths without
// resolving it. Useful for tooling that inspects ids.
func (h *Heap) ID(raw []byte) (ID, error) {
	id, err := fheap.DecodeID(h.inner.Header(), raw)
	if err != nil {
		return ID{}, err
	}
	out := ID{Offset: id.Offset, Length: id.Length, Data: id.Data, Key: id.Key}
	switch id.Kind {
	case fheap.IDTiny:
		out.Kind = IDTiny
	case fheap.IDHuge:
		out.Kind = IDHuge
	default:
		out.Kind = IDManaged
	}
	return out, nil
}

// Info summarizes an open heap's header.
type Info struct {
	Version        uint8
	IDLength       uint16
	Flags          uint8
	MaxManagedSize uint32

	TableWidth         uint16
	StartBlockSize     uint64
	MaxDirectBlockSize uint64
	MaxHeapBits        uint16
	RootAddress        uint64
	CurrentRootRows    uint16
	MaxDirectRows      int

	ManagedObjects uint64
	HugeObjects    uint64
	TinyObjects    uint64
	ManagedSpace   uint64
	FreeSpace      uint64

	Filtered         bool
	ChecksummedNodes bool
}

// Info returns a summary of the heap header.
func (h *Heap) Info() Info {
	hdr := h.inner.Header()
	return Info{
		Version:            hdr.Version,
		IDLength:           hdr.IDLength,
		Flags:              hdr.Flags,
		MaxManagedSize:     hdr.MaxManagedSize,
		TableWidth:         hdr.TableWidth,
		StartBlockSize:     hdr.StartBlockSize,
		MaxDirectBlockSize: hdr.MaxDirectSize,
		MaxHeapBits:        hdr.MaxHeapBits,
		RootAddress:        hdr.RootAddr,
		CurrentRootRows:    hdr.CurrentRows,
		MaxDirectRows:      hdr.MaxDirectRows(),
		ManagedObjects:     hdr.ManagedCount,
		HugeObjects:        hdr.HugeCount,
		TinyObjects:        hdr.TinyCount,
		ManagedSpace:       hdr.ManagedSpace,
		FreeSpace:          hdr.FreeSpace,
		Filtered:           hdr.Filtered(),
		ChecksummedNodes:   hdr.ChecksumBlocks(),
	}
}

// Filter describes one entry of the heap's I/O filter pipeline. Filters are
// reported structurally but never applied; filtered payloads pass through
// opaquely.
type Filter struct {
	ID         uint16
	Flags      uint16
	Name       string
	ClientData []uint32
	Optional   bool
}

// Filters returns the heap's filter pipeline, or nil when no filters are
// active.
func (h *Heap) Filters() []Filter {
	hdr := h.inner.Header()
	if len(hdr.Filters) == 0 {
		return nil
	}
	out := make([]Filter, len(hdr.Filters))
	for i, f := range hdr.Filters {
		out[i] = Filter{
			ID:         f.ID,
			Flags:      f.Flags,
			Name:       f.DisplayName(),
			ClientData: f.ClientData,
			Optional:   f.IsOptional(),
		}
	}
	return out
}
