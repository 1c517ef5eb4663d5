package fheap

import (
	"fmt"

	"github.com/robert-malhotra/go-fracheap/internal/binary"
)

// IDKind discriminates the three heap id variants.
type IDKind uint8

const (
	// IDManaged addresses an object stored in a direct block by heap-space
	// offset and length.
	IDManaged IDKind = 0
	// IDTiny embeds the object bytes inside the id itself.
	IDTiny IDKind = 1
	// IDHuge refers to the secondary huge-object index (not resolved here).
	IDHuge IDKind = 2

	idVersion = 0
)

// First id byte, MSB-first: 4 reserved bits, 2 type bits, 2 version bits.
// For tiny ids the reserved nibble carries the embedded length minus one.
const (
	idTypeShift   = 2
	idTypeMask    = 0x03
	idVersionMask = 0x03
	idNibbleShift = 4
)

// HeapID is a decoded heap object identifier. Field widths inside the
// encoded form are per-heap constants derived from the owning header, never
// universal.
type HeapID struct {
	Kind IDKind

	// Managed
	Offset uint64
	Length uint64

	// Tiny: the literal object bytes.
	Data []byte

	// Huge: opaque key into the secondary index.
	Key []byte
}

// DecodeID unpacks a raw heap id using the header's derived field widths.
// The raw id must be exactly the header's declared id length.
func DecodeID(h *Header, raw []byte) (HeapID, error) {
	if len(raw) != int(h.IDLength) {
		return HeapID{}, fmt.Errorf("%w: %d bytes, heap declares %d", ErrBadID, len(raw), h.IDLength)
	}

	first := raw[0]
	if v := first & idVersionMask; v != idVersion {
		return HeapID{}, fmt.Errorf("heap id: %w: version %d", ErrUnsupportedVersion, v)
	}

	kind := IDKind(first >> idTypeShift & idTypeMask)
	switch kind {
	case IDManaged:
		ow, lw := h.OffsetFieldWidth(), h.IDLengthWidth()
		if 1+ow+lw > len(raw) {
			return HeapID{}, fmt.Errorf("%w: managed id needs %d bytes, have %d",
				ErrBadID, 1+ow+lw, len(raw))
		}
		return HeapID{
			Kind:   IDManaged,
			Offset: binary.DecodeUint(raw[1:1+ow], ow),
			Length: binary.DecodeUint(raw[1+ow:1+ow+lw], lw),
		}, nil

	case IDTiny:
		n := int(first>>idNibbleShift) + 1
		if 1+n > len(raw) {
			return HeapID{}, fmt.Errorf("%w: tiny id declares %d bytes, have %d",
				ErrBadID, n, len(raw)-1)
		}
		data := make([]byte, n)
		copy(data, raw[1:1+n])
		return HeapID{Kind: IDTiny, Data: data}, nil

	case IDHuge:
		key := make([]byte, len(raw)-1)
		copy(key, raw[1:])
		return HeapID{Kind: IDHuge, Key: key}, nil

	default:
		return HeapID{}, fmt.Errorf("%w: unknown id type %d", ErrBadID, kind)
	}
}

// EncodeID packs a heap id into its raw form, the exact inverse of DecodeID.
// It is total over ids whose fields fit the header's declared widths.
func EncodeID(h *Header, id HeapID) ([]byte, error) {
	raw := make([]byte, h.IDLength)

	switch id.Kind {
	case IDManaged:
		ow, lw := h.OffsetFieldWidth(), h.IDLengthWidth()
		if 1+ow+lw > len(raw) {
			return nil, fmt.Errorf("%w: managed id needs %d bytes, heap declares %d",
				ErrBadID, 1+ow+lw, h.IDLength)
		}
		if id.Offset > binary.Undefined(ow) {
			return nil, fmt.Errorf("%w: offset %d exceeds %d-byte field", ErrBadID, id.Offset, ow)
		}
		if id.Length > binary.Undefined(lw) {
			return nil, fmt.Errorf("%w: length %d exceeds %d-byte field", ErrBadID, id.Length, lw)
		}
		raw[0] = byte(IDManaged) << idTypeShift
		binary.EncodeUint(raw[1:], id.Offset, ow)
		binary.EncodeUint(raw[1+ow:], id.Length, lw)
		return raw, nil

	case IDTiny:
		n := len(id.Data)
		if n < 1 || n > 16 || 1+n > len(raw) {
			return nil, fmt.Errorf("%w: tiny id cannot embed %d bytes in a %d-byte id",
				ErrBadID, n, h.IDLength)
		}
		raw[0] = byte(n-1)<<idNibbleShift | byte(IDTiny)<<idTypeShift
		copy(raw[1:], id.Data)
		return raw, nil

	case IDHuge:
		if len(id.Key) != len(raw)-1 {
			return nil, fmt.Errorf("%w: huge id key must be %d bytes, have %d",
				ErrBadID, len(raw)-1, len(id.Key))
		}
		raw[0] = byte(IDHuge) << idTypeShift
		copy(raw[1:], id.Key)
		return raw, nil

	default:
		return nil, fmt.Errorf("%w: unknown id kind %d", ErrBadID, id.Kind)
	}
}
