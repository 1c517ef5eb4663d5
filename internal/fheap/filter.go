package fheap

import (
	"encoding/binary"
	"fmt"
)

// Filter IDs
const (
	FilterDeflate     uint16 = 1 // DEFLATE (gzip)
	FilterShuffle     uint16 = 2 // Byte shuffle
	FilterFletcher32  uint16 = 3 // Fletcher32 checksum
	FilterSZIP        uint16 = 4 // SZIP compression
	FilterNBit        uint16 = 5 // N-bit packing
	FilterScaleOffset uint16 = 6 // Scale + offset
)

// FilterInfo describes one filter in the heap's I/O pipeline. The pipeline
// is parsed structurally only; this package never applies filters, and
// filtered block payloads pass through opaquely.
type FilterInfo struct {
	ID         uint16   // Filter identifier
	Flags      uint16   // Filter flags (bit 0: optional)
	Name       string   // Filter name (optional, v1 only)
	ClientData []uint32 // Filter parameters
}

// IsOptional returns true if this filter is optional.
func (f *FilterInfo) IsOptional() bool {
	return f.Flags&0x01 != 0
}

// DisplayName returns the filter's stored name, falling back to the
// well-known name for predefined filter ids. Pipelines usually omit names
// for the predefined set.
func (f *FilterInfo) DisplayName() string {
	if f.Name != "" {
		return f.Name
	}
	switch f.ID {
	case FilterDeflate:
		return "deflate"
	case FilterShuffle:
		return "shuffle"
	case FilterFletcher32:
		return "fletcher32"
	case FilterSZIP:
		return "szip"
	case FilterNBit:
		return "nbit"
	case FilterScaleOffset:
		return "scaleoffset"
	}
	return fmt.Sprintf("filter-%d", f.ID)
}

// parseFilterPipeline decodes the encoded filter-pipeline tail of a heap
// header (message versions 1 and 2).
func parseFilterPipeline(data []byte) ([]FilterInfo, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("filter pipeline too short")
	}

	version := data[0]
	if version != 1 && version != 2 {
		return nil, fmt.Errorf("filter pipeline: %w: version %d", ErrUnsupportedVersion, version)
	}
	filters := make([]FilterInfo, data[1])

	offset := 2
	// Version 1 has 6 reserved bytes after the count.
	if version == 1 {
		offset = 8
	}

	for i := range filters {
		if offset > len(data) {
			return nil, fmt.Errorf("filter pipeline truncated at filter %d", i)
		}
		f, consumed, err := parseFilterInfo(data[offset:], version)
		if err != nil {
			return nil, fmt.Errorf("parsing filter %d: %w", i, err)
		}
		filters[i] = f
		offset += consumed
	}

	return filters, nil
}

func parseFilterInfo(data []byte, version uint8) (FilterInfo, int, error) {
	var f FilterInfo

	if len(data) < 6 {
		return f, 0, fmt.Errorf("filter info too short")
	}

	f.ID = binary.LittleEndian.Uint16(data[0:2])
	offset := 2

	// Name length field only present in v1 or for custom filters (ID >= 256).
	// It widens the fixed part to 8 bytes, shifting flags and the client
	// data count.
	var nameLen uint16
	if version == 1 || f.ID >= 256 {
		if len(data) < 8 {
			return f, 0, fmt.Errorf("filter info too short")
		}
		nameLen = binary.LittleEndian.Uint16(data[offset:])
		offset += 2
	}

	f.Flags = binary.LittleEndian.Uint16(data[offset:])
	offset += 2
	numCD := binary.LittleEndian.Uint16(data[offset:])
	offset += 2

	if nameLen > 0 {
		if offset+int(nameLen) > len(data) {
			return f, 0, fmt.Errorf("filter name truncated")
		}
		// Find null terminator
		nameEnd := offset
		for nameEnd < offset+int(nameLen) && data[nameEnd] != 0 {
			nameEnd++
		}
		f.Name = string(data[offset:nameEnd])
		offset += int(nameLen)

		// v1: names are padded to 8-byte boundary
		if version == 1 && nameLen%8 != 0 {
			offset += 8 - int(nameLen%8)
		}
	}

	if offset+4*int(numCD) > len(data) {
		return f, 0, fmt.Errorf("filter client data truncated")
	}
	f.ClientData = make([]uint32, numCD)
	for j := 0; j < int(numCD); j++ {
		f.ClientData[j] = binary.LittleEndian.Uint32(data[offset:])
		offset += 4
	}

	// v1: padding if odd number of client data values
	if version == 1 && numCD%2 != 0 {
		offset += 4
	}

	return f, offset, nil
}
