package fheap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFilterPipelineV2(t *testing.T) {
	data := []byte{
		2, 2, // version 2, two filters
		0x01, 0x00, 0x01, 0x00, 0x01, 0x00, 0x06, 0x00, 0x00, 0x00, // deflate, optional, level 6
		0x02, 0x00, 0x00, 0x00, 0x01, 0x00, 0x04, 0x00, 0x00, 0x00, // shuffle, element size 4
	}

	filters, err := parseFilterPipeline(data)
	require.NoError(t, err)
	require.Len(t, filters, 2)

	require.Equal(t, FilterDeflate, filters[0].ID)
	require.True(t, filters[0].IsOptional())
	require.Equal(t, []uint32{6}, filters[0].ClientData)

	require.Equal(t, FilterShuffle, filters[1].ID)
	require.False(t, filters[1].IsOptional())
	require.Equal(t, []uint32{4}, filters[1].ClientData)
}

func TestParseFilterPipelineV1(t *testing.T) {
	// Version 1 carries 6 reserved bytes, a name length per filter, names
	// padded to 8 bytes, and client data padded to an even count.
	data := []byte{
		1, 1, 0, 0, 0, 0, 0, 0, // version 1, one filter, reserved
		0xFF, 0x00, // custom filter id 255
		0x08, 0x00, // name length 8
		0x00, 0x00, // flags
		0x01, 0x00, // one client data value
		'c', 'u', 's', 't', 'o', 'm', 0x00, 0x00, // name, null padded
		0x2A, 0x00, 0x00, 0x00, // client data 42
		0x00, 0x00, 0x00, 0x00, // odd-count padding
	}

	filters, err := parseFilterPipeline(data)
	require.NoError(t, err)
	require.Len(t, filters, 1)
	require.Equal(t, uint16(255), filters[0].ID)
	require.Equal(t, "custom", filters[0].Name)
	require.Equal(t, []uint32{42}, filters[0].ClientData)
}

func TestFilterDisplayName(t *testing.T) {
	names := map[uint16]string{
		FilterDeflate:     "deflate",
		FilterShuffle:     "shuffle",
		FilterFletcher32:  "fletcher32",
		FilterSZIP:        "szip",
		FilterNBit:        "nbit",
		FilterScaleOffset: "scaleoffset",
	}
	for id, want := range names {
		f := FilterInfo{ID: id}
		require.Equal(t, want, f.DisplayName())
	}

	// A stored name wins over the predefined table.
	f := FilterInfo{ID: FilterDeflate, Name: "custom"}
	require.Equal(t, "custom", f.DisplayName())

	// An unregistered id falls back to a numeric name.
	f = FilterInfo{ID: 421}
	require.Equal(t, "filter-421", f.DisplayName())
}

func TestParseFilterPipelineRejectsBadInput(t *testing.T) {
	_, err := parseFilterPipeline([]byte{2})
	require.Error(t, err, "truncated pipeline")

	_, err = parseFilterPipeline([]byte{9, 1, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00})
	require.ErrorIs(t, err, ErrUnsupportedVersion)

	// Declares one client data value but provides none.
	_, err = parseFilterPipeline([]byte{2, 1, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00})
	require.Error(t, err)

	// v1 record cut at 6 bytes: the name length widens the fixed part to
	// 8, so flags and the count sit past the end.
	_, err = parseFilterPipeline([]byte{
		1, 1, 0, 0, 0, 0, 0, 0,
		0x01, 0x00, 0x00, 0x00, 0x00, 0x00,
	})
	require.Error(t, err)

	// v2 custom-id record (>= 256) cut short of its widened fixed part.
	_, err = parseFilterPipeline([]byte{2, 1, 0x00, 0x01, 0x08, 0x00, 0x00})
	require.Error(t, err)

	// v1 pipeline cut inside the reserved bytes, before any record.
	_, err = parseFilterPipeline([]byte{1, 1, 0, 0, 0, 0})
	require.Error(t, err)
}
