package binary

import (
	"testing"
)

func TestReaderReadUint8(t *testing.T) {
	data := SliceReaderAt{0x42, 0xFF, 0x00}
	r := NewReader(data, 8, 8)

	v, err := r.ReadUint8()
	if err != nil {
		t.Fatalf("ReadUint8 failed: %v", err)
	}
	if v != 0x42 {
		t.Errorf("expected 0x42, got 0x%02x", v)
	}

	v, err = r.ReadUint8()
	if err != nil {
		t.Fatalf("ReadUint8 failed: %v", err)
	}
	if v != 0xFF {
		t.Errorf("expected 0xFF, got 0x%02x", v)
	}
}

func TestReaderReadUint16(t *testing.T) {
	// Little-endian: 0x0102 stored as [0x02, 0x01]
	data := SliceReaderAt{0x02, 0x01, 0xFF, 0xFF}
	r := NewReader(data, 8, 8)

	v, err := r.ReadUint16()
	if err != nil {
		t.Fatalf("ReadUint16 failed: %v", err)
	}
	if v != 0x0102 {
		t.Errorf("expected 0x0102, got 0x%04x", v)
	}

	v, err = r.ReadUint16()
	if err != nil {
		t.Fatalf("ReadUint16 failed: %v", err)
	}
	if v != 0xFFFF {
		t.Errorf("expected 0xFFFF, got 0x%04x", v)
	}
}

func TestReaderReadField(t *testing.T) {
	data := SliceReaderAt{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	tests := []struct {
		width int
		want  uint64
	}{
		{1, 0x01},
		{2, 0x0201},
		{3, 0x030201},
		{4, 0x04030201},
		{6, 0x060504030201},
	}

	for _, tt := range tests {
		r := NewReader(data, 8, 8)
		v, err := r.ReadField(tt.width)
		if err != nil {
			t.Fatalf("ReadField(%d) failed: %v", tt.width, err)
		}
		if v != tt.want {
			t.Errorf("ReadField(%d): expected 0x%x, got 0x%x", tt.width, tt.want, v)
		}
		if r.Pos() != int64(tt.width) {
			t.Errorf("ReadField(%d): position %d, expected %d", tt.width, r.Pos(), tt.width)
		}
	}
}

func TestReaderOffsetAndLengthWidths(t *testing.T) {
	data := SliceReaderAt{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	r := NewReader(data, 4, 2)

	off, err := r.ReadOffset()
	if err != nil {
		t.Fatalf("ReadOffset failed: %v", err)
	}
	if off != 0xDDCCBBAA {
		t.Errorf("expected 0xDDCCBBAA, got 0x%x", off)
	}

	length, err := r.ReadLength()
	if err != nil {
		t.Fatalf("ReadLength failed: %v", err)
	}
	if length != 0xFFEE {
		t.Errorf("expected 0xFFEE, got 0x%x", length)
	}
}

func TestReaderAtIndependentPosition(t *testing.T) {
	data := SliceReaderAt{0x00, 0x11, 0x22, 0x33}
	r := NewReader(data, 8, 8)

	r2 := r.At(2)
	v, err := r2.ReadUint8()
	if err != nil {
		t.Fatalf("ReadUint8 failed: %v", err)
	}
	if v != 0x22 {
		t.Errorf("expected 0x22, got 0x%02x", v)
	}
	if r.Pos() != 0 {
		t.Errorf("original reader moved to %d", r.Pos())
	}
}

func TestUndefined(t *testing.T) {
	tests := []struct {
		width int
		want  uint64
	}{
		{2, 0xFFFF},
		{4, 0xFFFFFFFF},
		{8, 0xFFFFFFFFFFFFFFFF},
	}
	for _, tt := range tests {
		if got := Undefined(tt.width); got != tt.want {
			t.Errorf("Undefined(%d): expected 0x%x, got 0x%x", tt.width, tt.want, got)
		}
	}

	r := NewReader(SliceReaderAt{}, 4, 8)
	if !r.IsUndefinedOffset(0xFFFFFFFF) {
		t.Error("0xFFFFFFFF should be undefined for 4-byte offsets")
	}
	if r.IsUndefinedOffset(0xFFFFFFFE) {
		t.Error("0xFFFFFFFE should not be undefined")
	}
}

func TestReaderSkip(t *testing.T) {
	data := SliceReaderAt{0x00, 0x00, 0x00, 0x7F}
	r := NewReader(data, 8, 8)
	r.Skip(3)

	v, err := r.ReadUint8()
	if err != nil {
		t.Fatalf("ReadUint8 failed: %v", err)
	}
	if v != 0x7F {
		t.Errorf("expected 0x7F, got 0x%02x", v)
	}
}

func TestSliceReaderAtShortRead(t *testing.T) {
	data := SliceReaderAt{0x01, 0x02}
	r := NewReader(data, 8, 8)

	if _, err := r.ReadUint32(); err == nil {
		t.Error("expected error reading past end of slice")
	}
}
