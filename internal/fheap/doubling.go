package fheap

import "math/bits"

// Doubling-table arithmetic. Block sizes per row follow a geometric series:
// rows 0 and 1 hold blocks of the starting size S, and every row r >= 2
// holds blocks of S << (r-1). A row spans W blocks, so the heap offset at
// which row r begins is W*S << (r-1) for r >= 1, which makes the
// offset-to-row mapping invertible with a single log2.

// SizeForRow returns the block size for a doubling-table row.
func (h *Header) SizeForRow(row int) uint64 {
	if row < 2 {
		return h.StartBlockSize
	}
	return h.StartBlockSize << (row - 1)
}

// RowStart returns the heap-space offset at which a row begins.
func (h *Header) RowStart(row int) uint64 {
	if row == 0 {
		return 0
	}
	return uint64(h.TableWidth) * h.StartBlockSize << (row - 1)
}

// RowForOffset returns the row whose span contains the given heap-space
// offset, relative to the block the table is applied in.
func (h *Header) RowForOffset(off uint64) int {
	firstRowSpan := uint64(h.TableWidth) * h.StartBlockSize
	if off < firstRowSpan {
		return 0
	}
	// off/firstRowSpan in [2^(r-1), 2^r) selects row r.
	return bits.Len64(off / firstRowSpan)
}

// EntriesPerRow returns the number of child entries per row. Every row has
// exactly W entries.
func (h *Header) EntriesPerRow() int {
	return int(h.TableWidth)
}

// NumChildEntries returns the total child entry count of an indirect block
// with the given row count.
func (h *Header) NumChildEntries(rows int) int {
	return rows * int(h.TableWidth)
}

// IndirectRows returns the row count of a nested indirect block that spans
// the given amount of heap space. A block of nrows rows spans W*S*2^(nrows-1)
// bytes, so nrows = log2(span) - log2(W*S) + 1.
func (h *Header) IndirectRows(span uint64) int {
	return log2(span) - log2(uint64(h.TableWidth)*h.StartBlockSize) + 1
}
