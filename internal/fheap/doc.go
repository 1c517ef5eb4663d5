// Package fheap reads fractal heaps: the doubling-block structure that
// stores variably sized auxiliary records (attribute payloads, compact link
// entries, small metadata blobs) without pre-allocating fixed slots.
//
// A heap is a header plus a tree of blocks. Direct blocks hold object bytes;
// indirect blocks hold tables of child pointers. Block sizes follow a
// doubling table: rows 0 and 1 use the starting block size, each later row
// doubles it, so the heap's address space grows geometrically with depth.
// Objects are addressed by heap ids, which pack an offset and length into a
// fixed number of bytes whose field widths are derived per heap.
//
// The package is read-only. Allocation, growth, and write-back are not
// modeled, and huge objects (which bypass the block tree for a secondary
// index) are recognized but not resolved.
package fheap
