package fracheap

import "github.com/robert-malhotra/go-fracheap/internal/fheap"

// Errors returned by Open and Read. Match with errors.Is.
var (
	// ErrBadSignature indicates a magic number mismatch on the header or a
	// block.
	ErrBadSignature = fheap.ErrBadSignature

	// ErrUnsupportedVersion indicates a header, block, or id version this
	// package does not model.
	ErrUnsupportedVersion = fheap.ErrUnsupportedVersion

	// ErrInconsistent indicates stored metadata disagrees with itself:
	// corruption, or a defect in whatever wrote the heap.
	ErrInconsistent = fheap.ErrInconsistent

	// ErrOutOfRange indicates an id addresses bytes outside any located
	// block. The handle remains usable for other lookups.
	ErrOutOfRange = fheap.ErrOutOfRange

	// ErrUnimplemented marks the huge-object path, a known gap rather than
	// a format error.
	ErrUnimplemented = fheap.ErrUnimplemented

	// ErrBadID indicates a malformed heap id.
	ErrBadID = fheap.ErrBadID

	// ErrBadChecksum is reported only when WithChecksumVerification is set.
	ErrBadChecksum = fheap.ErrBadChecksum
)
