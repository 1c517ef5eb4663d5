package fheap

import "errors"

// Error taxonomy. Every failure surfaced by this package wraps one of these
// sentinels; callers distinguish cases with errors.Is.
var (
	// ErrBadSignature indicates a magic number mismatch on the header or a
	// block. Fatal for the structure being read.
	ErrBadSignature = errors.New("bad signature")

	// ErrUnsupportedVersion indicates a version byte other than the one
	// this package models.
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrInconsistent indicates stored metadata disagrees with expectation
	// (header back-reference mismatch, impossible doubling-table
	// parameters). It means corruption or a resolver defect.
	ErrInconsistent = errors.New("inconsistent heap metadata")

	// ErrOutOfRange indicates a heap id addresses bytes outside any
	// located block. Fatal for that lookup only; the handle stays usable.
	ErrOutOfRange = errors.New("object out of heap range")

	// ErrUnimplemented marks the huge-object path, which requires a
	// secondary index this package does not model. Distinct from format
	// errors so callers can tell a known gap from corruption.
	ErrUnimplemented = errors.New("huge objects not implemented")

	// ErrBadID indicates a heap id that is malformed before any file
	// access happens (wrong width, unknown type bits).
	ErrBadID = errors.New("malformed heap id")

	// ErrBadChecksum indicates a stored checksum did not match the block
	// bytes. Only reported when verification is requested.
	ErrBadChecksum = errors.New("checksum mismatch")
)
