package fracheap

// Option configures how a heap is opened.
type Option func(*heapOptions)

type heapOptions struct {
	offsetSize int
	lengthSize int
	verify     bool
}

func defaultOptions() *heapOptions {
	return &heapOptions{
		offsetSize: 8,
		lengthSize: 8,
	}
}

// WithOffsetSize sets the file's offset field width in bytes (2, 4, or 8).
// This is a property of the containing file, typically taken from its
// superblock.
func WithOffsetSize(size int) Option {
	return func(o *heapOptions) {
		if size == 2 || size == 4 || size == 8 {
			o.offsetSize = size
		}
	}
}

// WithLengthSize sets the file's length field width in bytes (2, 4, or 8).
func WithLengthSize(size int) Option {
	return func(o *heapOptions) {
		if size == 2 || size == 4 || size == 8 {
			o.lengthSize = size
		}
	}
}

// WithChecksumVerification enables lookup3 verification of the header and
// every block read through the handle. Verification is off by default; the
// checksums are still parsed, just not enforced.
func WithChecksumVerification() Option {
	return func(o *heapOptions) {
		o.verify = true
	}
}
