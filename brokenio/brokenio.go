// 20 Feb 2026

// brokenio wraps an io.ReadCloser so tests can make it fail on
// purpose. A fetch from NCBI can die mid-body and a sequence file can
// turn out empty; both are easier to provoke here than against a real
// server. The failures are deterministic. Random failure rates make
// for tests that only fail on Tuesdays.
package brokenio

import (
	"errors"
	"io"
)

// ErrBroken is what a deliberately broken read returns.
var ErrBroken = errors.New("injected read failure")

// A BrknRdrClsr wraps a reader and fails after letting a set number
// of bytes through. With 0 the first read fails, which is what a zero
// length file feels like to most callers.
type BrknRdrClsr struct {
	rdrOrig   io.ReadCloser
	failAfter int
	nByte     int
}

// NewReader wraps rIn so it fails after failAfter bytes have been
// read.
func NewReader(rIn io.ReadCloser, failAfter int) *BrknRdrClsr {
	return &BrknRdrClsr{rdrOrig: rIn, failAfter: failAfter}
}

// Read passes data through until the quota is used up, then returns
// ErrBroken forever after.
func (r *BrknRdrClsr) Read(p []byte) (int, error) {
	if r.nByte >= r.failAfter {
		return 0, ErrBroken
	}
	if len(p) > r.failAfter-r.nByte {
		p = p[:r.failAfter-r.nByte]
	}
	n, err := r.rdrOrig.Read(p)
	r.nByte += n
	return n, err
}

// Close closes the wrapped reader.
func (r *BrknRdrClsr) Close() error { return r.rdrOrig.Close() }
