package panel

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// errShortRead is returned by reader when fewer bytes remain than requested.
// Callers wrap it in the message-level sentinel that applies.
var errShortRead = errors.New("short read")

// reader is a little-endian cursor over a byte slice. Every read checks the
// remaining length before touching the buffer.
type reader struct {
	buf []byte
	off int
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

// remaining returns the number of unread bytes.
func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

// rest returns the unread bytes without copying.
func (r *reader) rest() []byte {
	return r.buf[r.off:]
}

func (r *reader) need(n int) error {
	if r.remaining() < n {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", errShortRead, n, r.off, r.remaining())
	}
	return nil
}

func (r *reader) uint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off : r.off+4])
	r.off += 4
	return v, nil
}

func (r *reader) int32() (int32, error) {
	v, err := r.uint32()
	return int32(v), err //nolint:gosec // two's complement reinterpretation is the wire contract
}

func (r *reader) byte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}
