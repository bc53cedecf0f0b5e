// Package codec parses and serializes minesweeper replay recordings.
//
// Two formats are supported: the legacy Arbiter AVF format (decode only,
// driven by byte-sequence sentinels) and the open EVF v0 format (decode and
// encode, self-describing). All multi-byte integers are big-endian.
package codec

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/Minesweeper-World/msreplay/internal/replay"
)

// Decode failure reasons. A parse aborts on the first error; there is no
// partial decode.
var (
	// ErrFileEmpty means the buffer had no bytes at all.
	ErrFileEmpty = errors.New("file is empty")
	// ErrTooShort means the cursor ran past the end of the buffer, including
	// a sentinel scan that never found its marker.
	ErrTooShort = errors.New("file is too short")
	// ErrInvalidLevel means the legacy level byte selects no known difficulty.
	ErrInvalidLevel = errors.New("invalid level code")
	// ErrInvalidParams means a numeric header field failed to parse.
	ErrInvalidParams = errors.New("invalid header parameters")
	// ErrInvalidEvent means an event record carried an unknown button code.
	ErrInvalidEvent = errors.New("invalid video event")
	// ErrInvalidMinePosition means a mine fell outside the board or repeated.
	ErrInvalidMinePosition = errors.New("invalid mine position")
	// ErrInvalidBoardSize means a session's board contradicts its declared
	// dimensions; encoding rejects it before emitting any bytes.
	ErrInvalidBoardSize = errors.New("board does not match declared size")
)

// Decode picks the decoder from the file name extension: .avf for the
// legacy format, anything else is treated as EVF.
func Decode(name string, data []byte) (*replay.Session, error) {
	if strings.EqualFold(filepath.Ext(name), ".avf") {
		return DecodeAVF(data)
	}
	return DecodeEVF(data)
}

// cursor is a sequential reader over an immutable byte buffer. Every read
// fails with ErrTooShort once the buffer is exhausted.
type cursor struct {
	data []byte
	off  int
}

func (c *cursor) u8() (uint8, error) {
	if c.off >= len(c.data) {
		c.off++
		return 0, ErrTooShort
	}
	b := c.data[c.off]
	c.off++
	return b, nil
}

func (c *cursor) u16() (uint16, error) {
	a, err := c.u8()
	if err != nil {
		return 0, err
	}
	b, err := c.u8()
	if err != nil {
		return 0, err
	}
	return uint16(a)<<8 | uint16(b), nil
}

func (c *cursor) u24() (uint32, error) {
	a, err := c.u8()
	if err != nil {
		return 0, err
	}
	b, err := c.u8()
	if err != nil {
		return 0, err
	}
	d, err := c.u8()
	if err != nil {
		return 0, err
	}
	return uint32(a)<<16 | uint32(b)<<8 | uint32(d), nil
}

func (c *cursor) u32() (uint32, error) {
	hi, err := c.u16()
	if err != nil {
		return 0, err
	}
	lo, err := c.u16()
	if err != nil {
		return 0, err
	}
	return uint32(hi)<<16 | uint32(lo), nil
}

func (c *cursor) char() (byte, error) {
	return c.u8()
}

// skip advances the cursor without bounds checking; the next read reports
// the overrun.
func (c *cursor) skip(n int) {
	c.off += n
}
