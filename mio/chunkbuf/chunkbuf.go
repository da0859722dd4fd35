package chunkbuf

import (
	"errors"
	"io"

	"github.com/sahib/catio/util"
)

var (
	// ErrNegativeOffset is returned by Seek when the target would be before
	// the start of the buffer.
	ErrNegativeOffset = errors.New("chunkbuf: negative offset")
	// ErrBadWhence is returned by Seek on an unknown whence value.
	ErrBadWhence = errors.New("chunkbuf: invalid whence")
)

// ChunkBuffer represents a custom buffer struct with Read/Write and Seek support.
// Unlike bytes.Buffer reads and writes share a single cursor, like a file.
// Writes past the end grow the buffer.
type ChunkBuffer struct {
	buf []byte
	off int64
}

func (c *ChunkBuffer) Write(p []byte) (int, error) {
	end := c.off + int64(len(p))
	if oldLen := int64(len(c.buf)); end > oldLen {
		if end > int64(cap(c.buf)) {
			grown := make([]byte, end, util.Max64(end, 2*int64(cap(c.buf))))
			copy(grown, c.buf)
			c.buf = grown
		} else {
			c.buf = c.buf[:end]
		}

		// Stale bytes might be left from before a Reset():
		for idx := oldLen; idx < c.off; idx++ {
			c.buf[idx] = 0
		}
	}

	n := copy(c.buf[c.off:end], p)
	c.off += int64(n)
	return n, nil
}

// Reset truncates the buffer to zero and rewinds the cursor.
func (c *ChunkBuffer) Reset() {
	c.buf = c.buf[:0]
	c.off = 0
}

// Len returns the number of bytes that are left to read.
func (c *ChunkBuffer) Len() int {
	return int(int64(len(c.buf)) - util.Min64(c.off, int64(len(c.buf))))
}

// Size returns the number of bytes stored in the buffer.
func (c *ChunkBuffer) Size() int64 {
	return int64(len(c.buf))
}

// Bytes returns the buffer contents. The slice is shared with the buffer:
// writes done through the slice are seen by readers and the other way round,
// until a write has to grow the buffer.
func (c *ChunkBuffer) Bytes() []byte {
	return c.buf
}

func (c *ChunkBuffer) Read(p []byte) (int, error) {
	if c.off >= int64(len(c.buf)) {
		if len(p) == 0 {
			return 0, nil
		}

		return 0, io.EOF
	}

	n := copy(p, c.buf[c.off:])
	c.off += int64(n)
	return n, nil
}

// Seek moves the shared cursor. Seeking past the end is allowed;
// a following write will fill the gap with zeros.
func (c *ChunkBuffer) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekCurrent:
		target = c.off + offset
	case io.SeekEnd:
		target = int64(len(c.buf)) + offset
	case io.SeekStart:
		target = offset
	default:
		return c.off, ErrBadWhence
	}

	if target < 0 {
		return c.off, ErrNegativeOffset
	}

	c.off = target
	return c.off, nil
}

// Close is a no-op only existing to fulfill io.Closer
func (c *ChunkBuffer) Close() error {
	return nil
}

// WriteTo writes the rest of the buffer to `w`.
func (c *ChunkBuffer) WriteTo(w io.Writer) (int64, error) {
	if c.off >= int64(len(c.buf)) {
		return 0, nil
	}

	n, err := w.Write(c.buf[c.off:])
	c.off += int64(n)
	return int64(n), err
}

// NewChunkBuffer returns a ChunkBuffer backed by `data`.
// The buffer takes ownership of `data`; use Bytes() to look at it again.
func NewChunkBuffer(data []byte) *ChunkBuffer {
	return &ChunkBuffer{buf: data}
}
