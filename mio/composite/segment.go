package composite

import "io"

// segment is one source inside the composite stream.
type segment struct {
	handle io.ReadSeeker

	// length is the number of bytes in this segment. It only grows.
	length int64

	// cursor is the read/write position inside of this segment.
	cursor int64

	// synced is true when the position of handle equals cursor.
	synced bool

	// release frees resources owned by the segment; nil for borrowed streams.
	release func() error

	owned   bool
	spilled bool
}

// sync moves the handle to the cursor, if it might be somewhere else.
func (seg *segment) sync() error {
	if seg.synced {
		return nil
	}

	if _, err := seg.handle.Seek(seg.cursor, io.SeekStart); err != nil {
		return err
	}

	seg.synced = true
	return nil
}

// moveTo sets the cursor; the handle follows lazily on next access.
func (seg *segment) moveTo(cursor int64) {
	seg.cursor = cursor
	seg.synced = false
}

func (seg *segment) writer() (io.Writer, bool) {
	w, ok := seg.handle.(io.Writer)
	return w, ok
}

// SegmentInfo describes a single segment of a Stream.
type SegmentInfo struct {
	// Index is the position of the segment in the source list.
	Index int
	// Offset is where the segment starts in the composite stream.
	Offset int64
	// Length is the current number of bytes in the segment.
	Length int64
	// Owned is true when the backing stream was created by Open.
	Owned bool
	// Spilled is true when raw bytes were stored in a temporary file.
	Spilled bool
	// Writable is true when the segment accepts writes.
	Writable bool
}
