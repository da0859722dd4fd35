package mio

import (
	"io"

	"github.com/sahib/catio/util"
)

// Stream is the common denominator of all streams in catio.
type Stream interface {
	io.Reader
	io.Seeker
	io.Closer
	io.WriterTo
}

// limitedStream is a small wrapper around Stream,
// which allows truncating the stream at a certain size.
type limitedStream struct {
	stream Stream
	pos    int64
	size   int64
}

func (ls *limitedStream) Read(buf []byte) (int, error) {
	if ls.pos >= ls.size {
		if len(buf) == 0 {
			return 0, nil
		}

		return 0, io.EOF
	}

	if rest := ls.size - ls.pos; int64(len(buf)) > rest {
		buf = buf[:rest]
	}

	n, err := ls.stream.Read(buf)
	ls.pos += int64(n)
	return n, err
}

func (ls *limitedStream) Seek(offset int64, whence int) (int64, error) {
	// Resolve everything relative to our own view of the stream;
	// the underlying stream might be longer than `size`.
	switch whence {
	case io.SeekCurrent:
		offset += ls.pos
	case io.SeekEnd:
		offset += ls.size
	}

	newPos, err := ls.stream.Seek(util.Min64(offset, ls.size), io.SeekStart)
	if err != nil {
		return ls.pos, err
	}

	ls.pos = newPos
	return newPos, nil
}

func (ls *limitedStream) WriteTo(w io.Writer) (int64, error) {
	// LimitReader has no WriteTo, so this reads in chunks
	// and stops at the limit instead of draining the stream.
	limit := util.Max64(0, ls.size-ls.pos)
	n, err := io.Copy(w, io.LimitReader(ls.stream, limit))
	ls.pos += n
	return n, err
}

func (ls *limitedStream) Close() error {
	return ls.stream.Close()
}

// LimitStream is like io.LimitReader, but works for mio.Stream.
// It will not allow reading/seeking after the absolute offset `size`.
// Reading continues from the current position of `stream`.
func LimitStream(stream Stream, size int64) Stream {
	pos, err := stream.Seek(0, io.SeekCurrent)
	if err != nil {
		pos = 0
	}

	return &limitedStream{
		stream: stream,
		pos:    pos,
		size:   size,
	}
}
