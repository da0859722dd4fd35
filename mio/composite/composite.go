// Package composite glues an ordered list of byte buffers and streams
// together to one logically contiguous stream that can be read, written
// and seeked like a single file.
//
// The stream keeps a global position and the index of the segment that
// position falls into. Sequential reads walk from segment to segment
// without searching the segment table; Seek recomputes both from scratch.
//
// A Stream is not safe for concurrent use.
package composite

import (
	"errors"
	"io"
	"time"

	"github.com/sahib/catio/util"

	e "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

var (
	// ErrNoSources is returned by Open when no source was given.
	ErrNoSources = errors.New("composite: need at least one source")
	// ErrNotOpen is returned when using a stream that was not created by
	// Open or that was closed already.
	ErrNotOpen = errors.New("composite: stream is not open")
	// ErrSegmentFault is returned by Read when a segment could not be read
	// or the segment table is inconsistent. No data is returned in this
	// case and the position is unchanged; the read may be retried.
	ErrSegmentFault = errors.New("composite: segment fault")
	// ErrWriteRejected is returned by Write when the active segment did not
	// accept the data. Zero bytes are reported as written.
	ErrWriteRejected = errors.New("composite: write rejected")
	// ErrInvalidWhence is returned by Seek on an unknown whence value.
	ErrInvalidWhence = errors.New("composite: invalid whence")
	// ErrNegativeSeek is returned by Seek when the target would be before
	// the start of the stream.
	ErrNegativeSeek = errors.New("composite: negative seek target")
)

// Stream is the virtual stream made of all segments.
type Stream struct {
	segments []*segment

	// size is always the sum of all segment lengths.
	size int64

	// pos is the absolute position in the stream.
	pos int64

	// active is the index of the segment pos currently falls into.
	active int

	// atEOF is latched by a read that could not be satisfied
	// because the end was reached. Only Seek clears it.
	atEOF bool
}

// Open creates a new stream out of `sources`. Raw bytes are copied into
// backing streams owned by the returned Stream, streams are used as-is.
// Every source is measured; the stream starts at position zero.
func Open(opts Options, sources ...Source) (*Stream, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	s := &Stream{
		segments: make([]*segment, 0, len(sources)),
	}

	for idx, src := range sources {
		seg, err := src.materialize(opts)
		if err != nil {
			// Do not leak what we allocated so far:
			if len(s.segments) > 0 {
				if closeErr := s.Close(); closeErr != nil {
					log.WithError(closeErr).Warnf("failed to release segments")
				}
			}

			return nil, e.Wrapf(err, "source %d", idx)
		}

		s.segments = append(s.segments, seg)
		s.size += seg.length
	}

	log.WithFields(log.Fields{
		"segments": len(s.segments),
		"size":     s.size,
	}).Debugf("opened composite stream")

	return s, nil
}

func (s *Stream) check() error {
	if s == nil || len(s.segments) == 0 {
		return ErrNotOpen
	}

	return nil
}

// locate finds the segment that contains the absolute offset `pos`
// and the offset inside of it, walking from the first segment.
// The end of the stream belongs to the end of the last segment.
func (s *Stream) locate(pos int64) (int, int64) {
	rest := pos
	for idx, seg := range s.segments {
		if rest < seg.length {
			return idx, rest
		}

		rest -= seg.length
	}

	last := len(s.segments) - 1
	return last, s.segments[last].length
}

// moveTo sets the global position and re-derives the active segment.
func (s *Stream) moveTo(pos int64) {
	idx, cursor := s.locate(pos)
	s.pos = pos
	s.active = idx
	s.segments[idx].moveTo(cursor)
}

// fault rolls back a read that started at `start`.
func (s *Stream) fault(start int64, err error, format string, args ...interface{}) error {
	wrapped := e.Wrapf(ErrSegmentFault, format+": %v", append(args, err)...)
	log.WithError(err).WithField("segment", s.active).Debugf("read failed")

	s.moveTo(start)
	return wrapped
}

// Read reads up to len(p) bytes from the current position, crossing
// segment borders as needed. A read that hits the end of the stream
// before filling `p` latches EOF and returns what it got; once latched,
// Read returns io.EOF until the next Seek. Filling `p` exactly up to the
// end does not latch EOF, but any further read does.
func (s *Stream) Read(p []byte) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}

	if s.atEOF {
		return 0, io.EOF
	}

	if len(p) == 0 {
		// Probing the end still counts as an attempt to read past it.
		if s.pos >= s.size {
			s.atEOF = true
		}

		return 0, nil
	}

	start := s.pos
	n := 0

	for {
		seg := s.segments[s.active]
		chunk := util.Min64(int64(len(p)-n), seg.length-seg.cursor)

		if chunk > 0 {
			if err := seg.sync(); err != nil {
				return 0, s.fault(start, err, "segment %d: rewind", s.active)
			}

			m, err := io.ReadFull(seg.handle, p[n:n+int(chunk)])
			if err != nil {
				seg.synced = false
				return 0, s.fault(start, err, "segment %d", s.active)
			}

			n += m
			seg.cursor += int64(m)
			s.pos += int64(m)
		}

		if s.pos >= s.size {
			if n < len(p) {
				s.atEOF = true
				if n == 0 {
					return 0, io.EOF
				}
			}

			return n, nil
		}

		if n == len(p) {
			return n, nil
		}

		if s.active+1 >= len(s.segments) {
			return 0, s.fault(start, io.ErrUnexpectedEOF, "segment table ends at %d of %d bytes", s.pos, s.size)
		}

		s.active++
		s.segments[s.active].moveTo(0)
	}
}

// Write writes `p` into the active segment at the current position.
// A write never spans segments: writing over the end of the active segment
// makes it (and the stream) grow. The position alone determines the active
// segment, so a write that starts exactly at the border between two segments
// goes into the later one, the same segment a Seek there would select.
// On failure zero bytes are reported and the positions stay as they were.
//
// Write does not clear a latched EOF.
func (s *Stream) Write(p []byte) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}

	if len(p) == 0 {
		return 0, nil
	}

	if seg := s.segments[s.active]; seg.cursor >= seg.length {
		s.moveTo(s.pos)
	}

	idx := s.active
	seg := s.segments[idx]

	w, ok := seg.writer()
	if !ok {
		return 0, e.Wrapf(ErrWriteRejected, "segment %d is read-only", idx)
	}

	if err := seg.sync(); err != nil {
		return 0, e.Wrapf(ErrWriteRejected, "segment %d: %v", idx, err)
	}

	n, err := w.Write(p)
	if err != nil {
		// The handle might have moved anyways:
		seg.synced = false
		return 0, e.Wrapf(ErrWriteRejected, "segment %d: %v", idx, err)
	}

	cursor, err := seg.handle.Seek(0, io.SeekCurrent)
	if err != nil {
		cursor = seg.cursor + int64(n)
		seg.synced = false
	}

	s.pos += cursor - seg.cursor
	seg.cursor = cursor

	if seg.cursor > seg.length {
		grow := seg.cursor - seg.length
		seg.length += grow
		s.size += grow
	}

	return n, nil
}

// Seek implements io.Seeker. Targets after the end are clamped to the end.
// A successful seek always clears a latched EOF. Negative targets and
// unknown whence values fail without changing anything.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = s.pos + offset
	case io.SeekEnd:
		target = s.size + offset
	default:
		return s.pos, ErrInvalidWhence
	}

	if target < 0 {
		return s.pos, ErrNegativeSeek
	}

	s.atEOF = false
	s.moveTo(util.Min64(target, s.size))
	return s.pos, nil
}

// Tell returns the absolute position in the stream.
// A closed or never opened stream is always at position zero.
func (s *Stream) Tell() int64 {
	if s == nil {
		return 0
	}

	return s.pos
}

// EOF tells if the last read ran into the end of the stream.
// It does not compare the position to the size.
// A closed or never opened stream never reports EOF.
func (s *Stream) EOF() bool {
	if s == nil {
		return false
	}

	return s.atEOF
}

// Size returns the sum of all segment lengths,
// or zero for a closed or never opened stream.
func (s *Stream) Size() int64 {
	if s == nil {
		return 0
	}

	return s.size
}

// Stat is file metadata for a stream. There is no file behind a composite
// stream, so everything except Size is always zero.
type Stat struct {
	Dev     uint64
	Ino     uint64
	Mode    uint32
	Nlink   uint64
	UID     uint32
	GID     uint32
	Rdev    uint64
	Size    int64
	Atime   time.Time
	Mtime   time.Time
	Ctime   time.Time
	Blksize int64
	Blocks  int64
}

// Stat returns the metadata of the stream.
func (s *Stream) Stat() (Stat, error) {
	if err := s.check(); err != nil {
		return Stat{}, err
	}

	return Stat{Size: s.size}, nil
}

// Segments returns a description of the segment table.
func (s *Stream) Segments() []SegmentInfo {
	if s.check() != nil {
		return nil
	}

	infos := make([]SegmentInfo, 0, len(s.segments))
	offset := int64(0)

	for idx, seg := range s.segments {
		_, writable := seg.writer()
		infos = append(infos, SegmentInfo{
			Index:    idx,
			Offset:   offset,
			Length:   seg.length,
			Owned:    seg.owned,
			Spilled:  seg.spilled,
			Writable: writable,
		})

		offset += seg.length
	}

	return infos
}

// WriteTo implements io.WriterTo by reading until EOF.
func (s *Stream) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, 32*1024)
	written := int64(0)

	for {
		n, err := s.Read(buf)
		if n > 0 {
			m, wErr := w.Write(buf[:n])
			written += int64(m)
			if wErr != nil {
				return written, wErr
			}
		}

		if err == io.EOF {
			return written, nil
		}

		if err != nil {
			return written, err
		}
	}
}

// Close releases all backing streams created by Open.
// Streams passed by the caller are left open.
func (s *Stream) Close() error {
	if err := s.check(); err != nil {
		return err
	}

	var err error
	for idx, seg := range s.segments {
		if seg.release == nil {
			continue
		}

		err = multierr.Append(err, e.Wrapf(seg.release(), "segment %d", idx))
	}

	s.segments = nil
	s.size, s.pos, s.active = 0, 0, 0
	s.atEOF = false
	return err
}
