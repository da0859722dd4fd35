package composite

import (
	"io"
	"os"

	"github.com/sahib/catio/mio/chunkbuf"
	"github.com/sahib/catio/mio/overlay"

	e "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type sourceKind int

const (
	sourceBytes = sourceKind(iota)
	sourceStream
)

// Source is one piece of data that ends up as segment in a Stream.
// Use FromBytes or FromStream to create one.
type Source struct {
	kind   sourceKind
	data   []byte
	stream io.ReadSeeker
}

// FromBytes creates a source from raw bytes. The bytes are copied on Open,
// so the caller may reuse `data` afterwards.
func FromBytes(data []byte) Source {
	return Source{kind: sourceBytes, data: data}
}

// FromString is FromBytes for strings.
func FromString(s string) Source {
	return FromBytes([]byte(s))
}

// FromStream creates a source from an already opened stream. The stream is
// borrowed: it is read, written and seeked by the composite stream, but it
// is never closed by it. If `rs` also implements io.Writer, writes to this
// segment go to `rs`.
func FromStream(rs io.ReadSeeker) Source {
	return Source{kind: sourceStream, stream: rs}
}

// Options control how sources are turned into segments.
type Options struct {
	// SpillThreshold is the size in bytes from which on raw bytes are
	// materialized into a temporary file instead of memory.
	// A value <= 0 keeps everything in memory.
	SpillThreshold int64

	// TempDir is where spilled segments are stored.
	// Empty means the default temp directory of the system.
	TempDir string

	// OverlayReadOnly wraps streams that cannot be written to into an
	// in-memory write overlay. Without it, writes to them are rejected.
	OverlayReadOnly bool
}

// measure finds out the size of `rs` by seeking to the end
// and rewinds it to the start afterwards.
func measure(rs io.ReadSeeker) (int64, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	return size, nil
}

func spill(data []byte, dir string) (*segment, error) {
	fd, err := os.CreateTemp(dir, "catio-segment-")
	if err != nil {
		return nil, err
	}

	release := func() error {
		closeErr := fd.Close()
		if err := os.Remove(fd.Name()); err != nil {
			return err
		}

		return closeErr
	}

	if _, err := fd.Write(data); err != nil {
		release()
		return nil, err
	}

	log.WithField("path", fd.Name()).Debugf("spilled %d bytes to disk", len(data))
	return &segment{handle: fd, release: release, owned: true, spilled: true}, nil
}

// materialize turns the source into a segment with measured length.
func (src Source) materialize(opts Options) (*segment, error) {
	var seg *segment

	switch src.kind {
	case sourceBytes:
		if opts.SpillThreshold > 0 && int64(len(src.data)) > opts.SpillThreshold {
			spilled, err := spill(src.data, opts.TempDir)
			if err != nil {
				return nil, e.Wrap(err, "spill")
			}

			seg = spilled
			break
		}

		data := make([]byte, len(src.data))
		copy(data, src.data)

		buf := chunkbuf.NewChunkBuffer(data)
		seg = &segment{handle: buf, release: buf.Close, owned: true}
	case sourceStream:
		if src.stream == nil {
			return nil, e.New("nil stream")
		}

		seg = &segment{handle: src.stream}
		if _, ok := src.stream.(io.Writer); !ok && opts.OverlayReadOnly {
			layer, err := overlay.NewLayer(src.stream)
			if err != nil {
				return nil, e.Wrap(err, "overlay")
			}

			// Only the layer is ours; the stream below stays borrowed.
			seg.handle = layer
			seg.release = layer.Close
		}
	default:
		return nil, e.Errorf("bad source kind: %d", src.kind)
	}

	length, err := measure(seg.handle)
	if err != nil {
		if seg.release != nil {
			seg.release()
		}

		return nil, e.Wrap(err, "measure")
	}

	seg.length = length
	seg.synced = true
	return seg, nil
}
