// Package overlay implements an in-memory write layer over a read-only
// io.ReadSeeker. Writes never reach the underlying stream; reads deliver
// the underlying data with all writes zipped on top of it.
package overlay

import (
	"errors"
	"io"
	"slices"
	"sort"

	"github.com/sahib/catio/util"
)

var (
	// ErrNegativeOffset is returned when seeking before the start.
	ErrNegativeOffset = errors.New("overlay: negative offset")
	// ErrBadWhence is returned when seeking with an unknown whence.
	ErrBadWhence = errors.New("overlay: invalid whence")
)

// patch is a single cached write covering [off, off+len(data)).
type patch struct {
	off  int64
	data []byte
}

func (p *patch) end() int64 {
	return p.off + int64(len(p.data))
}

// absorb takes over the parts of `older` that `p` does not cover.
// Both must touch or overlap; where they overlap `p` wins.
// `older` is unusable afterwards.
func (p *patch) absorb(older *patch) {
	if older.end() < p.off || p.end() < older.off {
		return
	}

	if older.off < p.off {
		// Full slice expression, so append has to copy:
		k := p.off - older.off
		p.data = append(older.data[:k:k], p.data...)
		p.off = older.off
	}

	if tail := older.end() - p.end(); tail > 0 {
		p.data = append(p.data, older.data[int64(len(older.data))-tail:]...)
	}

	older.data = nil
}

// patchIndex keeps non-overlapping patches sorted by offset.
// Patches that touch or overlap are merged on insert.
type patchIndex struct {
	patches []*patch

	// max is the highest end offset ever added.
	max int64
}

func (pi *patchIndex) add(p *patch) {
	if end := p.end(); end > pi.max {
		pi.max = end
	}

	// First patch that ends at or after our start...
	lo := sort.Search(len(pi.patches), func(i int) bool {
		return pi.patches[i].end() >= p.off
	})

	// ...and the first one that starts after our end.
	hi := sort.Search(len(pi.patches), func(i int) bool {
		return pi.patches[i].off > p.end()
	})

	for _, older := range pi.patches[lo:hi] {
		p.absorb(older)
	}

	pi.patches = slices.Replace(pi.patches, lo, hi, p)
}

// overlapping returns all patches that intersect [start, end).
func (pi *patchIndex) overlapping(start, end int64) []*patch {
	lo := sort.Search(len(pi.patches), func(i int) bool {
		return pi.patches[i].end() > start
	})

	hi := sort.Search(len(pi.patches), func(i int) bool {
		return pi.patches[i].off >= end
	})

	if hi < lo {
		return nil
	}

	return pi.patches[lo:hi]
}

// covers tells if `patches` leave no byte of [start, end) uncovered.
// The patches have to be sorted and disjoint.
func covers(patches []*patch, start, end int64) bool {
	missing := end - start
	for _, p := range patches {
		if covered := util.Min64(p.end(), end) - util.Max64(p.off, start); covered > 0 {
			missing -= covered
		}
	}

	return missing <= 0
}

// Layer is a io.ReadWriteSeeker that takes an underlying ReadSeeker
// and caches writes on top of it.
type Layer struct {
	index    *patchIndex
	r        io.ReadSeeker
	pos      int64
	baseSize int64
}

// NewLayer returns a new in memory layer over `r`.
// The size of `r` is measured once; `r` is rewound to the start.
func NewLayer(r io.ReadSeeker) (*Layer, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	return &Layer{
		index:    &patchIndex{},
		r:        r,
		baseSize: size,
	}, nil
}

// Size returns the logical size of the layer: the underlying size,
// possibly extended by writes.
func (l *Layer) Size() int64 {
	return util.Max64(l.baseSize, l.index.max)
}

// Write caches a copy of `buf` at the current position.
func (l *Layer) Write(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	l.index.add(&patch{off: l.pos, data: append([]byte(nil), buf...)})
	l.pos += int64(len(buf))
	return len(buf), nil
}

// Read delivers the underlying data with the cached writes on top.
// Gaps between the underlying end and later writes read as zeros.
func (l *Layer) Read(buf []byte) (int, error) {
	size := l.Size()
	if l.pos >= size {
		if len(buf) == 0 {
			return 0, nil
		}

		return 0, io.EOF
	}

	if rest := size - l.pos; rest < int64(len(buf)) {
		buf = buf[:rest]
	}

	start, end := l.pos, l.pos+int64(len(buf))
	patches := l.index.overlapping(start, end)

	if !covers(patches, start, end) {
		fromBase := util.Max64(0, util.Min64(end, l.baseSize)-start)
		if fromBase > 0 {
			// The underlying stream is shared; never trust its position.
			if _, err := l.r.Seek(start, io.SeekStart); err != nil {
				return 0, err
			}

			if _, err := io.ReadFull(l.r, buf[:fromBase]); err != nil {
				return 0, err
			}
		}

		clear(buf[fromBase:])
	}

	for _, p := range patches {
		lo, hi := util.Max64(p.off, start), util.Min64(p.end(), end)
		copy(buf[lo-start:hi-start], p.data[lo-p.off:hi-p.off])
	}

	l.pos = end
	return len(buf), nil
}

// Seek remembers the new position. The underlying stream is only
// repositioned on the next read.
func (l *Layer) Seek(offset int64, whence int) (int64, error) {
	var newPos int64

	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = l.pos + offset
	case io.SeekEnd:
		newPos = l.Size() + offset
	default:
		return l.pos, ErrBadWhence
	}

	if newPos < 0 {
		return l.pos, ErrNegativeOffset
	}

	l.pos = newPos
	return l.pos, nil
}

// Close forgets all writes. The underlying stream is not closed,
// it belongs to whoever passed it.
func (l *Layer) Close() error {
	l.index = &patchIndex{}
	return nil
}
