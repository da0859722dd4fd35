// Package wrapper exposes composite streams through a small handle based
// protocol, the way a host dispatch layer would address them.
//
// Every stream opened through a Registry gets a process-unique ID. Faults
// that the composite stream reports as errors are degraded to empty or zero
// results here and logged instead; only handles that were never opened (or
// were closed already) make an operation fail.
package wrapper

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sahib/catio/mio"
	"github.com/sahib/catio/mio/composite"

	e "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrUnknownHandle is returned when a handle does not refer to an open stream.
	ErrUnknownHandle = errors.New("wrapper: unknown handle")
	// ErrBadHandle is returned by ParseHandle on malformed input.
	ErrBadHandle = errors.New("wrapper: malformed handle")
)

// lastID is shared by all registries of the process and never reset.
var lastID uint64

func nextID() uint64 {
	return atomic.AddUint64(&lastID, 1)
}

// Handle addresses a single stream opened by a Registry.
type Handle struct {
	Scheme string
	ID     uint64
}

func (h Handle) String() string {
	return fmt.Sprintf("%s://%d", h.Scheme, h.ID)
}

// ParseHandle is the reverse of Handle.String().
func ParseHandle(s string) (Handle, error) {
	split := strings.SplitN(s, "://", 2)
	if len(split) != 2 || split[0] == "" {
		return Handle{}, e.Wrapf(ErrBadHandle, "%q", s)
	}

	id, err := strconv.ParseUint(split[1], 10, 64)
	if err != nil {
		return Handle{}, e.Wrapf(ErrBadHandle, "%q: %v", s, err)
	}

	return Handle{Scheme: split[0], ID: id}, nil
}

// Registry owns all streams opened for a single scheme.
type Registry struct {
	mu      sync.Mutex
	scheme  string
	opts    composite.Options
	streams map[uint64]*composite.Stream
}

// NewRegistry returns an empty registry for `scheme`.
// `opts` are used for every stream opened through it.
func NewRegistry(scheme string, opts composite.Options) *Registry {
	return &Registry{
		scheme:  scheme,
		opts:    opts,
		streams: make(map[uint64]*composite.Stream),
	}
}

// Scheme returns the scheme all handles of this registry use.
func (r *Registry) Scheme() string {
	return r.scheme
}

// Open creates a new composite stream from `sources`.
func (r *Registry) Open(sources ...composite.Source) (Handle, error) {
	stream, err := composite.Open(r.opts, sources...)
	if err != nil {
		return Handle{}, err
	}

	h := Handle{Scheme: r.scheme, ID: nextID()}

	r.mu.Lock()
	r.streams[h.ID] = stream
	r.mu.Unlock()

	log.WithField("handle", h).Debugf("opened stream")
	return h, nil
}

func (r *Registry) lookup(h Handle) (*composite.Stream, error) {
	if h.Scheme != r.scheme {
		return nil, e.Wrapf(ErrUnknownHandle, "%s: wrong scheme", h)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stream, ok := r.streams[h.ID]
	if !ok {
		return nil, e.Wrapf(ErrUnknownHandle, "%s", h)
	}

	return stream, nil
}

// Len returns the number of open streams.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.streams)
}

// Read returns up to `max` bytes. Reaching the end and read faults both
// result in an empty slice; use EOF() to tell them apart.
func (r *Registry) Read(h Handle, max int) ([]byte, error) {
	stream, err := r.lookup(h)
	if err != nil {
		return nil, err
	}

	if max <= 0 {
		return []byte{}, nil
	}

	buf := make([]byte, max)
	n, err := stream.Read(buf)
	if err != nil && err != io.EOF {
		log.WithError(err).WithField("handle", h).Warnf("read failed")
		return []byte{}, nil
	}

	return buf[:n], nil
}

// Write writes `data` and returns how many bytes were accepted.
// A rejected write yields zero.
func (r *Registry) Write(h Handle, data []byte) (int, error) {
	stream, err := r.lookup(h)
	if err != nil {
		return 0, err
	}

	n, err := stream.Write(data)
	if err != nil {
		log.WithError(err).WithField("handle", h).Warnf("write rejected")
		return 0, nil
	}

	return n, nil
}

// Seek moves the position of `h` and reports whether the position changed.
// A seek that lands where the stream already is (including one clamped to
// the end while being there) still clears the EOF latch but reports false.
// Invalid seeks report false and change nothing.
func (r *Registry) Seek(h Handle, offset int64, whence int) (bool, error) {
	stream, err := r.lookup(h)
	if err != nil {
		return false, err
	}

	old := stream.Tell()
	pos, err := stream.Seek(offset, whence)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"handle": h,
			"offset": offset,
			"whence": whence,
		}).Debugf("seek failed")
		return false, nil
	}

	return pos != old, nil
}

// Tell returns the absolute position of `h`.
func (r *Registry) Tell(h Handle) (int64, error) {
	stream, err := r.lookup(h)
	if err != nil {
		return 0, err
	}

	return stream.Tell(), nil
}

// EOF tells whether the last read of `h` ran into the end.
func (r *Registry) EOF(h Handle) (bool, error) {
	stream, err := r.lookup(h)
	if err != nil {
		return false, err
	}

	return stream.EOF(), nil
}

// Stat returns the metadata of `h`; only the size is set.
func (r *Registry) Stat(h Handle) (composite.Stat, error) {
	stream, err := r.lookup(h)
	if err != nil {
		return composite.Stat{}, err
	}

	return stream.Stat()
}

// Stream gives direct access to the stream behind `h`, for callers that
// want plain io semantics instead of degraded results. The stream stays
// owned by the registry; do not close it.
func (r *Registry) Stream(h Handle) (mio.Stream, error) {
	stream, err := r.lookup(h)
	if err != nil {
		return nil, err
	}

	return stream, nil
}

// Segments describes the segment table of `h`.
func (r *Registry) Segments(h Handle) ([]composite.SegmentInfo, error) {
	stream, err := r.lookup(h)
	if err != nil {
		return nil, err
	}

	return stream.Segments(), nil
}

// Close closes the stream behind `h` and forgets about it.
// Errors while releasing owned resources are logged, not returned.
func (r *Registry) Close(h Handle) error {
	if h.Scheme != r.scheme {
		return e.Wrapf(ErrUnknownHandle, "%s: wrong scheme", h)
	}

	r.mu.Lock()
	stream, ok := r.streams[h.ID]
	delete(r.streams, h.ID)
	r.mu.Unlock()

	if !ok {
		return e.Wrapf(ErrUnknownHandle, "%s", h)
	}

	if err := stream.Close(); err != nil {
		log.WithError(err).WithField("handle", h).Warnf("failed to release stream")
	}

	return nil
}

// CloseAll closes every stream that is still open.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	ids := make([]uint64, 0, len(r.streams))
	for id := range r.streams {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		if err := r.Close(Handle{Scheme: r.scheme, ID: id}); err != nil {
			log.WithError(err).Debugf("close all")
		}
	}
}
