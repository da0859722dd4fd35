package wrapper

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/sahib/catio/mio/composite"

	e "github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func withRegistry(t *testing.T, fn func(r *Registry)) {
	r := NewRegistry("catio", composite.Options{})
	defer func() {
		r.CloseAll()
		require.Equal(t, 0, r.Len())
	}()

	fn(r)
}

func TestHandleString(t *testing.T) {
	h := Handle{Scheme: "catio", ID: 42}
	require.Equal(t, "catio://42", h.String())

	parsed, err := ParseHandle(h.String())
	require.Nil(t, err)
	require.Equal(t, h, parsed)

	for _, bad := range []string{"", "catio", "://1", "catio://", "catio://-1", "catio://x"} {
		_, err := ParseHandle(bad)
		require.Equal(t, ErrBadHandle, e.Cause(err), bad)
	}
}

func TestScenario(t *testing.T) {
	withRegistry(t, func(r *Registry) {
		h, err := r.Open(composite.FromString("abc"), composite.FromString("defgh"))
		require.Nil(t, err)
		require.Equal(t, "catio", h.Scheme)

		st, err := r.Stat(h)
		require.Nil(t, err)
		require.Equal(t, int64(8), st.Size)

		data, err := r.Read(h, 4)
		require.Nil(t, err)
		require.Equal(t, []byte("abcd"), data)

		pos, err := r.Tell(h)
		require.Nil(t, err)
		require.Equal(t, int64(4), pos)

		data, err = r.Read(h, 10)
		require.Nil(t, err)
		require.Equal(t, []byte("efgh"), data)

		eof, err := r.EOF(h)
		require.Nil(t, err)
		require.True(t, eof)

		data, err = r.Read(h, 10)
		require.Nil(t, err)
		require.Empty(t, data)

		ok, err := r.Seek(h, 2, io.SeekStart)
		require.Nil(t, err)
		require.True(t, ok)

		eof, err = r.EOF(h)
		require.Nil(t, err)
		require.False(t, eof)

		data, err = r.Read(h, 3)
		require.Nil(t, err)
		require.Equal(t, []byte("cde"), data)
	})
}

func TestDegradedResults(t *testing.T) {
	withRegistry(t, func(r *Registry) {
		h, err := r.Open(composite.FromStream(bytes.NewReader([]byte("XY"))))
		require.Nil(t, err)

		n, err := r.Write(h, []byte("Z"))
		require.Nil(t, err)
		require.Equal(t, 0, n)

		ok, err := r.Seek(h, 0, 1337)
		require.Nil(t, err)
		require.False(t, ok)

		ok, err = r.Seek(h, -1, io.SeekStart)
		require.Nil(t, err)
		require.False(t, ok)

		data, err := r.Read(h, 0)
		require.Nil(t, err)
		require.Empty(t, data)

		data, err = r.Read(h, 10)
		require.Nil(t, err)
		require.Equal(t, []byte("XY"), data)
	})
}

func TestWrite(t *testing.T) {
	withRegistry(t, func(r *Registry) {
		h, err := r.Open(composite.FromString("XY"))
		require.Nil(t, err)

		n, err := r.Write(h, []byte("Z"))
		require.Nil(t, err)
		require.Equal(t, 1, n)

		st, err := r.Stat(h)
		require.Nil(t, err)
		require.Equal(t, int64(2), st.Size)

		ok, err := r.Seek(h, 0, io.SeekStart)
		require.Nil(t, err)
		require.True(t, ok)

		data, err := r.Read(h, 2)
		require.Nil(t, err)
		require.Equal(t, []byte("ZY"), data)
	})
}

func TestSeekReportsChange(t *testing.T) {
	withRegistry(t, func(r *Registry) {
		h, err := r.Open(composite.FromString("abc"), composite.FromString("defgh"))
		require.Nil(t, err)

		// Already at the start:
		changed, err := r.Seek(h, 0, io.SeekStart)
		require.Nil(t, err)
		require.False(t, changed)

		changed, err = r.Seek(h, 100, io.SeekStart)
		require.Nil(t, err)
		require.True(t, changed)

		pos, err := r.Tell(h)
		require.Nil(t, err)
		require.Equal(t, int64(8), pos)

		// Clamped to the end, where the stream already is:
		changed, err = r.Seek(h, 50, io.SeekCurrent)
		require.Nil(t, err)
		require.False(t, changed)

		// The latch is still cleared by a seek that did not move:
		data, err := r.Read(h, 1)
		require.Nil(t, err)
		require.Empty(t, data)

		eof, err := r.EOF(h)
		require.Nil(t, err)
		require.True(t, eof)

		changed, err = r.Seek(h, 0, io.SeekEnd)
		require.Nil(t, err)
		require.False(t, changed)

		eof, err = r.EOF(h)
		require.Nil(t, err)
		require.False(t, eof)

		changed, err = r.Seek(h, -3, io.SeekCurrent)
		require.Nil(t, err)
		require.True(t, changed)

		pos, err = r.Tell(h)
		require.Nil(t, err)
		require.Equal(t, int64(5), pos)
	})
}

func TestUnknownHandle(t *testing.T) {
	withRegistry(t, func(r *Registry) {
		h, err := r.Open(composite.FromString("abc"))
		require.Nil(t, err)
		require.Nil(t, r.Close(h))

		_, err = r.Read(h, 1)
		require.Equal(t, ErrUnknownHandle, e.Cause(err))

		_, err = r.Write(h, []byte("x"))
		require.Equal(t, ErrUnknownHandle, e.Cause(err))

		_, err = r.Seek(h, 0, io.SeekStart)
		require.Equal(t, ErrUnknownHandle, e.Cause(err))

		_, err = r.Tell(h)
		require.Equal(t, ErrUnknownHandle, e.Cause(err))

		_, err = r.EOF(h)
		require.Equal(t, ErrUnknownHandle, e.Cause(err))

		_, err = r.Stat(h)
		require.Equal(t, ErrUnknownHandle, e.Cause(err))

		_, err = r.Segments(h)
		require.Equal(t, ErrUnknownHandle, e.Cause(err))

		require.Equal(t, ErrUnknownHandle, e.Cause(r.Close(h)))

		// Same ID, but another scheme:
		other := NewRegistry("other", composite.Options{})
		h2, err := other.Open(composite.FromString("abc"))
		require.Nil(t, err)
		defer other.CloseAll()

		_, err = r.Read(Handle{Scheme: "other", ID: h2.ID}, 1)
		require.Equal(t, ErrUnknownHandle, e.Cause(err))
	})
}

func TestStream(t *testing.T) {
	withRegistry(t, func(r *Registry) {
		h, err := r.Open(composite.FromString("abc"), composite.FromString("defgh"))
		require.Nil(t, err)

		ok, err := r.Seek(h, 2, io.SeekStart)
		require.Nil(t, err)
		require.True(t, ok)

		stream, err := r.Stream(h)
		require.Nil(t, err)

		buf := &bytes.Buffer{}
		_, err = io.Copy(buf, stream)
		require.Nil(t, err)
		require.Equal(t, "cdefgh", buf.String())
		atEOF, err := r.EOF(h)
		require.Nil(t, err)
		require.True(t, atEOF)

		require.Nil(t, r.Close(h))
		_, err = r.Stream(h)
		require.Equal(t, ErrUnknownHandle, e.Cause(err))
	})
}

func TestOpenFailure(t *testing.T) {
	withRegistry(t, func(r *Registry) {
		_, err := r.Open()
		require.Equal(t, composite.ErrNoSources, err)
		require.Equal(t, 0, r.Len())
	})
}

func TestIDsIncrease(t *testing.T) {
	a := NewRegistry("a", composite.Options{})
	b := NewRegistry("b", composite.Options{})
	defer a.CloseAll()
	defer b.CloseAll()

	last := uint64(0)
	for i := 0; i < 10; i++ {
		reg := a
		if i%2 == 1 {
			reg = b
		}

		h, err := reg.Open(composite.FromString("x"))
		require.Nil(t, err)
		require.True(t, h.ID > last)
		last = h.ID
	}
}

func TestConcurrentOpen(t *testing.T) {
	withRegistry(t, func(r *Registry) {
		wg := &sync.WaitGroup{}
		ids := make([]uint64, 100)

		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				h, err := r.Open(composite.FromString("x"))
				if err == nil {
					ids[i] = h.ID
				}
			}(i)
		}

		wg.Wait()

		seen := make(map[uint64]bool)
		for _, id := range ids {
			require.NotZero(t, id)
			require.False(t, seen[id], "duplicate id %d", id)
			seen[id] = true
		}

		require.Equal(t, 100, r.Len())
	})
}
