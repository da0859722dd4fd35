package chunkbuf

import (
	"bytes"
	"io"
	"testing"

	"github.com/sahib/catio/util/testutil"
	"github.com/stretchr/testify/require"
)

func TestChunkBufBasic(t *testing.T) {
	data := testutil.CreateDummyBuf(1024)
	buf := NewChunkBuffer(data)

	copiedData, err := io.ReadAll(buf)
	require.Nil(t, err)
	require.Equal(t, data, copiedData)
}

func TestChunkBufEOF(t *testing.T) {
	data := testutil.CreateDummyBuf(1024)
	buf := NewChunkBuffer(data)

	cache := make([]byte, 2048)
	n, err := buf.Read(cache)
	require.Nil(t, err)
	require.Equal(t, 1024, n)

	n, err = buf.Read(cache)
	require.Equal(t, io.EOF, err)
	require.Equal(t, 0, n)
	require.Nil(t, buf.Close())
}

func TestChunkBufWriteTo(t *testing.T) {
	data := testutil.CreateDummyBuf(1024)
	buf := NewChunkBuffer(data)

	stdBuf := &bytes.Buffer{}
	n, err := buf.WriteTo(stdBuf)
	require.Nil(t, err)
	require.Equal(t, int64(1024), n)
	require.Equal(t, data, stdBuf.Bytes())
	require.Equal(t, 0, buf.Len())
}

func TestChunkBufSeek(t *testing.T) {
	data := testutil.CreateDummyBuf(1024)
	buf := NewChunkBuffer(data)

	cache := make([]byte, 128)
	n, err := buf.Read(cache)
	require.Nil(t, err)
	require.Equal(t, 128, n)
	require.Equal(t, data[:n], cache[:n])

	jumpedTo, err := buf.Seek(256, io.SeekStart)
	require.Nil(t, err)
	require.Equal(t, int64(256), jumpedTo)

	n, err = buf.Read(cache)
	require.Nil(t, err)
	require.Equal(t, 128, n)
	require.Equal(t, data[256:n+256], cache[:n])

	// read advanced by 128, add 128 to go to 512
	jumpedTo, err = buf.Seek(128, io.SeekCurrent)
	require.Nil(t, err)
	require.Equal(t, int64(512), jumpedTo)

	jumpedTo, err = buf.Seek(-128, io.SeekEnd)
	require.Nil(t, err)
	require.Equal(t, int64(896), jumpedTo)

	n, err = buf.Read(cache)
	require.Nil(t, err)
	require.Equal(t, 128, n)
	require.Equal(t, data[896:n+896], cache[:n])

	_, err = buf.Seek(-1, io.SeekStart)
	require.Equal(t, ErrNegativeOffset, err)

	_, err = buf.Seek(0, 42)
	require.Equal(t, ErrBadWhence, err)
}

func TestChunkBufWrite(t *testing.T) {
	data := testutil.CreateDummyBuf(1024)
	ref := testutil.CreateDummyBuf(1024)
	buf := NewChunkBuffer(data)

	ref[0] = 1
	ref[1] = 2
	ref[2] = 3

	n, err := buf.Write([]byte{1, 2, 3})
	require.Nil(t, err)
	require.Equal(t, 3, n)

	jumpedTo, err := buf.Seek(-1, io.SeekEnd)
	require.Nil(t, err)
	require.Equal(t, int64(1023), jumpedTo)

	// Writing over the end grows the buffer:
	ref[1023] = 255
	ref = append(ref, 255, 255)

	n, err = buf.Write([]byte{255, 255, 255})
	require.Nil(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, int64(1026), buf.Size())

	jumpedTo, err = buf.Seek(0, io.SeekStart)
	require.Nil(t, err)
	require.Equal(t, int64(0), jumpedTo)

	stdBuf := &bytes.Buffer{}
	nWriteTo, err := buf.WriteTo(stdBuf)
	require.Nil(t, err)
	require.Equal(t, int64(1026), nWriteTo)
	require.Equal(t, ref, stdBuf.Bytes())
}

func TestChunkBufWriteAfterGap(t *testing.T) {
	buf := NewChunkBuffer([]byte("xxxxxx"))
	buf.Reset()

	_, err := buf.Seek(2, io.SeekStart)
	require.Nil(t, err)

	_, err = buf.Write([]byte("ab"))
	require.Nil(t, err)
	require.Equal(t, []byte{0, 0, 'a', 'b'}, buf.Bytes())
}

func TestChunkBufSharedBytes(t *testing.T) {
	buf := NewChunkBuffer([]byte("hello"))

	// The caller sees writes done through the buffer:
	shared := buf.Bytes()
	_, err := buf.Write([]byte("J"))
	require.Nil(t, err)
	require.Equal(t, "Jello", string(shared))

	// ...and the buffer sees writes through the slice.
	shared[1] = 'E'
	_, err = buf.Seek(0, io.SeekStart)
	require.Nil(t, err)

	out, err := io.ReadAll(buf)
	require.Nil(t, err)
	require.Equal(t, "JEllo", string(out))
}
