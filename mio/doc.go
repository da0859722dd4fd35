// Package mio (short for memory input/output) implements the io stack
// of catio. This includes currently three major parts:
//
// - chunkbuf  - A single growable in-memory buffer with file-like seeking.
// - overlay   - In-Memory write overlay over a io.ReadSeeker with seek support.
// - composite - Many buffers and streams glued together to one seekable stream.
//
// This package itself contains utils that work on top of all of them.
package mio
