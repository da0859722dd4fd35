package testutil

import (
	"math/rand"
	"os"
	"testing"
)

// CreateDummyBuf creates a byte slice that is `size` big.
// It's filled with the repeating numbers [0...254].
func CreateDummyBuf(size int64) []byte {
	buf := make([]byte, size)

	for i := int64(0); i < size; i++ {
		// Be evil and stripe the data:
		buf[i] = byte(i % 255)
	}

	return buf
}

// CreateRandomDummyBuf creates data that is hard to guess, but the same for
// every `seed`.
func CreateRandomDummyBuf(size, seed int64) []byte {
	buf := make([]byte, size)
	rng := rand.New(rand.NewSource(seed))
	for i := range buf {
		buf[i] = byte(rng.Intn(256))
	}

	return buf
}

// CreateFile creates a temporary file in the systems tmp-folder.
// The file will be `size` bytes big, filled with content from CreateDummyBuf.
func CreateFile(size int64) string {
	fd, err := os.CreateTemp("", "catio_test")
	if err != nil {
		panic("Cannot create temp file")
	}

	if _, err := fd.Write(CreateDummyBuf(size)); err != nil {
		panic(err)
	}

	if err := fd.Close(); err != nil {
		return ""
	}

	return fd.Name()
}

// OpenFile creates a temp file with `data` in it and opens it read-write.
// The file is closed and removed once the test is over.
func OpenFile(t *testing.T, data []byte) *os.File {
	fd, err := os.CreateTemp("", "catio_test")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	t.Cleanup(func() {
		fd.Close()
		Remover(t, fd.Name())
	})

	if _, err := fd.Write(data); err != nil {
		t.Fatalf("failed to fill temp file: %v", err)
	}

	return fd
}

// Remover removes all files in paths recursively and errors when it fails.
// It is no error if there's nothing to delete. It's useful in defer statements.
func Remover(t *testing.T, paths ...string) {
	for _, path := range paths {
		if err := os.RemoveAll(path); err != nil {
			t.Errorf("removing temp directory failed: %v", err)
		}
	}
}
