// Package util contains small helpers that would not hurt the simplicity
// of Go if they would be in the builtins/stdlib.
package util

// Min64 returns the minimum of a and b.
func Min64(a, b int64) int64 {
	if a < b {
		return a
	}

	return b
}

// Max64 returns the maximum of a and b.
func Max64(a, b int64) int64 {
	if a < b {
		return b
	}

	return a
}
