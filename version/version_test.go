package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	oldMinor, oldType, oldRev := Minor, ReleaseType, GitRev
	defer func() {
		Minor, ReleaseType, GitRev = oldMinor, oldType, oldRev
	}()

	Minor, ReleaseType, GitRev = "3", "", ""
	require.Equal(t, "v0.3.0", String())

	ReleaseType, GitRev = "alpha", "0123456789abcdef"
	require.Equal(t, "v0.3.0-alpha+0123456", String())

	major, minor, patch := Numbers()
	require.Equal(t, []int{0, 3, 0}, []int{major, minor, patch})
}
