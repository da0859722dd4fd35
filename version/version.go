// Package version holds the version of catio. The values are meant to be
// overwritten at build time via -ldflags "-X".
package version

import (
	"fmt"
	"strconv"
)

var (
	// Major will be incremented on incompatible API changes.
	Major = "0"
	// Minor will be incremented when features are added.
	Minor = "1"
	// Patch should be incremented on every released fix.
	Patch = "0"
	// ReleaseType is "beta", "alpha" or "" for final releases
	ReleaseType = "beta"
	// GitRev is the current HEAD of git of this release
	GitRev = ""
	// BuildTime is the ISO8601 timestamp of the current build
	BuildTime = ""
)

func parseVersionNum(v, what string) int {
	if v == "" {
		return 0
	}

	num, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("cannot parse %s version: %v", what, err))
	}

	return num
}

// Numbers returns a tuple of (major, minor, patch)
func Numbers() (int, int, int) {
	return parseVersionNum(Major, "major"),
		parseVersionNum(Minor, "minor"),
		parseVersionNum(Patch, "patch")
}

// String returns a vMaj.Min.Patch[-type][+rev] string.
func String() string {
	major, minor, patch := Numbers()
	base := fmt.Sprintf("v%d.%d.%d", major, minor, patch)
	if ReleaseType != "" {
		base += "-" + ReleaseType
	}

	if len(GitRev) >= 7 {
		base += "+" + GitRev[:7]
	}

	return base
}
