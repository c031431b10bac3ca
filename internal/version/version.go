package version

import (
	"runtime/debug"
)

const release = "1.0.0"

// Version returns the release string, with the git revision appended when
// the binary's build info carries one.
func Version() string {
	rev := runtimeVersion()
	if rev == "" {
		return release
	}
	if len(rev) > 8 {
		rev = rev[:8]
	}
	return release + " (" + rev + ")"
}

// runtimeVersion searches the buildinfo built into the binary to find and
// return the git revision, if present. Returns an empty string otherwise.
func runtimeVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for i := range bi.Settings {
		if bi.Settings[i].Key == "vcs.revision" {
			return bi.Settings[i].Value
		}
	}
	return ""
}
