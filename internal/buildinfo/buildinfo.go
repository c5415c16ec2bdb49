// Package buildinfo resolves the short build hash stamped into the
// submission client's User-Agent and client_version fields.
package buildinfo

import "os"

// Version is the semantic client version; overridden at link time via
// -ldflags "-X .../buildinfo.Version=...".
var Version = "dev"

// Hash resolves a 12-hex-char build identifier from GIT_COMMIT or
// GITHUB_SHA, falling back to "unknown" per spec §6.
func Hash() string {
	for _, env := range []string{"GIT_COMMIT", "GITHUB_SHA"} {
		if v := os.Getenv(env); v != "" {
			if len(v) > 12 {
				return v[:12]
			}
			return v
		}
	}
	return "unknown"
}

// UserAgent formats the leaderboard client's User-Agent string.
func UserAgent() string {
	return "galleryofbabel/" + Version + " (" + Hash() + ")"
}
