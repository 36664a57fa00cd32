// Package buildmode defines the development/release build mode.
package buildmode

import "strings"

// EnvVar selects the build mode for the process.
const EnvVar = "BOLT"

// Mode is the build mode a crate is compiled in.
type Mode int

const (
	// Release builds are optimized and cached by an existence check.
	Release Mode = iota
	// Development builds are unoptimized and always rebuilt.
	Development
)

func (m Mode) String() string {
	if m == Development {
		return "development"
	}
	return "release"
}

// Profile returns the cargo profile directory the mode's artifacts land in.
func (m Mode) Profile() string {
	if m == Development {
		return "debug"
	}
	return "release"
}

// Parse maps a BOLT value to a Mode. "dev" and "development" select
// Development; anything else, including the empty string, selects Release.
func Parse(value string) Mode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "development":
		return Development
	default:
		return Release
	}
}

// FromEnv derives the mode from BOLT using lookup, typically os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) Mode {
	value, ok := lookup(EnvVar)
	if !ok {
		return Release
	}
	return Parse(value)
}
