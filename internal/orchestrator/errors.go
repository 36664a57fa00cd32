package orchestrator

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by this package is an *Error whose Kind
// is one of these, so callers branch with errors.Is.
var (
	// ErrInvalidCrate indicates a crate descriptor with no name, or with
	// neither a remote source nor a local path.
	ErrInvalidCrate = errors.New("invalid crate: a url or a path needs to be specified")

	// ErrMissingDependency indicates a required toolchain binary is absent or
	// not working.
	ErrMissingDependency = errors.New("missing required runtime dependency")

	// ErrFetch indicates the repository clone or update failed.
	ErrFetch = errors.New("fetching crate source failed")

	// ErrCompile indicates the compiler invocation failed.
	ErrCompile = errors.New("compiling crate failed")

	// ErrFilesystem indicates a directory creation or existence check failed.
	ErrFilesystem = errors.New("filesystem operation failed")

	// ErrNoHomeDir indicates the cache root could not be derived because the
	// home directory variable is unset.
	ErrNoHomeDir = errors.New("could not locate home directory")

	// ErrUnknownCrate indicates a crate name that is not in the crate list.
	ErrUnknownCrate = errors.New("unknown crate")
)

// Error carries the kind of failure plus the crate, binary or path involved.
type Error struct {
	Kind   error
	Crate  string
	Binary string
	Path   string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Crate != "" {
		fmt.Fprintf(&b, ": crate %q", e.Crate)
	}
	if e.Binary != "" {
		fmt.Fprintf(&b, ": %q", e.Binary)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, ": %s", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
