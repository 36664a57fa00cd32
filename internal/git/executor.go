package git

import "context"

// GitExecutor defines the git operations bolt needs to obtain crate sources.
// This abstraction allows for easy testing with mock implementations.
type GitExecutor interface {
	// Fetch makes dest a checkout of url. A missing dest is cloned; an
	// existing checkout is fast-forwarded with pull.
	Fetch(ctx context.Context, url, dest string) error

	// Revision returns the full HEAD commit hash of the checkout at dir.
	Revision(ctx context.Context, dir string) (string, error)

	// Version runs `git --version` and returns its output.
	Version(ctx context.Context) (string, error)

	// Name is the git binary this executor runs.
	Name() string
}
