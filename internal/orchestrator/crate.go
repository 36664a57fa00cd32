package orchestrator

import (
	"path/filepath"

	"github.com/zjrosen/bolt/internal/buildmode"
)

// RemoteSource locates a crate in a git repository. Subpath, when set, is
// the crate root relative to the repository root.
type RemoteSource struct {
	URL     string
	Subpath string
}

// Crate is a Rust crate compiled to a dynamic library.
// When both Remote and Path are set, development mode builds from Path and
// release mode builds from Remote.
type Crate struct {
	Name   string
	Remote *RemoteSource
	Path   string
}

// HasRemote reports whether the crate has a usable remote source.
func (c Crate) HasRemote() bool {
	return c.Remote != nil && c.Remote.URL != ""
}

// HasPath reports whether the crate has a local path.
func (c Crate) HasPath() bool {
	return c.Path != ""
}

// Validate checks that the crate can be built from somewhere.
func (c Crate) Validate() error {
	if c.Name == "" || (!c.HasRemote() && !c.HasPath()) {
		return &Error{Kind: ErrInvalidCrate, Crate: c.Name}
	}
	return nil
}

// SourceKind says where a build takes its source from.
type SourceKind string

const (
	SourceRemote SourceKind = "remote"
	SourceLocal  SourceKind = "local"
)

// Plan describes how a crate is built under a given mode and cache root.
type Plan struct {
	Crate  Crate
	Source SourceKind
	// Origin is the repository URL or the local path.
	Origin string
	// CheckoutDir is where a remote crate is cloned. Empty for local builds.
	CheckoutDir string
	// SourceDir is the directory holding the Cargo.toml that gets compiled.
	SourceDir string
	// CompileMode is the mode the compiler runs in for this crate.
	CompileMode buildmode.Mode
	// TargetDir is the shared cargo target directory.
	TargetDir string
	// Artifact is where the compiled library lands.
	Artifact string
}

// planFor resolves the source for c. Precedence: both sources pick local in
// development and remote in release; a remote-only crate always builds from
// remote; a path-only crate builds locally in the current mode. Remote builds
// always compile in release mode.
func planFor(c Crate, mode buildmode.Mode, root, libName string) Plan {
	p := Plan{
		Crate:     c,
		TargetDir: filepath.Join(root, libDir),
	}

	useLocal := false
	switch {
	case c.HasRemote() && c.HasPath():
		useLocal = mode == buildmode.Development
	case c.HasRemote():
		useLocal = false
	default:
		useLocal = true
	}

	if useLocal {
		p.Source = SourceLocal
		p.Origin = c.Path
		p.SourceDir = c.Path
		p.CompileMode = mode
	} else {
		p.Source = SourceRemote
		p.Origin = c.Remote.URL
		p.CheckoutDir = filepath.Join(root, srcDir, c.Name)
		p.SourceDir = p.CheckoutDir
		if c.Remote.Subpath != "" {
			p.SourceDir = filepath.Join(p.CheckoutDir, c.Remote.Subpath)
		}
		p.CompileMode = buildmode.Release
	}

	p.Artifact = filepath.Join(p.TargetDir, p.CompileMode.Profile(), libName)
	return p
}
