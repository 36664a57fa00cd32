// Package orchestrator turns crate descriptors into compiled dynamic
// libraries in an on-disk cache.
//
// An Orchestrator is constructed once with a crate list and a build mode,
// Init is called to fetch and compile whatever is missing, and Lib returns
// the path a loader should open for a crate.
//
// Cache layout under the root (default ~/.bolt):
//
//	src/<crate>/          cloned remote sources
//	lib/release/<lib>     release artifacts
//	lib/debug/<lib>       development artifacts
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/bolt/internal/buildmode"
	"github.com/zjrosen/bolt/internal/log"
	"github.com/zjrosen/bolt/internal/paths"
	"github.com/zjrosen/bolt/internal/tracing"
)

const (
	// DirName is the cache root's name inside the home directory.
	DirName = ".bolt"

	srcDir = "src"
	libDir = "lib"
)

// Fetcher makes dest a checkout of the repository at url.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

// Compiler compiles the crate in srcDir into a dynamic library under
// targetDir.
type Compiler interface {
	Compile(ctx context.Context, srcDir, targetDir string, mode buildmode.Mode) error
}

// Dependency is an external binary probed at construction.
type Dependency interface {
	Name() string
	Version(ctx context.Context) (string, error)
}

// Options configures an Orchestrator.
type Options struct {
	// Mode is fixed for the lifetime of the Orchestrator.
	Mode buildmode.Mode

	// Root overrides the cache root. Empty means <home>/.bolt.
	Root string

	// Env answers home directory and library naming questions.
	// The zero value means paths.Host().
	Env paths.Env

	Fetcher  Fetcher
	Compiler Compiler

	// Dependencies are probed by New. When nil, the Fetcher and Compiler are
	// probed if they implement Dependency.
	Dependencies []Dependency

	// Recorder, when set, receives a BuildRecord per build attempt.
	Recorder Recorder

	// Tracer, when set, receives init, build, fetch and compile spans.
	Tracer trace.Tracer
}

// Orchestrator owns the crate list and builds it into the cache.
type Orchestrator struct {
	// mu serializes builds started from Init, Build and the watcher.
	mu sync.Mutex

	crates   []Crate
	mode     buildmode.Mode
	root     string
	env      paths.Env
	fetcher  Fetcher
	compiler Compiler
	recorder Recorder
	tracer   trace.Tracer
}

// New validates crates, probes the toolchain and returns an Orchestrator.
// It fails with ErrInvalidCrate before probing anything when a descriptor is
// incomplete, and with ErrMissingDependency when a probe fails. New does not
// touch the cache directory.
func New(ctx context.Context, crates []Crate, opts Options) (*Orchestrator, error) {
	if opts.Fetcher == nil || opts.Compiler == nil {
		return nil, fmt.Errorf("orchestrator: fetcher and compiler are required")
	}

	for _, c := range crates {
		if err := c.Validate(); err != nil {
			log.Error(log.CatBuild, "Invalid crate descriptor", "crate", c.Name)
			return nil, err
		}
	}

	deps := opts.Dependencies
	if deps == nil {
		for _, candidate := range []any{opts.Fetcher, opts.Compiler} {
			if dep, ok := candidate.(Dependency); ok {
				deps = append(deps, dep)
			}
		}
	}
	for _, dep := range deps {
		version, err := dep.Version(ctx)
		if err != nil {
			log.ErrorErr(log.CatBuild, "Dependency probe failed", err, "binary", dep.Name())
			return nil, &Error{Kind: ErrMissingDependency, Binary: dep.Name(), Err: err}
		}
		log.Debug(log.CatBuild, "Dependency available", "binary", dep.Name(), "version", version)
	}

	env := opts.Env
	if env.GOOS == "" {
		env = paths.Host()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("bolt")
	}

	return &Orchestrator{
		crates:   slices.Clone(crates),
		mode:     opts.Mode,
		root:     opts.Root,
		env:      env,
		fetcher:  opts.Fetcher,
		compiler: opts.Compiler,
		recorder: opts.Recorder,
		tracer:   tracer,
	}, nil
}

// Mode returns the build mode.
func (o *Orchestrator) Mode() buildmode.Mode {
	return o.mode
}

// Crates returns a copy of the crate list.
func (o *Orchestrator) Crates() []Crate {
	return slices.Clone(o.crates)
}

// Root returns the cache root, resolving the home directory when no root
// was configured.
func (o *Orchestrator) Root() (string, error) {
	if o.root != "" {
		return o.root, nil
	}
	home, ok := o.env.HomeDir()
	if !ok {
		return "", &Error{Kind: ErrNoHomeDir}
	}
	return filepath.Join(home, DirName), nil
}

// Lib returns where the artifact for crateName lives under the current
// mode. The name is not checked against the crate list and the file may not
// exist yet.
func (o *Orchestrator) Lib(crateName string) (string, error) {
	root, err := o.Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, libDir, o.mode.Profile(), o.env.LibFileName(crateName)), nil
}

// Plan describes how Init would build the named crate. It does not touch
// the filesystem.
func (o *Orchestrator) Plan(crateName string) (Plan, error) {
	root, err := o.Root()
	if err != nil {
		return Plan{}, err
	}
	for _, c := range o.crates {
		if c.Name == crateName {
			return planFor(c, o.mode, root, o.env.LibFileName(c.Name)), nil
		}
	}
	return Plan{}, &Error{Kind: ErrUnknownCrate, Crate: crateName}
}

// Init makes sure every crate has an artifact, in list order. In release
// mode a crate whose release artifact exists is skipped; development mode
// always rebuilds. The first failure stops the run.
func (o *Orchestrator) Init(ctx context.Context) (err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ctx, span := o.tracer.Start(ctx, tracing.SpanInit, trace.WithAttributes(
		attribute.String(tracing.AttrBuildMode, o.mode.String()),
		attribute.Int(tracing.AttrCrateCount, len(o.crates)),
	))
	defer func() { tracing.End(span, err) }()

	return o.buildAll(ctx, o.crates)
}

// Build runs the Init steps for the named crates only, in the given order.
// A name shared by several descriptors builds all of them. Unknown names fail
// with ErrUnknownCrate before anything is built.
func (o *Orchestrator) Build(ctx context.Context, names ...string) (err error) {
	selected := make([]Crate, 0, len(names))
	for _, name := range names {
		found := false
		for _, c := range o.crates {
			if c.Name == name {
				selected = append(selected, c)
				found = true
			}
		}
		if !found {
			return &Error{Kind: ErrUnknownCrate, Crate: name}
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	ctx, span := o.tracer.Start(ctx, tracing.SpanBuildNamed, trace.WithAttributes(
		attribute.String(tracing.AttrBuildMode, o.mode.String()),
		attribute.Int(tracing.AttrCrateCount, len(selected)),
	))
	defer func() { tracing.End(span, err) }()

	return o.buildAll(ctx, selected)
}

func (o *Orchestrator) buildAll(ctx context.Context, crates []Crate) error {
	root, err := o.Root()
	if err != nil {
		return err
	}
	if err := o.ensureLayout(root); err != nil {
		return err
	}

	for _, c := range crates {
		if err := o.buildCrate(ctx, root, c); err != nil {
			return err
		}
	}
	return nil
}

// ensureLayout creates <root>, <root>/src and <root>/lib.
func (o *Orchestrator) ensureLayout(root string) error {
	for _, dir := range []string{root, filepath.Join(root, srcDir), filepath.Join(root, libDir)} {
		if err := paths.EnsureDir(dir); err != nil {
			log.ErrorErr(log.CatCache, "Failed to create cache directory", err, "dir", dir)
			return &Error{Kind: ErrFilesystem, Path: dir, Err: err}
		}
	}
	return nil
}

func (o *Orchestrator) buildCrate(ctx context.Context, root string, c Crate) (err error) {
	ctx, span := o.tracer.Start(ctx, tracing.SpanBuild, trace.WithAttributes(
		attribute.String(tracing.AttrCrateName, c.Name),
		attribute.String(tracing.AttrBuildMode, o.mode.String()),
	))
	defer func() { tracing.End(span, err) }()

	libName := o.env.LibFileName(c.Name)

	// The existence of the release artifact is the only cache check.
	if o.mode == buildmode.Release {
		artifact := filepath.Join(root, libDir, buildmode.Release.Profile(), libName)
		exists, err := paths.Exists(artifact)
		if err != nil {
			return &Error{Kind: ErrFilesystem, Crate: c.Name, Path: artifact, Err: err}
		}
		if exists {
			log.Debug(log.CatCache, "Artifact present, skipping", "crate", c.Name, "artifact", artifact)
			span.SetAttributes(attribute.String(tracing.AttrOutcome, "skipped"))
			return nil
		}
	}

	p := planFor(c, o.mode, root, libName)
	span.SetAttributes(
		attribute.String(tracing.AttrSourceKind, string(p.Source)),
		attribute.String(tracing.AttrSourceOrigin, p.Origin),
		attribute.String(tracing.AttrCompileMode, p.CompileMode.String()),
	)
	log.Info(log.CatBuild, "Building crate", "crate", c.Name, "source", p.Source, "origin", p.Origin, "mode", p.CompileMode)

	rec := BuildRecord{
		Crate:     c.Name,
		Mode:      p.CompileMode,
		Source:    p.Source,
		Origin:    p.Origin,
		SourceDir: p.SourceDir,
		Artifact:  p.Artifact,
		StartedAt: time.Now(),
	}
	defer func() {
		rec.FinishedAt = time.Now()
		rec.Outcome = OutcomeBuilt
		if err != nil {
			rec.Outcome = OutcomeFailed
			rec.Error = err.Error()
		}
		span.SetAttributes(attribute.String(tracing.AttrOutcome, string(rec.Outcome)))
		o.record(ctx, rec)
	}()

	if p.Source == SourceRemote {
		if err := o.fetch(ctx, c, p); err != nil {
			return err
		}
	}
	return o.compile(ctx, c, p)
}

func (o *Orchestrator) fetch(ctx context.Context, c Crate, p Plan) (err error) {
	ctx, span := o.tracer.Start(ctx, tracing.SpanFetch, trace.WithAttributes(
		attribute.String(tracing.AttrCrateName, c.Name),
		attribute.String(tracing.AttrSourceOrigin, p.Origin),
	))
	defer func() { tracing.End(span, err) }()

	if err := o.fetcher.Fetch(ctx, p.Origin, p.CheckoutDir); err != nil {
		log.ErrorErr(log.CatFetch, "Fetch failed", err, "crate", c.Name, "url", p.Origin)
		return &Error{Kind: ErrFetch, Crate: c.Name, Path: p.CheckoutDir, Err: err}
	}
	return nil
}

func (o *Orchestrator) compile(ctx context.Context, c Crate, p Plan) (err error) {
	ctx, span := o.tracer.Start(ctx, tracing.SpanCompile, trace.WithAttributes(
		attribute.String(tracing.AttrCrateName, c.Name),
		attribute.String(tracing.AttrCompileMode, p.CompileMode.String()),
	))
	defer func() { tracing.End(span, err) }()

	if err := o.compiler.Compile(ctx, p.SourceDir, p.TargetDir, p.CompileMode); err != nil {
		log.ErrorErr(log.CatCompile, "Compile failed", err, "crate", c.Name, "src", p.SourceDir)
		return &Error{Kind: ErrCompile, Crate: c.Name, Path: p.SourceDir, Err: err}
	}
	return nil
}

func (o *Orchestrator) record(ctx context.Context, rec BuildRecord) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.Record(ctx, rec); err != nil {
		log.Warn(log.CatLedger, "Failed to record build", "crate", rec.Crate, "error", err)
	}
}
