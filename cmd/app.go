package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zjrosen/bolt/internal/buildmode"
	"github.com/zjrosen/bolt/internal/cargo"
	"github.com/zjrosen/bolt/internal/config"
	"github.com/zjrosen/bolt/internal/flags"
	"github.com/zjrosen/bolt/internal/git"
	"github.com/zjrosen/bolt/internal/ledger"
	"github.com/zjrosen/bolt/internal/log"
	"github.com/zjrosen/bolt/internal/orchestrator"
	"github.com/zjrosen/bolt/internal/paths"
	"github.com/zjrosen/bolt/internal/tracing"
)

// app is everything a command needs, built from cfg.
type app struct {
	cfg          config.Config
	mode         buildmode.Mode
	root         string
	flags        *flags.Registry
	git          *git.RealExecutor
	cargo        *cargo.RealExecutor
	ledger       *ledger.DB // nil when history is disabled
	tracer       *tracing.Provider
	orchestrator *orchestrator.Orchestrator

	cleanups []func()
}

type appOptions struct {
	// probe runs the toolchain checks. Commands that never build skip them.
	probe bool
	// history opens the ledger when history is enabled.
	history bool
}

// newApp wires the orchestrator and its collaborators from cfg.
func newApp(ctx context.Context, c config.Config, opts appOptions) (_ *app, err error) {
	env := paths.Host()
	a := &app{cfg: c, flags: flags.New(c.Flags)}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.mode, err = resolveMode(modeFlag, env.LookupEnv, c.Mode)
	if err != nil {
		return nil, err
	}

	a.root = c.CacheDir
	if a.root == "" {
		home, ok := env.HomeDir()
		if !ok {
			return nil, &orchestrator.Error{Kind: orchestrator.ErrNoHomeDir}
		}
		a.root = filepath.Join(home, orchestrator.DirName)
	}

	if err := a.initLogging(); err != nil {
		return nil, err
	}
	log.Info(log.CatConfig, "bolt starting", "mode", a.mode, "root", a.root, "crates", len(c.Crates))

	tcfg := tracing.Config{
		Enabled:      c.Tracing.Enabled,
		Exporter:     c.Tracing.Exporter,
		FilePath:     c.Tracing.FilePath,
		OTLPEndpoint: c.Tracing.OTLPEndpoint,
		SampleRate:   c.Tracing.SampleRate,
		ServiceName:  tracing.DefaultConfig().ServiceName,
		Env:          env,
	}
	a.tracer, err = tracing.NewProvider(tcfg)
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}
	a.cleanups = append(a.cleanups, func() { _ = a.tracer.Shutdown(context.Background()) })

	a.git = git.NewRealExecutor(c.Toolchain.Git)
	a.cargo = cargo.NewRealExecutor(c.Toolchain.Cargo, c.Toolchain.Channel)

	var recorder orchestrator.Recorder
	if opts.history && c.History.Enabled {
		a.ledger, err = ledger.Open(filepath.Join(a.root, ledger.FileName))
		if err != nil {
			return nil, err
		}
		a.cleanups = append(a.cleanups, func() { _ = a.ledger.Close() })
		recorder = &historyRecorder{
			ledger:      a.ledger,
			revisions:   a.git,
			revision:    a.flags.Enabled(flags.FlagRecordRevision),
			fingerprint: a.flags.Enabled(flags.FlagSourceFingerprint),
		}
	}

	orchOpts := orchestrator.Options{
		Mode:     a.mode,
		Root:     a.root,
		Env:      env,
		Fetcher:  a.git,
		Compiler: a.cargo,
		Recorder: recorder,
		Tracer:   a.tracer.Tracer(),
	}
	if !opts.probe {
		orchOpts.Dependencies = []orchestrator.Dependency{}
	}
	a.orchestrator, err = orchestrator.New(ctx, c.OrchestratorCrates(), orchOpts)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// initLogging enables the logger when --debug, debug: true or BOLT_DEBUG is
// set. Logs go to BOLT_LOG, or bolt.log in the cache root.
func (a *app) initLogging() error {
	if !a.cfg.Debug && !debugFlag && os.Getenv(debugEnvVar) == "" {
		return nil
	}
	logPath := os.Getenv(logEnvVar)
	if logPath == "" {
		if err := os.MkdirAll(a.root, 0o755); err != nil {
			return fmt.Errorf("creating cache directory: %w", err)
		}
		logPath = filepath.Join(a.root, "bolt.log")
	}
	cleanup, err := log.Init(logPath)
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	a.cleanups = append(a.cleanups, cleanup)
	return nil
}

// pruneHistory trims the ledger to history.keep builds per crate.
func (a *app) pruneHistory(ctx context.Context) {
	if a.ledger == nil || a.cfg.History.Keep <= 0 {
		return
	}
	n, err := a.ledger.Prune(ctx, a.cfg.History.Keep)
	if err != nil {
		log.Warn(log.CatLedger, "Failed to prune history", "error", err)
		return
	}
	if n > 0 {
		log.Debug(log.CatLedger, "Pruned history", "deleted", n)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
}

// exitError describes err for the terminal, adding a hint for the failures
// users can fix themselves.
func exitError(err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrMissingDependency):
		return fmt.Errorf("%w\nbolt needs git and a nightly cargo (rustup toolchain install nightly)", err)
	case errors.Is(err, orchestrator.ErrNoHomeDir):
		return fmt.Errorf("%w\nset HOME or pass --cache-dir", err)
	case errors.Is(err, git.ErrAuthentication):
		return fmt.Errorf("%w\ncheck your git credentials for the crate repository", err)
	}
	return err
}
