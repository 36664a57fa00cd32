package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/bolt/internal/buildmode"
	"github.com/zjrosen/bolt/internal/log"
	"github.com/zjrosen/bolt/internal/orchestrator"
	"github.com/zjrosen/bolt/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild local crates when their sources change",
	Long: `Build every crate, then watch the local crate directories and rebuild a
crate whenever its sources change. Only development mode builds from local
paths, so watch refuses to run in release mode.

A failed rebuild is reported and watching continues. Stop with Ctrl+C.

Examples:
  BOLT=dev bolt watch
  bolt watch --mode dev`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{probe: true, history: true})
	if err != nil {
		return exitError(err)
	}
	defer a.Close()

	if a.mode != buildmode.Development {
		return fmt.Errorf("watch needs development mode (set %s=dev or pass --mode dev)", buildmode.EnvVar)
	}

	out := cmd.OutOrStdout()
	if err := a.orchestrator.Init(ctx); err != nil {
		// Keep watching: the failing crate is the one the user is editing.
		fmt.Fprintf(out, "initial build failed: %v\n", exitError(err))
	}
	a.pruneHistory(ctx)

	crateDirs, err := localCrateDirs(a.orchestrator)
	if err != nil {
		return err
	}
	if len(crateDirs) == 0 {
		return errors.New("no crates build from a local path; nothing to watch")
	}

	dirs := make([]string, 0, len(crateDirs))
	for dir := range crateDirs {
		dirs = append(dirs, dir)
	}
	wcfg := watcher.DefaultConfig(dirs)
	if a.cfg.Watch.Debounce > 0 {
		wcfg.DebounceDur = a.cfg.Watch.Debounce
	}
	w, err := watcher.New(wcfg)
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	fmt.Fprintf(out, "watching %d crate director%s\n", len(dirs), plural(len(dirs), "y", "ies"))
	rebuild := func(ctx context.Context, names ...string) error {
		err := a.orchestrator.Build(ctx, names...)
		a.pruneHistory(ctx)
		return err
	}
	watchLoop(ctx, changes, crateDirs, rebuild, out)
	return nil
}

// localCrateDirs maps each local source directory to the crates built from
// it, in config order.
func localCrateDirs(o *orchestrator.Orchestrator) (map[string][]string, error) {
	dirs := make(map[string][]string)
	for _, c := range o.Crates() {
		plan, err := o.Plan(c.Name)
		if err != nil {
			return nil, err
		}
		if plan.Source != orchestrator.SourceLocal {
			continue
		}
		abs, err := filepath.Abs(plan.SourceDir)
		if err != nil {
			return nil, err
		}
		dir := filepath.Clean(abs)
		dirs[dir] = append(dirs[dir], c.Name)
	}
	return dirs, nil
}

// watchLoop rebuilds the crates behind each batch of changed directories
// until ctx is done or changes is closed.
func watchLoop(ctx context.Context, changes <-chan []string, crateDirs map[string][]string,
	build func(ctx context.Context, names ...string) error, out io.Writer) {
	for {
		select {
		case <-ctx.Done():
			return
		case dirs, ok := <-changes:
			if !ok {
				return
			}
			var names []string
			for _, dir := range dirs {
				names = append(names, crateDirs[dir]...)
			}
			if len(names) == 0 {
				continue
			}
			log.Info(log.CatWatch, "Rebuilding", "crates", len(names))
			if err := build(ctx, names...); err != nil {
				fmt.Fprintf(out, "rebuild failed: %v\n", exitError(err))
				continue
			}
			for _, name := range names {
				fmt.Fprintf(out, "rebuilt %s\n", name)
			}
		}
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
