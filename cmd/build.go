package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [crate...]",
	Short: "Fetch and compile configured crates",
	Long: `Fetch and compile configured crates, in config order.

With no arguments every crate is built, the same way a program embedding
bolt does at startup. Named crates are built in the order given. In release
mode a crate whose artifact already exists is skipped; development mode
always recompiles. The first failure stops the run.

Examples:
  bolt build
  bolt build mylib other_lib
  BOLT=dev bolt build mylib`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, appOptions{probe: true, history: true})
	if err != nil {
		return exitError(err)
	}
	defer a.Close()

	if len(args) == 0 {
		err = a.orchestrator.Init(ctx)
	} else {
		err = a.orchestrator.Build(ctx, args...)
	}
	a.pruneHistory(ctx)
	if err != nil {
		return exitError(err)
	}

	names := args
	if len(names) == 0 {
		for _, c := range a.orchestrator.Crates() {
			names = append(names, c.Name)
		}
	}
	out := cmd.OutOrStdout()
	for _, name := range names {
		lib, err := a.orchestrator.Lib(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s\n", name, lib)
	}
	return nil
}
