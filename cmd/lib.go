package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/bolt/internal/paths"
)

var libCheck bool

var libCmd = &cobra.Command{
	Use:   "lib <crate>",
	Short: "Print where a crate's library is loaded from",
	Long: `Print the artifact path for a crate under the current build mode.

The path is computed, not looked up: it is printed whether or not the crate
has been built, and the crate does not need to be configured. Use --check
to fail when the file does not exist.

Examples:
  bolt lib mylib
  BOLT=dev bolt lib mylib
  bolt lib mylib --check && echo ready`,
	Args: cobra.ExactArgs(1),
	RunE: runLib,
}

func init() {
	libCmd.Flags().BoolVar(&libCheck, "check", false, "exit non-zero when the artifact does not exist")
	rootCmd.AddCommand(libCmd)
}

func runLib(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cfg, appOptions{})
	if err != nil {
		return exitError(err)
	}
	defer a.Close()

	lib, err := a.orchestrator.Lib(args[0])
	if err != nil {
		return exitError(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), lib)

	if libCheck {
		exists, err := paths.Exists(lib)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%s has not been built", args[0])
		}
	}
	return nil
}
