package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/bolt/internal/ledger"
	"github.com/zjrosen/bolt/internal/presentation"
)

var (
	historyLimit  int
	historyFailed bool
	historyJSON   bool
)

var historyCmd = &cobra.Command{
	Use:   "history [crate]",
	Short: "List recorded builds, newest first",
	Long: `List builds recorded in the cache's history.db, newest first.

Examples:
  bolt history
  bolt history mylib --limit 5
  bolt history --failed
  bolt history --json | jq '.[0].error'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum builds to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "only show failed builds")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, appOptions{history: true})
	if err != nil {
		return exitError(err)
	}
	defer a.Close()

	if a.ledger == nil {
		return fmt.Errorf("build history is disabled (history.enabled: false)")
	}

	filter := ledger.Filter{Limit: historyLimit}
	if len(args) == 1 {
		filter.Crate = args[0]
	}
	if historyFailed {
		filter.Outcome = "failed"
	}

	builds, err := a.ledger.List(ctx, filter)
	if err != nil {
		return err
	}

	formatter := presentation.NewFormatter(cmd.OutOrStdout())
	dtos := presentation.FromLedgerBuilds(builds)
	if historyJSON {
		return formatter.FormatJSON(dtos)
	}
	return formatter.FormatHistory(dtos)
}
