package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/zjrosen/bolt/internal/fingerprint"
	"github.com/zjrosen/bolt/internal/flags"
	"github.com/zjrosen/bolt/internal/ledger"
	"github.com/zjrosen/bolt/internal/log"
	"github.com/zjrosen/bolt/internal/orchestrator"
	"github.com/zjrosen/bolt/internal/paths"
	"github.com/zjrosen/bolt/internal/presentation"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which crates have artifacts for the current mode",
	Long: `Show every configured crate with its source, whether the library a
loader would open exists, and the last recorded build.

With the source-fingerprint flag enabled, local crates whose sources changed
since their last recorded build are shown as "changed". This is
informational: release builds still skip any crate whose artifact exists.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, appOptions{history: true})
	if err != nil {
		return exitError(err)
	}
	defer a.Close()

	rows, err := collectStatus(ctx, a.orchestrator, a.ledger, a.flags.Enabled(flags.FlagSourceFingerprint))
	if err != nil {
		return exitError(err)
	}

	formatter := presentation.NewFormatter(cmd.OutOrStdout())
	if statusJSON {
		return formatter.FormatJSON(rows)
	}
	return formatter.FormatStatus(a.mode.String(), rows)
}

// collectStatus describes each crate. db may be nil when history is off.
func collectStatus(ctx context.Context, o *orchestrator.Orchestrator, db *ledger.DB, compareSources bool) ([]presentation.CrateStatusDTO, error) {
	rows := make([]presentation.CrateStatusDTO, 0, len(o.Crates()))
	for _, c := range o.Crates() {
		plan, err := o.Plan(c.Name)
		if err != nil {
			return nil, err
		}
		lib, err := o.Lib(c.Name)
		if err != nil {
			return nil, err
		}
		built, err := paths.Exists(lib)
		if err != nil {
			return nil, err
		}

		row := presentation.CrateStatusDTO{
			Name:        c.Name,
			Source:      string(plan.Source),
			Origin:      plan.Origin,
			CompileMode: plan.CompileMode.String(),
			Artifact:    lib,
			Built:       built,
		}

		if db != nil {
			last, err := db.Latest(ctx, c.Name, plan.CompileMode.String())
			switch {
			case err == nil:
				dto := presentation.FromLedgerBuild(last)
				row.LastBuild = &dto
			case !errors.Is(err, ledger.ErrNotFound):
				return nil, err
			}
		}

		// Remote sources would need a fetch to compare, so only local crates
		// are checked.
		if compareSources && built && plan.Source == orchestrator.SourceLocal &&
			row.LastBuild != nil && row.LastBuild.Fingerprint != "" {
			sum, err := fingerprint.Tree(plan.SourceDir)
			if err != nil {
				log.Warn(log.CatCache, "Failed to fingerprint sources", "crate", c.Name, "error", err)
			} else {
				row.Changed = sum != row.LastBuild.Fingerprint
			}
		}

		rows = append(rows, row)
	}
	return rows, nil
}
