package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/bolt/internal/config"
	"github.com/zjrosen/bolt/internal/paths"
)

var (
	initConfigPath  string
	initConfigForce bool
)

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a commented default config file",
	Long: `Write a config file with every setting at its default and comments
describing each one.

Examples:
  bolt init-config
  bolt init-config --path ~/.config/bolt/config.yaml
  bolt init-config --force`,
	Args: cobra.NoArgs,
	RunE: runInitConfig,
}

func init() {
	initConfigCmd.Flags().StringVar(&initConfigPath, "path", localConfigFile, "where to write the config file")
	initConfigCmd.Flags().BoolVarP(&initConfigForce, "force", "f", false, "overwrite an existing file")
	rootCmd.AddCommand(initConfigCmd)
}

func runInitConfig(cmd *cobra.Command, _ []string) error {
	path, err := paths.Host().ExpandHome(initConfigPath)
	if err != nil {
		return err
	}
	exists, err := paths.Exists(path)
	if err != nil {
		return err
	}
	if exists && !initConfigForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.WriteDefaultConfig(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
