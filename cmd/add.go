package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/bolt/internal/config"
)

var (
	addURL     string
	addSubpath string
	addPath    string
)

var addCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a crate to the config file",
	Long: `Add a crate to the config file bolt loaded, or ./bolt.yaml when none
was found. The crate needs --url, --path, or both. Comments and other keys
in the file are preserved.

Examples:
  bolt add mylib --url https://github.com/me/mylib
  bolt add mylib --url https://github.com/me/tools --subpath crates/mylib
  bolt add mylib --url https://github.com/me/mylib --path ~/src/mylib`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var removeCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a crate from the config file",
	Long: `Remove a crate from the config file. Cached sources and artifacts
under the cache directory are left in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	addCmd.Flags().StringVar(&addURL, "url", "", "git repository URL")
	addCmd.Flags().StringVar(&addSubpath, "subpath", "", "crate root inside the repository")
	addCmd.Flags().StringVar(&addPath, "path", "", "local crate directory")
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	path := editableConfigPath(viper.GetViper())
	crate := config.CrateConfig{
		Name:    args[0],
		URL:     addURL,
		Subpath: addSubpath,
		Path:    addPath,
	}
	if err := config.AddCrate(path, crate, cfg.Crates); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added %s to %s\n", crate.Name, path)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	path := editableConfigPath(viper.GetViper())
	if err := config.RemoveCrate(path, args[0], cfg.Crates); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s from %s\n", args[0], path)
	return nil
}

// editableConfigPath is the file crate edits are written to.
func editableConfigPath(v *viper.Viper) string {
	if cfgFile != "" {
		return cfgFile
	}
	return configPathOr(v, localConfigFile)
}
