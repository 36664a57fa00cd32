package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/bolt/internal/buildmode"
	"github.com/zjrosen/bolt/internal/config"
	"github.com/zjrosen/bolt/internal/paths"
)

const (
	// localConfigFile is looked up in the working directory first.
	localConfigFile = "bolt.yaml"

	// debugEnvVar enables logging when set to any non-empty value.
	debugEnvVar = "BOLT_DEBUG"

	// logEnvVar overrides the log file location.
	logEnvVar = "BOLT_LOG"
)

var (
	version = "dev"
	cfgFile string
	cfg     config.Config

	modeFlag     string
	cacheDirFlag string
	debugFlag    bool
)

var rootCmd = &cobra.Command{
	Use:   "bolt",
	Short: "Build Rust crates into dynamic libraries",
	Long: `bolt fetches Rust crates from git or a local path, compiles them to
dynamic libraries with cargo and caches the artifacts under ~/.bolt.

The build mode comes from --mode, then the BOLT environment variable
(BOLT=dev selects development), then the config file. Release builds are
cached by artifact existence; development builds always recompile.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./bolt.yaml, then ~/.config/bolt/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&modeFlag, "mode", "m", "",
		`build mode: "release" or "dev" (overrides BOLT and the config file)`)
	rootCmd.PersistentFlags().StringVar(&cacheDirFlag, "cache-dir", "",
		"cache directory (default: ~/.bolt)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"enable debug logging (also BOLT_DEBUG)")

	_ = viper.BindPFlag("cache_dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

// initConfig loads the config file into cfg and validates it.
func initConfig() error {
	loaded, err := loadConfig(viper.GetViper(), cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

// loadConfig reads configuration into a Config seeded with defaults.
// A missing config file is not an error.
func loadConfig(v *viper.Viper, explicit string) (config.Config, error) {
	defaults := config.Defaults()
	v.SetDefault("mode", defaults.Mode)
	v.SetDefault("toolchain.git", defaults.Toolchain.Git)
	v.SetDefault("toolchain.cargo", defaults.Toolchain.Cargo)
	v.SetDefault("toolchain.channel", defaults.Toolchain.Channel)
	v.SetDefault("history.enabled", defaults.History.Enabled)
	v.SetDefault("history.keep", defaults.History.Keep)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
	v.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	v.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	v.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)

	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		// Config lookup order:
		// 1. ./bolt.yaml (current directory)
		// 2. ~/.config/bolt/config.yaml (user config)
		if _, err := os.Stat(localConfigFile); err == nil {
			v.SetConfigFile(localConfigFile)
		} else {
			home, _ := os.UserHomeDir()
			v.AddConfigPath(filepath.Join(home, ".config", "bolt"))
			v.SetConfigName("config")
			v.SetConfigType("yaml")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config.Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var c config.Config
	if err := v.Unmarshal(&c); err != nil {
		return config.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.ResolveTracing(paths.Host()); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration in %s: %w", configPathOr(v, "defaults"), err)
	}
	if err := c.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration in %s: %w", configPathOr(v, "defaults"), err)
	}
	return c, nil
}

// configPathOr returns the config file viper loaded, or fallback.
func configPathOr(v *viper.Viper, fallback string) string {
	if used := v.ConfigFileUsed(); used != "" {
		return used
	}
	return fallback
}

// resolveMode picks the build mode: --mode, then BOLT, then the config file.
// Only the flag is validated; BOLT keeps its rule that anything other than
// dev/development means release.
func resolveMode(flagValue string, lookup func(string) (string, bool), configured string) (buildmode.Mode, error) {
	if flagValue != "" {
		if err := config.ValidateMode(flagValue); err != nil {
			return buildmode.Release, fmt.Errorf("--mode: %w", err)
		}
		return buildmode.Parse(flagValue), nil
	}
	if _, ok := lookup(buildmode.EnvVar); ok {
		return buildmode.FromEnv(lookup), nil
	}
	return buildmode.Parse(configured), nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
