// Package config provides configuration types and defaults for bolt.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/zjrosen/bolt/internal/log"
	"github.com/zjrosen/bolt/internal/orchestrator"
	"github.com/zjrosen/bolt/internal/paths"
	"github.com/zjrosen/bolt/internal/tracing"
)

// CrateConfig declares one crate. At least one of URL and Path is required.
type CrateConfig struct {
	Name    string `mapstructure:"name"`
	URL     string `mapstructure:"url"`     // git repository
	Subpath string `mapstructure:"subpath"` // crate root inside the repository
	Path    string `mapstructure:"path"`    // local crate root
}

// Config holds all configuration options for bolt.
type Config struct {
	Crates    []CrateConfig   `mapstructure:"crates"`
	CacheDir  string          `mapstructure:"cache_dir"` // default ~/.bolt
	Mode      string          `mapstructure:"mode"`      // "release" (default) or "dev"
	Debug     bool            `mapstructure:"debug"`
	Toolchain ToolchainConfig `mapstructure:"toolchain"`
	History   HistoryConfig   `mapstructure:"history"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Flags     map[string]bool `mapstructure:"flags"`
}

// ToolchainConfig names the external binaries bolt drives.
type ToolchainConfig struct {
	Git     string `mapstructure:"git"`
	Cargo   string `mapstructure:"cargo"`
	Channel string `mapstructure:"channel"` // rustup toolchain, e.g. "nightly"
}

// HistoryConfig controls the build ledger.
type HistoryConfig struct {
	// Enabled records every fetch-and-compile attempt in <cache_dir>/history.db.
	// Default: true
	Enabled bool `mapstructure:"enabled"`

	// Keep is how many builds per crate survive pruning. 0 keeps everything.
	// Default: 50
	Keep int `mapstructure:"keep"`
}

// WatchConfig controls `bolt watch`.
type WatchConfig struct {
	// Debounce is how long the sources must be quiet before a rebuild.
	// Default: 500ms
	Debounce time.Duration `mapstructure:"debounce"`
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for "file" exporter.
	// Default: ~/.config/bolt/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// crateNameRe matches names cargo uses verbatim in the library file name.
// Cargo turns '-' into '_' in cdylib names, so hyphenated names would
// resolve to a file that never appears.
var crateNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var channelRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ResolveTracing fills in the default trace file and expands a leading ~ in
// tracing.file_path. The path stays empty only when env has no home
// directory, which ValidateTracing then reports for the file exporter.
func (c *Config) ResolveTracing(env paths.Env) error {
	if c.Tracing.FilePath == "" {
		c.Tracing.FilePath, _ = tracing.DefaultFilePath(env)
		return nil
	}
	path, err := env.ExpandHome(c.Tracing.FilePath)
	if err != nil {
		return fmt.Errorf("tracing.file_path: %w", err)
	}
	c.Tracing.FilePath = path
	return nil
}

// ValidateCrates checks crate declarations for errors.
// Returns nil if crates are valid or empty.
func ValidateCrates(crates []CrateConfig) error {
	seen := make(map[string]int, len(crates))
	for i, c := range crates {
		if c.Name == "" {
			return fmt.Errorf("crates[%d]: name is required", i)
		}
		if !crateNameRe.MatchString(c.Name) {
			return fmt.Errorf("crates[%d]: name %q must contain only letters, digits and underscores", i, c.Name)
		}
		if prev, ok := seen[c.Name]; ok {
			return fmt.Errorf("crates[%d]: name %q duplicates crates[%d]", i, c.Name, prev)
		}
		seen[c.Name] = i
		if c.URL == "" && c.Path == "" {
			return fmt.Errorf("crates[%d] (%s): a url or a path needs to be specified", i, c.Name)
		}
		if c.Subpath != "" && c.URL == "" {
			return fmt.Errorf("crates[%d] (%s): subpath requires url", i, c.Name)
		}
		if filepath.IsAbs(c.Subpath) {
			return fmt.Errorf("crates[%d] (%s): subpath must be relative, got %q", i, c.Name, c.Subpath)
		}
	}
	return nil
}

// ValidateMode checks the mode setting.
func ValidateMode(mode string) error {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "release", "dev", "development":
		return nil
	}
	return fmt.Errorf("mode must be \"release\", \"dev\" or \"development\", got %q", mode)
}

// ValidateToolchain checks toolchain configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateToolchain(tc ToolchainConfig) error {
	if tc.Channel != "" && !channelRe.MatchString(tc.Channel) {
		return fmt.Errorf("toolchain.channel %q is not a valid toolchain name", tc.Channel)
	}
	return nil
}

// ValidateHistory checks history configuration for errors.
func ValidateHistory(h HistoryConfig) error {
	if h.Keep < 0 {
		return fmt.Errorf("history.keep must not be negative, got %d", h.Keep)
	}
	return nil
}

// ValidateWatch checks watch configuration for errors.
func ValidateWatch(w WatchConfig) error {
	if w.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", w.Debounce)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	// Validate SampleRate is in range [0.0, 1.0]
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	// Validate Exporter is a valid option
	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
			// Valid
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\" and no home directory is set")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// Validate runs every section validator and joins the failures.
func (c Config) Validate() error {
	return errors.Join(
		ValidateCrates(c.Crates),
		ValidateMode(c.Mode),
		ValidateToolchain(c.Toolchain),
		ValidateHistory(c.History),
		ValidateWatch(c.Watch),
		ValidateTracing(c.Tracing),
	)
}

// OrchestratorCrates converts the declarations to orchestrator descriptors,
// in file order.
func (c Config) OrchestratorCrates() []orchestrator.Crate {
	crates := make([]orchestrator.Crate, 0, len(c.Crates))
	for _, cc := range c.Crates {
		crate := orchestrator.Crate{Name: cc.Name, Path: cc.Path}
		if cc.URL != "" {
			crate.Remote = &orchestrator.RemoteSource{URL: cc.URL, Subpath: cc.Subpath}
		}
		crates = append(crates, crate)
	}
	return crates
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Mode: "release",
		Toolchain: ToolchainConfig{
			Git:     "git",
			Cargo:   "cargo",
			Channel: "nightly",
		},
		History: HistoryConfig{
			Enabled: true,
			Keep:    50,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // filled by ResolveTracing
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Bolt Configuration

# Crates to build, in order. Each needs a url, a path, or both.
# With both, dev mode builds from path and release mode from url.
crates: []
# crates:
#   - name: mylib
#     url: https://github.com/me/mylib
#     subpath: crates/mylib   # crate root inside the repository
#   - name: local_only
#     path: /home/me/src/local_only

# Cache directory for sources and artifacts (default: ~/.bolt)
# cache_dir: /var/cache/bolt

# Build mode: "release" (default) or "dev".
# The BOLT environment variable overrides this.
mode: release

# External tools
toolchain:
  git: git
  cargo: cargo
  channel: nightly   # cargo runs as "cargo +<channel>"

# Build history ledger (<cache_dir>/history.db)
history:
  enabled: true
  keep: 50           # builds kept per crate, 0 keeps everything

# bolt watch settings
watch:
  debounce: 500ms

# Tracing (disabled by default)
# tracing:
#   enabled: true
#   exporter: file          # none, file, stdout, otlp
#   file_path: ~/.config/bolt/traces/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0

# Feature flags
# flags:
#   source-fingerprint: true   # record a source hash with each build
#   record-revision: true      # record the git commit of remote builds
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	// Create parent directory if needed
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
