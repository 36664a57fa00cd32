package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/bolt/internal/buildmode"
	"github.com/zjrosen/bolt/internal/config"
	"github.com/zjrosen/bolt/internal/git"
	"github.com/zjrosen/bolt/internal/ledger"
	"github.com/zjrosen/bolt/internal/orchestrator"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	c := config.Defaults()
	c.CacheDir = t.TempDir()
	c.Crates = []config.CrateConfig{{Name: "mylib", Path: "/src/mylib"}}
	return c
}

// withGlobals restores the package-level flag state after a test.
func withGlobals(t *testing.T) {
	t.Helper()
	t.Setenv(buildmode.EnvVar, "")
	t.Setenv(debugEnvVar, "")
	oldMode, oldCfg, oldCfgFile, oldDebug := modeFlag, cfg, cfgFile, debugFlag
	t.Cleanup(func() {
		modeFlag, cfg, cfgFile, debugFlag = oldMode, oldCfg, oldCfgFile, oldDebug
	})
}

func TestNewApp_WithoutProbe(t *testing.T) {
	withGlobals(t)
	modeFlag = "dev"
	c := testConfig(t)

	a, err := newApp(context.Background(), c, appOptions{history: true})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	require.Equal(t, buildmode.Development, a.mode)
	require.Equal(t, c.CacheDir, a.root)
	require.NotNil(t, a.ledger)
	require.FileExists(t, filepath.Join(c.CacheDir, ledger.FileName))

	lib, err := a.orchestrator.Lib("mylib")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(lib, filepath.Join(c.CacheDir, "lib", "debug")))
}

func TestNewApp_HistoryDisabled(t *testing.T) {
	withGlobals(t)
	c := testConfig(t)
	c.History.Enabled = false

	a, err := newApp(context.Background(), c, appOptions{history: true})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	require.Nil(t, a.ledger)
	require.NoFileExists(t, filepath.Join(c.CacheDir, ledger.FileName))
}

func TestNewApp_MissingToolchain(t *testing.T) {
	withGlobals(t)
	c := testConfig(t)
	c.Toolchain.Git = filepath.Join(t.TempDir(), "no-such-git")

	_, err := newApp(context.Background(), c, appOptions{probe: true})
	require.ErrorIs(t, err, orchestrator.ErrMissingDependency)
}

func TestNewApp_InvalidModeFlag(t *testing.T) {
	withGlobals(t)
	modeFlag = "fast"

	_, err := newApp(context.Background(), testConfig(t), appOptions{})
	require.Error(t, err)
}

func TestExitError_Hints(t *testing.T) {
	tests := []struct {
		name string
		err  error
		hint string
	}{
		{"missing dependency", &orchestrator.Error{Kind: orchestrator.ErrMissingDependency, Binary: "cargo"}, "rustup toolchain install nightly"},
		{"no home", &orchestrator.Error{Kind: orchestrator.ErrNoHomeDir}, "--cache-dir"},
		{"auth", &orchestrator.Error{Kind: orchestrator.ErrFetch, Crate: "mylib", Err: git.ErrAuthentication}, "git credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exitError(tt.err)
			require.ErrorIs(t, got, tt.err)
			require.Contains(t, got.Error(), tt.hint)
		})
	}

	plain := errors.New("boom")
	require.Equal(t, plain, exitError(plain))
}

func runWith(t *testing.T, run func(*cobra.Command, []string) error, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&out)
	c.SetContext(context.Background())
	err := run(c, args)
	return out.String(), err
}

func TestRunLib(t *testing.T) {
	withGlobals(t)
	cfg = testConfig(t)
	t.Cleanup(func() { libCheck = false })

	out, err := runWith(t, runLib, "mylib")
	require.NoError(t, err)
	require.Contains(t, out, filepath.Join(cfg.CacheDir, "lib", "release"))

	libCheck = true
	_, err = runWith(t, runLib, "mylib")
	require.ErrorContains(t, err, "has not been built")

	lib := strings.TrimSpace(out)
	writeFile(t, lib, "ELF")
	_, err = runWith(t, runLib, "mylib")
	require.NoError(t, err)
}

func TestRunHistory_Empty(t *testing.T) {
	withGlobals(t)
	cfg = testConfig(t)

	out, err := runWith(t, runHistory)
	require.NoError(t, err)
	require.Contains(t, out, "no recorded builds")
}

func TestRunInitConfig(t *testing.T) {
	withGlobals(t)
	path := filepath.Join(t.TempDir(), "nested", "bolt.yaml")
	oldPath, oldForce := initConfigPath, initConfigForce
	t.Cleanup(func() { initConfigPath, initConfigForce = oldPath, oldForce })
	initConfigPath = path
	initConfigForce = false

	out, err := runWith(t, runInitConfig)
	require.NoError(t, err)
	require.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, config.DefaultConfigTemplate(), string(data))

	_, err = runWith(t, runInitConfig)
	require.ErrorContains(t, err, "already exists")

	initConfigForce = true
	_, err = runWith(t, runInitConfig)
	require.NoError(t, err)
}

func TestRunAddAndRemove(t *testing.T) {
	withGlobals(t)
	path := filepath.Join(t.TempDir(), "bolt.yaml")
	require.NoError(t, config.WriteDefaultConfig(path))
	cfgFile = path
	cfg = config.Defaults()

	oldURL, oldSub, oldPath := addURL, addSubpath, addPath
	t.Cleanup(func() { addURL, addSubpath, addPath = oldURL, oldSub, oldPath })
	addURL = "https://github.com/me/mylib"
	addSubpath = "crates/mylib"
	addPath = ""

	out, err := runWith(t, runAdd, "mylib")
	require.NoError(t, err)
	require.Contains(t, out, "added mylib")

	loaded, err := loadConfig(viper.New(), path)
	require.NoError(t, err)
	require.Equal(t, []config.CrateConfig{
		{Name: "mylib", URL: "https://github.com/me/mylib", Subpath: "crates/mylib"},
	}, loaded.Crates)

	cfg = loaded
	_, err = runWith(t, runAdd, "mylib")
	require.Error(t, err, "duplicate names are rejected")

	out, err = runWith(t, runRemove, "mylib")
	require.NoError(t, err)
	require.Contains(t, out, "removed mylib")

	loaded, err = loadConfig(viper.New(), path)
	require.NoError(t, err)
	require.Empty(t, loaded.Crates)
}

func TestEditableConfigPath(t *testing.T) {
	withGlobals(t)
	cfgFile = ""
	require.Equal(t, localConfigFile, editableConfigPath(viper.New()))

	cfgFile = "/etc/bolt.yaml"
	require.Equal(t, "/etc/bolt.yaml", editableConfigPath(viper.New()))
}

func TestRunInitConfig_ExpandsHome(t *testing.T) {
	withGlobals(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	oldPath, oldForce := initConfigPath, initConfigForce
	t.Cleanup(func() { initConfigPath, initConfigForce = oldPath, oldForce })
	initConfigPath = "~/.config/bolt/config.yaml"
	initConfigForce = false

	_, err := runWith(t, runInitConfig)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(home, ".config", "bolt", "config.yaml"))
}
