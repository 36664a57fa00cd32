package cargo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/zjrosen/bolt/internal/buildmode"
	"github.com/zjrosen/bolt/internal/log"
)

// ErrCompileFailed indicates cargo exited non-zero.
var ErrCompileFailed = errors.New("cargo build failed")

const (
	// DefaultBinary is the cargo binary used when none is configured.
	DefaultBinary = "cargo"
	// DefaultChannel is the rustup toolchain bolt compiles with.
	DefaultChannel = "nightly"

	// stderrTail bounds how much cargo output is kept in an error.
	stderrTail = 2048
)

// Compile-time check that RealExecutor implements CargoExecutor.
var _ CargoExecutor = (*RealExecutor)(nil)

// RealExecutor implements CargoExecutor by executing actual cargo commands.
type RealExecutor struct {
	binary  string
	channel string
}

// NewRealExecutor creates a RealExecutor. Empty arguments select cargo and
// the nightly channel.
func NewRealExecutor(binary, channel string) *RealExecutor {
	if binary == "" {
		binary = DefaultBinary
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &RealExecutor{binary: binary, channel: channel}
}

// Name returns the cargo binary together with its toolchain selector.
func (e *RealExecutor) Name() string {
	return e.binary + " +" + e.channel
}

// Args returns the cargo arguments that compile srcDir into targetDir.
// --release is present only for Release.
func Args(channel, srcDir, targetDir string, mode buildmode.Mode) []string {
	args := []string{
		"+" + channel,
		"rustc",
		"-Z", "unstable-options",
		"--crate-type", "cdylib",
	}
	if mode == buildmode.Release {
		args = append(args, "--release")
	}
	return append(args,
		"--manifest-path", filepath.Join(srcDir, "Cargo.toml"),
		"--target-dir", targetDir,
	)
}

// Compile runs cargo rustc for srcDir.
func (e *RealExecutor) Compile(ctx context.Context, srcDir, targetDir string, mode buildmode.Mode) error {
	start := time.Now()
	args := Args(e.channel, srcDir, targetDir, mode)

	log.Debug(log.CatCompile, "Running cargo", "args", strings.Join(args, " "))

	//nolint:gosec // G204: args are built from configured crate paths
	cmd := exec.CommandContext(ctx, e.binary, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		out := tail(strings.TrimSpace(stderr.String()), stderrTail)
		log.ErrorErr(log.CatCompile, "cargo failed", err, "src", srcDir, "mode", mode)
		if out != "" {
			return fmt.Errorf("%w: %s: %s", ErrCompileFailed, err, out)
		}
		return fmt.Errorf("%w: %w", ErrCompileFailed, err)
	}

	log.Info(log.CatCompile, "Compiled crate", "src", srcDir, "mode", mode, "duration", time.Since(start))
	return nil
}

// Version runs `cargo +<channel> --version` and validates the toolchain.
func (e *RealExecutor) Version(ctx context.Context) (string, error) {
	//nolint:gosec // G204: binary and channel come from configuration
	cmd := exec.CommandContext(ctx, e.binary, "+"+e.channel, "--version")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return "", fmt.Errorf("%s --version failed: %s", e.Name(), strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("%s --version failed: %w", e.Name(), err)
	}

	out := strings.TrimSpace(stdout.String())
	if err := CheckVersion(out, e.channel); err != nil {
		return "", err
	}
	return out, nil
}

// tail keeps the last n bytes of s.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
