// Package cargo drives the cargo toolchain that compiles crates into
// dynamic libraries.
package cargo

import (
	"context"

	"github.com/zjrosen/bolt/internal/buildmode"
)

// CargoExecutor defines the interface for cargo command execution.
type CargoExecutor interface {
	// Compile builds the crate whose Cargo.toml lives in srcDir as a cdylib
	// under targetDir, optimized only when mode is Release.
	Compile(ctx context.Context, srcDir, targetDir string, mode buildmode.Mode) error

	// Version runs `cargo +<channel> --version` and checks the result.
	Version(ctx context.Context) (string, error)

	// Name is the cargo binary this executor runs.
	Name() string
}
