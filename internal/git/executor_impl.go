package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/zjrosen/bolt/internal/log"
	"github.com/zjrosen/bolt/internal/paths"
)

// Git-specific errors for fetch operations.
var (
	// ErrRepositoryNotFound indicates the remote repository does not exist.
	ErrRepositoryNotFound = errors.New("repository not found")

	// ErrAuthentication indicates the remote rejected our credentials.
	ErrAuthentication = errors.New("authentication failed")

	// ErrPathAlreadyExists indicates the clone destination is a non-empty
	// directory that is not a checkout.
	ErrPathAlreadyExists = errors.New("destination path already exists")

	// ErrNotGitRepo indicates the directory is not a git repository.
	ErrNotGitRepo = errors.New("not a git repository")
)

// DefaultBinary is the git binary used when none is configured.
const DefaultBinary = "git"

// Compile-time check that RealExecutor implements GitExecutor.
var _ GitExecutor = (*RealExecutor)(nil)

// RealExecutor implements GitExecutor by executing actual git commands.
type RealExecutor struct {
	binary string
}

// NewRealExecutor creates a new RealExecutor running binary, or git when
// binary is empty.
func NewRealExecutor(binary string) *RealExecutor {
	if binary == "" {
		binary = DefaultBinary
	}
	return &RealExecutor{binary: binary}
}

// Name returns the git binary.
func (e *RealExecutor) Name() string {
	return e.binary
}

// runGitOutput executes a git command and returns trimmed stdout.
func (e *RealExecutor) runGitOutput(ctx context.Context, args ...string) (string, error) {
	//nolint:gosec // G204: args come from controlled sources
	cmd := exec.CommandContext(ctx, e.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if stderrStr != "" {
			return "", parseGitError(stderrStr, err)
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// parseGitError converts git stderr messages to specific error types.
func parseGitError(stderr string, originalErr error) error {
	stderrLower := strings.ToLower(stderr)

	// fatal: repository 'https://...' not found / does not appear to be a git repository
	if strings.Contains(stderrLower, "repository") &&
		(strings.Contains(stderrLower, "not found") ||
			strings.Contains(stderrLower, "does not exist") ||
			strings.Contains(stderrLower, "does not appear to be a git repository")) {
		return fmt.Errorf("%w: %s", ErrRepositoryNotFound, stderr)
	}

	if strings.Contains(stderrLower, "authentication failed") ||
		strings.Contains(stderrLower, "permission denied (publickey)") ||
		strings.Contains(stderrLower, "could not read username") {
		return fmt.Errorf("%w: %s", ErrAuthentication, stderr)
	}

	// fatal: destination path 'x' already exists and is not an empty directory.
	if strings.Contains(stderrLower, "already exists and is not an empty directory") {
		return fmt.Errorf("%w: %s", ErrPathAlreadyExists, stderr)
	}

	if strings.Contains(stderrLower, "not a git repository") {
		return fmt.Errorf("%w: %s", ErrNotGitRepo, stderr)
	}

	return fmt.Errorf("git error: %s: %w", stderr, originalErr)
}

// Fetch clones url into dest, or pulls when dest already holds a checkout.
func (e *RealExecutor) Fetch(ctx context.Context, url, dest string) error {
	start := time.Now()

	isCheckout, err := paths.Exists(filepath.Join(dest, ".git"))
	if err != nil {
		return fmt.Errorf("checking %s: %w", dest, err)
	}

	if isCheckout {
		log.Debug(log.CatFetch, "Updating existing checkout", "url", url, "dest", dest)
		if _, err := e.runGitOutput(ctx, "-C", dest, "pull", "--ff-only"); err != nil {
			return fmt.Errorf("git pull %s: %w", dest, err)
		}
		log.Info(log.CatFetch, "Updated checkout", "dest", dest, "duration", time.Since(start))
		return nil
	}

	log.Debug(log.CatFetch, "Cloning repository", "url", url, "dest", dest)
	if _, err := e.runGitOutput(ctx, "clone", url, dest); err != nil {
		return fmt.Errorf("git clone %s: %w", url, err)
	}
	log.Info(log.CatFetch, "Cloned repository", "url", url, "dest", dest, "duration", time.Since(start))
	return nil
}

// Revision returns the HEAD commit of the checkout at dir.
func (e *RealExecutor) Revision(ctx context.Context, dir string) (string, error) {
	return e.runGitOutput(ctx, "-C", dir, "rev-parse", "HEAD")
}

// Version returns the output of `git --version`.
func (e *RealExecutor) Version(ctx context.Context) (string, error) {
	return e.runGitOutput(ctx, "--version")
}
