// Package paths resolves OS-specific locations and names used by bolt.
package paths

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// libConvention is the dynamic-library prefix and extension for a platform.
type libConvention struct {
	prefix string
	ext    string
}

// libConventions is keyed by GOOS. Platforms missing from the table use
// elfConvention.
var libConventions = map[string]libConvention{
	"linux":   {prefix: "lib", ext: "so"},
	"darwin":  {prefix: "lib", ext: "dylib"},
	"windows": {prefix: "", ext: "dll"},
}

var elfConvention = libConvention{prefix: "lib", ext: "so"}

// homeVars maps GOOS to the variable holding the user's home directory.
var homeVars = map[string]string{
	"windows": "USERPROFILE",
}

// Env answers platform questions for one GOOS and one environment.
type Env struct {
	GOOS      string
	LookupEnv func(key string) (string, bool)
}

// Host returns the Env of the running process.
func Host() Env {
	return Env{GOOS: runtime.GOOS, LookupEnv: os.LookupEnv}
}

// HomeDir returns the user's home directory, or false if the platform's
// home variable is unset or empty.
func (e Env) HomeDir() (string, bool) {
	name, ok := homeVars[e.GOOS]
	if !ok {
		name = "HOME"
	}
	if e.LookupEnv == nil {
		return "", false
	}
	dir, ok := e.LookupEnv(name)
	if !ok || dir == "" {
		return "", false
	}
	return dir, true
}

// LibFileName returns the file name cargo gives the cdylib of crateName,
// e.g. libfoo.so, libfoo.dylib or foo.dll.
func (e Env) LibFileName(crateName string) string {
	conv, ok := libConventions[e.GOOS]
	if !ok {
		conv = elfConvention
	}
	return fmt.Sprintf("%s%s.%s", conv.prefix, crateName, conv.ext)
}

// EnsureDir creates dir if it is missing. An existing directory is not an
// error; an existing non-directory is.
func EnsureDir(dir string) error {
	err := os.Mkdir(dir, 0o755)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return err
	}
	info, statErr := os.Stat(dir)
	if statErr != nil {
		return statErr
	}
	if !info.IsDir() {
		return fmt.Errorf("%s exists and is not a directory: %w", dir, fs.ErrExist)
	}
	return nil
}

// Exists reports whether path exists. Only "not found" maps to false; other
// stat failures are returned.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// ExpandHome replaces a leading ~ in path with the home directory. Other
// paths are returned unchanged.
func (e Env) ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, ok := e.HomeDir()
	if !ok {
		return "", fmt.Errorf("expanding %s: home directory is not set", path)
	}
	return filepath.Join(home, path[1:]), nil
}
