package fingerprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestTree_Stable(t *testing.T) {
	files := map[string]string{
		"Cargo.toml": "[package]\nname = \"x\"\n",
		"src/lib.rs": "pub fn f() {}\n",
	}
	a, err := Tree(writeTree(t, files))
	require.NoError(t, err)
	b, err := Tree(writeTree(t, files))
	require.NoError(t, err)

	require.Equal(t, a, b, "identical trees hash the same regardless of location")
	require.Len(t, a, 64)
}

func TestTree_ContentChange(t *testing.T) {
	root := writeTree(t, map[string]string{"src/lib.rs": "pub fn f() {}\n"})
	before, err := Tree(root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "lib.rs"), []byte("pub fn g() {}\n"), 0o644))
	after, err := Tree(root)
	require.NoError(t, err)

	require.NotEqual(t, before, after)
}

func TestTree_RenameChangesDigest(t *testing.T) {
	a, err := Tree(writeTree(t, map[string]string{"src/a.rs": "x"}))
	require.NoError(t, err)
	b, err := Tree(writeTree(t, map[string]string{"src/b.rs": "x"}))
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}

func TestTree_IgnoresTargetAndGit(t *testing.T) {
	base := map[string]string{"src/lib.rs": "pub fn f() {}\n"}
	clean, err := Tree(writeTree(t, base))
	require.NoError(t, err)

	withBuild := map[string]string{
		"src/lib.rs":                "pub fn f() {}\n",
		"target/release/libx.so":    "elf",
		".git/HEAD":                 "ref: refs/heads/main\n",
		"target/debug/.fingerprint": "junk",
	}
	dirty, err := Tree(writeTree(t, withBuild))
	require.NoError(t, err)

	require.Equal(t, clean, dirty)
}

func TestTree_NestedTargetNameStillSkipped(t *testing.T) {
	// Any directory named target is cargo output, even below the root.
	a, err := Tree(writeTree(t, map[string]string{"sub/src/lib.rs": "x"}))
	require.NoError(t, err)
	b, err := Tree(writeTree(t, map[string]string{"sub/src/lib.rs": "x", "sub/target/x": "y"}))
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestTree_Errors(t *testing.T) {
	_, err := Tree(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)

	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = Tree(file)
	require.ErrorContains(t, err, "not a directory")
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	sum, err := File(path, nil)
	require.NoError(t, err)
	require.Len(t, sum, 32)

	again, err := File(path, make([]byte, 4))
	require.NoError(t, err)
	require.Equal(t, sum, again)
}
