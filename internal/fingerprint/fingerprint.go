// Package fingerprint hashes a crate source tree so build history can show
// what an artifact was built from.
package fingerprint

import (
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"lukechampine.com/blake3"
)

// skipDirs are never descended into. target holds cargo output and .git the
// repository metadata; neither is source.
var skipDirs = map[string]bool{
	"target": true,
	".git":   true,
}

// Tree returns the hex BLAKE3 digest of every regular file under root,
// keyed by slash-separated relative path. Renaming a file changes the
// digest even when its content does not.
func Tree(root string) (string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", root)
	}

	h := blake3.New(32, nil)
	buf := make([]byte, 32*1024)

	// WalkDir visits entries in lexical order, so the digest is stable.
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		writeField(h, []byte(filepath.ToSlash(rel)))

		sum, err := File(path, buf)
		if err != nil {
			return err
		}
		writeField(h, sum)
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// File returns the raw BLAKE3 digest of the file at path. buf is used for
// copying and may be nil.
func File(path string, buf []byte) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// writeField writes b with a length prefix so adjacent fields cannot run
// together.
func writeField(w io.Writer, b []byte) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(b)))
	_, _ = w.Write(n[:])
	_, _ = w.Write(b)
}
