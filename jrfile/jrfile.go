// Package jrfile reads and writes the files json-repair operates on.
//
// This package provides:
//   - ReadBounded / ReadFile: size-bounded input reads
//   - Decode: BOM-aware decoding of UTF-8 and UTF-16 input to UTF-8
//   - Terminate: one trailing LF for output files
//   - WriteAtomic: crash-safe writes (temp + fsync + rename)
package jrfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/lattice-substrate/json-repair/jrerr"
)

// DefaultPerm is the mode of files created by WriteAtomic when no file
// exists at the target path.
const DefaultPerm fs.FileMode = 0o644

// ReadBounded reads all of r, failing with BOUND_EXCEEDED once more than
// maxSize bytes arrive.
func ReadBounded(r io.Reader, maxSize int) ([]byte, error) {
	lr := io.LimitReader(r, int64(maxSize)+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, jrerr.Wrap(jrerr.InternalIO, -1, "read input", err)
	}
	if len(data) > maxSize {
		return nil, jrerr.Newf(jrerr.BoundExceeded, -1, "input exceeds maximum size %d bytes", maxSize)
	}
	return data, nil
}

// ReadFile opens path and reads it with ReadBounded.
func ReadFile(path string, maxSize int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, jrerr.Wrap(jrerr.InternalIO, -1, fmt.Sprintf("open %q", path), err)
	}
	defer func() {
		_ = f.Close()
	}()
	return ReadBounded(f, maxSize)
}

// Decode converts input carrying a UTF-8, UTF-16BE or UTF-16LE byte order
// mark to UTF-8 without the mark. Input without a BOM is returned unchanged.
func Decode(data []byte) ([]byte, error) {
	if !hasBOM(data) {
		return data, nil
	}
	dec := unicode.BOMOverride(encoding.Nop.NewDecoder())
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return nil, jrerr.Wrap(jrerr.InvalidCharacter, 0, "decode byte order mark", err)
	}
	return out, nil
}

func hasBOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(data, []byte{0xFE, 0xFF}) ||
		bytes.HasPrefix(data, []byte{0xFF, 0xFE})
}

// Terminate returns data with exactly one trailing LF.
func Terminate(data []byte) []byte {
	body := bytes.TrimRight(data, "\n")
	result := make([]byte, len(body)+1)
	copy(result, body)
	result[len(body)] = '\n'
	return result
}

// WriteAtomic writes data to path atomically using temp file + rename.
// An existing file keeps its permission bits. On failure, the temp file is
// cleaned up and the target is left untouched.
//
// The rename is atomic when the temp file and target share a filesystem,
// which holds because the temp file is created next to the target.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	perm := DefaultPerm
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	} else if !errors.Is(err, fs.ErrNotExist) {
		return jrerr.Wrap(jrerr.InternalIO, -1, fmt.Sprintf("stat %q", path), err)
	}

	tmp, err := os.CreateTemp(dir, ".json-repair-*.tmp")
	if err != nil {
		return jrerr.Wrap(jrerr.InternalIO, -1, "create temp file", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return jrerr.Wrap(jrerr.InternalIO, -1, "write temp file", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return jrerr.Wrap(jrerr.InternalIO, -1, "chmod temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		return jrerr.Wrap(jrerr.InternalIO, -1, "sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return jrerr.Wrap(jrerr.InternalIO, -1, "close temp file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return jrerr.Wrap(jrerr.InternalIO, -1, "rename temp to final", err)
	}
	success = true

	// Best-effort: the data is already in place.
	syncDir(dir)
	return nil
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
