package ioutils

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned for virtual paths that would resolve outside
// the output root.
var ErrUnsafePath = errors.New("virtual path escapes output root")

// WriteFile writes data to a file, creating it if necessary.
//
// The file is created with mode 0644 and truncated if it exists. Nothing
// is written once ctx is done.
func WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
//
// Example:
//
//	err := EnsureDir("/export/chara/human/c0101")
//	// Creates /export, /export/chara, ... if needed
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// LocalPath maps a virtual path onto root.
//
// Both slash and backslash separators are accepted in the virtual path and
// become directory separators under root. An error wrapping ErrUnsafePath
// is returned when the result would not be contained in root.
//
// Example:
//
//	LocalPath("/out", "bg/ex1/01_roc_r2/twn/r2t1/level/bg.lgb")
//	// "/out/bg/ex1/01_roc_r2/twn/r2t1/level/bg.lgb"
func LocalPath(root, virtualPath string) (string, error) {
	slashed := strings.ReplaceAll(virtualPath, `\`, "/")
	if !fs.ValidPath(slashed) || slashed == "." {
		return "", fmt.Errorf("%q: %w", virtualPath, ErrUnsafePath)
	}
	native := filepath.FromSlash(slashed)
	if !filepath.IsLocal(native) {
		return "", fmt.Errorf("%q: %w", virtualPath, ErrUnsafePath)
	}
	return filepath.Join(root, native), nil
}

// Writer persists extracted files under a fixed output root.
//
// Writer holds no mutable state and is safe for concurrent use. Two
// concurrent writes to the same virtual path race at the filesystem level;
// whichever finishes last wins.
type Writer struct {
	root string
}

// NewWriter creates a Writer rooted at root.
func NewWriter(root string) *Writer {
	return &Writer{root: root}
}

// Root returns the output root directory.
func (w *Writer) Root() string {
	return w.root
}

// Path returns the local path a virtual path maps to.
func (w *Writer) Path(virtualPath string) (string, error) {
	return LocalPath(w.root, virtualPath)
}

// Write creates the parent directories of the mapped path and writes data
// to it in one call.
//
// The returned local path is set whenever mapping succeeded, even if the
// write itself failed. Mapping failures wrap ErrUnsafePath; directory and
// write failures wrap the underlying *fs.PathError.
func (w *Writer) Write(ctx context.Context, virtualPath string, data []byte) (string, error) {
	local, err := w.Path(virtualPath)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(local)
	if err := EnsureDir(dir); err != nil {
		return local, fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := WriteFile(ctx, local, data); err != nil {
		return local, fmt.Errorf("write %s: %w", local, err)
	}
	return local, nil
}
