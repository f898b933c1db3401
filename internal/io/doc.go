// Package ioutils provides the filesystem side of an extraction run.
//
// This package contains:
//   - Writer, which maps archive virtual paths onto an output root and
//     persists extracted bytes
//   - Directory creation and whole-file writes used by Writer
//
// # Output Writer
//
//	w := ioutils.NewWriter("/srv/export")
//
//	// "exd/root.exl" -> /srv/export/exd/root.exl
//	local, err := w.Write("exd/root.exl", data)
//
// Missing parent directories are created on demand. Creating a directory
// that already exists is not an error.
//
// # Path Safety
//
// Virtual paths come from a remote manifest. Writer refuses paths that are
// absolute, contain ".." segments, or are otherwise not local to the output
// root, returning ErrUnsafePath:
//
//	_, err := w.Write("../../etc/passwd", data)
//	errors.Is(err, ioutils.ErrUnsafePath) // true
package ioutils
