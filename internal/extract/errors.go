package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrArchiveOpen is wrapped when a worker cannot open its Reader.
	ErrArchiveOpen = errors.New("open archive")

	// ErrNoManifest is returned by Extract before a successful Fetch.
	ErrNoManifest = errors.New("manifest not fetched")
)

// WriteError reports a path whose output could not be persisted. It is
// fatal for the worker that produced it.
type WriteError struct {
	Worker    int
	Path      string
	LocalPath string
	Err       error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("worker %d: write %s to %s: %v", e.Worker, e.Path, e.LocalPath, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
