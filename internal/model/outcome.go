package model

import "fmt"

// OutcomeKind classifies the result of extracting one virtual path.
type OutcomeKind int

const (
	// OutcomeExtracted means the bytes were read and written to disk.
	OutcomeExtracted OutcomeKind = iota

	// OutcomeNotFound means the archive has no entry for the path.
	// This is expected and never aborts a run.
	OutcomeNotFound

	// OutcomeReadFailed means the archive holds the entry but could not
	// produce its bytes (unsupported or corrupt). Skipped like NotFound.
	OutcomeReadFailed

	// OutcomeRejected means the virtual path would escape the output root.
	OutcomeRejected

	// OutcomeWriteFailed means directory creation or the file write failed.
	// Fatal for the worker that hit it.
	OutcomeWriteFailed
)

// String returns a short lowercase name for the kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeExtracted:
		return "extracted"
	case OutcomeNotFound:
		return "not found"
	case OutcomeReadFailed:
		return "read failed"
	case OutcomeRejected:
		return "rejected"
	case OutcomeWriteFailed:
		return "write failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the per-path result of an extraction attempt.
type Outcome struct {
	// Path is the virtual path that was attempted.
	Path string

	// Kind classifies the result.
	Kind OutcomeKind

	// Bytes is the number of bytes written. Only set for OutcomeExtracted.
	Bytes int

	// LocalPath is where the file was (or would have been) written.
	LocalPath string

	// Err holds the underlying error for every kind except OutcomeExtracted.
	Err error
}

// Fatal reports whether the outcome stops the worker that produced it.
func (o Outcome) Fatal() bool {
	return o.Kind == OutcomeWriteFailed
}
