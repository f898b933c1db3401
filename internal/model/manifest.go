package model

// Manifest is the ordered sequence of virtual paths for a run.
//
// Order carries no meaning for the archive but keeps partitioning
// deterministic: the same manifest and worker count always produce the
// same chunks.
type Manifest []string

// Len returns the number of entries, duplicates included.
func (m Manifest) Len() int {
	return len(m)
}

// Chunk is a contiguous, order-preserving slice of a Manifest assigned to
// one worker.
type Chunk struct {
	// Index is the worker slot this chunk belongs to (0-based).
	Index int

	// Start is the offset of the first path within the parent manifest.
	Start int

	// Paths are the virtual paths in manifest order.
	Paths []string
}

// Len returns the number of paths in the chunk.
func (c Chunk) Len() int {
	return len(c.Paths)
}

// End returns the offset one past the last path within the parent manifest.
func (c Chunk) End() int {
	return c.Start + len(c.Paths)
}

// Empty reports whether the chunk carries no work.
func (c Chunk) Empty() bool {
	return len(c.Paths) == 0
}
