package extract

import "github.com/handiism/xivextract/internal/model"

// EffectiveWorkers clamps a requested worker count to what a manifest of
// total paths can use: min(requested, max(total, 1)), and never below 1.
func EffectiveWorkers(requested, total int) int {
	if requested < 1 {
		requested = 1
	}
	return min(requested, max(total, 1))
}

// Partition splits manifest into contiguous chunks, one per effective
// worker.
//
// Every chunk holds len(manifest)/n paths except the last, which also
// takes the remainder. Blocks stay contiguous so each worker walks a run
// of neighbouring paths; balance is not the goal. Requests for more
// workers than paths are clamped (see EffectiveWorkers), so no chunk is
// ever computed with a zero share. An empty manifest yields a single
// empty chunk.
func Partition(manifest model.Manifest, workers int) []model.Chunk {
	total := len(manifest)
	n := EffectiveWorkers(workers, total)
	size := total / n

	chunks := make([]model.Chunk, n)
	for i := range chunks {
		start := i * size
		end := start + size
		if i == n-1 {
			end = total
		}
		chunks[i] = model.Chunk{
			Index: i,
			Start: start,
			Paths: manifest[start:end:end],
		}
	}
	return chunks
}
