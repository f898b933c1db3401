// Package model defines the core data structures used throughout
// the xivextract application.
//
// # Manifest
//
// Manifest is the ordered list of virtual asset paths to extract. It is
// fetched once per run and never modified afterwards:
//
//	manifest := model.Manifest{"exd/root.exl", "chara/human/c0101/skeleton.sklb"}
//	fmt.Println(manifest.Len())
//
// Duplicates are kept as-is; the manifest is not validated.
//
// # Chunk
//
// Chunk is a contiguous slice of the manifest handed to exactly one
// extraction worker. Concatenating every chunk in Index order reconstructs
// the manifest:
//
//	for _, c := range chunks {
//	    fmt.Printf("worker %d: paths %d..%d\n", c.Index, c.Start, c.End())
//	}
//
// # Outcome
//
// Outcome records what happened to a single virtual path:
//
//	switch outcome.Kind {
//	case model.OutcomeExtracted:
//	case model.OutcomeNotFound:
//	case model.OutcomeWriteFailed:
//	}
package model
