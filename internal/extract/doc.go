// Package extract coordinates a bulk extraction run.
//
// # Coordinator
//
// The Coordinator drives the whole run:
//
//  1. Fetch the manifest once from a manifest.Source
//  2. Partition it into contiguous chunks, one per worker
//  3. Start one worker per chunk, each with its own archive Reader
//  4. Wait for every worker to finish
//  5. Report the summary and any fatal worker errors
//
// # Basic Usage
//
//	coord := extract.NewCoordinator(src, extract.SQPackOpener(installDir),
//	    ioutils.NewWriter(outDir), extract.Options{Workers: 8},
//	    func(event extract.ProgressEvent) {
//	        fmt.Println(event.Message)
//	    })
//
//	summary, err := coord.Run(ctx)
//
// # Error Policy
//
// A path missing from the archive is skipped and never reported on its
// own. A path the archive cannot decode, or one that would land outside
// the output root, is skipped with a warning. A failed directory creation
// or file write stops the worker that hit it; the other workers finish
// their own chunks and Run returns every such error once all have joined.
// Workers never cancel one another. Cancelling the context stops every
// worker before its next path.
//
// # Progress Tracking
//
// All workers share one Progress counter. The worker whose increment lands
// on a multiple of Options.ProgressInterval emits an Info event with the
// completed/total line.
package extract
