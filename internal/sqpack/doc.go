// Package sqpack reads files out of a FINAL FANTASY XIV style SqPack
// installation.
//
// A game install keeps its assets in repositories under game/sqpack
// (ffxiv, ex1, ex2, ...). Each repository holds index files that map a
// hashed virtual path to a location inside one of the numbered dat files.
//
// # Basic Usage
//
//	r, err := sqpack.Open("/games/ffxiv")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	data, err := r.Read("exd/root.exl")
//	if errors.Is(err, sqpack.ErrNotFound) {
//	    // the install has no such file
//	}
//
// # Supported Entries
//
// Standard (type 2) and texture (type 4) entries are reconstructed into
// the original file bytes. Empty placeholders (type 1) read as
// ErrNotFound. Model entries (type 3) and hash synonyms return
// ErrUnsupported.
//
// # Concurrency
//
// A Reader caches parsed indexes and open dat handles and is not safe for
// concurrent use. Open one Reader per goroutine.
package sqpack
