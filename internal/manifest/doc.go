// Package manifest fetches the list of virtual paths to extract.
//
// A Source exposes a single operation, Fetch, returning the ordered
// manifest. Two encodings are supported:
//
//   - PathList: a (by default gzip compressed) UTF-8 text file with one
//     virtual path per line
//   - CSV: comma separated records whose third field is the virtual path
//
// # Basic Usage
//
//	client := http.NewClient("", 0)
//	src := manifest.NewPathList(client, manifest.DefaultURL)
//
//	paths, err := src.Fetch(ctx)
//	if err != nil {
//	    var fe *manifest.FetchError
//	    errors.As(err, &fe) // always true
//	}
//
// # Errors
//
// Every failure (transport, decompression, malformed record) is returned
// as a *FetchError. A manifest that cannot be fetched is fatal: no
// extraction work starts without one.
package manifest
