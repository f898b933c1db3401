// Package http provides the HTTP client used to fetch extraction manifests.
//
// The Client in this package handles:
//   - User-Agent headers
//   - Timeout handling
//   - Rejecting non-200 responses
//
// # Basic Usage
//
//	client := http.NewClient("xivextract", 60*time.Second)
//
//	// Fetch a compressed path list
//	body, err := client.Get(ctx, "https://rl2.perchbird.dev/download/export/CurrentPathList.gz")
package http
